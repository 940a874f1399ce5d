package client

import (
	"math"
	"sort"

	"github.com/Ralsuliman/studysync-tasks/database"
)

// Filter values. "All" disables a filter.
const (
	FilterAll       = "All"
	StatusPending   = "Pending"
	StatusCompleted = "Completed"
)

// Sort modes.
const (
	SortNone     = "None"
	SortDueAsc   = "DueAsc"
	SortDueDesc  = "DueDesc"
	SortPriority = "Priority"
)

// ViewParams is client-local view state. It is never synchronized.
type ViewParams struct {
	Status   string
	Priority string
	Course   string
	Sort     string
}

// DefaultViewParams shows everything in insertion order.
func DefaultViewParams() ViewParams {
	return ViewParams{
		Status:   FilterAll,
		Priority: FilterAll,
		Course:   FilterAll,
		Sort:     SortNone,
	}
}

// CourseSummary is one dashboard row.
type CourseSummary struct {
	Course    string `json:"course"`
	Total     int    `json:"total"`
	Pending   int    `json:"pending"`
	Completed int    `json:"completed"`
}

// Project filters then sorts a replica's tasks for display. Filters
// are conjunctive, applied course first, then status, then priority;
// a record without a course or priority counts as defaultCourse /
// Medium. Sorts are stable, so ties keep their filtered order.
func Project(tasks []database.Task, params ViewParams, defaultCourse string) []database.Task {
	out := make([]database.Task, 0, len(tasks))
	for _, t := range tasks {
		if params.Course != FilterAll && params.Course != "" && taskCourse(t, defaultCourse) != params.Course {
			continue
		}
		if params.Status == StatusCompleted && !t.Completed {
			continue
		}
		if params.Status == StatusPending && t.Completed {
			continue
		}
		if params.Priority != FilterAll && params.Priority != "" && taskPriority(t) != params.Priority {
			continue
		}
		out = append(out, t)
	}

	switch params.Sort {
	case SortDueAsc:
		// Undated tasks sort after every dated one: no due date reads
		// as unbounded-future here.
		sort.SliceStable(out, func(i, j int) bool {
			return dueKey(out[i], math.MaxInt64) < dueKey(out[j], math.MaxInt64)
		})
	case SortDueDesc:
		// Undated tasks read as epoch-zero, the earliest possible
		// date, so a descending sort also leaves them at the end.
		// DueDesc is therefore not the reverse of DueAsc.
		sort.SliceStable(out, func(i, j int) bool {
			return dueKey(out[i], 0) > dueKey(out[j], 0)
		})
	case SortPriority:
		sort.SliceStable(out, func(i, j int) bool {
			return priorityRank(out[i].Priority) > priorityRank(out[j].Priority)
		})
	}

	return out
}

// Dashboard summarizes every task per configured course, regardless of
// any active view filters. Total always equals pending + completed.
func Dashboard(tasks []database.Task, courses []string) []CourseSummary {
	if len(courses) == 0 {
		return []CourseSummary{}
	}

	byCourse := make(map[string]*CourseSummary, len(courses))
	out := make([]CourseSummary, len(courses))
	for i, c := range courses {
		out[i] = CourseSummary{Course: c}
		byCourse[c] = &out[i]
	}

	for _, t := range tasks {
		row, ok := byCourse[taskCourse(t, courses[0])]
		if !ok {
			// Courses outside the configured enumeration are not
			// dashboard rows.
			continue
		}
		row.Total++
		if t.Completed {
			row.Completed++
		} else {
			row.Pending++
		}
	}

	return out
}

func taskCourse(t database.Task, defaultCourse string) string {
	if t.Course == "" {
		return defaultCourse
	}
	return t.Course
}

func taskPriority(t database.Task) string {
	if t.Priority == "" {
		return database.PriorityMedium
	}
	return t.Priority
}

func priorityRank(p string) int {
	switch p {
	case database.PriorityHigh:
		return 3
	case database.PriorityMedium:
		return 2
	case database.PriorityLow:
		return 1
	default:
		return 0
	}
}

func dueKey(t database.Task, sentinel int64) int64 {
	if t.DueDate == nil {
		return sentinel
	}
	return t.DueDate.UnixMilli()
}

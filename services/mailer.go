package services

import (
	"fmt"
	"net/smtp"

	"go.uber.org/zap"
)

// SMTPConfig holds the outgoing mail settings. Any empty field
// disables sending.
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// Mailer sends account verification emails. Without SMTP configured it
// logs the verification link instead, which is enough for local
// development.
type Mailer struct {
	config SMTPConfig
	log    *zap.SugaredLogger
}

func NewMailer(config SMTPConfig, log *zap.SugaredLogger) *Mailer {
	return &Mailer{config: config, log: log}
}

func (m *Mailer) configured() bool {
	return m.config.Host != "" && m.config.Port != "" &&
		m.config.Username != "" && m.config.Password != ""
}

// SendVerificationEmail delivers the verification link to the address.
func (m *Mailer) SendVerificationEmail(to, verifyLink string) error {
	if !m.configured() {
		m.log.Infow("smtp not configured, logging verification link",
			"to", to, "link", verifyLink)
		return nil
	}

	auth := smtp.PlainAuth("", m.config.Username, m.config.Password, m.config.Host)

	from := m.config.From
	if from == "" {
		from = m.config.Username
	}

	subject := "Verify your StudySync email"
	body := fmt.Sprintf("Click the link below to verify your email:\n\n%s\n\nIf you didn't create an account, you can safely ignore this email.", verifyLink)
	message := fmt.Sprintf("From: %s\nTo: %s\nSubject: %s\n\n%s", from, to, subject, body)

	addr := fmt.Sprintf("%s:%s", m.config.Host, m.config.Port)
	if err := smtp.SendMail(addr, auth, from, []string{to}, []byte(message)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

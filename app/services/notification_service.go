// Package services provides external service integrations and technical concerns like notifications and tokens
package services

import (
	"fmt"
	"log"
	"net/smtp"
	"strings"
)

// NotificationService delivers account lifecycle emails
type NotificationService interface {
	SendActivationEmail(email, activationToken string) error
	SendPasswordResetEmail(email, resetToken string) error
}

// EmailProvider interface for email sending
type EmailProvider interface {
	SendEmail(email, subject, message string) error
}

// NotificationServiceImpl implements NotificationService
type NotificationServiceImpl struct {
	emailProvider EmailProvider
	frontendURL   string
}

// NewNotificationService creates a new notification service. Links in the
// outgoing emails point at frontendURL.
func NewNotificationService(emailProvider EmailProvider, frontendURL string) NotificationService {
	return &NotificationServiceImpl{
		emailProvider: emailProvider,
		frontendURL:   strings.TrimRight(frontendURL, "/"),
	}
}

// SendActivationEmail sends the account activation link to a new user
func (s *NotificationServiceImpl) SendActivationEmail(email, activationToken string) error {
	if s.emailProvider == nil {
		return fmt.Errorf("email provider not configured")
	}

	if len(email) == 0 || !strings.Contains(email, "@") {
		return fmt.Errorf("invalid email address: %s", email)
	}

	link := fmt.Sprintf("%s/activate?token=%s", s.frontendURL, activationToken)
	message := fmt.Sprintf("Welcome! Activate your account by visiting the link below.\n\n%s\n\nThe link expires in 24 hours.", link)

	return s.emailProvider.SendEmail(email, "Activate your account", message)
}

// SendPasswordResetEmail sends the password reset link to a user
func (s *NotificationServiceImpl) SendPasswordResetEmail(email, resetToken string) error {
	if s.emailProvider == nil {
		return fmt.Errorf("email provider not configured")
	}

	if len(email) == 0 || !strings.Contains(email, "@") {
		return fmt.Errorf("invalid email address: %s", email)
	}

	link := fmt.Sprintf("%s/reset-password?token=%s", s.frontendURL, resetToken)
	message := fmt.Sprintf("A password reset was requested for your account. Use the link below to choose a new password.\n\n%s\n\nThe link expires in 1 hour. If you did not request this, ignore this email.", link)

	return s.emailProvider.SendEmail(email, "Reset your password", message)
}

type MockEmailProvider struct{}

func NewMockEmailProvider() EmailProvider {
	return &MockEmailProvider{}
}

func (p *MockEmailProvider) SendEmail(email, subject, message string) error {
	log.Printf("Email sent to %s [%s]: %s", email, subject, message)
	return nil
}

type SMTPEmailProvider struct {
	host      string
	port      int
	username  string
	password  string
	fromEmail string
}

func NewSMTPEmailProvider(host string, port int, username, password, fromEmail string) EmailProvider {
	return &SMTPEmailProvider{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromEmail: fromEmail,
	}
}

func (p *SMTPEmailProvider) SendEmail(email, subject, message string) error {
	addr := fmt.Sprintf("%s:%d", p.host, p.port)
	auth := smtp.PlainAuth("", p.username, p.password, p.host)

	msg := strings.Join([]string{
		fmt.Sprintf("From: %s", p.fromEmail),
		fmt.Sprintf("To: %s", email),
		fmt.Sprintf("Subject: %s", subject),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		message,
	}, "\r\n")

	if err := smtp.SendMail(addr, auth, p.fromEmail, []string{email}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", email, err)
	}

	return nil
}

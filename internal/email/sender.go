package email

import (
	"fmt"
	"strings"

	"github.com/jjgames/storefront/internal/config"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	log "github.com/sirupsen/logrus"
)

// Sender delivers transactional mail.
type Sender interface {
	SendOTP(to, name, code string) error
}

// NewSender picks the sendgrid sender when an API key is configured, and a
// logging no-op otherwise so local setups work without credentials.
func NewSender(cfg config.EmailConfig) Sender {
	if strings.TrimSpace(cfg.SendGridAPIKey) == "" {
		return noopSender{}
	}
	return &sendGridSender{
		client:      sendgrid.NewSendClient(cfg.SendGridAPIKey),
		fromAddress: cfg.FromAddress,
		fromName:    cfg.FromName,
	}
}

// sendGridSender delivers mail through the SendGrid API.
type sendGridSender struct {
	client      *sendgrid.Client
	fromAddress string
	fromName    string
}

// SendOTP emails a verification code to a new account.
func (s *sendGridSender) SendOTP(to, name, code string) error {
	from := mail.NewEmail(s.fromName, s.fromAddress)
	recipient := mail.NewEmail(name, to)
	subject := "Verify your JJ Games account"
	plain := fmt.Sprintf("Your verification code is %s. It expires in 10 minutes.", code)
	html := fmt.Sprintf("<p>Your verification code is <strong>%s</strong>. It expires in 10 minutes.</p>", code)

	message := mail.NewSingleEmail(from, subject, recipient, plain, html)
	response, errSend := s.client.Send(message)
	if errSend != nil {
		return fmt.Errorf("email: send otp: %w", errSend)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("email: send otp: status %d", response.StatusCode)
	}
	return nil
}

// noopSender logs instead of sending; used when no API key is configured.
type noopSender struct{}

// SendOTP logs the code at debug level.
func (noopSender) SendOTP(to, _, code string) error {
	log.WithFields(log.Fields{"to": to, "code": code}).Debug("email sending disabled; otp not delivered")
	return nil
}

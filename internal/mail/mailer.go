package mail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// Attachment is an inline file carried with an outbound message.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Message describes a single outbound email.
type Message struct {
	To          string
	ToName      string
	Subject     string
	TextBody    string
	HTMLBody    string
	Attachments []Attachment
}

// Mailer sends transactional email.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SendGridMailer delivers messages through the SendGrid v3 API.
type SendGridMailer struct {
	fromAddress string
	fromName    string
	logger      *zap.Logger
	send        func(ctx context.Context, email *sgmail.SGMailV3) (*rest.Response, error)
}

// SendGridConfig configures the SendGridMailer.
type SendGridConfig struct {
	APIKey      string
	FromAddress string
	FromName    string
	Logger      *zap.Logger
	// SendFunc overrides the SendGrid transport, used by tests.
	SendFunc func(ctx context.Context, email *sgmail.SGMailV3) (*rest.Response, error)
}

// NewSendGridMailer constructs a SendGridMailer.
func NewSendGridMailer(cfg SendGridConfig) (*SendGridMailer, error) {
	fromAddress := strings.TrimSpace(cfg.FromAddress)
	if fromAddress == "" {
		return nil, errors.New("mail: from address is required")
	}

	send := cfg.SendFunc
	if send == nil {
		apiKey := strings.TrimSpace(cfg.APIKey)
		if apiKey == "" {
			return nil, errors.New("mail: sendgrid api key is required")
		}
		client := sendgrid.NewSendClient(apiKey)
		send = func(ctx context.Context, email *sgmail.SGMailV3) (*rest.Response, error) {
			return client.SendWithContext(ctx, email)
		}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SendGridMailer{
		fromAddress: fromAddress,
		fromName:    strings.TrimSpace(cfg.FromName),
		logger:      logger.Named("mail"),
		send:        send,
	}, nil
}

// Send delivers the message. Responses of 400 and above are errors so callers
// can decide whether delivery failures should abort their flow.
func (m *SendGridMailer) Send(ctx context.Context, msg Message) error {
	if m == nil {
		return errors.New("mail: mailer is nil")
	}
	to := strings.TrimSpace(msg.To)
	if to == "" {
		return errors.New("mail: recipient is required")
	}

	from := sgmail.NewEmail(m.fromName, m.fromAddress)
	recipient := sgmail.NewEmail(msg.ToName, to)

	text := msg.TextBody
	if text == "" {
		text = " "
	}
	html := msg.HTMLBody
	if html == "" {
		html = "<pre>" + text + "</pre>"
	}

	email := sgmail.NewSingleEmail(from, msg.Subject, recipient, text, html)
	for _, att := range msg.Attachments {
		if len(att.Content) == 0 {
			continue
		}
		attachment := sgmail.NewAttachment()
		attachment.SetFilename(att.Filename)
		attachment.SetType(att.ContentType)
		attachment.SetContent(base64.StdEncoding.EncodeToString(att.Content))
		attachment.SetDisposition("attachment")
		email.AddAttachment(attachment)
	}

	response, err := m.send(ctx, email)
	if err != nil {
		return fmt.Errorf("mail: sendgrid send: %w", err)
	}
	if response != nil && response.StatusCode >= 400 {
		m.logger.Warn("sendgrid rejected message",
			zap.Int("status", response.StatusCode),
			zap.String("subject", msg.Subject),
		)
		return fmt.Errorf("mail: sendgrid send failed with status %d", response.StatusCode)
	}

	m.logger.Info("mail sent",
		zap.String("subject", msg.Subject),
	)
	return nil
}

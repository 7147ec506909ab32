package mail

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/sendgrid/rest"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

func TestSendGridMailerBuildsMessage(t *testing.T) {
	var sent *sgmail.SGMailV3
	mailer, err := NewSendGridMailer(SendGridConfig{
		FromAddress: "shop@fotomart.test",
		FromName:    "FotoMart",
		SendFunc: func(ctx context.Context, email *sgmail.SGMailV3) (*rest.Response, error) {
			sent = email
			return &rest.Response{StatusCode: 202}, nil
		},
	})
	if err != nil {
		t.Fatalf("new mailer: %v", err)
	}

	err = mailer.Send(context.Background(), Message{
		To:       "buyer@example.com",
		Subject:  "Your order",
		HTMLBody: "<p>Thanks!</p>",
		Attachments: []Attachment{
			{Filename: "photo.jpg", ContentType: "image/jpeg", Content: []byte("jpeg-bytes")},
		},
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	if sent == nil {
		t.Fatalf("expected send func to be invoked")
	}
	if sent.From.Address != "shop@fotomart.test" || sent.From.Name != "FotoMart" {
		t.Fatalf("unexpected from: %+v", sent.From)
	}
	if len(sent.Personalizations) == 0 || len(sent.Personalizations[0].To) == 0 {
		t.Fatalf("expected recipient")
	}
	if got := sent.Personalizations[0].To[0].Address; got != "buyer@example.com" {
		t.Fatalf("unexpected recipient %q", got)
	}
	if len(sent.Attachments) != 1 {
		t.Fatalf("expected one attachment, got %d", len(sent.Attachments))
	}
	wantContent := base64.StdEncoding.EncodeToString([]byte("jpeg-bytes"))
	if sent.Attachments[0].Content != wantContent {
		t.Fatalf("expected base64 attachment content")
	}
}

func TestSendGridMailerRejectsErrorStatus(t *testing.T) {
	mailer, err := NewSendGridMailer(SendGridConfig{
		FromAddress: "shop@fotomart.test",
		SendFunc: func(ctx context.Context, email *sgmail.SGMailV3) (*rest.Response, error) {
			return &rest.Response{StatusCode: 401, Body: "unauthorized"}, nil
		},
	})
	if err != nil {
		t.Fatalf("new mailer: %v", err)
	}

	if err := mailer.Send(context.Background(), Message{To: "buyer@example.com", Subject: "x"}); err == nil {
		t.Fatalf("expected error for status >= 400")
	}
}

func TestSendGridMailerPropagatesTransportError(t *testing.T) {
	wantErr := errors.New("connection refused")
	mailer, err := NewSendGridMailer(SendGridConfig{
		FromAddress: "shop@fotomart.test",
		SendFunc: func(ctx context.Context, email *sgmail.SGMailV3) (*rest.Response, error) {
			return nil, wantErr
		},
	})
	if err != nil {
		t.Fatalf("new mailer: %v", err)
	}

	if err := mailer.Send(context.Background(), Message{To: "buyer@example.com"}); !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped transport error, got %v", err)
	}
}

func TestSendGridMailerRequiresRecipient(t *testing.T) {
	mailer, err := NewSendGridMailer(SendGridConfig{
		FromAddress: "shop@fotomart.test",
		SendFunc: func(ctx context.Context, email *sgmail.SGMailV3) (*rest.Response, error) {
			t.Fatalf("send func should not be called")
			return nil, nil
		},
	})
	if err != nil {
		t.Fatalf("new mailer: %v", err)
	}
	if err := mailer.Send(context.Background(), Message{}); err == nil {
		t.Fatalf("expected error for missing recipient")
	}
}

package notify

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/plenasaude/quote-assistant/pkg/logging"
)

type fakeSendGrid struct {
	sent   []*mail.SGMailV3
	status int
	err    error
}

func (f *fakeSendGrid) SendWithContext(_ context.Context, email *mail.SGMailV3) (*rest.Response, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, email)
	return &rest.Response{StatusCode: f.status, Body: "{}"}, nil
}

type fakeSES struct {
	inputs []*sesv2.SendEmailInput
	err    error
}

func (f *fakeSES) SendEmail(_ context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.inputs = append(f.inputs, in)
	return &sesv2.SendEmailOutput{MessageId: aws.String("ses-1")}, nil
}

func TestNewSendGridSender_NilWithoutAPIKey(t *testing.T) {
	if sender := NewSendGridSender(SendGridConfig{FromEmail: "quotes@plena.example"}, nil); sender != nil {
		t.Error("expected nil sender when API key is empty")
	}
}

func TestNewSendGridSender_DefaultFromName(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{APIKey: "test-key", FromEmail: "quotes@plena.example"}, nil)
	if sender == nil {
		t.Fatal("expected non-nil sender")
	}
	if sender.fromName != "Plena Saúde" {
		t.Errorf("expected default from name, got %q", sender.fromName)
	}
}

func TestSendGridSender_Send(t *testing.T) {
	fake := &fakeSendGrid{status: http.StatusAccepted}
	sender := &SendGridSender{client: fake, fromEmail: "quotes@plena.example", fromName: "Plena Saúde", logger: logging.Default()}

	err := sender.Send(context.Background(), EmailMessage{To: "broker@plena.example", Subject: "New lead", Body: "text"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fake.sent) != 1 {
		t.Fatalf("expected one email, got %d", len(fake.sent))
	}
	if fake.sent[0].Subject != "New lead" {
		t.Errorf("unexpected subject %q", fake.sent[0].Subject)
	}
}

func TestSendGridSender_Send_ErrorStatus(t *testing.T) {
	sender := &SendGridSender{client: &fakeSendGrid{status: http.StatusUnauthorized}, logger: logging.Default()}
	if err := sender.Send(context.Background(), EmailMessage{To: "x@y.z"}); err == nil {
		t.Fatal("expected error for 401 response")
	}
}

func TestSendGridSender_Send_NilClient(t *testing.T) {
	sender := &SendGridSender{}
	if err := sender.Send(context.Background(), EmailMessage{To: "x@y.z"}); err == nil {
		t.Fatal("expected error with nil client")
	}
}

func TestSESSender_Send(t *testing.T) {
	fake := &fakeSES{}
	sender := NewSESSender(fake, SESConfig{FromEmail: "quotes@plena.example"}, nil)

	err := sender.Send(context.Background(), EmailMessage{To: "broker@plena.example", Subject: "New lead", Body: "text", HTML: "<p>html</p>"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	in := fake.inputs[0]
	if got := aws.ToString(in.FromEmailAddress); got != "Plena Saúde <quotes@plena.example>" {
		t.Errorf("unexpected from %q", got)
	}
	if in.Destination.ToAddresses[0] != "broker@plena.example" {
		t.Errorf("unexpected recipients %v", in.Destination.ToAddresses)
	}
	if in.Content.Simple.Body.Text == nil || in.Content.Simple.Body.Html == nil {
		t.Errorf("expected text and html bodies")
	}
}

func TestSESSender_SendError(t *testing.T) {
	sender := NewSESSender(&fakeSES{err: errors.New("throttled")}, SESConfig{}, nil)
	if err := sender.Send(context.Background(), EmailMessage{To: "x@y.z"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewSESSender_NilClient(t *testing.T) {
	if NewSESSender(nil, SESConfig{}, nil) != nil {
		t.Error("expected nil sender without client")
	}
}

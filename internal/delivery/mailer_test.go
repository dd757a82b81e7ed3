package delivery

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/wneessen/go-mail"

	"mashup-go/internal/types"
)

type recordingSender struct {
	sent []*mail.Msg
	err  error
}

func (s *recordingSender) DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error {
	s.sent = append(s.sent, messages...)
	return s.err
}

func testOptions() Options {
	return Options{
		Host:     "smtp.example.com",
		Port:     587,
		Username: "mashup@example.com",
		Password: "secret",
	}
}

func TestBuildMessage_FixedSubjectAndSingleAttachment(t *testing.T) {
	m := New(testOptions(), nil)
	msg, err := BuildMessage(m.opts, []byte("PK\x03\x04zip"), "fan@example.com")
	if err != nil {
		t.Fatalf("BuildMessage: %v", err)
	}

	if got := msg.GetGenHeader(mail.HeaderSubject); len(got) != 1 || got[0] != "Mashup Result" {
		t.Fatalf("unexpected subject %v", got)
	}
	atts := msg.GetAttachments()
	if len(atts) != 1 || atts[0].Name != "mashup_result.zip" {
		t.Fatalf("expected one mashup_result.zip attachment, got %d", len(atts))
	}

	var raw bytes.Buffer
	if _, err := msg.WriteTo(&raw); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	out := raw.String()
	for _, want := range []string{"application/zip", "fan@example.com", "From: <mashup@example.com>"} {
		if !strings.Contains(out, want) {
			t.Fatalf("message missing %q:\n%s", want, out)
		}
	}
}

func TestDeliver_SendsOneMessage(t *testing.T) {
	sender := &recordingSender{}
	m := New(testOptions(), nil).WithSender(sender)

	if err := m.Deliver(context.Background(), []byte("zip"), "fan@example.com"); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected exactly one message, got %d", len(sender.sent))
	}
}

func TestDeliver_RelayFailureIsDeliveryError(t *testing.T) {
	sender := &recordingSender{err: errors.New("535 authentication failed")}
	m := New(testOptions(), nil).WithSender(sender)

	err := m.Deliver(context.Background(), []byte("zip"), "fan@example.com")
	if !errors.Is(err, types.ErrDelivery) {
		t.Fatalf("expected DeliveryError, got %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("delivery must not be retried, got %d attempts", len(sender.sent))
	}
}

func TestDeliver_BadRecipientIsDeliveryError(t *testing.T) {
	sender := &recordingSender{}
	m := New(testOptions(), nil).WithSender(sender)

	err := m.Deliver(context.Background(), []byte("zip"), "not an address")
	if !errors.Is(err, types.ErrDelivery) {
		t.Fatalf("expected DeliveryError, got %v", err)
	}
	if len(sender.sent) != 0 {
		t.Fatalf("nothing should be sent for a bad recipient")
	}
}

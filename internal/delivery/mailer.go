// Package delivery mails a packaged mashup to its requester over SMTP.
package delivery

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"

	"mashup-go/internal/logger"
	"mashup-go/internal/types"
)

const zipContentType mail.ContentType = "application/zip"

type Options struct {
	Host        string
	Port        int
	Username    string
	Password    string
	From        string
	Subject     string
	ArchiveName string
	Timeout     time.Duration
}

// Sender dials a relay and sends one message. *mail.Client satisfies it.
type Sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

type Mailer struct {
	opts Options
	log  *logger.Logger

	// newSender is replaced in tests.
	newSender func(Options) (Sender, error)
}

func New(opts Options, log *logger.Logger) *Mailer {
	if opts.Subject == "" {
		opts.Subject = "Mashup Result"
	}
	if opts.ArchiveName == "" {
		opts.ArchiveName = "mashup_result.zip"
	}
	if opts.From == "" {
		opts.From = opts.Username
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Mailer{opts: opts, log: log.Module("delivery"), newSender: dialer}
}

// WithSender makes the mailer hand messages to s instead of a relay client.
func (m *Mailer) WithSender(s Sender) *Mailer {
	cp := *m
	cp.newSender = func(Options) (Sender, error) { return s, nil }
	return &cp
}

func dialer(opts Options) (Sender, error) {
	clientOpts := []mail.Option{
		mail.WithPort(opts.Port),
		mail.WithTLSPolicy(mail.TLSMandatory),
	}
	if opts.Timeout > 0 {
		clientOpts = append(clientOpts, mail.WithTimeout(opts.Timeout))
	}
	if opts.Username != "" {
		clientOpts = append(clientOpts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(opts.Username),
			mail.WithPassword(opts.Password),
		)
	}
	return mail.NewClient(opts.Host, clientOpts...)
}

// Deliver sends archive to the given address as a single attachment. It makes
// one attempt; every failure is returned as a DeliveryError.
func (m *Mailer) Deliver(ctx context.Context, archive []byte, to string) error {
	log := m.log.WithField("to", to).WithField("bytes", len(archive))

	msg, err := BuildMessage(m.opts, archive, to)
	if err != nil {
		return types.DeliveryError(err)
	}

	sender, err := m.newSender(m.opts)
	if err != nil {
		return types.DeliveryError(fmt.Errorf("smtp client: %w", err))
	}

	start := time.Now()
	if err := sender.DialAndSendWithContext(ctx, msg); err != nil {
		log.WithField("error", err.Error()).Warn("delivery failed")
		return types.DeliveryError(fmt.Errorf("send via %s:%d: %w", m.opts.Host, m.opts.Port, err))
	}
	log.WithField("elapsed_ms", time.Since(start).Milliseconds()).Info("archive delivered")
	return nil
}

// BuildMessage assembles the outgoing mail without sending it.
func BuildMessage(opts Options, archive []byte, to string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(opts.From); err != nil {
		return nil, fmt.Errorf("sender %q: %w", opts.From, err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("recipient %q: %w", to, err)
	}
	msg.Subject(opts.Subject)
	msg.SetBodyString(mail.TypeTextPlain, "Your mashup is attached.")
	if err := msg.AttachReader(opts.ArchiveName, bytes.NewReader(archive),
		mail.WithFileContentType(zipContentType)); err != nil {
		return nil, fmt.Errorf("attach %s: %w", opts.ArchiveName, err)
	}
	return msg, nil
}

package email_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartbase/authcore/pkg/email"
	"github.com/cartbase/authcore/pkg/logger"
)

type captureSender struct {
	mu     sync.Mutex
	sent   []email.SendEmailParams
	err    error
	signal chan struct{}
}

func newCaptureSender(err error) *captureSender {
	return &captureSender{err: err, signal: make(chan struct{}, 16)}
}

func (c *captureSender) SendEmail(_ context.Context, p email.SendEmailParams) error {
	c.mu.Lock()
	c.sent = append(c.sent, p)
	c.mu.Unlock()
	c.signal <- struct{}{}
	return c.err
}

func (c *captureSender) last(t *testing.T) email.SendEmailParams {
	t.Helper()
	select {
	case <-c.signal:
	case <-time.After(2 * time.Second):
		t.Fatal("no email captured")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	require.NotEmpty(t, c.sent)
	return c.sent[len(c.sent)-1]
}

func TestMailer_SendMagicLink(t *testing.T) {
	t.Parallel()

	sender := newCaptureSender(nil)
	mailer := email.NewMailer(sender, "CartBase", "https://shop.example")

	require.NoError(t, mailer.SendMagicLink(context.Background(), "user@example.com", "tok123"))

	got := sender.last(t)
	assert.Equal(t, "user@example.com", got.SendTo)
	assert.Equal(t, "magic-link", got.Tag)
	assert.Contains(t, got.Subject, "CartBase")
	assert.Contains(t, got.BodyHTML, "https://shop.example/auth/magic-link/verify?token=tok123")
}

func TestMailer_SendPasswordReset(t *testing.T) {
	t.Parallel()

	sender := newCaptureSender(nil)
	mailer := email.NewMailer(sender, "CartBase", "https://shop.example")

	require.NoError(t, mailer.SendPasswordReset(context.Background(), "user@example.com", "rst456"))

	got := sender.last(t)
	assert.Equal(t, "password-reset", got.Tag)
	assert.Contains(t, got.BodyHTML, "token=rst456")
}

func TestMailer_SendSellerWelcome(t *testing.T) {
	t.Parallel()

	sender := newCaptureSender(nil)
	mailer := email.NewMailer(sender, "CartBase", "https://shop.example")

	require.NoError(t, mailer.SendSellerWelcome(context.Background(), "seller@example.com", "Ada", "Ada's <Gadgets>"))

	got := sender.last(t)
	assert.Equal(t, "seller-welcome", got.Tag)
	assert.Contains(t, got.BodyHTML, "Ada&#39;s &lt;Gadgets&gt;")
}

func TestMailer_PropagatesSenderError(t *testing.T) {
	t.Parallel()

	sender := newCaptureSender(errors.New("provider down"))
	mailer := email.NewMailer(sender, "CartBase", "https://shop.example")

	err := mailer.SendWelcome(context.Background(), "user@example.com", "Ada")
	assert.Error(t, err)
}

func TestNotifier_SwallowsFailures(t *testing.T) {
	t.Parallel()

	sender := newCaptureSender(errors.New("provider down"))
	mailer := email.NewMailer(sender, "CartBase", "https://shop.example")
	notifier := email.NewNotifier(mailer, logger.Discard())

	notifier.Welcome(context.Background(), "user@example.com", "Ada")

	// Delivery happens in the background; the capture channel proves the
	// attempt was made even though the sender failed.
	got := sender.last(t)
	assert.Equal(t, "welcome", got.Tag)
}

func TestNotifier_IgnoresCallerCancellation(t *testing.T) {
	t.Parallel()

	sender := newCaptureSender(nil)
	mailer := email.NewMailer(sender, "CartBase", "https://shop.example")
	notifier := email.NewNotifier(mailer, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	notifier.EmailVerification(ctx, "user@example.com", "tok")

	got := sender.last(t)
	assert.Equal(t, "email-verification", got.Tag)
}

func TestSendEmailParams_Validate(t *testing.T) {
	t.Parallel()

	valid := email.SendEmailParams{SendTo: "user@example.com", Subject: "hi", BodyHTML: "<p>hi</p>"}
	require.NoError(t, valid.Validate())

	for name, p := range map[string]email.SendEmailParams{
		"missing recipient": {Subject: "hi", BodyHTML: "<p>hi</p>"},
		"bad recipient":     {SendTo: "nope", Subject: "hi", BodyHTML: "<p>hi</p>"},
		"missing subject":   {SendTo: "user@example.com", BodyHTML: "<p>hi</p>"},
		"missing body":      {SendTo: "user@example.com", Subject: "hi"},
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Error(t, p.Validate())
		})
	}
}

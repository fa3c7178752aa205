package email

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type captureSender struct {
	to, subject, html, text string
	err                     error
}

func (c *captureSender) Send(_ context.Context, to, subject, html, text string) error {
	c.to, c.subject, c.html, c.text = to, subject, html, text
	return c.err
}

func TestMailer_VerificationUsesCallerURL(t *testing.T) {
	cs := &captureSender{}
	m := NewMailer(cs, "https://auth.example.com/", "/verify-email", "/magic-link")

	err := m.SendVerification(context.Background(), Message{
		To: "alice@example.com", Tenant: "Acme", LinkBase: "https://app.acme.io/verify?src=mail", Token: "abc", ExpiresIn: 24 * time.Hour,
	})
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", cs.to)
	require.Equal(t, "Verify your email for Acme", cs.subject)
	require.Contains(t, cs.text, "https://app.acme.io/verify?src=mail&token=abc")
	require.Contains(t, cs.text, "24 hours")
	require.Contains(t, cs.html, "Acme")
}

func TestMailer_MagicLinkFallsBackToBaseURL(t *testing.T) {
	cs := &captureSender{}
	m := NewMailer(cs, "https://auth.example.com/", "/verify-email", "/magic-link")

	require.NoError(t, m.SendMagicLink(context.Background(), Message{To: "a@x", Tenant: "Acme", Token: "t0k", ExpiresIn: 15 * time.Minute}))
	require.Contains(t, cs.text, "https://auth.example.com/magic-link?token=t0k")
	require.Contains(t, cs.text, "15 minutes")

	none := NewMailer(cs, "", "/v", "/l")
	require.ErrorIs(t, none.SendMagicLink(context.Background(), Message{To: "a@x", Token: "t"}), ErrNoLinkBase)
}

func TestMailer_SenderErrorPropagates(t *testing.T) {
	boom := errors.New("smtp down")
	m := NewMailer(&captureSender{err: boom}, "https://x", "/v", "/l")
	require.ErrorIs(t, m.SendVerification(context.Background(), Message{To: "a@x", Token: "t"}), boom)
}

func TestBuildLink(t *testing.T) {
	got, err := BuildLink("https://app.io/cb#frag", "tok")
	require.NoError(t, err)
	require.Equal(t, "https://app.io/cb?token=tok#frag", got)
}

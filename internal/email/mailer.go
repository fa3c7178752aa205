package email

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

var ErrNoLinkBase = errors.New("no link url provided and no email base url configured")

// Message es lo que el servicio de tokens le pide al mailer.
type Message struct {
	To        string
	Tenant    string
	LinkBase  string // verifyUrl / loginUrl del caller; vacío usa el default
	Token     string
	ExpiresIn time.Duration
}

// Mailer arma links, renderiza y delega en un Sender.
type Mailer struct {
	sender     Sender
	baseURL    string
	verifyPath string
	loginPath  string
}

func NewMailer(sender Sender, baseURL, verifyPath, loginPath string) *Mailer {
	return &Mailer{sender: sender, baseURL: strings.TrimRight(baseURL, "/"), verifyPath: verifyPath, loginPath: loginPath}
}

func (m *Mailer) SendVerification(ctx context.Context, msg Message) error {
	return m.send(ctx, verificationTemplate, msg, m.verifyPath)
}

func (m *Mailer) SendMagicLink(ctx context.Context, msg Message) error {
	return m.send(ctx, magicLinkTemplate, msg, m.loginPath)
}

func (m *Mailer) send(ctx context.Context, tpl template, msg Message, defaultPath string) error {
	base := strings.TrimSpace(msg.LinkBase)
	if base == "" {
		if m.baseURL == "" {
			return ErrNoLinkBase
		}
		base = m.baseURL + defaultPath
	}
	link, err := BuildLink(base, msg.Token)
	if err != nil {
		return err
	}

	vars := templateVars{Tenant: msg.Tenant, Email: msg.To, Link: link, ExpiresIn: humanDuration(msg.ExpiresIn)}
	var subject, html, text bytes.Buffer
	if err := tpl.subject.Execute(&subject, vars); err != nil {
		return fmt.Errorf("render subject: %w", err)
	}
	if err := tpl.html.Execute(&html, vars); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	if err := tpl.text.Execute(&text, vars); err != nil {
		return fmt.Errorf("render text: %w", err)
	}
	return m.sender.Send(ctx, msg.To, subject.String(), html.String(), text.String())
}

// BuildLink agrega token=<raw> a la URL, preservando su query.
func BuildLink(base, token string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid link url: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func humanDuration(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		if d == time.Hour {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", d/time.Hour)
	case d >= time.Minute:
		return fmt.Sprintf("%d minutes", d/time.Minute)
	default:
		return d.String()
	}
}

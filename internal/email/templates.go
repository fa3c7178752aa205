package email

import (
	htmltpl "html/template"
	texttpl "text/template"
)

// Vars del template; Tenant es el nombre visible de la base conectada.
type templateVars struct {
	Tenant    string
	Email     string
	Link      string
	ExpiresIn string
}

type template struct {
	subject *texttpl.Template
	html    *htmltpl.Template
	text    *texttpl.Template
}

func mustTemplate(name, subject, html, text string) template {
	return template{
		subject: texttpl.Must(texttpl.New(name + ".subject").Parse(subject)),
		html:    htmltpl.Must(htmltpl.New(name + ".html").Parse(html)),
		text:    texttpl.Must(texttpl.New(name + ".txt").Parse(text)),
	}
}

var verificationTemplate = mustTemplate("verification",
	`Verify your email for {{.Tenant}}`,
	`<!doctype html>
<html><body style="font-family:sans-serif">
<h2>{{.Tenant}}</h2>
<p>Confirm <strong>{{.Email}}</strong> by clicking the button below.</p>
<p><a href="{{.Link}}" style="padding:10px 16px;background:#111;color:#fff;text-decoration:none;border-radius:6px">Verify email</a></p>
<p style="color:#666;font-size:12px">The link expires in {{.ExpiresIn}}. If you did not sign up for {{.Tenant}} you can ignore this message.</p>
</body></html>`,
	`{{.Tenant}}

Confirm {{.Email}} by opening this link:
{{.Link}}

The link expires in {{.ExpiresIn}}.
`)

var magicLinkTemplate = mustTemplate("magic_link",
	`Your sign-in link for {{.Tenant}}`,
	`<!doctype html>
<html><body style="font-family:sans-serif">
<h2>{{.Tenant}}</h2>
<p>Use the button below to sign in as <strong>{{.Email}}</strong>.</p>
<p><a href="{{.Link}}" style="padding:10px 16px;background:#111;color:#fff;text-decoration:none;border-radius:6px">Sign in</a></p>
<p style="color:#666;font-size:12px">The link can be used once and expires in {{.ExpiresIn}}.</p>
</body></html>`,
	`{{.Tenant}}

Sign in as {{.Email}} with this link:
{{.Link}}

The link can be used once and expires in {{.ExpiresIn}}.
`)

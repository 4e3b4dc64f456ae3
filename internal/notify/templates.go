package notify

import (
	"bytes"
	"html/template"
	"time"
)

var welcomeTmpl = template.Must(template.New("welcome").Parse(`
<div style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
  <h2>Hi {{.Username}},</h2>
  <p>Your account has been created successfully! We're excited to have you onboard.</p>
  <p>
    <a href="{{.DashboardURL}}"
       style="display:inline-block; padding:10px 20px; background:#4f46e5; color:#fff; text-decoration:none; border-radius:8px;">
      Visit Your Dashboard
    </a>
  </p>
  <p>Feel free to explore and reach out if you have any questions.</p>
  <p style="margin-top:20px;">Best regards,<br/><strong>The Developer</strong></p>
</div>`))

var resetTmpl = template.Must(template.New("reset").Parse(`
<div style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
  <h2>Hi {{.Username}},</h2>
  <p>Click below to reset your password (valid for {{.ValidMinutes}} min):</p>
  <a href="{{.Link}}"
     style="display:inline-block; padding:10px 20px; background:#ef4444; color:#fff; text-decoration:none; border-radius:8px;">
    Reset Password
  </a>
  <p>If you didn't request this, you can safely ignore this email.</p>
</div>`))

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func WelcomeEmail(to, username, dashboardURL string) (Message, error) {
	html, err := render(welcomeTmpl, struct{ Username, DashboardURL string }{username, dashboardURL})
	if err != nil {
		return Message{}, err
	}
	return Message{Kind: KindWelcome, To: to, Subject: "Welcome to Our Website 🎉", HTML: html}, nil
}

func ResetEmail(to, username, link string, valid time.Duration) (Message, error) {
	html, err := render(resetTmpl, struct {
		Username, Link string
		ValidMinutes   int
	}{username, link, int(valid.Minutes())})
	if err != nil {
		return Message{}, err
	}
	return Message{Kind: KindPasswordReset, To: to, Subject: "Password Reset 🔑", HTML: html}, nil
}

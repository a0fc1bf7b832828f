package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"text/template"
	"time"

	"github.com/foodkeeper/foodkeeper/internal/models"
)

// SMTPConfig holds the mail relay settings
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	UseTLS   bool
}

// SMTPMailer delivers emails over SMTP. It is used by the mail worker,
// never directly from the request path.
type SMTPMailer struct {
	cfg SMTPConfig
}

// NewSMTPMailer creates a mailer for the given relay
func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

var otpSubjects = map[models.OTPType]string{
	models.OTPTypeEmailVerification: "Verify your FoodKeeper email",
	models.OTPTypePasswordReset:     "Reset your FoodKeeper password",
}

var otpBodyTmpl = template.Must(template.New("otp").Parse(`Hello,

Your verification code is: {{.Code}}

The code expires in 10 minutes. If you did not request it, you can ignore this email.

FoodKeeper
`))

var welcomeBodyTmpl = template.Must(template.New("welcome").Parse(`Hello {{.FirstName}},

Your email address is verified and your FoodKeeper account is ready.

FoodKeeper
`))

// SendOTP delivers a one-time code email
func (m *SMTPMailer) SendOTP(ctx context.Context, email, code string, purpose models.OTPType) error {
	subject, ok := otpSubjects[purpose]
	if !ok {
		return fmt.Errorf("no email subject for otp type %q", purpose)
	}

	var body bytes.Buffer
	if err := otpBodyTmpl.Execute(&body, struct{ Code string }{Code: code}); err != nil {
		return fmt.Errorf("failed to render otp email: %w", err)
	}
	return m.send(ctx, email, subject, body.String())
}

// SendWelcome delivers the post-verification welcome email
func (m *SMTPMailer) SendWelcome(ctx context.Context, email, firstName string) error {
	if firstName == "" {
		firstName = "there"
	}

	var body bytes.Buffer
	if err := welcomeBodyTmpl.Execute(&body, struct{ FirstName string }{FirstName: firstName}); err != nil {
		return fmt.Errorf("failed to render welcome email: %w", err)
	}
	return m.send(ctx, email, "Welcome to FoodKeeper", body.String())
}

func (m *SMTPMailer) send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	var message bytes.Buffer
	fmt.Fprintf(&message, "From: %s\r\n", m.cfg.From)
	fmt.Fprintf(&message, "To: %s\r\n", to)
	fmt.Fprintf(&message, "Subject: %s\r\n", subject)
	fmt.Fprintf(&message, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	message.WriteString("MIME-Version: 1.0\r\n")
	message.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	message.WriteString("\r\n")
	message.WriteString(body)

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)

	if !m.cfg.UseTLS {
		if err := smtp.SendMail(addr, auth, m.cfg.From, []string{to}, message.Bytes()); err != nil {
			return fmt.Errorf("failed to send email: %w", err)
		}
		return nil
	}

	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: m.cfg.Host})
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Close()

	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("failed to authenticate: %w", err)
	}
	if err := client.Mail(m.cfg.From); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to open data writer: %w", err)
	}
	if _, err := w.Write(message.Bytes()); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	if err := client.Quit(); err != nil {
		return fmt.Errorf("failed to quit SMTP session: %w", err)
	}
	return nil
}

var _ Notifier = (*SMTPMailer)(nil)

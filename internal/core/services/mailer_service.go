package services

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"log"
	"net"
	"net/smtp"
	"os"
	"path/filepath"
	"time"

	"github.com/PriyalGandhi19/taskmanager/internal/config"
)

// Mailer sends outgoing mail. All callers treat sends as best effort:
// a failed send is logged and never fails the primary operation.
type Mailer interface {
	SendVerificationEmail(to, token string) error
	SendSetPasswordEmail(to, token string) error
	SendPasswordResetEmail(to, token string) error
	SendWelcomeEmail(to, tempPassword string) error
	SendTaskAssignedEmail(to, taskTitle string) error
	SendDueReminderEmail(to, taskTitle string, dueDate time.Time) error
	SendDocumentEmail(to, subject, body, attachmentPath, attachmentName string) error
}

// smtpMailer implements Mailer over plain SMTP with a dial timeout,
// so a stalled mail host cannot hang a request worker.
type smtpMailer struct {
	cfg config.SMTPConfig
	fe  config.FrontendConfig
}

// NewMailer creates a new SMTP mailer
func NewMailer(cfg *config.Config) Mailer {
	return &smtpMailer{cfg: cfg.SMTP, fe: cfg.Frontend}
}

// SendVerificationEmail sends the verify-email link for a new account
func (m *smtpMailer) SendVerificationEmail(to, token string) error {
	link := fmt.Sprintf("%s?token=%s", m.fe.VerifyEmailURL, token)
	body := fmt.Sprintf(
		"Welcome to Task Manager.\r\n\r\n"+
			"Please verify your email address by opening the link below:\r\n\r\n%s\r\n\r\n"+
			"The link expires soon, so do not wait too long.\r\n",
		link,
	)
	return m.send(to, "Verify your email", body, nil, "")
}

// SendSetPasswordEmail sends the set-password link after verification
func (m *smtpMailer) SendSetPasswordEmail(to, token string) error {
	link := fmt.Sprintf("%s?token=%s", m.fe.SetPasswordURL, token)
	body := fmt.Sprintf(
		"Your email is verified.\r\n\r\n"+
			"Choose your password by opening the link below:\r\n\r\n%s\r\n",
		link,
	)
	return m.send(to, "Set your password", body, nil, "")
}

// SendPasswordResetEmail sends a password reset link
func (m *smtpMailer) SendPasswordResetEmail(to, token string) error {
	link := fmt.Sprintf("%s?token=%s", m.fe.ResetPasswordURL, token)
	body := fmt.Sprintf(
		"A password reset was requested for your account.\r\n\r\n"+
			"Open the link below to choose a new password:\r\n\r\n%s\r\n\r\n"+
			"If you did not request this, you can ignore this mail.\r\n",
		link,
	)
	return m.send(to, "Reset your password", body, nil, "")
}

// SendWelcomeEmail tells a newly created user their temporary password
func (m *smtpMailer) SendWelcomeEmail(to, tempPassword string) error {
	body := fmt.Sprintf(
		"An account was created for you on Task Manager.\r\n\r\n"+
			"Temporary password: %s\r\n\r\n"+
			"You will be asked to verify your email and choose your own password "+
			"before you can sign in.\r\n",
		tempPassword,
	)
	return m.send(to, "Your Task Manager account", body, nil, "")
}

// SendTaskAssignedEmail tells a user a task was assigned to them
func (m *smtpMailer) SendTaskAssignedEmail(to, taskTitle string) error {
	body := fmt.Sprintf("A new task has been assigned to you: %s\r\n", taskTitle)
	return m.send(to, "New task assigned", body, nil, "")
}

// SendDueReminderEmail reminds an owner of an upcoming due date
func (m *smtpMailer) SendDueReminderEmail(to, taskTitle string, dueDate time.Time) error {
	body := fmt.Sprintf("Reminder: task %q is due on %s.\r\n",
		taskTitle, dueDate.Format("2006-01-02"))
	return m.send(to, "Task due soon", body, nil, "")
}

// SendDocumentEmail mails a stored file as an attachment
func (m *smtpMailer) SendDocumentEmail(to, subject, body, attachmentPath, attachmentName string) error {
	f, err := os.Open(attachmentPath)
	if err != nil {
		return err
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return err
	}

	if attachmentName == "" {
		attachmentName = filepath.Base(attachmentPath)
	}
	return m.send(to, subject, body, content, attachmentName)
}

// send builds the message and delivers it over SMTP. When attachment is
// non-nil the message is sent as multipart/mixed with a base64 part.
func (m *smtpMailer) send(to, subject, body string, attachment []byte, attachmentName string) error {
	addr := net.JoinHostPort(m.cfg.Host, m.cfg.Port)
	timeout := time.Duration(m.cfg.TimeoutSeconds) * time.Second

	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return fmt.Errorf("mail dial failed: %w", err)
	}
	conn.SetDeadline(time.Now().Add(timeout))

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("mail handshake failed: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(nil); err != nil {
			return fmt.Errorf("mail starttls failed: %w", err)
		}
	}

	if m.cfg.User != "" {
		auth := smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("mail auth failed: %w", err)
		}
	}

	if err := client.Mail(m.cfg.From); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}

	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(m.buildMessage(to, subject, body, attachment, attachmentName)); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	if err := client.Quit(); err != nil {
		log.Printf("⚠️ Mail quit failed: %v", err)
	}
	return nil
}

func (m *smtpMailer) buildMessage(to, subject, body string, attachment []byte, attachmentName string) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "From: %s\r\n", m.cfg.From)
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	buf.WriteString("MIME-Version: 1.0\r\n")

	if attachment == nil {
		buf.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
		buf.WriteString(body)
		return buf.Bytes()
	}

	boundary := "taskmanager-mail-boundary"
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%s\r\n\r\n", boundary)

	fmt.Fprintf(&buf, "--%s\r\n", boundary)
	buf.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	buf.WriteString(body)
	buf.WriteString("\r\n")

	fmt.Fprintf(&buf, "--%s\r\n", boundary)
	buf.WriteString("Content-Type: application/pdf\r\n")
	buf.WriteString("Content-Transfer-Encoding: base64\r\n")
	fmt.Fprintf(&buf, "Content-Disposition: attachment; filename=%q\r\n\r\n", attachmentName)

	encoded := base64.StdEncoding.EncodeToString(attachment)
	for len(encoded) > 76 {
		buf.WriteString(encoded[:76])
		buf.WriteString("\r\n")
		encoded = encoded[76:]
	}
	buf.WriteString(encoded)
	buf.WriteString("\r\n")
	fmt.Fprintf(&buf, "--%s--\r\n", boundary)

	return buf.Bytes()
}

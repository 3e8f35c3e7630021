package delivery

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"mime/quotedprintable"
	"net"
	"net/mail"
	"net/smtp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SMTPConfig configures an SMTPDispatcher.
type SMTPConfig struct {
	Addr     string // host:port
	Username string
	Password string
	From     string
	FromName string
	To       string
}

// DefaultSMTPTimeout bounds a whole SMTP session when the caller's context
// carries no deadline.
const DefaultSMTPTimeout = 30 * time.Second

// SMTPDispatcher delivers over SMTP. The mail relay uses it.
type SMTPDispatcher struct {
	cfg     SMTPConfig
	now     func() time.Time
	timeout time.Duration
}

// NewSMTPDispatcher creates an SMTPDispatcher.
func NewSMTPDispatcher(cfg SMTPConfig) *SMTPDispatcher {
	return &SMTPDispatcher{cfg: cfg, now: time.Now, timeout: DefaultSMTPTimeout}
}

var _ Dispatcher = (*SMTPDispatcher)(nil)

func (d *SMTPDispatcher) Name() string { return "smtp" }

func (d *SMTPDispatcher) Configured() bool {
	return d.cfg.Addr != "" && d.cfg.From != "" && d.cfg.To != ""
}

// Dispatch sends msg in one SMTP session. STARTTLS is used when offered and
// AUTH PLAIN when a username is set. The session ends at the context
// deadline, or after DefaultSMTPTimeout without one, and is torn down as
// soon as ctx is canceled.
func (d *SMTPDispatcher) Dispatch(ctx context.Context, msg Message) (err error) {
	host, _, err := net.SplitHostPort(d.cfg.Addr)
	if err != nil {
		return fmt.Errorf("smtp addr %q: %w", d.cfg.Addr, err)
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(d.timeout)
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", d.cfg.Addr)
	if err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}
	_ = conn.SetDeadline(deadline)

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer func() {
		// A session cut short by the caller reports why, not the
		// closed-connection error it caused.
		if !stop() && err != nil {
			err = fmt.Errorf("smtp session: %w", ctx.Err())
		}
	}()

	c, err := smtp.NewClient(conn, host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp greeting: %w", err)
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: host}); err != nil {
			return fmt.Errorf("smtp starttls: %w", err)
		}
	}
	if d.cfg.Username != "" {
		if err := c.Auth(smtp.PlainAuth("", d.cfg.Username, d.cfg.Password, host)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := c.Mail(d.cfg.From); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := c.Rcpt(d.cfg.To); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}

	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	raw, err := d.buildMIME(msg)
	if err != nil {
		w.Close()
		return err
	}
	if _, err := w.Write(raw); err != nil {
		w.Close()
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp data close: %w", err)
	}
	return c.Quit()
}

// buildMIME renders a single-part text/plain message.
func (d *SMTPDispatcher) buildMIME(msg Message) ([]byte, error) {
	from := mail.Address{Name: d.cfg.FromName, Address: d.cfg.From}
	to := mail.Address{Address: d.cfg.To}

	domain := "localhost"
	if at := strings.LastIndex(d.cfg.From, "@"); at >= 0 {
		domain = d.cfg.From[at+1:]
	}

	var buf bytes.Buffer
	headers := [][2]string{
		{"From", from.String()},
		{"To", to.String()},
		{"Subject", mime.QEncoding.Encode("utf-8", msg.SubjectLine())},
		{"Date", d.now().Format(time.RFC1123Z)},
		{"Message-ID", fmt.Sprintf("<%s@%s>", uuid.NewString(), domain)},
		{"MIME-Version", "1.0"},
		{"Content-Type", "text/plain; charset=utf-8"},
		{"Content-Transfer-Encoding", "quoted-printable"},
	}
	if msg.Email != "" {
		headers = append(headers, [2]string{"Reply-To", (&mail.Address{Name: msg.Name, Address: msg.Email}).String()})
	}
	for _, h := range headers {
		fmt.Fprintf(&buf, "%s: %s\r\n", h[0], h[1])
	}
	buf.WriteString("\r\n")

	qp := quotedprintable.NewWriter(&buf)
	body := strings.ReplaceAll(msg.Text(), "\n", "\r\n")
	if _, err := qp.Write([]byte(body)); err != nil {
		return nil, err
	}
	if err := qp.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

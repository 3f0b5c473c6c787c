package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// SMTPConfig holds configuration for SMTP server
type SMTPConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	From       string
	Recipients []string
	UseTLS     bool
}

// EmailNotifier mails a short summary of selected events to a fixed
// distribution list, typically the graduate school office.
type EmailNotifier struct {
	config SMTPConfig
	kinds  map[EventKind]bool
	logger zerolog.Logger
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewEmailNotifier creates an EmailNotifier. With no kinds every event is mailed.
func NewEmailNotifier(config SMTPConfig, logger zerolog.Logger, kinds ...EventKind) *EmailNotifier {
	n := &EmailNotifier{config: config, logger: logger, kinds: map[EventKind]bool{}}
	for _, k := range kinds {
		n.kinds[k] = true
	}
	n.send = n.sendMail
	return n
}

func (n *EmailNotifier) Name() string { return "email" }

// Notify sends the event summary. Without credentials the message is logged instead.
func (n *EmailNotifier) Notify(_ context.Context, ev Event) error {
	if len(n.kinds) > 0 && !n.kinds[ev.Kind] {
		return nil
	}
	if len(n.config.Recipients) == 0 {
		return nil
	}

	subject, body := renderEvent(ev)
	if n.config.Username == "" || n.config.Password == "" {
		n.logger.Warn().
			Str("event", string(ev.Kind)).
			Int64("requestID", ev.RequestID).
			Strs("recipients", n.config.Recipients).
			Msg("SMTP credentials not configured - notification email not sent")
		return nil
	}

	msg := buildMessage(n.config.From, n.config.Recipients, subject, body)
	addr := n.config.Host + ":" + strconv.Itoa(n.config.Port)
	auth := smtp.PlainAuth("", n.config.Username, n.config.Password, n.config.Host)
	if err := n.send(addr, auth, n.config.From, n.config.Recipients, msg); err != nil {
		n.logger.Error().Err(err).Str("server", addr).Msg("Failed to send notification email")
		return fmt.Errorf("failed to send notification email: %w", err)
	}
	return nil
}

func renderEvent(ev Event) (subject, body string) {
	subject = fmt.Sprintf("[Thesis Defense] %s: request #%d", humanize(ev.Kind), ev.RequestID)

	var b strings.Builder
	fmt.Fprintf(&b, "Event: %s\r\n", ev.Kind)
	fmt.Fprintf(&b, "Defense request: %d\r\n", ev.RequestID)
	if ev.Actor != "" {
		fmt.Fprintf(&b, "Actor: %s\r\n", ev.Actor)
	} else {
		b.WriteString("Actor: system\r\n")
	}
	fmt.Fprintf(&b, "Time: %s\r\n", ev.OccurredAt.Format("2006-01-02 15:04 MST"))

	keys := make([]string, 0, len(ev.Data))
	for k := range ev.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %v\r\n", k, ev.Data[k])
	}
	return subject, b.String()
}

func humanize(k EventKind) string {
	s := strings.ReplaceAll(string(k), "-", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func buildMessage(from string, to []string, subject, body string) []byte {
	headers := [][2]string{
		{"From", from},
		{"To", strings.Join(to, ", ")},
		{"Subject", subject},
		{"MIME-Version", "1.0"},
		{"Content-Type", "text/plain; charset=UTF-8"},
	}
	var b strings.Builder
	for _, h := range headers {
		fmt.Fprintf(&b, "%s: %s\r\n", h[0], h[1])
	}
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

// sendMail delivers msg either over implicit TLS or with smtp.SendMail.
func (n *EmailNotifier) sendMail(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
	if !n.config.UseTLS {
		return smtp.SendMail(addr, auth, from, to, msg)
	}

	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: n.config.Host})
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, n.config.Host)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Quit()

	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("SMTP authentication failed: %w", err)
	}
	if err := client.Mail(from); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("failed to set recipient %s: %w", rcpt, err)
		}
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to get data writer: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("failed to write email message: %w", err)
	}
	return w.Close()
}

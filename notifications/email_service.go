package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const BrevoURL = "https://api.brevo.com/v3/smtp/email"

type BrevoConfig struct {
	APIKey      string
	SenderEmail string
	SenderName  string
	// URL overrides BrevoURL.
	URL     string
	Timeout time.Duration
}

// BrevoMailer sends transactional email through the Brevo v3 API.
type BrevoMailer struct {
	cfg    BrevoConfig
	client *http.Client
	log    *logrus.Logger
}

type brevoPayload struct {
	Sender      map[string]string   `json:"sender"`
	To          []map[string]string `json:"to"`
	Subject     string              `json:"subject"`
	HTMLContent string              `json:"htmlContent"`
	TextContent string              `json:"textContent"`
}

func NewBrevoMailer(cfg BrevoConfig, log *logrus.Logger) *BrevoMailer {
	if cfg.URL == "" {
		cfg.URL = BrevoURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &BrevoMailer{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}, log: log}
}

// NewMailer returns a BrevoMailer when an API key is configured and a
// LogMailer otherwise.
func NewMailer(cfg BrevoConfig, log *logrus.Logger) Mailer {
	if cfg.APIKey == "" || cfg.SenderEmail == "" {
		log.Warn("⚠️ Email service not configured, confirmation emails will only be logged")
		return LogMailer{Log: log}
	}
	log.WithField("sender", cfg.SenderEmail).Info("✅ Email service initialized successfully")
	return NewBrevoMailer(cfg, log)
}

func (m *BrevoMailer) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("%w: no recipients", ErrPermanent)
	}

	to := make([]map[string]string, 0, len(msg.To))
	for _, addr := range msg.To {
		at := strings.Index(addr, "@")
		if at <= 0 {
			return fmt.Errorf("%w: invalid recipient email: %s", ErrPermanent, addr)
		}
		to = append(to, map[string]string{"email": addr, "name": addr[:at]})
	}

	sender := m.cfg.SenderEmail
	if msg.From != "" {
		sender = msg.From
	}

	payload := brevoPayload{
		Sender:      map[string]string{"name": m.cfg.SenderName, "email": sender},
		To:          to,
		Subject:     msg.Subject,
		HTMLContent: "<p>" + strings.ReplaceAll(html.EscapeString(msg.Body), "\n", "<br>") + "</p>",
		TextContent: msg.Body,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("api-key", m.cfg.APIKey)
	req.Header.Set("content-type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		m.log.WithField("to", strings.Join(msg.To, ",")).Debug("Brevo API accepted email")
		return nil
	}

	m.log.WithFields(logrus.Fields{"status": resp.StatusCode, "body": string(bodyBytes)}).Error("Brevo API error")
	err = fmt.Errorf("brevo returned %d: %s", resp.StatusCode, string(bodyBytes))
	if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
		return fmt.Errorf("%w: %v", ErrPermanent, err)
	}
	return err
}

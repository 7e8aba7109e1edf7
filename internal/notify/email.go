package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/rileyafox/patient-portal/internal/config"
	apperrors "github.com/rileyafox/patient-portal/pkg/util"
)

// EmailChannel delivers reminders through the transport provider's
// JSON email API.
type EmailChannel struct {
	cfg    config.EmailConfig
	client *http.Client
	logger *zap.Logger
}

// NewEmailChannel constructs the channel.
func NewEmailChannel(cfg config.EmailConfig, logger *zap.Logger) *EmailChannel {
	return &EmailChannel{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

func (c *EmailChannel) Name() string { return "email" }

func (c *EmailChannel) Enabled() bool { return c.cfg.Enabled }

type emailAddress struct {
	Address     string `json:"address"`
	DisplayName string `json:"displayName,omitempty"`
}

type emailRequest struct {
	SenderAddress string `json:"senderAddress"`
	Recipients    struct {
		To []emailAddress `json:"to"`
	} `json:"recipients"`
	Content struct {
		Subject   string `json:"subject"`
		PlainText string `json:"plainText"`
	} `json:"content"`
}

// Send posts the message to the email API. Disabled channels succeed
// without contacting the transport.
func (c *EmailChannel) Send(ctx context.Context, to Recipient, subject, body string) error {
	if !c.cfg.Enabled {
		c.logger.Info("email disabled; skipping send",
			zap.String("to", to.Email), zap.String("subject", subject))
		return nil
	}
	if c.cfg.ConnectionString == "" || c.cfg.From == "" {
		return apperrors.NewConfigError("email enabled but EMAIL_CONNSTR or EMAIL_FROM is not set")
	}
	if to.Email == "" {
		return ErrNoRecipient
	}

	endpoint, accessKey, err := parseConnectionString(c.cfg.ConnectionString)
	if err != nil {
		return apperrors.NewConfigError(fmt.Sprintf("invalid EMAIL_CONNSTR: %v", err))
	}

	var msg emailRequest
	msg.SenderAddress = c.cfg.From
	msg.Recipients.To = []emailAddress{{Address: to.Email, DisplayName: to.Name}}
	msg.Content.Subject = subject
	msg.Content.PlainText = body

	if err := postJSON(ctx, c.client, endpoint+"/emails:send", accessKey, msg); err != nil {
		return fmt.Errorf("email send: %w", err)
	}

	c.logger.Info("email accepted by transport",
		zap.String("to", to.Email), zap.String("subject", subject))
	return nil
}

func postJSON(ctx context.Context, client *http.Client, url, accessKey string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("transport returned status %d", resp.StatusCode)
	}
	return nil
}

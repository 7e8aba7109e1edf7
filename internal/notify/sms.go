package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/rileyafox/patient-portal/internal/config"
	apperrors "github.com/rileyafox/patient-portal/pkg/util"
)

// SMSChannel delivers reminders through the transport provider's SMS
// API. Off by default.
type SMSChannel struct {
	cfg    config.SMSConfig
	client *http.Client
	logger *zap.Logger
}

// NewSMSChannel constructs the channel.
func NewSMSChannel(cfg config.SMSConfig, logger *zap.Logger) *SMSChannel {
	return &SMSChannel{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

func (c *SMSChannel) Name() string { return "sms" }

func (c *SMSChannel) Enabled() bool { return c.cfg.Enabled }

type smsRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Message string   `json:"message"`
}

// Send posts the message to the SMS API. Disabled channels succeed
// without contacting the transport.
func (c *SMSChannel) Send(ctx context.Context, to Recipient, subject, body string) error {
	if !c.cfg.Enabled {
		c.logger.Info("sms disabled; skipping send", zap.String("to", to.Phone))
		return nil
	}
	if c.cfg.ConnectionString == "" || c.cfg.FromPhone == "" {
		return apperrors.NewConfigError("sms enabled but SMS_CONNSTR or SMS_FROM_PHONE is not set")
	}
	if to.Phone == "" {
		return ErrNoRecipient
	}

	endpoint, accessKey, err := parseConnectionString(c.cfg.ConnectionString)
	if err != nil {
		return apperrors.NewConfigError(fmt.Sprintf("invalid SMS_CONNSTR: %v", err))
	}

	msg := smsRequest{
		From:    c.cfg.FromPhone,
		To:      []string{to.Phone},
		Message: body,
	}

	if err := postJSON(ctx, c.client, endpoint+"/sms", accessKey, msg); err != nil {
		return fmt.Errorf("sms send: %w", err)
	}

	c.logger.Info("sms accepted by transport", zap.String("to", to.Phone))
	return nil
}

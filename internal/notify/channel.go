// Package notify holds the outbound delivery channel adapters. Each
// channel is independently toggleable: disabled channels are no-ops
// that report success without touching the transport, while enabled
// channels missing required settings fail with a configuration error
// so "intentionally off" never masks "misconfigured".
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNoRecipient reports that the recipient lacks the address this
// channel delivers to (no email address, no phone number).
var ErrNoRecipient = errors.New("recipient has no address for this channel")

// Recipient carries the contact details a channel may deliver to.
type Recipient struct {
	Name  string
	Email string
	Phone string
}

// Channel is one independently toggleable delivery mechanism.
type Channel interface {
	Name() string
	Enabled() bool
	Send(ctx context.Context, to Recipient, subject, body string) error
}

// parseConnectionString splits "endpoint=<url>;accesskey=<key>" into
// its parts. Both are required.
func parseConnectionString(connstr string) (endpoint, accessKey string, err error) {
	for _, part := range strings.Split(connstr, ";") {
		key, value, found := strings.Cut(part, "=")
		if !found {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "endpoint":
			endpoint = strings.TrimSpace(value)
		case "accesskey":
			accessKey = strings.TrimSpace(value)
		}
	}
	if endpoint == "" || accessKey == "" {
		return "", "", fmt.Errorf("connection string missing endpoint or accesskey")
	}
	return endpoint, accessKey, nil
}

// Package notify is the boundary to the SMS/WhatsApp transport provider.
// The rest of the system only sees the Sender interface; actual delivery is
// an external collaborator.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Message channels.
const (
	ChannelSMS      = "sms"
	ChannelWhatsApp = "whatsapp"
)

// Message is one outbound notification.
type Message struct {
	To      string `json:"to"`
	Channel string `json:"channel"`
	Body    string `json:"body"`
}

// Sender delivers a message through the provider.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// GatewayConfig configures the HTTP messaging gateway.
type GatewayConfig struct {
	BaseURL  string
	APIKey   string
	SenderID string
	Timeout  time.Duration
}

// Gateway is the HTTP implementation of Sender.
type Gateway struct {
	http   *http.Client
	cfg    GatewayConfig
	logger *zap.Logger
}

func NewGateway(cfg GatewayConfig, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Gateway{
		http:   &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
		logger: logger,
	}
}

func (g *Gateway) Send(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(map[string]string{
		"to":        msg.To,
		"channel":   msg.Channel,
		"body":      msg.Body,
		"sender_id": g.cfg.SenderID,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if g.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)
	}

	resp, err := g.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("messaging gateway returned %d", resp.StatusCode)
	}
	g.logger.Debug("notification sent",
		zap.String("channel", msg.Channel),
		zap.String("to", msg.To))
	return nil
}

var _ Sender = (*Gateway)(nil)

// Package slack delivers bounty notifications to a Slack incoming webhook.
package slack

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/bountyradar/bountyradar/internal/bounty"
)

// Config controls webhook delivery.
type Config struct {
	WebhookURL string
	Timeout    time.Duration
}

// Notifier implements bounty.Notifier against a Slack incoming webhook.
type Notifier struct {
	cfg    Config
	client *resty.Client
	logger *zap.Logger
}

// New builds a Notifier. An empty webhook URL is allowed here; the
// pipeline treats it as "notifier unconfigured".
func New(cfg Config, logger *zap.Logger) *Notifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	client := resty.New()
	client.SetTimeout(cfg.Timeout)
	client.SetHeader("content-type", "application/json")
	return &Notifier{cfg: cfg, client: client, logger: logger}
}

// Configured reports whether a webhook URL is set.
func (n *Notifier) Configured() bool {
	return n.cfg.WebhookURL != ""
}

// Notify posts the record as a Block Kit message. A non-2xx response is
// an error; the caller decides whether to mark the record sent.
func (n *Notifier) Notify(ctx context.Context, rec bounty.Record) error {
	if !n.Configured() {
		return bounty.ErrNotifierUnconfigured
	}

	resp, err := n.client.R().
		SetContext(ctx).
		SetBody(buildMessage(rec)).
		Post(n.cfg.WebhookURL)
	if err != nil {
		return fmt.Errorf("post slack webhook: %w", err)
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode())
	}

	n.logger.Info("notification delivered",
		zap.String("record_id", rec.ID),
		zap.String("title", rec.Title),
		zap.Float64("price", rec.Price),
	)
	return nil
}

type message struct {
	Text   string  `json:"text"`
	Blocks []block `json:"blocks"`
}

type block struct {
	Type     string   `json:"type"`
	Text     *textObj `json:"text,omitempty"`
	Elements []any    `json:"elements,omitempty"`
}

type textObj struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type buttonElement struct {
	Type  string  `json:"type"`
	Text  textObj `json:"text"`
	URL   string  `json:"url"`
	Style string  `json:"style,omitempty"`
}

func buildMessage(rec bounty.Record) message {
	msg := message{
		Text: "New High-Value Bounty Alert!",
		Blocks: []block{
			{
				Type: "header",
				Text: &textObj{
					Type: "plain_text",
					Text: fmt.Sprintf("$%.2f - New Bounty!", rec.Price),
				},
			},
			{
				Type: "section",
				Text: &textObj{
					Type: "mrkdwn",
					Text: fmt.Sprintf("*%s*\n\n*Value:* $%.2f\n*Posted:* %s",
						rec.Title, rec.Price, rec.PostedTime.Format(time.RFC3339)),
				},
			},
		},
	}
	if rec.Link != "" {
		msg.Blocks = append(msg.Blocks, block{
			Type: "actions",
			Elements: []any{
				buttonElement{
					Type:  "button",
					Text:  textObj{Type: "plain_text", Text: "View Bounty"},
					URL:   rec.Link,
					Style: "primary",
				},
			},
		})
	}
	msg.Blocks = append(msg.Blocks, block{
		Type: "context",
		Elements: []any{
			textObj{Type: "mrkdwn", Text: "Auto-discovered by bountyradar"},
		},
	})
	return msg
}

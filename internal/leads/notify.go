package leads

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"clinicvoice-platform/internal/airtable"
)

// Notifier fans a captured lead out to the sales channels: a Slack webhook
// and an n8n automation hook. Both are best-effort; either URL may be empty
// and failures are logged, never returned.
type Notifier struct {
	SlackURL string
	N8NURL   string

	http *http.Client
}

func NewNotifier(slackURL, n8nURL string) *Notifier {
	return &Notifier{
		SlackURL: slackURL,
		N8NURL:   n8nURL,
		http:     &http.Client{Timeout: 10 * time.Second},
	}
}

// NotifyAll sends both notifications concurrently and waits for them, so the
// handler response still reflects a finished request cycle.
func (n *Notifier) NotifyAll(ctx context.Context, lead airtable.Lead) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		n.notifySlack(ctx, lead)
	}()
	go func() {
		defer wg.Done()
		n.notifyN8N(ctx, lead)
	}()
	wg.Wait()
}

type slackText struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Emoji bool   `json:"emoji,omitempty"`
}

type slackBlock struct {
	Type     string      `json:"type"`
	Text     *slackText  `json:"text,omitempty"`
	Fields   []slackText `json:"fields,omitempty"`
	Elements []slackText `json:"elements,omitempty"`
}

type slackMessage struct {
	Blocks []slackBlock `json:"blocks"`
}

func (n *Notifier) notifySlack(ctx context.Context, lead airtable.Lead) {
	if n.SlackURL == "" {
		slog.WarnContext(ctx, "slack webhook not configured, skipping")
		return
	}

	msg := slackMessage{Blocks: []slackBlock{
		{
			Type: "header",
			Text: &slackText{Type: "plain_text", Text: "New Demo Request", Emoji: true},
		},
		{
			Type: "section",
			Fields: []slackText{
				{Type: "mrkdwn", Text: "*Name:*\n" + lead.Name},
				{Type: "mrkdwn", Text: "*Company:*\n" + lead.Company},
				{Type: "mrkdwn", Text: "*Email:*\n" + lead.Email},
				{Type: "mrkdwn", Text: "*Phone:*\n" + lead.Phone},
			},
		},
		{
			Type: "context",
			Elements: []slackText{
				{Type: "mrkdwn", Text: fmt.Sprintf("Source: %s | Time: %s", lead.Source, lead.CreatedAt)},
			},
		},
	}}

	n.post(ctx, "slack", n.SlackURL, msg)
}

func (n *Notifier) notifyN8N(ctx context.Context, lead airtable.Lead) {
	if n.N8NURL == "" {
		slog.WarnContext(ctx, "n8n webhook not configured, skipping")
		return
	}
	n.post(ctx, "n8n", n.N8NURL, leadPayload(lead))
}

// leadPayload is the n8n wire shape; key names match what the automation
// workflows already consume.
func leadPayload(lead airtable.Lead) map[string]string {
	return map[string]string{
		"name":      lead.Name,
		"company":   lead.Company,
		"email":     lead.Email,
		"phone":     lead.Phone,
		"source":    lead.Source,
		"createdAt": lead.CreatedAt,
	}
}

func (n *Notifier) post(ctx context.Context, channel, url string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		slog.ErrorContext(ctx, "notification marshal failed", "channel", channel, "err", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		slog.ErrorContext(ctx, "notification request build failed", "channel", channel, "err", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.http.Do(req)
	if err != nil {
		slog.ErrorContext(ctx, "notification send failed", "channel", channel, "err", err)
		return
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.ErrorContext(ctx, "notification rejected", "channel", channel, "status", resp.StatusCode)
		return
	}
	slog.InfoContext(ctx, "notification sent", "channel", channel)
}

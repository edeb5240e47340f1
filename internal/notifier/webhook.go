package notifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/amishk599/jobradar/internal/model"
)

// Ensure WebhookNotifier implements model.Notifier.
var _ model.Notifier = (*WebhookNotifier)(nil)

// WebhookNotifier posts the run digest to a webhook (Slack-compatible
// payload) so the alert lands in a channel instead of the terminal.
type WebhookNotifier struct {
	webhookURL string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewWebhookNotifier returns a notifier that posts the digest as a single
// webhook message.
func NewWebhookNotifier(webhookURL string, httpClient *http.Client, logger *slog.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		webhookURL: webhookURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

type webhookPayload struct {
	Text string `json:"text"`
}

// Digest renders the actions into one message and posts it. A 429 response
// is retried once after the server's Retry-After.
func (n *WebhookNotifier) Digest(fresh, reminders []model.Action) error {
	if len(fresh) == 0 && len(reminders) == 0 {
		return nil
	}

	body, err := json.Marshal(webhookPayload{Text: renderDigest(fresh, reminders)})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	resp, err := n.httpClient.Post(n.webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("post digest: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		secs, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
		if secs <= 0 {
			secs = 1
		}
		n.logger.Warn("webhook rate limited, retrying", "retry_after_secs", secs)
		time.Sleep(time.Duration(secs) * time.Second)

		resp2, err := n.httpClient.Post(n.webhookURL, "application/json", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("post digest (retry): %w", err)
		}
		defer resp2.Body.Close()
		if resp2.StatusCode != http.StatusOK {
			return fmt.Errorf("webhook returned %d on retry", resp2.StatusCode)
		}
		n.logger.Info("digest sent", "new", len(fresh), "reminders", len(reminders), "retried", true)
		return nil
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("webhook returned %d", resp.StatusCode)
	}
	n.logger.Info("digest sent", "new", len(fresh), "reminders", len(reminders))
	return nil
}

// renderDigest formats the two sections as plain text, one line per action,
// in the engine's deterministic order.
func renderDigest(fresh, reminders []model.Action) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Job alert: %d new, %d open\n", len(fresh), len(reminders))

	if len(fresh) > 0 {
		b.WriteString("\nNew:\n")
		for _, a := range fresh {
			writeLine(&b, a)
		}
	}
	if len(reminders) > 0 {
		b.WriteString("\nStill open:\n")
		for _, a := range reminders {
			writeLine(&b, a)
		}
	}
	return b.String()
}

func writeLine(b *strings.Builder, a model.Action) {
	fmt.Fprintf(b, "• [%d] %s — %s", a.Score, a.Title, a.Company)
	if a.Location != "" {
		fmt.Fprintf(b, " (%s)", a.Location)
	}
	if a.URL != "" {
		fmt.Fprintf(b, "\n  %s", a.URL)
	}
	b.WriteByte('\n')
}

// SendTestMessage sends a dummy digest to verify the integration works.
func SendTestMessage(n model.Notifier) error {
	now := time.Now()
	return n.Digest([]model.Action{{
		UID:       "test-0000000000",
		Reason:    model.ReasonNew,
		Title:     "Test Notification — Integration Verified",
		Company:   "JobRadar Test",
		Location:  "Everywhere",
		URL:       "https://example.com/jobs",
		Score:     99,
		FirstSeen: now,
	}}, nil)
}

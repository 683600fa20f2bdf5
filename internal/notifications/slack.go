// Package notifications delivers run summaries to Slack. Delivery is
// best-effort: a failed notification never fails the sync run.
package notifications

import (
	"context"
	"fmt"

	"github.com/Metana-Inc/sessions-analytics-to-supabase/internal/sync"
	"github.com/rs/zerolog/log"
	"github.com/slack-go/slack"
)

// SlackNotifier posts run summaries to a Slack incoming webhook
type SlackNotifier struct {
	webhookURL string
}

// NewSlackNotifier creates a notifier for the given webhook URL.
// Returns nil when the URL is empty so callers can skip delivery.
func NewSlackNotifier(webhookURL string) *SlackNotifier {
	if webhookURL == "" {
		return nil
	}
	return &SlackNotifier{webhookURL: webhookURL}
}

// NotifyRunComplete posts a one-line summary of a finished sync run
func (n *SlackNotifier) NotifyRunComplete(ctx context.Context, summary sync.Summary) error {
	var text string
	switch {
	case summary.Window.Empty():
		text = "Analytics sync: already up to date, no days to sync."
	case summary.DaysFailed > 0:
		text = fmt.Sprintf("Analytics sync: stored %d day(s), failed to store %d day(s) between %s and %s.",
			summary.DaysSynced, summary.DaysFailed,
			summary.Window.Start.Format("2006-01-02"), summary.Window.End.Format("2006-01-02"))
	default:
		text = fmt.Sprintf("Analytics sync: stored %d day(s) between %s and %s.",
			summary.DaysSynced,
			summary.Window.Start.Format("2006-01-02"), summary.Window.End.Format("2006-01-02"))
	}

	msg := &slack.WebhookMessage{Text: text}
	if err := slack.PostWebhookContext(ctx, n.webhookURL, msg); err != nil {
		log.Warn().Err(err).Str("run_id", summary.RunID).Msg("Failed to deliver Slack run summary")
		return fmt.Errorf("failed to deliver Slack run summary: %w", err)
	}

	return nil
}

// NotifyRunFailed posts a failure notice for an aborted sync run
func (n *SlackNotifier) NotifyRunFailed(ctx context.Context, summary sync.Summary, runErr error) error {
	text := fmt.Sprintf("Analytics sync failed after storing %d day(s): %v", summary.DaysSynced, runErr)

	msg := &slack.WebhookMessage{Text: text}
	if err := slack.PostWebhookContext(ctx, n.webhookURL, msg); err != nil {
		log.Warn().Err(err).Str("run_id", summary.RunID).Msg("Failed to deliver Slack failure notice")
		return fmt.Errorf("failed to deliver Slack failure notice: %w", err)
	}

	return nil
}

package notifier

import (
	"log/slog"

	"github.com/amishk599/jobradar/internal/model"
)

// Ensure LogNotifier implements model.Notifier.
var _ model.Notifier = (*LogNotifier)(nil)

// LogNotifier writes the digest to the given logger as structured messages.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a notifier that logs each action via slog.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Digest logs one line per action with reason, company, title, and score.
// Returns nil (stdout logging does not fail).
func (n *LogNotifier) Digest(fresh, reminders []model.Action) error {
	for _, a := range append(append([]model.Action{}, fresh...), reminders...) {
		n.logger.Info("job alert",
			"reason", a.Reason,
			"company", a.Company,
			"title", a.Title,
			"location", a.Location,
			"score", a.Score,
			"url", a.URL,
		)
	}
	return nil
}

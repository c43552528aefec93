package notify

import (
	"context"
	"log/slog"
)

// AdminAlerter forwards scan failures to the admin chat.
type AdminAlerter struct {
	sender Sender
	chatID int64
	logger *slog.Logger
}

// NewAdminAlerter creates an AdminAlerter. A zero chatID disables it.
func NewAdminAlerter(sender Sender, chatID int64, logger *slog.Logger) *AdminAlerter {
	return &AdminAlerter{
		sender: sender,
		chatID: chatID,
		logger: logger.With("component", "admin_alerter"),
	}
}

// ReportError implements scanner.ErrorReporter.
func (a *AdminAlerter) ReportError(ctx context.Context, err error) {
	if a.chatID == 0 || err == nil {
		return
	}
	if serr := a.sender.Send(ctx, a.chatID, "Bot Error Alert: "+err.Error()); serr != nil {
		a.logger.Error("failed to send error alert", "err", serr)
		return
	}
	a.logger.Info("error alert sent to admin")
}

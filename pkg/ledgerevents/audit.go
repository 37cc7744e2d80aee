package ledgerevents

import (
	"context"

	"genstudio-be/internal/pkg/logger"
	"genstudio-be/pkg/events"
)

// AuditHandler writes every consumed ledger event to the application log so
// credit movements can be traced by tx_id from the admin log viewer.
func AuditHandler(log logger.ILogger) func(ctx context.Context, event events.Event) error {
	return func(ctx context.Context, event events.Event) error {
		details := map[string]interface{}{}
		for k, v := range event.Payload() {
			details[k] = v
		}
		if txID, ok := details["transaction_id"].(string); ok {
			details["tx_id"] = txID
		}
		details["event_type"] = event.EventType()
		log.Info(logger.ModuleBilling, "Ledger event", details)
		return nil
	}
}

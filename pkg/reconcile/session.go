package reconcile

import (
	"time"

	"genstudio-be/internal/entity"

	"github.com/google/uuid"
)

// SessionWindow groups successive synchronous generations by the same user.
const SessionWindow = 5 * time.Minute

// ContinueSession returns the session of latest when it was created within
// the window before now, otherwise a fresh session id.
func ContinueSession(latest *entity.Creation, now time.Time) string {
	if latest != nil && latest.SessionId != "" && now.Sub(latest.CreatedAt) <= SessionWindow {
		return latest.SessionId
	}
	return uuid.NewString()
}

package livefeed

import (
	"time"

	"healthportal/backend/internal/models"
)

// Event is the JSON shape of an audit row on the wire.
type Event struct {
	ID         uint      `json:"id"`
	ActorID    *uint     `json:"actor_id,omitempty"`
	Action     string    `json:"action"`
	TargetType string    `json:"target_type,omitempty"`
	TargetID   string    `json:"target_id,omitempty"`
	Meta       string    `json:"meta,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func NewEvent(row models.AuditLog) Event {
	return Event{
		ID:         row.ID,
		ActorID:    row.ActorID,
		Action:     row.Action,
		TargetType: row.TargetType,
		TargetID:   row.TargetID,
		Meta:       row.Meta,
		CreatedAt:  row.CreatedAt,
	}
}

// Package notify tells the operations team about new complaints.
package notify

import (
	"context"

	"healthportal/backend/internal/models"
)

// Notifier is called after a complaint has been stored. Errors are logged by
// the caller and never undo the submission.
type Notifier interface {
	ComplaintSubmitted(ctx context.Context, complaint *models.Complaint, requester *models.User) error
}

// Nop is used when no channel is configured.
type Nop struct{}

func (Nop) ComplaintSubmitted(context.Context, *models.Complaint, *models.User) error { return nil }

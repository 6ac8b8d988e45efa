// Package mydata fetches (mocked) personal medical records with the user's
// consent and keeps each fetch as an immutable snapshot.
package mydata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"healthportal/backend/internal/audit"
	"healthportal/backend/internal/authz"
	"healthportal/backend/internal/config"
	"healthportal/backend/internal/models"
	"healthportal/backend/internal/storage"

	"gorm.io/datatypes"
)

var ErrConsentRequired = errors.New("consent is required to fetch medical data")

type Store interface {
	CreateSnapshot(snapshot *models.MyDataSnapshot) error
	LatestSnapshot(userID uint) (*models.MyDataSnapshot, error)
}

type Service struct {
	store Store
	audit audit.Recorder
	now   func() time.Time
}

func NewService(store Store, rec audit.Recorder) *Service {
	return &Service{store: store, audit: rec, now: time.Now}
}

// Snapshot is a stored fetch with its decoded record.
type Snapshot struct {
	ID        uint
	FetchedAt time.Time
	ConsentAt *time.Time
	Record    Record
}

// Fetch generates the user's record and stores it as a new snapshot.
func (s *Service) Fetch(ctx context.Context, user *models.User, consent bool) (*Snapshot, error) {
	if user == nil {
		return nil, authz.ErrUnauthenticated
	}
	if !consent {
		return nil, ErrConsentRequired
	}

	now := s.now()
	rec := Generate(user, now)
	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode mydata record: %w", err)
	}

	row := &models.MyDataSnapshot{
		UserID:       user.ID,
		Source:       config.MyDataSource,
		ConsentGiven: true,
		ConsentAt:    &now,
		Payload:      datatypes.JSON(payload),
		FetchedAt:    now,
	}
	if err := s.store.CreateSnapshot(row); err != nil {
		return nil, fmt.Errorf("store mydata snapshot: %w", err)
	}
	s.audit.Log(ctx, audit.Entry{
		ActorID:    &user.ID,
		Action:     "mydata_fetch",
		TargetType: "mydata_snapshot",
		TargetID:   audit.ID(row.ID),
		Meta:       audit.FormatMeta("source", row.Source, "visits", fmt.Sprint(len(rec.Visits))),
	})
	return &Snapshot{ID: row.ID, FetchedAt: row.FetchedAt, ConsentAt: row.ConsentAt, Record: rec}, nil
}

// Latest returns the newest snapshot of user, or nil when there is none.
func (s *Service) Latest(user *models.User) (*Snapshot, error) {
	if user == nil {
		return nil, authz.ErrUnauthenticated
	}
	row, err := s.store.LatestSnapshot(user.ID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(row.Payload, &rec); err != nil {
		return nil, fmt.Errorf("decode mydata snapshot %d: %w", row.ID, err)
	}
	return &Snapshot{ID: row.ID, FetchedAt: row.FetchedAt, ConsentAt: row.ConsentAt, Record: rec}, nil
}

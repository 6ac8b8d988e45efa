// Package audit appends rows to the audit log. Writing an audit row never
// fails the operation being audited: errors are logged and dropped.
package audit

import (
	"context"
	"strconv"
	"strings"

	"healthportal/backend/internal/models"

	"go.uber.org/zap"
)

// Entry describes one audited action. A nil ActorID is filled from the
// context unless Anonymous is set.
type Entry struct {
	ActorID    *uint
	Anonymous  bool
	Action     string
	TargetType string
	TargetID   string
	Meta       string
}

// Recorder is what services depend on.
type Recorder interface {
	Log(ctx context.Context, e Entry)
}

type Store interface {
	CreateAuditLog(entry *models.AuditLog) error
}

// Publisher receives every row after it has been stored.
type Publisher interface {
	PublishAudit(entry models.AuditLog)
}

type Logger struct {
	store      Store
	log        *zap.Logger
	publishers []Publisher
}

func NewLogger(store Store, log *zap.Logger, publishers ...Publisher) *Logger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Logger{store: store, log: log, publishers: publishers}
}

// AddPublisher registers p for rows written from now on. Not safe to call
// concurrently with Log.
func (l *Logger) AddPublisher(p Publisher) {
	l.publishers = append(l.publishers, p)
}

func (l *Logger) Log(ctx context.Context, e Entry) {
	row := models.AuditLog{
		ActorID:    e.ActorID,
		Action:     e.Action,
		TargetType: e.TargetType,
		TargetID:   e.TargetID,
		Meta:       e.Meta,
	}
	if row.ActorID == nil && !e.Anonymous {
		if actor := ActorFrom(ctx); actor != nil {
			id := actor.ID
			row.ActorID = &id
		}
	}

	if err := l.store.CreateAuditLog(&row); err != nil {
		l.log.Error("audit write failed",
			zap.String("action", e.Action),
			zap.String("target_type", e.TargetType),
			zap.String("target_id", e.TargetID),
			zap.Error(err),
		)
		return
	}
	for _, p := range l.publishers {
		p.PublishAudit(row)
	}
}

// Nop discards every entry.
type Nop struct{}

func (Nop) Log(context.Context, Entry) {}

// ID renders a primary key as an audit target id.
func ID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

// FormatMeta renders key/value pairs as "k=v; k=v". A trailing key without a
// value is dropped.
func FormatMeta(kv ...string) string {
	parts := make([]string, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		parts = append(parts, kv[i]+"="+kv[i+1])
	}
	return strings.Join(parts, "; ")
}

type actorKey struct{}

// WithActor returns a context carrying the authenticated user.
func WithActor(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, actorKey{}, user)
}

// ActorFrom returns the user stored by WithActor, or nil.
func ActorFrom(ctx context.Context) *models.User {
	if ctx == nil {
		return nil
	}
	user, _ := ctx.Value(actorKey{}).(*models.User)
	return user
}

// Package complaint provides the core logic for handling citizen complaints:
// submission, owner/admin visibility and the admin status workflow.
package complaint

import (
	"context"
	"fmt"
	"strings"
	"time"

	"healthportal/backend/internal/audit"
	"healthportal/backend/internal/authz"
	"healthportal/backend/internal/config"
	"healthportal/backend/internal/models"
	"healthportal/backend/internal/notify"
	"healthportal/backend/internal/report"
	"healthportal/backend/internal/storage"
	"healthportal/backend/internal/validation"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

const notifyTimeout = 5 * time.Second

type Store interface {
	CreateComplaint(complaint *models.Complaint) error
	GetComplaint(id uint) (*models.Complaint, error)
	UpdateComplaintStatus(complaint *models.Complaint, status string, adminID uint) error
	SearchComplaints(f storage.ComplaintFilter, p storage.Page) ([]models.Complaint, int64, error)
}

// Service handles the business logic for complaints.
type Service struct {
	Storage  Store
	Reports  report.Renderer
	audit    audit.Recorder
	notifier notify.Notifier
	policy   *bluemonday.Policy
	log      *zap.Logger
}

// NewService creates a new complaint service.
func NewService(s Store, rec audit.Recorder, notifier notify.Notifier, log *zap.Logger) *Service {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{Storage: s, audit: rec, notifier: notifier, policy: bluemonday.UGCPolicy(), log: log}
}

type Input struct {
	Title    string
	Content  string
	Category string
}

// Submit files a new complaint in the received state.
func (s *Service) Submit(ctx context.Context, requester *models.User, in Input) (*models.Complaint, error) {
	if err := authz.Check(requester, authz.Create, &models.Complaint{}); err != nil {
		return nil, err
	}
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(s.policy.Sanitize(in.Content))
	in.Category = strings.TrimSpace(in.Category)
	if in.Category == "" {
		in.Category = config.DefaultComplaintCategory
	}

	errs := validation.TitleAndContent(in.Title, in.Content)
	errs = append(errs, validation.ComplaintCategory(in.Category)...)
	if len(errs) > 0 {
		return nil, errs
	}

	c := &models.Complaint{
		Title:    in.Title,
		Content:  in.Content,
		Category: in.Category,
		Status:   config.StatusReceived,
		UserID:   requester.ID,
	}
	if err := s.Storage.CreateComplaint(c); err != nil {
		return nil, fmt.Errorf("create complaint: %w", err)
	}
	c.Requester = *requester

	s.audit.Log(ctx, audit.Entry{
		ActorID:    &requester.ID,
		Action:     "complaint_create",
		TargetType: "complaint",
		TargetID:   audit.ID(c.ID),
		Meta:       audit.FormatMeta("category", c.Category),
	})

	nctx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()
	if err := s.notifier.ComplaintSubmitted(nctx, c, requester); err != nil {
		s.log.Warn("complaint notification failed", zap.Uint("complaint_id", c.ID), zap.Error(err))
	}
	return c, nil
}

// Get returns the complaint to its requester or to an admin.
func (s *Service) Get(actor *models.User, id uint) (*models.Complaint, error) {
	if actor == nil {
		return nil, authz.ErrUnauthenticated
	}
	c, err := s.Storage.GetComplaint(id)
	if err != nil {
		return nil, err
	}
	if err := authz.Check(actor, authz.Read, c); err != nil {
		return nil, err
	}
	return c, nil
}

// List returns every matching complaint to admins and only the actor's own
// complaints to everyone else.
func (s *Service) List(actor *models.User, f storage.ComplaintFilter, p storage.Page) ([]models.Complaint, int64, error) {
	if actor == nil {
		return nil, 0, authz.ErrUnauthenticated
	}
	if !actor.IsAdmin() {
		f.UserID = &actor.ID
	}
	return s.Storage.SearchComplaints(f, p)
}

// Transition moves a complaint to status and assigns it to the acting admin.
// Any of the four statuses may follow any other, including after resolved or
// rejected.
func (s *Service) Transition(ctx context.Context, actor *models.User, id uint, status string) (*models.Complaint, error) {
	c, err := s.Get(actor, id)
	if err != nil {
		return nil, err
	}
	if err := authz.Check(actor, authz.Transition, c); err != nil {
		return nil, err
	}
	if errs := validation.ComplaintStatus(status); len(errs) > 0 {
		return nil, errs
	}

	if err := s.Storage.UpdateComplaintStatus(c, status, actor.ID); err != nil {
		return nil, fmt.Errorf("update complaint status: %w", err)
	}
	c.AssignedAdmin = actor

	s.audit.Log(ctx, audit.Entry{
		ActorID:    &actor.ID,
		Action:     "complaint_status_update",
		TargetType: "complaint",
		TargetID:   audit.ID(c.ID),
		Meta:       status,
	})
	return c, nil
}

// Report renders the complaint as a PDF for its requester or an admin.
func (s *Service) Report(ctx context.Context, actor *models.User, id uint) ([]byte, *models.Complaint, error) {
	c, err := s.Get(actor, id)
	if err != nil {
		return nil, nil, err
	}
	pdf, err := s.Reports.Complaint(c)
	if err != nil {
		return nil, nil, fmt.Errorf("render complaint report: %w", err)
	}
	s.audit.Log(ctx, audit.Entry{
		ActorID:    &actor.ID,
		Action:     "complaint_report_download",
		TargetType: "complaint",
		TargetID:   audit.ID(c.ID),
	})
	return pdf, c, nil
}

// Package notice manages admin announcements and their publish flag.
package notice

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"healthportal/backend/internal/audit"
	"healthportal/backend/internal/authz"
	"healthportal/backend/internal/models"
	"healthportal/backend/internal/storage"
	"healthportal/backend/internal/validation"
)

type Store interface {
	CreateNotice(notice *models.Notice) error
	GetNotice(id uint) (*models.Notice, error)
	SetNoticePublished(notice *models.Notice, published bool) error
	SearchNotices(f storage.NoticeFilter, p storage.Page) ([]models.Notice, int64, error)
	LatestPublishedNotices(limit int) ([]models.Notice, error)
}

type Service struct {
	store Store
	audit audit.Recorder
}

func NewService(store Store, rec audit.Recorder) *Service {
	return &Service{store: store, audit: rec}
}

type Input struct {
	Title     string
	Content   string
	Published bool
}

func (s *Service) Create(ctx context.Context, actor *models.User, in Input) (*models.Notice, error) {
	if err := authz.Check(actor, authz.Create, &models.Notice{}); err != nil {
		return nil, err
	}
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	if errs := validation.TitleAndContent(in.Title, in.Content); len(errs) > 0 {
		return nil, errs
	}

	n := &models.Notice{Title: in.Title, Content: in.Content, IsPublished: in.Published, CreatedBy: &actor.ID}
	if err := s.store.CreateNotice(n); err != nil {
		return nil, fmt.Errorf("create notice: %w", err)
	}
	s.audit.Log(ctx, audit.Entry{
		ActorID:    &actor.ID,
		Action:     "notice_create",
		TargetType: "notice",
		TargetID:   audit.ID(n.ID),
		Meta:       audit.FormatMeta("published", strconv.FormatBool(n.IsPublished)),
	})
	return n, nil
}

// Get returns a notice; unpublished ones only to admins.
func (s *Service) Get(actor *models.User, id uint) (*models.Notice, error) {
	n, err := s.store.GetNotice(id)
	if err != nil {
		return nil, err
	}
	if err := authz.Check(actor, authz.Read, n); err != nil {
		return nil, err
	}
	return n, nil
}

// List shows everything matching f to admins and only published notices to
// everyone else.
func (s *Service) List(actor *models.User, f storage.NoticeFilter, p storage.Page) ([]models.Notice, int64, error) {
	if !actor.IsAdmin() {
		f.Visibility = "published"
	}
	return s.store.SearchNotices(f, p)
}

func (s *Service) Latest(n int) ([]models.Notice, error) {
	return s.store.LatestPublishedNotices(n)
}

// TogglePublish flips the publish flag and returns the updated notice.
func (s *Service) TogglePublish(ctx context.Context, actor *models.User, id uint) (*models.Notice, error) {
	if err := authz.Check(actor, authz.Publish, &models.Notice{}); err != nil {
		return nil, err
	}
	n, err := s.store.GetNotice(id)
	if err != nil {
		return nil, err
	}
	if err := s.store.SetNoticePublished(n, !n.IsPublished); err != nil {
		return nil, fmt.Errorf("toggle notice: %w", err)
	}
	s.audit.Log(ctx, audit.Entry{
		ActorID:    &actor.ID,
		Action:     "notice_toggle_publish",
		TargetType: "notice",
		TargetID:   audit.ID(n.ID),
		Meta:       strconv.FormatBool(n.IsPublished),
	})
	return n, nil
}

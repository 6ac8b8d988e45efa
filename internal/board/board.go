// Package board implements the bulletin board: posts and their attachments.
package board

import (
	"context"
	"fmt"
	"mime/multipart"
	"strings"

	"healthportal/backend/internal/audit"
	"healthportal/backend/internal/authz"
	"healthportal/backend/internal/config"
	"healthportal/backend/internal/models"
	"healthportal/backend/internal/storage"
	"healthportal/backend/internal/uploads"
	"healthportal/backend/internal/validation"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

type Store interface {
	CreatePost(post *models.Post) error
	GetPost(id uint) (*models.Post, error)
	UpdatePostContent(post *models.Post) error
	DeletePost(post *models.Post) error
	SearchPosts(f storage.PostFilter, p storage.Page) ([]models.Post, int64, error)
	LatestPosts(limit int) ([]models.Post, error)
	CreateAttachment(attachment *models.Attachment) error
	GetAttachment(postID, id uint) (*models.Attachment, error)
	DeleteAttachment(attachment *models.Attachment) error
}

// FileStore keeps attachment bytes on disk.
type FileStore interface {
	Check(fh *multipart.FileHeader) (string, error)
	Save(fh *multipart.FileHeader) (uploads.Saved, error)
	Path(stored string) (string, error)
	Remove(stored string) error
}

type Service struct {
	store  Store
	audit  audit.Recorder
	files  FileStore
	policy *bluemonday.Policy
	log    *zap.Logger
}

func NewService(store Store, rec audit.Recorder, files FileStore, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, audit: rec, files: files, policy: bluemonday.UGCPolicy(), log: log}
}

type PostInput struct {
	Title    string
	Content  string
	Category string
	Files    []*multipart.FileHeader
}

func (s *Service) normalize(in *PostInput) validation.Errors {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(s.policy.Sanitize(in.Content))
	in.Category = strings.TrimSpace(in.Category)
	if in.Category == "" {
		in.Category = config.DefaultPostCategory
	}
	errs := validation.TitleAndContent(in.Title, in.Content)
	errs = append(errs, validation.PostCategory(in.Category)...)
	return errs
}

// realFiles drops the empty part browsers send when no file was chosen.
func realFiles(files []*multipart.FileHeader) []*multipart.FileHeader {
	out := files[:0:0]
	for _, fh := range files {
		if fh == nil || (fh.Filename == "" && fh.Size == 0) {
			continue
		}
		out = append(out, fh)
	}
	return out
}

// checkFiles rejects the whole request if any upload is unacceptable.
func (s *Service) checkFiles(files []*multipart.FileHeader) error {
	for _, fh := range files {
		if _, err := s.files.Check(fh); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) Create(ctx context.Context, author *models.User, in PostInput) (*models.Post, error) {
	if err := authz.Check(author, authz.Create, &models.Post{}); err != nil {
		return nil, err
	}
	if errs := s.normalize(&in); len(errs) > 0 {
		return nil, errs
	}
	files := realFiles(in.Files)
	if err := s.checkFiles(files); err != nil {
		return nil, err
	}

	post := &models.Post{
		Title:    in.Title,
		Content:  in.Content,
		Category: in.Category,
		Status:   config.DefaultPostStatus,
		UserID:   author.ID,
	}
	if err := s.store.CreatePost(post); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	s.audit.Log(ctx, audit.Entry{ActorID: &author.ID, Action: "post_create", TargetType: "post", TargetID: audit.ID(post.ID)})

	if err := s.attach(ctx, author, post, files); err != nil {
		return nil, err
	}
	return post, nil
}

// attach saves files for post. On failure the files written so far are removed
// and the rows already created stay; the caller reports the error.
func (s *Service) attach(ctx context.Context, actor *models.User, post *models.Post, files []*multipart.FileHeader) error {
	for _, fh := range files {
		saved, err := s.files.Save(fh)
		if err != nil {
			return fmt.Errorf("save attachment %q: %w", fh.Filename, err)
		}
		att := &models.Attachment{
			PostID:       post.ID,
			OriginalName: saved.OriginalName,
			StoredName:   saved.StoredName,
			MimeType:     saved.MimeType,
			FileSize:     saved.Size,
		}
		if err := s.store.CreateAttachment(att); err != nil {
			s.removeFile(saved.StoredName)
			return fmt.Errorf("create attachment: %w", err)
		}
		post.Attachments = append(post.Attachments, *att)
		s.audit.Log(ctx, audit.Entry{
			ActorID:    &actor.ID,
			Action:     "attachment_upload",
			TargetType: "attachment",
			TargetID:   audit.ID(att.ID),
			Meta:       audit.FormatMeta("post", audit.ID(post.ID), "name", att.OriginalName, "size", fmt.Sprint(att.FileSize)),
		})
	}
	return nil
}

func (s *Service) Get(id uint) (*models.Post, error) {
	return s.store.GetPost(id)
}

func (s *Service) List(f storage.PostFilter, p storage.Page) ([]models.Post, int64, error) {
	return s.store.SearchPosts(f, p)
}

func (s *Service) Latest(n int) ([]models.Post, error) {
	return s.store.LatestPosts(n)
}

// Update edits title, content and category and appends any new files.
func (s *Service) Update(ctx context.Context, actor *models.User, id uint, in PostInput) (*models.Post, error) {
	post, err := s.store.GetPost(id)
	if err != nil {
		return nil, err
	}
	if err := authz.Check(actor, authz.Update, post); err != nil {
		return nil, err
	}
	if errs := s.normalize(&in); len(errs) > 0 {
		return nil, errs
	}
	files := realFiles(in.Files)
	if err := s.checkFiles(files); err != nil {
		return nil, err
	}

	post.Title = in.Title
	post.Content = in.Content
	post.Category = in.Category
	if err := s.store.UpdatePostContent(post); err != nil {
		return nil, fmt.Errorf("update post: %w", err)
	}
	s.audit.Log(ctx, audit.Entry{ActorID: &actor.ID, Action: "post_update", TargetType: "post", TargetID: audit.ID(post.ID)})

	if err := s.attach(ctx, actor, post, files); err != nil {
		return nil, err
	}
	return post, nil
}

// Delete removes the post and its attachment rows, then the files best-effort.
func (s *Service) Delete(ctx context.Context, actor *models.User, id uint) error {
	post, err := s.store.GetPost(id)
	if err != nil {
		return err
	}
	if err := authz.Check(actor, authz.Delete, post); err != nil {
		return err
	}
	if err := s.store.DeletePost(post); err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	for _, att := range post.Attachments {
		s.removeFile(att.StoredName)
	}
	s.audit.Log(ctx, audit.Entry{
		ActorID:    &actor.ID,
		Action:     "post_delete",
		TargetType: "post",
		TargetID:   audit.ID(id),
		Meta:       audit.FormatMeta("attachments", fmt.Sprint(len(post.Attachments))),
	})
	return nil
}

// Download resolves an attachment of postID for serving and records the access.
func (s *Service) Download(ctx context.Context, postID, attachmentID uint) (*models.Attachment, string, error) {
	att, err := s.store.GetAttachment(postID, attachmentID)
	if err != nil {
		return nil, "", err
	}
	path, err := s.files.Path(att.StoredName)
	if err != nil {
		return nil, "", err
	}
	s.audit.Log(ctx, audit.Entry{
		Action:     "attachment_download",
		TargetType: "attachment",
		TargetID:   audit.ID(att.ID),
		Meta:       audit.FormatMeta("post", audit.ID(postID)),
	})
	return att, path, nil
}

func (s *Service) DeleteAttachment(ctx context.Context, actor *models.User, postID, attachmentID uint) error {
	post, err := s.store.GetPost(postID)
	if err != nil {
		return err
	}
	if err := authz.Check(actor, authz.Update, post); err != nil {
		return err
	}
	att, err := s.store.GetAttachment(postID, attachmentID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteAttachment(att); err != nil {
		return fmt.Errorf("delete attachment: %w", err)
	}
	s.removeFile(att.StoredName)
	s.audit.Log(ctx, audit.Entry{
		ActorID:    &actor.ID,
		Action:     "attachment_delete",
		TargetType: "attachment",
		TargetID:   audit.ID(att.ID),
		Meta:       audit.FormatMeta("post", audit.ID(postID), "name", att.OriginalName),
	})
	return nil
}

func (s *Service) removeFile(stored string) {
	if err := s.files.Remove(stored); err != nil {
		s.log.Warn("attachment file cleanup failed", zap.String("stored_name", stored), zap.Error(err))
	}
}

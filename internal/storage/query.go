package storage

import (
	"strings"

	"healthportal/backend/internal/config"
	"healthportal/backend/internal/models"

	"gorm.io/gorm"
)

// Page selects one page of a listing. Number is 1-based.
type Page struct {
	Number int
	Size   int
}

func (p Page) normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = config.PageSize
	}
	return p
}

func (p Page) scope(db *gorm.DB) *gorm.DB {
	p = p.normalize()
	return db.Offset((p.Number - 1) * p.Size).Limit(p.Size)
}

// Pagination describes where a page sits in the full result set.
type Pagination struct {
	Page    int
	PerPage int
	Pages   int
	Total   int64
}

func NewPagination(p Page, total int64) Pagination {
	p = p.normalize()
	pages := int((total + int64(p.Size) - 1) / int64(p.Size))
	return Pagination{Page: p.Number, PerPage: p.Size, Pages: pages, Total: total}
}

func (p Pagination) HasPrev() bool { return p.Page > 1 }
func (p Pagination) HasNext() bool { return p.Page < p.Pages }
func (p Pagination) PrevNum() int  { return p.Page - 1 }
func (p Pagination) NextNum() int  { return p.Page + 1 }

func likePattern(q string) string {
	return "%" + strings.ToLower(strings.TrimSpace(q)) + "%"
}

type UserFilter struct {
	Query string
	Role  string // "user", "admin" or anything else for all
}

type PostFilter struct {
	Query    string
	Category string
}

type NoticeFilter struct {
	Query      string
	Visibility string // "published", "private" or anything else for all
}

type ComplaintFilter struct {
	Query    string
	Status   string
	Category string
	UserID   *uint
}

type AuditFilter struct {
	Action  string
	Query   string
	ActorID *uint
}

func (s *Service) SearchUsers(f UserFilter, p Page) ([]models.User, int64, error) {
	scope := func(db *gorm.DB) *gorm.DB {
		if f.Query != "" {
			kw := likePattern(f.Query)
			db = db.Where("LOWER(username) LIKE ? OR LOWER(email) LIKE ? OR LOWER(full_name) LIKE ?", kw, kw, kw)
		}
		if config.Contains(config.Roles, f.Role) {
			db = db.Where("role = ?", f.Role)
		}
		return db
	}

	var total int64
	if err := s.DB.Model(&models.User{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var users []models.User
	err := s.DB.Scopes(scope, p.scope).Order("created_at DESC, id DESC").Find(&users).Error
	return users, total, err
}

// SearchPosts matches the query against title, content and author username.
func (s *Service) SearchPosts(f PostFilter, p Page) ([]models.Post, int64, error) {
	scope := func(db *gorm.DB) *gorm.DB {
		db = db.Joins("JOIN users ON users.id = posts.user_id")
		if f.Query != "" {
			kw := likePattern(f.Query)
			db = db.Where("LOWER(posts.title) LIKE ? OR LOWER(posts.content) LIKE ? OR LOWER(users.username) LIKE ?", kw, kw, kw)
		}
		if config.Contains(config.PostCategories, f.Category) {
			db = db.Where("posts.category = ?", f.Category)
		}
		return db
	}

	var total int64
	if err := s.DB.Model(&models.Post{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var posts []models.Post
	err := s.DB.Model(&models.Post{}).Scopes(scope, p.scope).
		Preload("Author").
		Order("posts.created_at DESC, posts.id DESC").
		Find(&posts).Error
	return posts, total, err
}

func (s *Service) SearchNotices(f NoticeFilter, p Page) ([]models.Notice, int64, error) {
	scope := func(db *gorm.DB) *gorm.DB {
		if f.Query != "" {
			kw := likePattern(f.Query)
			db = db.Where("LOWER(title) LIKE ? OR LOWER(content) LIKE ?", kw, kw)
		}
		switch f.Visibility {
		case "published":
			db = db.Where("is_published = ?", true)
		case "private":
			db = db.Where("is_published = ?", false)
		}
		return db
	}

	var total int64
	if err := s.DB.Model(&models.Notice{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var notices []models.Notice
	err := s.DB.Scopes(scope, p.scope).Order("created_at DESC, id DESC").Find(&notices).Error
	return notices, total, err
}

func (s *Service) SearchComplaints(f ComplaintFilter, p Page) ([]models.Complaint, int64, error) {
	scope := func(db *gorm.DB) *gorm.DB {
		db = db.Joins("JOIN users ON users.id = complaints.user_id")
		if f.UserID != nil {
			db = db.Where("complaints.user_id = ?", *f.UserID)
		}
		if f.Query != "" {
			kw := likePattern(f.Query)
			db = db.Where("LOWER(complaints.title) LIKE ? OR LOWER(complaints.content) LIKE ? OR LOWER(users.username) LIKE ?", kw, kw, kw)
		}
		if config.Contains(config.ComplaintStatuses, f.Status) {
			db = db.Where("complaints.status = ?", f.Status)
		}
		if config.Contains(config.ComplaintCategories, f.Category) {
			db = db.Where("complaints.category = ?", f.Category)
		}
		return db
	}

	var total int64
	if err := s.DB.Model(&models.Complaint{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var complaints []models.Complaint
	err := s.DB.Model(&models.Complaint{}).Scopes(scope, p.scope).
		Preload("Requester").
		Preload("AssignedAdmin").
		Order("complaints.created_at DESC, complaints.id DESC").
		Find(&complaints).Error
	return complaints, total, err
}

func (s *Service) SearchAuditLogs(f AuditFilter, p Page) ([]models.AuditLog, int64, error) {
	scope := func(db *gorm.DB) *gorm.DB {
		if f.Action != "" {
			db = db.Where("action = ?", f.Action)
		}
		if f.ActorID != nil {
			db = db.Where("actor_id = ?", *f.ActorID)
		}
		if f.Query != "" {
			kw := likePattern(f.Query)
			db = db.Where("LOWER(meta) LIKE ? OR LOWER(target_type) LIKE ? OR target_id LIKE ?", kw, kw, kw)
		}
		return db
	}

	var total int64
	if err := s.DB.Model(&models.AuditLog{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var logs []models.AuditLog
	err := s.DB.Scopes(scope, p.scope).
		Preload("Actor").
		Order("created_at DESC, id DESC").
		Find(&logs).Error
	return logs, total, err
}

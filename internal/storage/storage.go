package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"healthportal/backend/internal/config"
	"healthportal/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrNotFound is returned when a looked-up row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an insert hits a unique index.
	ErrDuplicate = errors.New("duplicate key")
)

type Storage interface {
	CreateUser(user *models.User) error
	UpdateUser(user *models.User) error
	GetUserByID(id uint) (*models.User, error)
	GetUserByUsername(username string) (*models.User, error)
	IsUsernameOrEmailTaken(username, email string) (bool, error)
	IsEmailTakenByOther(email string, userID uint) (bool, error)
	SearchUsers(f UserFilter, p Page) ([]models.User, int64, error)

	CreatePost(post *models.Post) error
	GetPost(id uint) (*models.Post, error)
	UpdatePostContent(post *models.Post) error
	DeletePost(post *models.Post) error
	SearchPosts(f PostFilter, p Page) ([]models.Post, int64, error)
	LatestPosts(limit int) ([]models.Post, error)
	CreateAttachment(attachment *models.Attachment) error
	GetAttachment(postID, id uint) (*models.Attachment, error)
	DeleteAttachment(attachment *models.Attachment) error

	CreateNotice(notice *models.Notice) error
	GetNotice(id uint) (*models.Notice, error)
	SetNoticePublished(notice *models.Notice, published bool) error
	SearchNotices(f NoticeFilter, p Page) ([]models.Notice, int64, error)
	LatestPublishedNotices(limit int) ([]models.Notice, error)

	CreateComplaint(complaint *models.Complaint) error
	GetComplaint(id uint) (*models.Complaint, error)
	UpdateComplaintStatus(complaint *models.Complaint, status string, adminID uint) error
	SearchComplaints(f ComplaintFilter, p Page) ([]models.Complaint, int64, error)

	CreateAuditLog(entry *models.AuditLog) error
	SearchAuditLogs(f AuditFilter, p Page) ([]models.AuditLog, int64, error)

	CreateSnapshot(snapshot *models.MyDataSnapshot) error
	LatestSnapshot(userID uint) (*models.MyDataSnapshot, error)

	Stats() (Stats, error)

	RevokeSession(tokenID string, ttl time.Duration) error
	IsSessionRevoked(tokenID string) (bool, error)
	RecordLoginFailure(key string, window time.Duration) (int64, error)
	LoginFailures(key string) (int64, error)
	ClearLoginFailures(key string) error
	PublishAuditEvent(payload []byte) error
}

// Service is the GORM/Redis implementation of Storage. Redis is optional; the
// Redis-backed methods degrade to no-ops without it.
type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
	Ctx   context.Context
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
		Ctx:   context.Background(),
	}
}

// Dialector maps a DATABASE_URL onto a GORM dialector.
func Dialector(databaseURL string) (gorm.Dialector, error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"),
		strings.HasPrefix(databaseURL, "postgresql://"),
		strings.HasPrefix(databaseURL, "host="):
		return postgres.Open(databaseURL), nil
	case strings.HasPrefix(databaseURL, "mysql://"):
		return mysql.Open(strings.TrimPrefix(databaseURL, "mysql://")), nil
	case strings.HasPrefix(databaseURL, "sqlite://"):
		path := strings.TrimPrefix(databaseURL, "sqlite://")
		if path == "" {
			return nil, fmt.Errorf("sqlite url %q has no path", databaseURL)
		}
		if !strings.Contains(path, "?") {
			path += "?_foreign_keys=on&_busy_timeout=5000"
		}
		return sqlite.Open(path), nil
	default:
		return nil, fmt.Errorf("unsupported database url %q", databaseURL)
	}
}

// Open connects to the database named by databaseURL.
func Open(databaseURL string, cfg *gorm.Config) (*gorm.DB, error) {
	dialector, err := Dialector(databaseURL)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = &gorm.Config{}
	}
	// Unique violations surface as gorm.ErrDuplicatedKey on every dialect.
	cfg.TranslateError = true
	return gorm.Open(dialector, cfg)
}

// Connect opens the database named in cfg and, when REDIS_ADDR is set, a
// Redis client that must answer a ping.
func Connect(ctx context.Context, cfg config.Config, gcfg *gorm.Config) (*Service, error) {
	db, err := Open(cfg.DatabaseURL, gcfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	svc := NewStorageService(db, nil)
	if cfg.RedisAddr == "" {
		return svc, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	svc.Redis = rdb
	return svc, nil
}

// Close releases the database pool and the Redis client.
func (s *Service) Close() error {
	if s.Redis != nil {
		s.Redis.Close()
	}
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// AutoMigrate creates or updates every table the portal uses.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Post{},
		&models.Attachment{},
		&models.Notice{},
		&models.Complaint{},
		&models.AuditLog{},
		&models.MyDataSnapshot{},
	)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// --- Users ---

func (s *Service) CreateUser(user *models.User) error {
	err := s.DB.Create(user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}

// UpdateUser saves every column of user.
func (s *Service) UpdateUser(user *models.User) error {
	return s.DB.Save(user).Error
}

func (s *Service) GetUserByID(id uint) (*models.User, error) {
	var user models.User
	if err := s.DB.First(&user, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *Service) GetUserByUsername(username string) (*models.User, error) {
	var user models.User
	if err := s.DB.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// IsUsernameOrEmailTaken compares usernames exactly and emails case-insensitively.
func (s *Service) IsUsernameOrEmailTaken(username, email string) (bool, error) {
	var count int64
	err := s.DB.Model(&models.User{}).
		Where("username = ? OR LOWER(email) = ?", username, strings.ToLower(email)).
		Count(&count).Error
	return count > 0, err
}

func (s *Service) IsEmailTakenByOther(email string, userID uint) (bool, error) {
	var count int64
	err := s.DB.Model(&models.User{}).
		Where("LOWER(email) = ? AND id <> ?", strings.ToLower(email), userID).
		Count(&count).Error
	return count > 0, err
}

// --- Posts ---

func (s *Service) CreatePost(post *models.Post) error {
	return s.DB.Omit(clause.Associations).Create(post).Error
}

func (s *Service) GetPost(id uint) (*models.Post, error) {
	var post models.Post
	err := s.DB.Preload("Author").
		Preload("Attachments", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&post, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &post, nil
}

// UpdatePostContent writes the editable columns of post.
func (s *Service) UpdatePostContent(post *models.Post) error {
	return s.DB.Model(post).Omit(clause.Associations).Updates(map[string]interface{}{
		"title":    post.Title,
		"content":  post.Content,
		"category": post.Category,
	}).Error
}

// DeletePost removes the post row together with its attachment rows.
// Files on disk are the caller's concern.
func (s *Service) DeletePost(post *models.Post) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Attachment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Post{}, post.ID).Error
	})
}

func (s *Service) LatestPosts(limit int) ([]models.Post, error) {
	var posts []models.Post
	err := s.DB.Preload("Author").Order("created_at DESC, id DESC").Limit(limit).Find(&posts).Error
	return posts, err
}

func (s *Service) CreateAttachment(attachment *models.Attachment) error {
	return s.DB.Create(attachment).Error
}

func (s *Service) GetAttachment(postID, id uint) (*models.Attachment, error) {
	var attachment models.Attachment
	if err := s.DB.Where("id = ? AND post_id = ?", id, postID).First(&attachment).Error; err != nil {
		return nil, notFound(err)
	}
	return &attachment, nil
}

func (s *Service) DeleteAttachment(attachment *models.Attachment) error {
	return s.DB.Delete(&models.Attachment{}, attachment.ID).Error
}

// --- Notices ---

func (s *Service) CreateNotice(notice *models.Notice) error {
	return s.DB.Omit(clause.Associations).Create(notice).Error
}

func (s *Service) GetNotice(id uint) (*models.Notice, error) {
	var notice models.Notice
	if err := s.DB.First(&notice, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &notice, nil
}

func (s *Service) SetNoticePublished(notice *models.Notice, published bool) error {
	if err := s.DB.Model(notice).Omit(clause.Associations).Update("is_published", published).Error; err != nil {
		return err
	}
	notice.IsPublished = published
	return nil
}

func (s *Service) LatestPublishedNotices(limit int) ([]models.Notice, error) {
	var notices []models.Notice
	err := s.DB.Where("is_published = ?", true).Order("created_at DESC, id DESC").Limit(limit).Find(&notices).Error
	return notices, err
}

// --- Complaints ---

func (s *Service) CreateComplaint(complaint *models.Complaint) error {
	return s.DB.Omit(clause.Associations).Create(complaint).Error
}

func (s *Service) GetComplaint(id uint) (*models.Complaint, error) {
	var complaint models.Complaint
	if err := s.DB.Preload("Requester").Preload("AssignedAdmin").First(&complaint, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &complaint, nil
}

// UpdateComplaintStatus sets the status and the assigned admin in one statement.
func (s *Service) UpdateComplaintStatus(complaint *models.Complaint, status string, adminID uint) error {
	err := s.DB.Model(complaint).Omit(clause.Associations).Updates(map[string]interface{}{
		"status":            status,
		"assigned_admin_id": adminID,
	}).Error
	if err != nil {
		return err
	}
	complaint.Status = status
	complaint.AssignedAdminID = &adminID
	return nil
}

// --- Audit ---

func (s *Service) CreateAuditLog(entry *models.AuditLog) error {
	return s.DB.Omit(clause.Associations).Create(entry).Error
}

// --- MyData ---

func (s *Service) CreateSnapshot(snapshot *models.MyDataSnapshot) error {
	return s.DB.Create(snapshot).Error
}

func (s *Service) LatestSnapshot(userID uint) (*models.MyDataSnapshot, error) {
	var snapshot models.MyDataSnapshot
	err := s.DB.Where("user_id = ?", userID).Order("fetched_at DESC, id DESC").First(&snapshot).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &snapshot, nil
}

// Stats holds the dashboard counters.
type Stats struct {
	Users      int64
	Posts      int64
	Notices    int64
	Complaints int64
}

func (s *Service) Stats() (Stats, error) {
	var st Stats
	counters := []struct {
		model interface{}
		dest  *int64
	}{
		{&models.User{}, &st.Users},
		{&models.Post{}, &st.Posts},
		{&models.Notice{}, &st.Notices},
		{&models.Complaint{}, &st.Complaints},
	}
	for _, c := range counters {
		if err := s.DB.Model(c.model).Count(c.dest).Error; err != nil {
			return st, err
		}
	}
	return st, nil
}

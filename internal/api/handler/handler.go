package handler

import (
	"healthportal/backend/internal/account"
	"healthportal/backend/internal/audit"
	"healthportal/backend/internal/auth"
	"healthportal/backend/internal/board"
	"healthportal/backend/internal/complaint"
	"healthportal/backend/internal/config"
	"healthportal/backend/internal/content"
	"healthportal/backend/internal/livefeed"
	"healthportal/backend/internal/localization"
	"healthportal/backend/internal/mydata"
	"healthportal/backend/internal/notice"
	"healthportal/backend/internal/notify"
	"healthportal/backend/internal/security"
	"healthportal/backend/internal/storage"
	"healthportal/backend/internal/uploads"

	"go.uber.org/zap"
)

// Handler holds every service the routes call into.
type Handler struct {
	Config     config.Config
	Storage    storage.Storage
	Sessions   *auth.Manager
	Audit      audit.Recorder
	Accounts   *account.Service
	Board      *board.Service
	Notices    *notice.Service
	Complaints *complaint.Service
	MyData     *mydata.Service
	Hub        *livefeed.Hub
	Profiles   *uploads.Store
	Security   *security.Catalog
	Content    *content.Content
	Localizer  *localization.Localizer
	Log        *zap.Logger

	pages pages
}

// Deps are the pieces that cannot be derived from Config.
type Deps struct {
	Config    config.Config
	Storage   *storage.Service
	Audit     *audit.Logger
	Hub       *livefeed.Hub
	Notifier  notify.Notifier
	Localizer *localization.Localizer
	Log       *zap.Logger
}

// NewHandler wires the domain services on top of one storage handle.
func NewHandler(d Deps) (*Handler, error) {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Audit == nil {
		d.Audit = audit.NewLogger(d.Storage, d.Log)
	}
	if d.Hub != nil {
		d.Audit.AddPublisher(d.Hub)
	}
	if d.Localizer == nil {
		loc, err := localization.New()
		if err != nil {
			return nil, err
		}
		d.Localizer = loc
	}

	if d.Notifier == nil {
		d.Notifier = notify.Nop{}
	}

	cfg := d.Config
	profiles := uploads.NewProfileStore(cfg)
	complaints := complaint.NewService(d.Storage, d.Audit, d.Notifier, d.Log)
	complaints.Reports.FontPath = cfg.ReportFontPath

	h := &Handler{
		Config:   cfg,
		Storage:  d.Storage,
		Sessions: auth.NewManager(cfg.SecretKey, cfg.SessionTTL, d.Storage),
		Audit:    d.Audit,
		Accounts: account.NewService(d.Storage, d.Audit, profiles, account.Throttle{
			MaxFailures: cfg.LoginMaxFailures,
			Window:      cfg.LoginFailureWindow,
		}, d.Log),
		Board:      board.NewService(d.Storage, d.Audit, uploads.NewPostStore(cfg), d.Log),
		Notices:    notice.NewService(d.Storage, d.Audit),
		Complaints: complaints,
		MyData:     mydata.NewService(d.Storage, d.Audit),
		Hub:        d.Hub,
		Profiles:   profiles,
		Security:   security.Default(),
		Content:    content.Default(),
		Localizer:  d.Localizer,
		Log:        d.Log,
	}

	p, err := loadPages(h.templateFuncs())
	if err != nil {
		return nil, err
	}
	h.pages = p
	return h, nil
}

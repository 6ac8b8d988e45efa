package handler

import (
	"io/fs"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewRouter builds the gin engine with every portal route.
func NewRouter(h *Handler) *gin.Engine {
	if h.Config.GinMode != "" {
		gin.SetMode(h.Config.GinMode)
	}
	r := gin.New()
	r.MaxMultipartMemory = h.Config.MaxUploadBytes
	r.Use(RequestLogger(h.Log), h.LoadSession, h.AuditRequests, h.Recovery())
	r.NoRoute(h.notFound)

	static, _ := fs.Sub(staticFS, "static")
	r.StaticFS("/static", http.FS(static))

	r.GET("/", h.Index)
	r.GET("/register", h.RegisterPage)
	r.POST("/register", h.Register)
	r.GET("/login", h.LoginPage)
	r.POST("/login", h.Login)
	r.GET("/logout", h.Logout)

	r.GET("/posts", h.ListPosts)
	r.GET("/posts/:id", h.ShowPost)
	r.GET("/posts/:id/attachments/:aid", h.DownloadAttachment)
	r.GET("/notices", h.ListNotices)
	r.GET("/notices/:id", h.ShowNotice)

	user := r.Group("/", h.RequireLogin)
	{
		user.GET("/profile", h.ProfilePage)
		user.POST("/profile", h.LimitBody, h.UpdateProfile)
		user.GET("/profile/image", h.ProfileImage)
		user.POST("/profile/mydata/fetch", h.FetchMyData)

		user.GET("/posts/new", h.NewPostPage)
		user.POST("/posts/new", h.LimitBody, h.CreatePost)
		user.POST("/posts/:id", h.LimitBody, h.UpdatePost)
		user.POST("/posts/:id/delete", h.DeletePost)
		user.POST("/posts/:id/attachments/:aid/delete", h.DeleteAttachment)

		user.GET("/complaints", h.ListComplaints)
		user.GET("/complaints/new", h.NewComplaintPage)
		user.POST("/complaints/new", h.SubmitComplaint)
		user.GET("/complaints/:id", h.ShowComplaint)
		user.POST("/complaints/:id", h.TransitionComplaint)
		user.GET("/complaints/:id/report.pdf", h.ComplaintReport)
	}

	admin := r.Group("/", h.RequireAdmin)
	{
		admin.GET("/admin", h.AdminDashboard)
		admin.GET("/admin/users", h.AdminUsers)
		admin.POST("/admin/users", h.AdminChangeRole)
		admin.GET("/admin/notices", h.AdminNotices)
		admin.POST("/admin/notices", h.AdminCreateNotice)
		admin.POST("/admin/notices/:id/publish", h.AdminToggleNotice)
		admin.GET("/admin/posts", h.AdminPosts)
		admin.GET("/admin/complaints", h.AdminComplaints)
		admin.GET("/admin/logs", h.AdminLogs)
		admin.GET("/admin/logs/stream", h.ServeAuditFeed)

		admin.GET("/security/scenarios", h.SecurityScenarios)
		admin.GET("/security/scenarios/:id", h.SecurityScenario)
	}

	api := r.Group("/api")
	if len(h.Config.CORSAllowedOrigins) > 0 {
		api.Use(cors.New(cors.Config{
			AllowOrigins: h.Config.CORSAllowedOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodOptions},
			AllowHeaders: []string{"Origin", "Content-Type"},
		}))
	}
	api.GET("/health", h.Health)
	api.GET("/notices", h.PublishedNotices)

	return r
}

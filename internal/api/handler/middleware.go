package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"healthportal/backend/internal/audit"
	"healthportal/backend/internal/auth"
	"healthportal/backend/internal/models"
	"healthportal/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	ctxUser    = "user"
	ctxSession = "session"
)

func currentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(ctxUser); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return nil
}

// setUser makes user the actor of this request, for handlers and for audit rows.
func setUser(c *gin.Context, user *models.User) {
	c.Set(ctxUser, user)
	c.Request = c.Request.WithContext(audit.WithActor(c.Request.Context(), user))
}

func isStatic(path string) bool {
	return strings.HasPrefix(path, "/static/") || path == "/favicon.ico"
}

// RequestLogger writes one zap line per request.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		)
	}
}

// LoadSession resolves the session cookie into the current user. A bad,
// expired or revoked token is cleared and the request continues anonymously.
func (h *Handler) LoadSession(c *gin.Context) {
	c.Request = c.Request.WithContext(audit.WithRequest(c.Request.Context(), audit.NewRequestInfo(c.Request)))

	token, err := c.Cookie(auth.CookieName)
	if err != nil || token == "" {
		c.Next()
		return
	}

	sess, err := h.Sessions.Parse(token)
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidToken) && !errors.Is(err, auth.ErrRevoked) {
			h.Log.Warn("session check failed", zap.Error(err))
		}
		h.setCookie(c, auth.CookieName, "", -1)
		c.Next()
		return
	}

	user, err := h.Accounts.Get(sess.UserID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			h.Log.Warn("session user lookup failed", zap.Uint("user_id", sess.UserID), zap.Error(err))
		}
		h.setCookie(c, auth.CookieName, "", -1)
		c.Next()
		return
	}

	c.Set(ctxSession, sess)
	setUser(c, user)
	c.Next()
}

// AuditRequests appends one web_request row for every non-static request once
// the response status is known.
func (h *Handler) AuditRequests(c *gin.Context) {
	if isStatic(c.Request.URL.Path) {
		c.Next()
		return
	}
	c.Next()

	status := c.Writer.Status()
	result := "ok"
	if status >= http.StatusBadRequest {
		result = "error"
	}
	ri := audit.RequestFrom(c.Request.Context())
	meta := []string{
		"method", c.Request.Method,
		"path", audit.Truncate(c.Request.URL.Path, 200),
		"status", strconv.Itoa(status),
	}
	meta = append(meta, ri.Meta()...)
	meta = append(meta, "result", result)

	h.Audit.Log(c.Request.Context(), audit.Entry{
		Action:     "web_request",
		TargetType: "http",
		TargetID:   c.Request.Method,
		Meta:       audit.FormatMeta(meta...),
	})
}

// Recovery renders the error page for panics so the audit middleware still
// sees a 500.
func (h *Handler) Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		h.serverError(c, fmt.Errorf("panic: %v", recovered))
		c.Abort()
	})
}

// RequireLogin sends anonymous users to the login page.
func (h *Handler) RequireLogin(c *gin.Context) {
	if currentUser(c) == nil {
		addFlash(c, "danger", "flash.login_required")
		h.redirect(c, "/login")
		c.Abort()
		return
	}
	c.Next()
}

// RequireAdmin sends everyone but admins back to the index page.
func (h *Handler) RequireAdmin(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		addFlash(c, "danger", "flash.login_required")
		h.redirect(c, "/login")
		c.Abort()
		return
	}
	if !user.IsAdmin() {
		addFlash(c, "danger", "flash.admin_only")
		h.redirect(c, "/")
		c.Abort()
		return
	}
	c.Next()
}

// LimitBody caps request bodies at the configured upload size.
func (h *Handler) LimitBody(c *gin.Context) {
	if c.Request.Body != nil {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.Config.MaxUploadBytes)
	}
	c.Next()
}

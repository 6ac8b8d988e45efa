package handler

import (
	"net/http"

	"healthportal/backend/internal/account"
	"healthportal/backend/internal/auth"
	"healthportal/backend/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (h *Handler) RegisterPage(c *gin.Context) {
	if currentUser(c) != nil {
		h.redirect(c, "/")
		return
	}
	h.render(c, http.StatusOK, "register", nil)
}

func (h *Handler) Register(c *gin.Context) {
	_, err := h.Accounts.Register(c.Request.Context(), account.Registration{
		Username:      c.PostForm("username"),
		Email:         c.PostForm("email"),
		FullName:      c.PostForm("full_name"),
		Phone:         c.PostForm("phone"),
		Password:      c.PostForm("password"),
		AgreeRequired: c.PostForm("agree_required") != "",
		AgreeOptional: c.PostForm("agree_optional") != "",
	})
	if err != nil {
		h.fail(c, err, "/register")
		return
	}
	addFlash(c, "success", "flash.registered")
	h.redirect(c, "/login")
}

func (h *Handler) LoginPage(c *gin.Context) {
	if currentUser(c) != nil {
		h.redirect(c, "/")
		return
	}
	h.render(c, http.StatusOK, "login", nil)
}

func (h *Handler) Login(c *gin.Context) {
	user, err := h.Accounts.Authenticate(c.Request.Context(), c.PostForm("username"), c.PostForm("password"))
	if err != nil {
		h.fail(c, err, "/login")
		return
	}
	if err := h.startSession(c, user); err != nil {
		h.serverError(c, err)
		return
	}
	addFlash(c, "success", "flash.logged_in")
	h.redirect(c, "/")
}

func (h *Handler) startSession(c *gin.Context, user *models.User) error {
	token, _, err := h.Sessions.Issue(user.ID)
	if err != nil {
		return err
	}
	h.setCookie(c, auth.CookieName, token, int(h.Sessions.TTL().Seconds()))
	setUser(c, user)
	return nil
}

// Logout revokes the current token so a copied cookie stops working too.
func (h *Handler) Logout(c *gin.Context) {
	user := currentUser(c)
	if v, ok := c.Get(ctxSession); ok {
		if err := h.Sessions.Revoke(v.(auth.Session)); err != nil {
			h.Log.Warn("session revoke failed", zap.Error(err))
		}
	}
	h.Accounts.Logout(c.Request.Context(), user)
	h.setCookie(c, auth.CookieName, "", -1)
	addFlash(c, "info", "flash.logged_out")
	h.redirect(c, "/")
}

package handler

import (
	"errors"
	"net/http"

	"healthportal/backend/internal/account"
	"healthportal/backend/internal/authz"
	"healthportal/backend/internal/mydata"
	"healthportal/backend/internal/storage"
	"healthportal/backend/internal/uploads"
	"healthportal/backend/internal/validation"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// flashErrors maps expected domain errors onto the message shown to the user.
var flashErrors = []struct {
	err error
	key string
}{
	{authz.ErrSelfDemotion, "flash.self_demotion"},
	{authz.ErrForbidden, "flash.forbidden"},
	{account.ErrDuplicateAccount, "flash.duplicate_account"},
	{account.ErrDuplicateEmail, "flash.duplicate_email"},
	{account.ErrTermsRequired, "flash.terms_required"},
	{account.ErrInvalidCredentials, "flash.invalid_credentials"},
	{account.ErrTooManyAttempts, "flash.too_many_attempts"},
	{mydata.ErrConsentRequired, "flash.consent_required"},
	{uploads.ErrEmptyName, "flash.upload_invalid_name"},
	{uploads.ErrNotAllowed, "flash.upload_not_allowed"},
}

// fail turns err into the response: a redirect to back with a flash for
// expected failures, the login page for anonymous users, 404 for missing rows
// and 500 for everything else.
func (h *Handler) fail(c *gin.Context, err error, back string) {
	var verrs validation.Errors
	switch {
	case errors.As(err, &verrs):
		for _, key := range verrs {
			addFlash(c, "danger", key)
		}
		h.redirect(c, back)
		return
	case errors.Is(err, authz.ErrUnauthenticated):
		addFlash(c, "danger", "flash.login_required")
		h.redirect(c, "/login")
		return
	case errors.Is(err, storage.ErrNotFound):
		h.notFound(c)
		return
	}

	for _, fe := range flashErrors {
		if errors.Is(err, fe.err) {
			addFlash(c, "danger", fe.key)
			h.redirect(c, back)
			return
		}
	}
	h.serverError(c, err)
}

func (h *Handler) notFound(c *gin.Context) {
	h.render(c, http.StatusNotFound, "error", gin.H{"Status": http.StatusNotFound, "Message": "error.not_found"})
}

func (h *Handler) serverError(c *gin.Context, err error) {
	h.Log.Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)
	h.render(c, http.StatusInternalServerError, "error", gin.H{"Status": http.StatusInternalServerError, "Message": "error.internal"})
}

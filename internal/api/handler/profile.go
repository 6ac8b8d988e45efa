package handler

import (
	"errors"
	"mime/multipart"
	"net/http"

	"healthportal/backend/internal/account"

	"github.com/gin-gonic/gin"
)

// multipartForm parses the body as multipart. A non-multipart body yields an
// empty form; an oversized one answers 413 and returns ok=false.
func (h *Handler) multipartForm(c *gin.Context) (*multipart.Form, bool) {
	form, err := c.MultipartForm()
	if err == nil {
		return form, true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		h.render(c, http.StatusRequestEntityTooLarge, "error", gin.H{
			"Status":  http.StatusRequestEntityTooLarge,
			"Message": "error.too_large",
		})
		return nil, false
	}
	return &multipart.Form{}, true
}

func firstFile(form *multipart.Form, field string) *multipart.FileHeader {
	if files := form.File[field]; len(files) > 0 && files[0].Filename != "" {
		return files[0]
	}
	return nil
}

func (h *Handler) ProfilePage(c *gin.Context) {
	user := currentUser(c)
	snap, err := h.MyData.Latest(user)
	if err != nil {
		h.serverError(c, err)
		return
	}
	h.render(c, http.StatusOK, "profile", gin.H{"Snapshot": snap})
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	form, ok := h.multipartForm(c)
	if !ok {
		return
	}
	err := h.Accounts.UpdateProfile(c.Request.Context(), currentUser(c), account.ProfileUpdate{
		FullName:      c.PostForm("full_name"),
		Phone:         c.PostForm("phone"),
		Email:         c.PostForm("email"),
		AgreeOptional: c.PostForm("agree_optional") != "",
		Image:         firstFile(form, "profile_image"),
	})
	if err != nil {
		h.fail(c, err, "/profile")
		return
	}
	addFlash(c, "success", "flash.profile_updated")
	h.redirect(c, "/profile")
}

// ProfileImage serves the current user's own profile image.
func (h *Handler) ProfileImage(c *gin.Context) {
	user := currentUser(c)
	if user.ProfileImageName == "" {
		h.notFound(c)
		return
	}
	p, err := h.Profiles.Path(user.ProfileImageName)
	if err != nil {
		h.notFound(c)
		return
	}
	c.File(p)
}

func (h *Handler) FetchMyData(c *gin.Context) {
	_, err := h.MyData.Fetch(c.Request.Context(), currentUser(c), c.PostForm("consent") != "")
	if err != nil {
		h.fail(c, err, "/profile")
		return
	}
	addFlash(c, "success", "flash.mydata_fetched")
	h.redirect(c, "/profile")
}

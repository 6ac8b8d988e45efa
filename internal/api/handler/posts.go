package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"healthportal/backend/internal/board"
	"healthportal/backend/internal/config"
	"healthportal/backend/internal/storage"

	"github.com/gin-gonic/gin"
)

// idParam parses a positive numeric path parameter. ok=false means a 404 has
// already been rendered.
func (h *Handler) idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		h.notFound(c)
		return 0, false
	}
	return uint(id), true
}

func postURL(id uint) string { return fmt.Sprintf("/posts/%d", id) }

func (h *Handler) ListPosts(c *gin.Context) {
	f := storage.PostFilter{Query: c.Query("q"), Category: c.Query("category")}
	page := pageParam(c)
	posts, total, err := h.Board.List(f, page)
	if err != nil {
		h.serverError(c, err)
		return
	}
	h.render(c, http.StatusOK, "posts", gin.H{
		"Posts":      posts,
		"Filter":     f,
		"Categories": config.PostCategories,
		"Pager":      newPager(c, page, total),
	})
}

func (h *Handler) NewPostPage(c *gin.Context) {
	h.render(c, http.StatusOK, "post_new", gin.H{"Categories": config.PostCategories})
}

func (h *Handler) postInput(c *gin.Context) (board.PostInput, bool) {
	form, ok := h.multipartForm(c)
	if !ok {
		return board.PostInput{}, false
	}
	return board.PostInput{
		Title:    c.PostForm("title"),
		Content:  c.PostForm("content"),
		Category: c.DefaultPostForm("category", config.DefaultPostCategory),
		Files:    form.File["files"],
	}, true
}

func (h *Handler) CreatePost(c *gin.Context) {
	in, ok := h.postInput(c)
	if !ok {
		return
	}
	post, err := h.Board.Create(c.Request.Context(), currentUser(c), in)
	if err != nil {
		h.fail(c, err, "/posts/new")
		return
	}
	addFlash(c, "success", "flash.post_created")
	h.redirect(c, postURL(post.ID))
}

func (h *Handler) ShowPost(c *gin.Context) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}
	post, err := h.Board.Get(id)
	if err != nil {
		h.fail(c, err, "/posts")
		return
	}
	user := currentUser(c)
	h.render(c, http.StatusOK, "post_detail", gin.H{
		"Post":       post,
		"CanEdit":    user != nil && (user.ID == post.UserID || user.IsAdmin()),
		"Categories": config.PostCategories,
	})
}

func (h *Handler) UpdatePost(c *gin.Context) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}
	in, ok := h.postInput(c)
	if !ok {
		return
	}
	if _, err := h.Board.Update(c.Request.Context(), currentUser(c), id, in); err != nil {
		h.fail(c, err, postURL(id))
		return
	}
	addFlash(c, "success", "flash.post_updated")
	h.redirect(c, postURL(id))
}

func (h *Handler) DeletePost(c *gin.Context) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}
	if err := h.Board.Delete(c.Request.Context(), currentUser(c), id); err != nil {
		h.fail(c, err, postURL(id))
		return
	}
	addFlash(c, "info", "flash.post_deleted")
	h.redirect(c, "/posts")
}

func (h *Handler) DownloadAttachment(c *gin.Context) {
	postID, ok := h.idParam(c, "id")
	if !ok {
		return
	}
	aid, ok := h.idParam(c, "aid")
	if !ok {
		return
	}
	att, path, err := h.Board.Download(c.Request.Context(), postID, aid)
	if err != nil {
		h.fail(c, err, postURL(postID))
		return
	}
	c.FileAttachment(path, att.OriginalName)
}

func (h *Handler) DeleteAttachment(c *gin.Context) {
	postID, ok := h.idParam(c, "id")
	if !ok {
		return
	}
	aid, ok := h.idParam(c, "aid")
	if !ok {
		return
	}
	if err := h.Board.DeleteAttachment(c.Request.Context(), currentUser(c), postID, aid); err != nil {
		h.fail(c, err, postURL(postID))
		return
	}
	addFlash(c, "info", "flash.attachment_deleted")
	h.redirect(c, postURL(postID))
}

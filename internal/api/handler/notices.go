package handler

import (
	"net/http"

	"healthportal/backend/internal/config"
	"healthportal/backend/internal/storage"

	"github.com/gin-gonic/gin"
)

func (h *Handler) Index(c *gin.Context) {
	notices, err := h.Notices.Latest(config.LatestItemsLimit)
	if err != nil {
		h.serverError(c, err)
		return
	}
	posts, err := h.Board.Latest(config.LatestItemsLimit)
	if err != nil {
		h.serverError(c, err)
		return
	}
	h.render(c, http.StatusOK, "index", gin.H{
		"Notices": notices,
		"Posts":   posts,
		"Content": h.Content,
	})
}

func (h *Handler) ListNotices(c *gin.Context) {
	f := storage.NoticeFilter{Query: c.Query("q")}
	page := pageParam(c)
	notices, total, err := h.Notices.List(currentUser(c), f, page)
	if err != nil {
		h.serverError(c, err)
		return
	}
	h.render(c, http.StatusOK, "notices", gin.H{
		"Notices": notices,
		"Filter":  f,
		"Pager":   newPager(c, page, total),
	})
}

func (h *Handler) ShowNotice(c *gin.Context) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}
	n, err := h.Notices.Get(currentUser(c), id)
	if err != nil {
		h.fail(c, err, "/notices")
		return
	}
	h.render(c, http.StatusOK, "notice_detail", gin.H{"Notice": n})
}

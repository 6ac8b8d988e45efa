package handler

import (
	"errors"
	"net/http"
	"strconv"

	"healthportal/backend/internal/config"
	"healthportal/backend/internal/notice"
	"healthportal/backend/internal/storage"

	"github.com/gin-gonic/gin"
)

func (h *Handler) AdminDashboard(c *gin.Context) {
	stats, err := h.Storage.Stats()
	if err != nil {
		h.serverError(c, err)
		return
	}
	logs, _, err := h.Storage.SearchAuditLogs(storage.AuditFilter{}, storage.Page{Number: 1, Size: config.DashboardLogLimit})
	if err != nil {
		h.serverError(c, err)
		return
	}
	h.render(c, http.StatusOK, "admin_dashboard", gin.H{"Stats": stats, "Logs": logs})
}

func (h *Handler) AdminUsers(c *gin.Context) {
	f := storage.UserFilter{Query: c.Query("q"), Role: c.Query("role")}
	page := pageParam(c)
	users, total, err := h.Accounts.Search(currentUser(c), f, page)
	if err != nil {
		h.fail(c, err, "/")
		return
	}
	h.render(c, http.StatusOK, "admin_users", gin.H{
		"Users":  users,
		"Filter": f,
		"Roles":  config.Roles,
		"Pager":  newPager(c, page, total),
	})
}

func (h *Handler) AdminChangeRole(c *gin.Context) {
	back := "/admin/users"
	if q := c.Request.URL.RawQuery; q != "" {
		back += "?" + q
	}
	id, err := strconv.ParseUint(c.PostForm("user_id"), 10, 64)
	if err != nil || id == 0 {
		addFlash(c, "danger", "flash.user_not_found")
		h.redirect(c, back)
		return
	}
	_, err = h.Accounts.ChangeRole(c.Request.Context(), currentUser(c), uint(id), c.PostForm("role"))
	if errors.Is(err, storage.ErrNotFound) {
		addFlash(c, "danger", "flash.user_not_found")
		h.redirect(c, back)
		return
	}
	if err != nil {
		h.fail(c, err, back)
		return
	}
	addFlash(c, "success", "flash.role_updated")
	h.redirect(c, back)
}

func (h *Handler) AdminNotices(c *gin.Context) {
	f := storage.NoticeFilter{Query: c.Query("q"), Visibility: c.Query("visibility")}
	page := pageParam(c)
	notices, total, err := h.Notices.List(currentUser(c), f, page)
	if err != nil {
		h.serverError(c, err)
		return
	}
	h.render(c, http.StatusOK, "admin_notices", gin.H{
		"Notices": notices,
		"Filter":  f,
		"Pager":   newPager(c, page, total),
	})
}

func (h *Handler) AdminCreateNotice(c *gin.Context) {
	_, err := h.Notices.Create(c.Request.Context(), currentUser(c), notice.Input{
		Title:     c.PostForm("title"),
		Content:   c.PostForm("content"),
		Published: c.PostForm("is_published") != "",
	})
	if err != nil {
		h.fail(c, err, "/admin/notices")
		return
	}
	addFlash(c, "success", "flash.notice_created")
	h.redirect(c, "/admin/notices")
}

func (h *Handler) AdminToggleNotice(c *gin.Context) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}
	if _, err := h.Notices.TogglePublish(c.Request.Context(), currentUser(c), id); err != nil {
		h.fail(c, err, "/admin/notices")
		return
	}
	addFlash(c, "info", "flash.notice_toggled")
	h.redirect(c, "/admin/notices")
}

func (h *Handler) AdminPosts(c *gin.Context) {
	f := storage.PostFilter{Query: c.Query("q"), Category: c.Query("category")}
	page := pageParam(c)
	posts, total, err := h.Board.List(f, page)
	if err != nil {
		h.serverError(c, err)
		return
	}
	h.render(c, http.StatusOK, "admin_posts", gin.H{
		"Posts":      posts,
		"Filter":     f,
		"Categories": config.PostCategories,
		"Pager":      newPager(c, page, total),
	})
}

func (h *Handler) AdminComplaints(c *gin.Context) {
	f := complaintFilter(c)
	page := pageParam(c)
	complaints, total, err := h.Complaints.List(currentUser(c), f, page)
	if err != nil {
		h.fail(c, err, "/")
		return
	}
	h.render(c, http.StatusOK, "admin_complaints", gin.H{
		"Complaints": complaints,
		"Filter":     f,
		"Statuses":   config.ComplaintStatuses,
		"Categories": config.ComplaintCategories,
		"Pager":      newPager(c, page, total),
	})
}

func (h *Handler) AdminLogs(c *gin.Context) {
	f := storage.AuditFilter{Action: c.Query("action"), Query: c.Query("q")}
	page := pageParam(c)
	logs, total, err := h.Storage.SearchAuditLogs(f, page)
	if err != nil {
		h.serverError(c, err)
		return
	}
	h.render(c, http.StatusOK, "admin_logs", gin.H{
		"Logs":   logs,
		"Filter": f,
		"Pager":  newPager(c, page, total),
	})
}

func (h *Handler) SecurityScenarios(c *gin.Context) {
	h.render(c, http.StatusOK, "security", gin.H{"Scenarios": h.Security.All()})
}

func (h *Handler) SecurityScenario(c *gin.Context) {
	s, ok := h.Security.Find(c.Param("id"))
	if !ok {
		h.notFound(c)
		return
	}
	h.render(c, http.StatusOK, "security_detail", gin.H{"Scenario": s})
}

package handler

import (
	"fmt"
	"net/http"

	"healthportal/backend/internal/complaint"
	"healthportal/backend/internal/config"
	"healthportal/backend/internal/storage"

	"github.com/gin-gonic/gin"
)

func complaintURL(id uint) string { return fmt.Sprintf("/complaints/%d", id) }

func complaintFilter(c *gin.Context) storage.ComplaintFilter {
	return storage.ComplaintFilter{
		Query:    c.Query("q"),
		Status:   c.Query("status"),
		Category: c.Query("category"),
	}
}

func (h *Handler) ListComplaints(c *gin.Context) {
	f := complaintFilter(c)
	page := pageParam(c)
	complaints, total, err := h.Complaints.List(currentUser(c), f, page)
	if err != nil {
		h.fail(c, err, "/")
		return
	}
	h.render(c, http.StatusOK, "complaints", gin.H{
		"Complaints": complaints,
		"Filter":     f,
		"Statuses":   config.ComplaintStatuses,
		"Categories": config.ComplaintCategories,
		"Pager":      newPager(c, page, total),
	})
}

func (h *Handler) NewComplaintPage(c *gin.Context) {
	h.render(c, http.StatusOK, "complaint_new", gin.H{
		"Categories": config.ComplaintCategories,
		"Guide":      h.Content.ComplaintTypeGuide,
		"StatusFAQ":  h.Content.ComplaintStatusFAQ,
	})
}

func (h *Handler) SubmitComplaint(c *gin.Context) {
	_, err := h.Complaints.Submit(c.Request.Context(), currentUser(c), complaint.Input{
		Title:    c.PostForm("title"),
		Content:  c.PostForm("content"),
		Category: c.DefaultPostForm("category", config.DefaultComplaintCategory),
	})
	if err != nil {
		h.fail(c, err, "/complaints/new")
		return
	}
	addFlash(c, "success", "flash.complaint_submitted")
	h.redirect(c, "/complaints")
}

func (h *Handler) ShowComplaint(c *gin.Context) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}
	cp, err := h.Complaints.Get(currentUser(c), id)
	if err != nil {
		h.fail(c, err, "/complaints")
		return
	}
	h.render(c, http.StatusOK, "complaint_detail", gin.H{
		"Complaint": cp,
		"Statuses":  config.ComplaintStatuses,
	})
}

// TransitionComplaint is the admin status form. Owners posting here are
// redirected like any other unauthorised caller.
func (h *Handler) TransitionComplaint(c *gin.Context) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}
	back := complaintURL(id)
	if !currentUser(c).IsAdmin() {
		back = "/complaints"
	}
	if _, err := h.Complaints.Transition(c.Request.Context(), currentUser(c), id, c.PostForm("status")); err != nil {
		h.fail(c, err, back)
		return
	}
	addFlash(c, "success", "flash.complaint_status_updated")
	h.redirect(c, complaintURL(id))
}

func (h *Handler) ComplaintReport(c *gin.Context) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}
	pdf, cp, err := h.Complaints.Report(c.Request.Context(), currentUser(c), id)
	if err != nil {
		h.fail(c, err, "/complaints")
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="complaint-%d.pdf"`, cp.ID))
	c.Data(http.StatusOK, "application/pdf", pdf)
}

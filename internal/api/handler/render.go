package handler

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"healthportal/backend/internal/models"
	"healthportal/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

const (
	langCookie = "portal_lang"
	layoutFile = "templates/layout.html"
)

// pages maps a page name (its file name without extension) to the layout
// combined with that page.
type pages map[string]*template.Template

func loadPages(funcs template.FuncMap) (pages, error) {
	layout, err := template.New("layout").Funcs(funcs).ParseFS(templateFS, layoutFile)
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	files, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	p := make(pages, len(files))
	for _, file := range files {
		if file == layoutFile {
			continue
		}
		t, err := layout.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := t.ParseFS(templateFS, file); err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
		p[strings.TrimSuffix(path.Base(file), ".html")] = t
	}
	return p, nil
}

func (h *Handler) templateFuncs() template.FuncMap {
	policy := bluemonday.UGCPolicy()
	return template.FuncMap{
		"t": h.Localizer.GetString,
		// ugc renders stored user content. It was sanitised on write and is
		// sanitised again here so older rows cannot inject markup.
		"ugc": func(s string) template.HTML {
			return template.HTML(policy.Sanitize(s))
		},
		"date": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Local().Format("2006-01-02 15:04")
		},
		"dateptr": func(t *time.Time) string {
			if t == nil {
				return ""
			}
			return t.Local().Format("2006-01-02 15:04")
		},
		"statusTitle": h.Content.StatusTitle,
		"username": func(u *models.User) string {
			if u == nil {
				return "-"
			}
			return u.Username
		},
		"uintptr": func(p *uint) string {
			if p == nil {
				return "-"
			}
			return strconv.FormatUint(uint64(*p), 10)
		},
		"sizekb": func(n int64) string {
			return fmt.Sprintf("%.1f KB", float64(n)/1024)
		},
	}
}

// Pager links the pages of a listing while keeping the other query params.
type Pager struct {
	storage.Pagination
	Path  string
	Query url.Values
}

func newPager(c *gin.Context, p storage.Page, total int64) Pager {
	q := url.Values{}
	for k, v := range c.Request.URL.Query() {
		if k != "page" {
			q[k] = v
		}
	}
	return Pager{Pagination: storage.NewPagination(p, total), Path: c.Request.URL.Path, Query: q}
}

func (p Pager) URL(page int) string {
	q := url.Values{}
	for k, v := range p.Query {
		q[k] = v
	}
	q.Set("page", strconv.Itoa(page))
	return p.Path + "?" + q.Encode()
}

func pageParam(c *gin.Context) storage.Page {
	n, err := strconv.Atoi(c.Query("page"))
	if err != nil || n < 1 {
		n = 1
	}
	return storage.Page{Number: n}
}

// lang picks the UI language: ?lang= (remembered in a cookie), then the
// cookie, then the configured default.
func (h *Handler) lang(c *gin.Context) string {
	if l := c.Query("lang"); l != "" && h.Localizer.Has(l) {
		h.setCookie(c, langCookie, l, 365*24*3600)
		return l
	}
	if l, err := c.Cookie(langCookie); err == nil && h.Localizer.Has(l) {
		return l
	}
	return h.Config.DefaultLang
}

func (h *Handler) render(c *gin.Context, status int, page string, data gin.H) {
	t, ok := h.pages[page]
	if !ok {
		h.Log.Error("unknown page", zap.String("page", page))
		c.String(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}
	if data == nil {
		data = gin.H{}
	}
	data["User"] = currentUser(c)
	data["Lang"] = h.lang(c)
	data["Flashes"] = h.takeFlashes(c)
	data["Banner"] = h.Content.EmergencyBanner
	data["Path"] = c.Request.URL.Path
	c.Render(status, render.HTML{Template: t, Name: "layout", Data: data})
}

package handler

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	flashCookie  = "portal_flash"
	flashPending = "flash.pending"
)

// Flash is a one-shot message shown on the next rendered page. Key is a
// localization key.
type Flash struct {
	Category string `json:"c"`
	Key      string `json:"k"`
}

func addFlash(c *gin.Context, category, key string) {
	var pending []Flash
	if v, ok := c.Get(flashPending); ok {
		pending = v.([]Flash)
	}
	c.Set(flashPending, append(pending, Flash{Category: category, Key: key}))
}

// redirect stores the pending flashes in a cookie and answers 302.
func (h *Handler) redirect(c *gin.Context, location string) {
	if v, ok := c.Get(flashPending); ok {
		if raw, err := json.Marshal(v.([]Flash)); err == nil {
			h.setCookie(c, flashCookie, base64.RawURLEncoding.EncodeToString(raw), 0)
		}
	}
	c.Redirect(http.StatusFound, location)
}

// takeFlashes returns the flashes carried over from the previous response and
// clears the cookie, followed by any added during this request.
func (h *Handler) takeFlashes(c *gin.Context) []Flash {
	var out []Flash
	if raw, err := c.Cookie(flashCookie); err == nil && raw != "" {
		if data, err := base64.RawURLEncoding.DecodeString(raw); err == nil {
			_ = json.Unmarshal(data, &out)
		}
		h.setCookie(c, flashCookie, "", -1)
	}
	if v, ok := c.Get(flashPending); ok {
		out = append(out, v.([]Flash)...)
		c.Set(flashPending, []Flash(nil))
	}
	return out
}

func (h *Handler) setCookie(c *gin.Context, name, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, maxAge, "/", "", h.Config.SecureCookies, true)
}

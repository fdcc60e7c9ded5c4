package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"phonebridge/internal/auth"
	"phonebridge/internal/bindings"
	"phonebridge/internal/calls"
	"phonebridge/internal/popup"
	"phonebridge/internal/stats"
	"phonebridge/internal/vitalpbx"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.

type Handlers struct {
	Auth     *auth.Manager
	Registry calls.Registry
	Bindings bindings.Directory
	Stats    *stats.Service
	Popups   *popup.Dispatcher
	PBX      *vitalpbx.Client
}

// --- Auth ---

type loginRequest struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// Login issues an access token.
//
// NOTE: This is a skeleton-only endpoint. Real systems must validate credentials.
func (h Handlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.UserID == "" || req.Role == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id and role required"})
		return
	}
	tok, err := h.Auth.Issue(time.Now(), req.UserID, req.Email, req.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": tok})
}

// --- Calls ---

func (h Handlers) ListCalls(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "limit must be 1..500"})
			return
		}
		limit = n
	}
	recs, err := h.Registry.ListRecent(c.Request.Context(), limit)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "listing calls failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"calls": recs, "count": len(recs)})
}

func (h Handlers) GetCall(c *gin.Context) {
	rec, err := h.Registry.Find(c.Request.Context(), c.Param("call_id"))
	if errors.Is(err, calls.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "call not found"})
		return
	}
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

type clickToCallRequest struct {
	Extension   string `json:"extension"`
	Destination string `json:"destination"`
	CallerID    string `json:"caller_id"`
}

// ClickToCall originates a call from an agent's extension via the PBX.
func (h Handlers) ClickToCall(c *gin.Context) {
	var req clickToCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.Extension == "" || req.Destination == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "extension and destination required"})
		return
	}
	res, err := h.PBX.OriginateCall(c.Request.Context(), req.Extension, req.Destination, req.CallerID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "originate failed"})
		return
	}
	c.JSON(http.StatusOK, res)
}

// --- Extensions ---

func (h Handlers) ListExtensions(c *gin.Context) {
	bnds, err := h.Bindings.ListAll(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "listing extensions failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"extensions": bnds, "count": len(bnds)})
}

// --- Popups ---

func (h Handlers) PopupStats(c *gin.Context) {
	hours := 24
	if raw := c.Query("hours"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 720 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "hours must be 1..720"})
			return
		}
		hours = n
	}
	out, err := h.Stats.Popups(c.Request.Context(), time.Duration(hours)*time.Hour)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "stats failed"})
		return
	}
	c.JSON(http.StatusOK, out)
}

// RetrySweep runs one popup retry batch on demand. External schedulers
// (cron, systemd timers) hit this instead of the service owning a ticker.
func (h Handlers) RetrySweep(c *gin.Context) {
	out, err := h.Popups.RetrySweep(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "sweep failed"})
		return
	}
	c.JSON(http.StatusOK, out)
}

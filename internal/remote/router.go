package remote

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/matheus3301/moodtrack/internal/mirror"
	"go.uber.org/zap"
)

const (
	deviceHeader     = "X-Device-ID"
	deviceContextKey = "moodmirror_device_id"
)

var errMissingService = errors.New("remote service dependency required")

// Dependencies holds the collaborators of the HTTP handler.
type Dependencies struct {
	Service *Service
	Logger  *zap.Logger
}

// NewHTTPHandler builds the moodmirror HTTP API.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Service == nil {
		return nil, errMissingService
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	handler := &httpHandler{service: deps.Service, logger: logger}

	router.GET("/healthz", handler.handleHealth)

	v1 := router.Group("/api/v1")
	v1.Use(handler.requireDevice)
	v1.PUT("/entries/:id", handler.handleUpsert)
	v1.DELETE("/entries/:id", handler.handleDelete)
	v1.GET("/entries", handler.handleList)
	v1.POST("/sync", handler.handleSync)

	return router, nil
}

func corsMiddleware() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPut, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Content-Type", deviceHeader},
		MaxAge:       12 * time.Hour,
	})
}

type httpHandler struct {
	service *Service
	logger  *zap.Logger
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *httpHandler) requireDevice(c *gin.Context) {
	device := strings.TrimSpace(c.GetHeader(deviceHeader))
	if device == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "missing_device_id"})
		return
	}
	c.Set(deviceContextKey, device)
	c.Next()
}

type syncResponsePayload struct {
	Entries  int64     `json:"entries"`
	SyncedAt time.Time `json:"synced_at"`
}

type listResponsePayload struct {
	Entries []mirror.Payload `json:"entries"`
}

func (h *httpHandler) handleUpsert(c *gin.Context) {
	var payload mirror.Payload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	id := c.Param("id")
	if payload.ID != "" && payload.ID != id {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id_mismatch"})
		return
	}

	err := h.service.Upsert(c.Request.Context(), c.GetString(deviceContextKey), Record{
		ID:    id,
		Date:  payload.Date,
		Emoji: payload.Emoji,
		Score: payload.Score,
		Note:  payload.Note,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleDelete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.GetString(deviceContextKey), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleList(c *gin.Context) {
	records, err := h.service.ListEntries(c.Request.Context(), c.GetString(deviceContextKey))
	if err != nil {
		h.writeError(c, err)
		return
	}
	resp := listResponsePayload{Entries: make([]mirror.Payload, 0, len(records))}
	for _, r := range records {
		resp.Entries = append(resp.Entries, mirror.Payload{
			ID:    r.ID,
			Date:  r.Date,
			Emoji: r.Emoji,
			Score: r.Score,
			Note:  r.Note,
		})
	}
	c.JSON(http.StatusOK, resp)
}

func (h *httpHandler) handleSync(c *gin.Context) {
	result, err := h.service.Checkpoint(c.Request.Context(), c.GetString(deviceContextKey))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, syncResponsePayload{Entries: result.Entries, SyncedAt: result.SyncedAt})
}

func (h *httpHandler) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrInvalidDeviceID), errors.Is(err, ErrInvalidEntryID), errors.Is(err, ErrInvalidEntry):
		status = http.StatusBadRequest
	default:
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	code := "internal_error"
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		code = serviceErr.Code()
	}
	c.JSON(status, gin.H{"error": code})
}

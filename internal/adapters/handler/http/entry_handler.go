package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/comitanigiacomo/kanso-habit-engine/internal/core/domain"
	"github.com/comitanigiacomo/kanso-habit-engine/internal/core/services"
)

// Entries listed without a window cover the last 30 days.
const defaultEntryWindow = 30 * 24 * time.Hour

type EntryHandler struct {
	svc *services.EntryService
	now func() time.Time
}

func NewEntryHandler(svc *services.EntryService) *EntryHandler {
	return &EntryHandler{svc: svc, now: time.Now}
}

type createEntryRequest struct {
	ID             string    `json:"id"`
	HabitID        string    `json:"habit_id" binding:"required"`
	CompletionDate time.Time `json:"completion_date" binding:"required"`
	Value          int       `json:"value"`
	Notes          string    `json:"notes"`
}

// updateEntryRequest requires the version the client last saw.
type updateEntryRequest struct {
	CompletionDate time.Time `json:"completion_date"`
	Value          int       `json:"value"`
	Notes          string    `json:"notes"`
	Version        int       `json:"version" binding:"required"`
}

type entrySyncResponse struct {
	Changes   []*domain.HabitEntry `json:"changes"`
	Timestamp time.Time            `json:"timestamp"`
}

func (h *EntryHandler) RegisterRoutes(router *gin.RouterGroup) {
	entries := router.Group("/entries")
	entries.POST("", h.Create)
	entries.GET("", h.ListByHabit)
	entries.GET("/sync", h.Sync)
	entries.PUT("/:id", h.Update)
	entries.DELETE("/:id", h.Delete)
}

// Create godoc
// @Summary   Log a completion
// @Tags      entries
// @Accept    json
// @Produce   json
// @Security  BearerAuth
// @Param     body  body      createEntryRequest  true  "entry"
// @Success   201   {object}  domain.HabitEntry
// @Failure   403   {object}  errorResponse
// @Failure   409   {object}  errorResponse
// @Router    /entries [post]
func (h *EntryHandler) Create(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req createEntryRequest
	if !bindJSON(c, &req) {
		return
	}

	entry, err := h.svc.Create(c.Request.Context(), services.CreateEntryInput{
		ID:             req.ID,
		HabitID:        req.HabitID,
		UserID:         userID,
		CompletionDate: req.CompletionDate,
		Value:          req.Value,
		Notes:          req.Notes,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// Update godoc
// @Summary   Revise a completion
// @Tags      entries
// @Accept    json
// @Produce   json
// @Security  BearerAuth
// @Param     id    path      string              true  "entry id"
// @Param     body  body      updateEntryRequest  true  "changes"
// @Success   200   {object}  domain.HabitEntry
// @Failure   409   {object}  errorResponse
// @Router    /entries/{id} [put]
func (h *EntryHandler) Update(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req updateEntryRequest
	if !bindJSON(c, &req) {
		return
	}

	entry, err := h.svc.Update(c.Request.Context(), services.UpdateEntryInput{
		ID:             c.Param("id"),
		UserID:         userID,
		CompletionDate: req.CompletionDate,
		Value:          req.Value,
		Notes:          req.Notes,
		Version:        req.Version,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (h *EntryHandler) Delete(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), c.Param("id"), userID); err != nil {
		handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// entryWindow reads from/to (RFC3339). to defaults to now and from to 30
// days before to.
func (h *EntryHandler) entryWindow(c *gin.Context) (from, to time.Time, err error) {
	if to, err = queryTime(c, "to", h.now().UTC()); err != nil {
		return
	}
	if from, err = queryTime(c, "from", to.Add(-defaultEntryWindow)); err != nil {
		return
	}
	if to.Before(from) {
		err = domain.ErrInvalidDateRange
	}
	return
}

// ListByHabit godoc
// @Summary   Entries of a habit in a time window (default: last 30 days)
// @Tags      entries
// @Produce   json
// @Security  BearerAuth
// @Param     habit_id  query  string  true   "habit id"
// @Param     from      query  string  false  "RFC3339"
// @Param     to        query  string  false  "RFC3339"
// @Success   200  {array}  domain.HabitEntry
// @Router    /entries [get]
func (h *EntryHandler) ListByHabit(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	habitID := c.Query("habit_id")
	if habitID == "" {
		badRequest(c, "habit_id is required")
		return
	}
	from, to, err := h.entryWindow(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	list, err := h.svc.ListByHabitID(c.Request.Context(), habitID, userID, from, to)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Sync godoc
// @Summary   Entry changes after a checkpoint, tombstones included
// @Tags      entries
// @Produce   json
// @Security  BearerAuth
// @Param     since  query     string  false  "RFC3339 checkpoint"
// @Success   200    {object}  entrySyncResponse
// @Router    /entries/sync [get]
func (h *EntryHandler) Sync(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	since, err := queryTime(c, "since", time.Time{})
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	stamp := h.now().UTC()
	changes, err := h.svc.GetDelta(c.Request.Context(), userID, since)
	if err != nil {
		handleError(c, err)
		return
	}
	if changes == nil {
		changes = []*domain.HabitEntry{}
	}
	c.JSON(http.StatusOK, entrySyncResponse{Changes: changes, Timestamp: stamp})
}

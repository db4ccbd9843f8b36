package http

import (
	"net/http"
	"time"

	"cloud.google.com/go/civil"
	"github.com/gin-gonic/gin"

	"github.com/comitanigiacomo/kanso-habit-engine/internal/core/services"
)

type HabitHandler struct {
	svc *services.HabitService
}

func NewHabitHandler(svc *services.HabitService) *HabitHandler {
	return &HabitHandler{
		svc: svc,
	}
}

type createHabitRequest struct {
	ID           string      `json:"id"`
	Title        string      `json:"title" binding:"required"`
	Description  string      `json:"description"`
	Color        string      `json:"color"`
	Icon         string      `json:"icon"`
	Type         string      `json:"type"`
	ReminderTime string      `json:"reminder_time"`
	Unit         string      `json:"unit"`
	TargetValue  int         `json:"target_value"`
	SortOrder    int         `json:"sort_order"`
	ScheduleType string      `json:"schedule_type"`
	ScheduleDays []int       `json:"schedule_days"`
	StartDate    *civil.Date `json:"start_date" swaggertype:"string" example:"2024-03-04"`
	EndDate      *civil.Date `json:"end_date" swaggertype:"string" example:"2024-12-31"`
	StreakPolicy string      `json:"streak_policy" enums:"calendar_days,scheduled_days"`
}

// Absent fields keep their stored value.
type updateHabitRequest struct {
	Title        *string     `json:"title"`
	Description  *string     `json:"description"`
	Color        *string     `json:"color"`
	Icon         *string     `json:"icon"`
	Type         *string     `json:"type"`
	ReminderTime *string     `json:"reminder_time"`
	Unit         *string     `json:"unit"`
	TargetValue  *int        `json:"target_value"`
	SortOrder    *int        `json:"sort_order"`
	ScheduleType *string     `json:"schedule_type"`
	ScheduleDays []int       `json:"schedule_days"`
	StartDate    *civil.Date `json:"start_date" swaggertype:"string"`
	EndDate      *civil.Date `json:"end_date" swaggertype:"string"`
	StreakPolicy *string     `json:"streak_policy"`
	Archived     *bool       `json:"archived"`
	Version      int         `json:"version"`
}

func (h *HabitHandler) RegisterRoutes(router *gin.RouterGroup) {
	habits := router.Group("/habits")
	{
		habits.POST("", h.Create)
		habits.GET("", h.List)
		habits.GET("/sync", h.Sync)
		habits.GET("/:id", h.Get)
		habits.PUT("/:id", h.Update)
		habits.DELETE("/:id", h.Delete)
	}
}

// Create godoc
// @Summary   Create a habit
// @Tags      habits
// @Accept    json
// @Produce   json
// @Security  BearerAuth
// @Param     body  body      createHabitRequest  true  "habit"
// @Success   201   {object}  domain.Habit
// @Failure   400   {object}  errorResponse
// @Router    /habits [post]
func (h *HabitHandler) Create(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req createHabitRequest
	if !bindJSON(c, &req) {
		return
	}

	input := services.CreateHabitInput{
		ID:           req.ID,
		UserID:       userID,
		Title:        req.Title,
		Description:  req.Description,
		Color:        req.Color,
		Icon:         req.Icon,
		Type:         req.Type,
		ReminderTime: req.ReminderTime,
		Unit:         req.Unit,
		TargetValue:  req.TargetValue,
		SortOrder:    req.SortOrder,
		ScheduleType: req.ScheduleType,
		ScheduleDays: req.ScheduleDays,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		StreakPolicy: req.StreakPolicy,
	}

	habit, err := h.svc.Create(c.Request.Context(), input)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, habit)
}

// List godoc
// @Summary   List active habits
// @Tags      habits
// @Produce   json
// @Security  BearerAuth
// @Success   200  {array}  domain.Habit
// @Router    /habits [get]
func (h *HabitHandler) List(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	list, err := h.svc.ListByUserID(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, list)
}

func (h *HabitHandler) Get(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	habit, err := h.svc.GetByID(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, habit)
}

// Sync godoc
// @Summary   Habits changed since a checkpoint, tombstones included
// @Tags      habits
// @Produce   json
// @Security  BearerAuth
// @Param     last_sync  query  string  false  "RFC3339 checkpoint"
// @Router    /habits/sync [get]
func (h *HabitHandler) Sync(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	lastSync, err := queryTime(c, "last_sync", time.Time{})
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	deltas, err := h.svc.GetDelta(c.Request.Context(), userID, lastSync)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"changes":   deltas,
		"timestamp": time.Now().UTC(),
	})
}

// Update godoc
// @Summary   Partially update a habit, creating it when unknown
// @Tags      habits
// @Accept    json
// @Produce   json
// @Security  BearerAuth
// @Param     id    path      string              true  "habit id"
// @Param     body  body      updateHabitRequest  true  "changes"
// @Success   200   {object}  domain.Habit
// @Failure   409   {object}  errorResponse
// @Router    /habits/{id} [put]
func (h *HabitHandler) Update(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req updateHabitRequest
	if !bindJSON(c, &req) {
		return
	}

	input := services.UpdateHabitInput{
		ID:           c.Param("id"),
		UserID:       userID,
		Title:        req.Title,
		Description:  req.Description,
		Color:        req.Color,
		Icon:         req.Icon,
		Type:         req.Type,
		ReminderTime: req.ReminderTime,
		Unit:         req.Unit,
		TargetValue:  req.TargetValue,
		SortOrder:    req.SortOrder,
		ScheduleType: req.ScheduleType,
		ScheduleDays: req.ScheduleDays,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		StreakPolicy: req.StreakPolicy,
		Archived:     req.Archived,
		Version:      req.Version,
	}

	habit, err := h.svc.Update(c.Request.Context(), input)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, habit)
}

func (h *HabitHandler) Delete(c *gin.Context) {
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

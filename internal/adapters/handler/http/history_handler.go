package http

import (
	"net/http"
	"time"

	"cloud.google.com/go/civil"
	"github.com/gin-gonic/gin"

	"github.com/comitanigiacomo/kanso-habit-engine/internal/core/services"
)

// HistoryHandler serves the read-only engine views of a habit: streaks,
// the month grid and due dates.
type HistoryHandler struct {
	svc *services.HistoryService
	now func() time.Time
}

func NewHistoryHandler(svc *services.HistoryService) *HistoryHandler {
	return &HistoryHandler{svc: svc, now: time.Now}
}

func (h *HistoryHandler) RegisterRoutes(router *gin.RouterGroup) {
	habits := router.Group("/habits/:id")
	{
		habits.GET("/streaks", h.Streaks)
		habits.GET("/calendar", h.Calendar)
		habits.GET("/due", h.Due)
	}
}

func (h *HistoryHandler) today() civil.Date {
	return civil.DateOf(h.now().In(h.svc.Location()))
}

// Streaks godoc
// @Summary   Current and longest streak
// @Tags      history
// @Produce   json
// @Security  BearerAuth
// @Param     id     path      string  true   "habit id"
// @Param     as_of  query     string  false  "YYYY-MM-DD, defaults to today"
// @Success   200    {object}  domain.StreakSummary
// @Failure   400    {object}  errorResponse
// @Failure   403    {object}  errorResponse
// @Router    /habits/{id}/streaks [get]
func (h *HistoryHandler) Streaks(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	asOf, err := queryDate(c, "as_of", h.today())
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	summary, err := h.svc.Streaks(c.Request.Context(), c.Param("id"), userID, asOf)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// Calendar godoc
// @Summary   Six-week grid of a month with completion and streak marks
// @Tags      history
// @Produce   json
// @Security  BearerAuth
// @Param     id     path      string  true   "habit id"
// @Param     month  query     string  false  "YYYY-MM, defaults to the month of as_of"
// @Param     as_of  query     string  false  "YYYY-MM-DD, defaults to today"
// @Success   200    {object}  domain.CalendarView
// @Router    /habits/{id}/calendar [get]
func (h *HistoryHandler) Calendar(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	asOf, err := queryDate(c, "as_of", h.today())
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	year, month, err := queryMonth(c, "month", asOf)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	view, err := h.svc.Calendar(c.Request.Context(), c.Param("id"), userID, year, month, asOf)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// Due godoc
// @Summary   Whether the habit is due on a date, or its due dates in [from, to]
// @Tags      history
// @Produce   json
// @Security  BearerAuth
// @Param     id    path   string  true   "habit id"
// @Param     date  query  string  false  "YYYY-MM-DD, defaults to today"
// @Param     from  query  string  false  "YYYY-MM-DD, with to"
// @Param     to    query  string  false  "YYYY-MM-DD, with from"
// @Router    /habits/{id}/due [get]
func (h *HistoryHandler) Due(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	if c.Query("from") != "" || c.Query("to") != "" {
		h.dueDates(c, userID)
		return
	}

	date, err := queryDate(c, "date", h.today())
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	status, err := h.svc.Due(c.Request.Context(), c.Param("id"), userID, date)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

func (h *HistoryHandler) dueDates(c *gin.Context, userID string) {
	from, err := queryDate(c, "from", civil.Date{})
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	to, err := queryDate(c, "to", civil.Date{})
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	if c.Query("from") == "" || c.Query("to") == "" {
		badRequest(c, "from and to must be given together")
		return
	}

	dates, err := h.svc.DueDates(c.Request.Context(), c.Param("id"), userID, from, to)
	if err != nil {
		handleError(c, err)
		return
	}
	if dates == nil {
		dates = []civil.Date{}
	}

	c.JSON(http.StatusOK, gin.H{
		"habit_id": c.Param("id"),
		"from":     from,
		"to":       to,
		"dates":    dates,
	})
}

package http

import (
	"net/http"
	"time"

	"cloud.google.com/go/civil"
	"github.com/gin-gonic/gin"

	"github.com/comitanigiacomo/kanso-habit-engine/internal/core/domain"
	"github.com/comitanigiacomo/kanso-habit-engine/internal/core/services"
)

type StatsHandler struct {
	svc *services.StatsService
	loc *time.Location
	now func() time.Time
}

func NewStatsHandler(svc *services.StatsService, loc *time.Location) *StatsHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &StatsHandler{svc: svc, loc: loc, now: time.Now}
}

func (h *StatsHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/stats/weekly", h.GetWeeklyStats)
}

// GetWeeklyStats godoc
// @Summary   Completion rates over a period (default: the last 7 days)
// @Tags      stats
// @Produce   json
// @Security  BearerAuth
// @Param     start_date  query     string  false  "YYYY-MM-DD"
// @Param     end_date    query     string  false  "YYYY-MM-DD"
// @Success   200         {object}  domain.WeeklyStats
// @Failure   400         {object}  errorResponse
// @Router    /stats/weekly [get]
func (h *StatsHandler) GetWeeklyStats(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	today := civil.DateOf(h.now().In(h.loc))

	endDate, err := queryDate(c, "end_date", today)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	startDate, err := queryDate(c, "start_date", endDate.AddDays(-6))
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	if startDate.After(endDate) {
		badRequest(c, "start_date cannot be after end_date")
		return
	}
	if endDate.DaysSince(startDate) >= domain.MaxStatsDays {
		badRequest(c, "date range too large, max 1 year allowed")
		return
	}

	input := domain.StatsInput{
		UserID:   userID,
		Start:    startDate,
		End:      endDate,
		Location: h.loc,
	}

	stats, err := h.svc.GetWeeklyStats(c.Request.Context(), input)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

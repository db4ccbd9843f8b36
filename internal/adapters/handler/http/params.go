package http

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/gin-gonic/gin"
)

const dateLayout = "YYYY-MM-DD"

// queryDate parses the named query parameter as a calendar date, returning
// def when it is absent.
func queryDate(c *gin.Context, name string, def civil.Date) (civil.Date, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	d, err := civil.ParseDate(raw)
	if err != nil {
		return civil.Date{}, fmt.Errorf("invalid %s format, expected %s", name, dateLayout)
	}
	return d, nil
}

// queryMonth parses "YYYY-MM". An absent value yields the month of def.
func queryMonth(c *gin.Context, name string, def civil.Date) (int, time.Month, error) {
	raw := c.Query(name)
	if raw == "" {
		return def.Year, def.Month, nil
	}
	t, err := time.Parse("2006-01", raw)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid %s format, expected YYYY-MM", name)
	}
	return t.Year(), t.Month(), nil
}

// queryTime parses an RFC3339 timestamp, returning def when absent.
func queryTime(c *gin.Context, name string, def time.Time) (time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s format, use RFC3339", name)
	}
	return t, nil
}

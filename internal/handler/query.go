package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// queryParser collects the first malformed query parameter.
type queryParser struct {
	c   echo.Context
	err error
}

func (q *queryParser) fail(name, want string) {
	if q.err == nil {
		q.err = echo.NewHTTPError(http.StatusBadRequest, name+" must be "+want)
	}
}

func (q *queryParser) str(name string) string {
	return strings.TrimSpace(q.c.QueryParam(name))
}

func (q *queryParser) upper(name string) string {
	return strings.ToUpper(q.str(name))
}

func (q *queryParser) float(name string) *float64 {
	raw := q.str(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		q.fail(name, "a number")
		return nil
	}
	return &v
}

func (q *queryParser) int(name string) int {
	raw := q.str(name)
	if raw == "" {
		return 0
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		q.fail(name, "a non-negative integer")
		return 0
	}
	return v
}

func (q *queryParser) uint(name string) uint {
	return uint(q.int(name))
}

func (q *queryParser) bool(name string) *bool {
	raw := q.str(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		q.fail(name, "true or false")
		return nil
	}
	return &v
}

func (q *queryParser) date(name string) *time.Time {
	raw := q.str(name)
	if raw == "" {
		return nil
	}
	v, err := time.Parse(dateLayout, raw)
	if err != nil {
		q.fail(name, "a date (YYYY-MM-DD)")
		return nil
	}
	return &v
}

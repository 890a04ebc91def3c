package pagination

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	DefaultLimit = 100
	MaxLimit     = 500
)

// Response headers describing the page.
const (
	HeaderTotalCount = "X-Total-Count"
	HeaderLink       = "Link"
)

// Params holds pagination parameters extracted from a request.
type Params struct {
	Limit  int
	Offset int
}

// FromContext extracts pagination parameters from the echo context.
// Missing or unparsable values fall back to the defaults.
func FromContext(c echo.Context) Params {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	if offset < 0 {
		offset = 0
	}

	return Params{Limit: limit, Offset: offset}
}

// SQL returns the LIMIT and OFFSET clause for SQL queries.
func (p Params) SQL() string {
	return fmt.Sprintf("LIMIT %d OFFSET %d", p.Limit, p.Offset)
}

// HasNext returns true if there are more results after the current page.
func (p Params) HasNext(total int) bool {
	return p.Offset+p.Limit < total
}

// HasPrevious returns true if there are results before the current page.
func (p Params) HasPrevious() bool {
	return p.Offset > 0
}

// NextOffset returns the offset for the next page.
func (p Params) NextOffset() int {
	return p.Offset + p.Limit
}

// PreviousOffset returns the offset for the previous page.
// Returns 0 if the result would be negative.
func (p Params) PreviousOffset() int {
	prev := p.Offset - p.Limit
	if prev < 0 {
		return 0
	}
	return prev
}

// Links builds RFC 8288 link values for the neighbouring pages. Other query
// parameters on the request are carried over unchanged.
func (p Params) Links(c echo.Context, total int) []string {
	var links []string
	if p.HasNext(total) {
		links = append(links, fmt.Sprintf(`<%s>; rel="next"`, pageURL(c, p.NextOffset(), p.Limit)))
	}
	if p.HasPrevious() {
		links = append(links, fmt.Sprintf(`<%s>; rel="prev"`, pageURL(c, p.PreviousOffset(), p.Limit)))
	}
	return links
}

// SetHeaders writes the total count and neighbour links to the response.
// List bodies stay bare JSON arrays.
func (p Params) SetHeaders(c echo.Context, total int) {
	h := c.Response().Header()
	h.Set(HeaderTotalCount, strconv.Itoa(total))
	if links := p.Links(c, total); len(links) > 0 {
		h.Set(HeaderLink, strings.Join(links, ", "))
	}
}

func pageURL(c echo.Context, offset, limit int) string {
	u := *c.Request().URL
	q := u.Query()
	q.Set("offset", strconv.Itoa(offset))
	q.Set("limit", strconv.Itoa(limit))
	return u.Path + "?" + q.Encode()
}

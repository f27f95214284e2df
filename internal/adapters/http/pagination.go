package http

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// PaginatedResponse wraps list results with pagination metadata.
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Pagination Pagination  `json:"pagination"`
}

// Pagination is offset-based window info over a total result count.
type Pagination struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
	Total  int `json:"total"`
}

func (p Pagination) clamp() (offset, limit int) {
	offset, limit = p.Offset, p.Limit
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = 100
	}
	return offset, limit
}

// SetLinkHeaders adds RFC 8288 first/prev/next/last Link headers for the
// current page over the request's own path.
func SetLinkHeaders(c *fiber.Ctx, p Pagination) {
	offset, limit := p.clamp()
	base := c.Path()

	link := func(off int, rel string) string {
		return fmt.Sprintf(`<%s?offset=%d&limit=%d>; rel=%q`, base, off, limit, rel)
	}

	links := []string{link(0, "first")}
	if offset > 0 {
		prev := offset - limit
		if prev < 0 {
			prev = 0
		}
		links = append(links, link(prev, "prev"))
	}
	if offset+limit < p.Total {
		links = append(links, link(offset+limit, "next"))
	}
	last := p.Total - limit
	if last < 0 {
		last = 0
	}
	links = append(links, link(last, "last"))

	c.Set("Link", strings.Join(links, ", "))
}

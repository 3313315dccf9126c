package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskhub-api/internal/constants"
)

// Page is a 1-based page request. The zero Page means "everything".
type Page struct {
	Number int
	Size   int
}

// NewPage returns the page and whether it actually restricts a query.
func NewPage(number, size int) (Page, bool) {
	if number <= 0 || size <= 0 {
		return Page{}, false
	}
	return Page{Number: number, Size: size}, true
}

// Offset is the number of rows skipped before the page starts.
func (p Page) Offset() int {
	if p.Number <= 0 {
		return 0
	}
	return (p.Number - 1) * p.Size
}

// PageFromQuery reads ?page= and ?page_size= (?limit= is accepted as an
// alias). Garbage falls back to the defaults and oversized pages are capped.
func PageFromQuery(c *gin.Context) Page {
	p := Page{
		Number: queryInt(c, "page", 1),
		Size:   queryInt(c, "page_size", queryInt(c, "limit", constants.DefaultPageSize)),
	}
	if p.Number < 1 {
		p.Number = 1
	}
	switch {
	case p.Size < constants.MinPageSize:
		p.Size = constants.DefaultPageSize
	case p.Size > constants.MaxPageSize:
		p.Size = constants.MaxPageSize
	}
	return p
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw, ok := c.GetQuery(key)
	if !ok {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

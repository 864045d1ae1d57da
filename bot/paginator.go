package bot

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/viant/quotevec/vector"
)

// Paginator splits a quote list into fixed-size pages.
type Paginator struct {
	pages [][]vector.Quote
}

// NewPaginator pages quotes perPage at a time.
func NewPaginator(quotes []vector.Quote, perPage int) *Paginator {
	if perPage <= 0 {
		perPage = 10
	}
	if len(quotes) == 0 {
		return &Paginator{}
	}
	return &Paginator{pages: lo.Chunk(quotes, perPage)}
}

// Pages returns the page count; an empty list has one empty page.
func (p *Paginator) Pages() int {
	return max(len(p.pages), 1)
}

// Clamp maps a 1-based page number into range.
func (p *Paginator) Clamp(page int) int {
	return min(max(page, 1), p.Pages())
}

// Format renders a 1-based page as a header followed by "[#id] text" lines.
func (p *Paginator) Format(page int) string {
	page = p.Clamp(page)
	var sb strings.Builder
	fmt.Fprintf(&sb, "*Quotes Page %d/%d*", page, p.Pages())
	if len(p.pages) == 0 {
		return sb.String()
	}
	lines := lo.Map(p.pages[page-1], func(q vector.Quote, _ int) string {
		return fmt.Sprintf("[#%d] %s", q.ID, q.Text)
	})
	sb.WriteString("\n")
	sb.WriteString(strings.Join(lines, "\n"))
	return sb.String()
}

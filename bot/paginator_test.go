package bot

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/quotevec/vector"
)

func TestPaginator(t *testing.T) {
	quotes := make([]vector.Quote, 23)
	for i := range quotes {
		quotes[i] = vector.Quote{ID: int64(i + 1), Text: fmt.Sprintf("q%d", i+1)}
	}
	p := NewPaginator(quotes, 10)
	assert.Equal(t, 3, p.Pages())

	testCases := []struct {
		page int
		want string
	}{
		{page: 3, want: "*Quotes Page 3/3*\n[#21] q21\n[#22] q22\n[#23] q23"},
		{page: 0, want: p.Format(1)},
		{page: 99, want: p.Format(3)},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, p.Format(tc.page), "page %d", tc.page)
	}

	empty := NewPaginator(nil, 10)
	assert.Equal(t, 1, empty.Pages())
	assert.Equal(t, "*Quotes Page 1/1*", empty.Format(1))
}

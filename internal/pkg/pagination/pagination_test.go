package pagination

import (
	"math"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestFromContext(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		query string
		want  Query
	}{
		{"", Query{Page: 1, Limit: 20}},
		{"page=3&limit=5", Query{Page: 3, Limit: 5}},
		{"page=0&limit=0", Query{Page: 1, Limit: 20}},
		{"page=-2&limit=500", Query{Page: 1, Limit: 100}},
		{"page=abc&limit=x", Query{Page: 1, Limit: 20}},
		{"page=9223372036854775807&limit=100", Query{Page: MaxPage, Limit: 100}},
	}
	for _, tc := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest("GET", "/?"+tc.query, nil)
		assert.Equal(t, tc.want, FromContext(c), tc.query)
	}
}

func TestOffset(t *testing.T) {
	assert.Equal(t, 0, Query{Page: 1, Limit: 20}.Offset())
	assert.Equal(t, 40, Query{Page: 3, Limit: 20}.Offset())

	q := Query{Page: math.MaxInt, Limit: MaxLimit}.Normalize()
	assert.Equal(t, MaxPage, q.Page)
	assert.Positive(t, q.Offset())
}

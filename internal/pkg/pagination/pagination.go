package pagination

import (
	"math"
	"strconv"

	"github.com/drawing-gallery/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
	// MaxPage keeps Offset from overflowing int.
	MaxPage = math.MaxInt / MaxLimit
)

// Query holds parsed pagination parameters.
type Query struct {
	Page  int
	Limit int
}

// Normalize clamps page and limit into their valid ranges.
func (q Query) Normalize() Query {
	if q.Page < 1 {
		q.Page = DefaultPage
	}
	if q.Page > MaxPage {
		q.Page = MaxPage
	}
	if q.Limit < 1 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	return q
}

// Offset is the number of rows skipped before the page.
func (q Query) Offset() int {
	return (q.Page - 1) * q.Limit
}

// FromContext extracts and validates pagination params from the request.
func FromContext(c *gin.Context) Query {
	return Query{
		Page:  parseIntOr(c.Query("page"), DefaultPage),
		Limit: parseIntOr(c.Query("limit"), DefaultLimit),
	}.Normalize()
}

// Paginate counts the rows matched by db, then loads one page of them into dest.
// Order clauses must be applied by the caller.
func Paginate[T any](db *gorm.DB, q Query, dest *[]T) (response.Pagination, error) {
	q = q.Normalize()

	var total int64
	if err := db.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return response.Pagination{}, err
	}

	if err := db.Offset(q.Offset()).Limit(q.Limit).Find(dest).Error; err != nil {
		return response.Pagination{}, err
	}

	return response.NewPagination(total, q.Page, q.Limit), nil
}

func parseIntOr(s string, def int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

package slug

import (
	"context"
	"fmt"

	"github.com/drawing-gallery/core/internal/pkg/metrics"
	"gorm.io/gorm"
)

// Resolver finds a free value for a unique slug column.
type Resolver struct {
	db       *gorm.DB
	table    string
	column   string
	fallback string
}

// NewResolver binds a resolver to table.column. fallback is used as the base
// whenever the requested base is empty.
func NewResolver(db *gorm.DB, table, column, fallback string) *Resolver {
	return &Resolver{db: db, table: table, column: column, fallback: fallback}
}

// EnsureUnique returns base if no row other than excludeID holds it, otherwise
// the first free candidate of base-1, base-2, ...
func (r *Resolver) EnsureUnique(ctx context.Context, base, excludeID string) (string, error) {
	if base == "" {
		base = r.fallback
	}

	candidate := base
	for probes := 1; ; probes++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		taken, err := r.taken(ctx, candidate, excludeID)
		if err != nil {
			return "", fmt.Errorf("probe %s.%s: %w", r.table, r.column, err)
		}
		if !taken {
			metrics.ObserveSlugProbes(r.table, probes)
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, probes)
	}
}

func (r *Resolver) taken(ctx context.Context, candidate, excludeID string) (bool, error) {
	q := r.db.WithContext(ctx).
		Table(r.table).
		Select("id").
		Where(r.column+" = ?", candidate)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}

	var ids []string
	if err := q.Limit(1).Find(&ids).Error; err != nil {
		return false, err
	}
	return len(ids) > 0, nil
}

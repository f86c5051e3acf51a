package slug

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/drawing-gallery/core/internal/pkg/apperror"
	"github.com/drawing-gallery/core/internal/pkg/metrics"
	mysqldrv "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// MaxInsertAttempts bounds resolve/write rounds lost to concurrent writers.
const MaxInsertAttempts = 5

// ErrExhausted is returned when every attempt collided with another writer.
var ErrExhausted = fmt.Errorf("slug: unique slug not obtained after retries: %w", apperror.ErrConflict)

// InsertWithRetry resolves a slug and hands it to write. When write fails on a
// unique index the slug is resolved again, up to MaxInsertAttempts times.
func InsertWithRetry(ctx context.Context, table string, resolve func(context.Context) (string, error), write func(context.Context, string) error) (string, error) {
	for attempt := 1; attempt <= MaxInsertAttempts; attempt++ {
		s, err := resolve(ctx)
		if err != nil {
			return "", err
		}
		err = write(ctx, s)
		if err == nil {
			return s, nil
		}
		if !IsDuplicateKey(err) {
			return "", err
		}
		metrics.SlugInsertRetries.WithLabelValues(table).Inc()
	}
	return "", ErrExhausted
}

// IsDuplicateKey reports whether err is a unique constraint violation from any
// supported driver.
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var myErr *mysqldrv.MySQLError
	if errors.As(err, &myErr) && myErr.Number == 1062 {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}

	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

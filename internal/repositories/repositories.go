package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/desertthunder/synclify/internal/models"
	"github.com/desertthunder/synclify/internal/shared"
)

var (
	_ models.Repository[*models.Resolution] = (*ResolutionRepository)(nil)
	_ models.Repository[*models.SyncRun]    = (*RunRepository)(nil)
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = fmt.Errorf("record not found")

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint")
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return err
}

// serviceOf reads the service prefix of a cache key.
func serviceOf(key string) string {
	service, _, _ := strings.Cut(key, "|")
	return service
}

func cacheErr(op string, err error) error {
	return shared.NewRemoteError(shared.KindCacheIO, "cache", op, err)
}

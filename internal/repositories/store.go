package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"gorm.io/gorm"
)

const defaultTimeout = 5 * time.Second

// Store is the shared handle every repository runs on. It is built once per
// process around the connection pool and passed to each repository.
type Store struct {
	db      *gorm.DB
	x       *sqlx.DB
	timeout time.Duration
}

// NewStore wraps db. timeout bounds every individual store call; zero means
// the package default.
func NewStore(db *gorm.DB, timeout time.Duration) (*Store, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Store{
		db:      db,
		x:       sqlx.NewDb(sqlDB, bindDriverName(db.Dialector.Name())),
		timeout: timeout,
	}, nil
}

// bindDriverName picks the sqlx driver name whose placeholder style matches
// the gorm dialect.
func bindDriverName(dialect string) string {
	if dialect == "postgres" {
		return "postgres"
	}
	return "sqlite3"
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// conn returns a gorm session bound to a bounded context.
func (s *Store) conn(ctx context.Context) (*gorm.DB, context.CancelFunc) {
	ctx, cancel := s.withTimeout(ctx)
	return s.db.WithContext(ctx), cancel
}

// Ping checks that the store answers within the timeout.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return translate(s.x.PingContext(ctx))
}

// Package registry persists the unique name -> wallet address mapping.
package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ambns/ansbot/core/logger"
	"log/slog"
)

var (
	// ErrNameNotFound indicates the requested name has no registry entry.
	ErrNameNotFound = errors.New("registry: name not found")
	// ErrNameTaken indicates the name is already registered.
	ErrNameTaken = errors.New("registry: name already taken")
)

// Entry is one persisted registration.
type Entry struct {
	ID            int64  `db:"id"`
	Name          string `db:"name"`
	WalletAddress string `db:"wallet_address"`
	RequesterID   int64  `db:"requester_id"`
}

// Store provides lookup and insert-if-absent over the name_service table.
// Entries are immutable once created; there is no update or delete path.
type Store struct {
	db *sqlx.DB
}

// NewStore wraps a connected database handle.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Lookup resolves a name to its owning wallet address.
// Names are matched case-insensitively.
func (s *Store) Lookup(ctx context.Context, name string) (string, error) {
	start := time.Now()
	var addr string
	err := s.db.GetContext(ctx, &addr,
		`SELECT wallet_address FROM name_service WHERE name = $1`,
		normalize(name),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNameNotFound
	}
	if err != nil {
		logger.SVCRegistry.Error("lookup failed",
			slog.String("event", "registry.lookup"),
			slog.String("name", normalize(name)),
			slog.String("err", err.Error()),
		)
		return "", fmt.Errorf("registry: lookup %q: %w", name, err)
	}
	logger.SVCRegistry.Debug("lookup",
		slog.String("event", "registry.lookup"),
		slog.String("name", normalize(name)),
		slog.Duration("duration", logger.Took(start)),
	)
	return addr, nil
}

// Insert creates a registration exactly once per name. The database unique
// constraint is the source of truth for collisions; a concurrent duplicate
// surfaces as ErrNameTaken.
func (s *Store) Insert(ctx context.Context, name, address string, requesterID int64) error {
	start := time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO name_service (name, wallet_address, requester_id) VALUES ($1, $2, $3)`,
		normalize(name), address, requesterID,
	)
	if err != nil {
		if mapped := mapInsertError(err); mapped != nil {
			return mapped
		}
		logger.SVCRegistry.Error("insert failed",
			slog.String("event", "registry.insert"),
			slog.String("name", normalize(name)),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("registry: insert %q: %w", name, err)
	}
	logger.SVCRegistry.Info("name registered",
		slog.String("event", "registry.insert"),
		slog.String("name", normalize(name)),
		slog.Int64("user_id", requesterID),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}

// mapInsertError translates a postgres unique violation into ErrNameTaken.
func mapInsertError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrNameTaken
	}
	return nil
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// AngelaMos | 2026
// journal.go

package webhook

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/carterperez-dev/templates/collab-backend/internal/core"
	"github.com/carterperez-dev/templates/collab-backend/internal/entitlement"
)

// PostgresJournal keeps webhook_events in the same database as the ledger so
// the journal row and the entitlement change commit together.
type PostgresJournal struct {
	db     *sqlx.DB
	ledger *entitlement.Service
}

func NewPostgresJournal(db *sqlx.DB, ledger *entitlement.Service) *PostgresJournal {
	return &PostgresJournal{db: db, ledger: ledger}
}

func (j *PostgresJournal) Seen(ctx context.Context, provider, providerID string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM webhook_events
			WHERE provider = $1 AND provider_id = $2
		)`

	var exists bool
	if err := j.db.GetContext(ctx, &exists, query, provider, providerID); err != nil {
		return false, fmt.Errorf("check webhook event: %w", err)
	}
	return exists, nil
}

func (j *PostgresJournal) Record(
	ctx context.Context,
	e Entry,
	apply func(ctx context.Context, ledger Ledger) error,
) error {
	// user_id is a UUID column; anything else cannot have an entitlement.
	if _, err := uuid.Parse(e.UserID); err != nil {
		return fmt.Errorf("record webhook event: user %q: %w", e.UserID, core.ErrNotFound)
	}

	return core.InTx(ctx, j.db, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO webhook_events
				(id, provider, provider_id, user_id, action, status, reference, processed_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (provider, provider_id) DO NOTHING`

		result, err := tx.ExecContext(ctx, query,
			e.ID,
			e.Provider,
			e.ProviderID,
			e.UserID,
			e.Action,
			e.Status,
			e.Reference,
			e.ProcessedAt,
		)
		if err != nil {
			return fmt.Errorf("insert webhook event: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("insert webhook event: %w", err)
		}
		if rows == 0 {
			return ErrAlreadyProcessed
		}

		return apply(ctx, j.ledger.WithDB(tx))
	})
}

func (j *PostgresJournal) ListRecent(ctx context.Context, limit int) ([]Entry, error) {
	query := `
		SELECT id, provider, provider_id, user_id, action, status, reference, processed_at
		FROM webhook_events
		ORDER BY processed_at DESC
		LIMIT $1`

	entries := make([]Entry, 0, limit)
	if err := j.db.SelectContext(ctx, &entries, query, limit); err != nil {
		return nil, fmt.Errorf("list webhook events: %w", err)
	}
	return entries, nil
}

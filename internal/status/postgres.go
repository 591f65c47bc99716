package status

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dharsanguruparan/doctranslate/internal/model"
)

// PostgresStore persists statuses in the job_status table so they survive
// restarts. The schema is created by database.EnsureSchema.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Set inserts the processing row on acceptance and performs a conditional
// update for terminal states.
func (p *PostgresStore) Set(ctx context.Context, id string, st model.Status) error {
	now := time.Now().UTC()
	var (
		affected int64
		err      error
	)
	switch st.State {
	case model.StateProcessing:
		tag, execErr := p.pool.Exec(ctx, `
			INSERT INTO job_status (id, status, output_path, error_message, created_at, updated_at)
			VALUES ($1,$2,NULL,NULL,$3,$3)
			ON CONFLICT (id) DO NOTHING
		`, id, string(st.State), now)
		affected, err = tag.RowsAffected(), execErr
	case model.StateCompleted, model.StateFailed:
		tag, execErr := p.pool.Exec(ctx, `
			UPDATE job_status
			SET status=$1, output_path=$2, error_message=$3, updated_at=$4
			WHERE id=$5 AND status=$6
		`, string(st.State), nullable(st.OutputPath), nullable(st.Error), now, id, string(model.StateProcessing))
		affected, err = tag.RowsAffected(), execErr
	}
	if err != nil {
		return fmt.Errorf("write status %s: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("job %s -> %q: %w", id, st.State, ErrInvalidTransition)
	}
	return nil
}

// Get returns the status for id.
func (p *PostgresStore) Get(ctx context.Context, id string) (model.Status, error) {
	var (
		state      string
		outputPath sql.NullString
		errorMsg   sql.NullString
	)
	row := p.pool.QueryRow(ctx, `
		SELECT status, output_path, error_message FROM job_status WHERE id=$1
	`, id)
	if err := row.Scan(&state, &outputPath, &errorMsg); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Status{}, ErrNotFound
		}
		return model.Status{}, fmt.Errorf("select status %s: %w", id, err)
	}
	return model.Status{
		State:      model.State(state),
		OutputPath: outputPath.String,
		Error:      errorMsg.String,
	}, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

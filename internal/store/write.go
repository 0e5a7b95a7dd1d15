package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// WriteRun appends r and returns its assigned seq. Seq is one past the
// current maximum, so runs are ordered by insertion regardless of wall time.
//
// Writing a run whose ID already exists returns the existing seq and
// inserted=false; the stored row is not modified.
func (s *Store) WriteRun(ctx context.Context, r Run) (seq int64, inserted bool, err error) {
	if r.ID == "" {
		return 0, false, fmt.Errorf("write run: empty id")
	}
	if r.Status != StatusOK && r.Status != StatusFault {
		return 0, false, fmt.Errorf("write run %s: invalid status %q", r.ID, r.Status)
	}

	inputsJSON, err := marshalInputs(r.Inputs)
	if err != nil {
		return 0, false, fmt.Errorf("write run %s: %w", r.ID, err)
	}
	valueJSON, err := marshalValue(r.Value)
	if err != nil {
		return 0, false, fmt.Errorf("write run %s: %w", r.ID, err)
	}
	pathJSON, err := marshalPath(r.Path)
	if err != nil {
		return 0, false, fmt.Errorf("write run %s: %w", r.ID, err)
	}
	var faultCode any
	if r.FaultCode != "" {
		faultCode = r.FaultCode
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("write run %s: begin tx: %w", r.ID, err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `SELECT seq FROM runs WHERE id = ?`, r.ID).Scan(&seq)
	switch {
	case err == nil:
		return seq, false, nil
	case !errors.Is(err, sql.ErrNoRows):
		return 0, false, fmt.Errorf("write run %s: %w", r.ID, err)
	}

	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM runs`).Scan(&seq); err != nil {
		return 0, false, fmt.Errorf("write run %s: next seq: %w", r.ID, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, seq, function, graph_hash, inputs, inputs_hash, status, value, fault_code, steps, path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.ID,
		seq,
		r.Function,
		r.GraphHash,
		inputsJSON,
		r.InputsHash,
		r.Status,
		valueJSON,
		faultCode,
		r.Steps,
		pathJSON,
	)
	if err != nil {
		return 0, false, fmt.Errorf("write run %s: %w", r.ID, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("write run %s: commit: %w", r.ID, err)
	}
	return seq, true, nil
}

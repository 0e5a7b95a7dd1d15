package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrRunNotFound is returned by GetRun for an unknown ID.
var ErrRunNotFound = errors.New("run not found")

const selectRuns = `
	SELECT id, seq, function, graph_hash, inputs, inputs_hash, status, value, fault_code, steps, path
	FROM runs`

// ListRuns returns recorded runs of function in seq order. An empty function
// returns every run.
func (s *Store) ListRuns(ctx context.Context, function string) ([]Run, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if function == "" {
		rows, err = s.db.QueryContext(ctx, selectRuns+`
			ORDER BY seq ASC, id ASC COLLATE BINARY`)
	} else {
		rows, err = s.db.QueryContext(ctx, selectRuns+`
			WHERE function = ?
			ORDER BY seq ASC, id ASC COLLATE BINARY`, function)
	}
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// GetRun returns the run with the given ID, or ErrRunNotFound.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, selectRuns+` WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("get run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("get run %s: %w", id, err)
	}
	return r, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		r                    Run
		inputsJSON, pathJSON string
		valueJSON, faultCode sql.NullString
	)
	if err := sc.Scan(&r.ID, &r.Seq, &r.Function, &r.GraphHash, &inputsJSON, &r.InputsHash,
		&r.Status, &valueJSON, &faultCode, &r.Steps, &pathJSON); err != nil {
		return Run{}, err
	}

	inputs, err := unmarshalInputs(inputsJSON)
	if err != nil {
		return Run{}, err
	}
	r.Inputs = inputs

	if valueJSON.Valid {
		if r.Value, err = unmarshalValue(valueJSON.String); err != nil {
			return Run{}, err
		}
	}
	r.FaultCode = faultCode.String

	if r.Path, err = unmarshalPath(pathJSON); err != nil {
		return Run{}, err
	}
	return r, nil
}

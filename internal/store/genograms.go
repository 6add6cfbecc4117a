package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/vitalia-health/mendel/internal/genogram"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("genogram not found")

// Record is one persisted genogram with its extraction provenance.
type Record struct {
	ID         uuid.UUID       `json:"id"`
	PatientID  string          `json:"patient_id"`
	SessionRef string          `json:"session_ref"`
	Graph      *genogram.Graph `json:"genogram"`
	Model      string          `json:"model"`
	Attempts   int             `json:"attempts"`
	CreatedAt  time.Time       `json:"created_at"`
}

// SaveGenogram writes a validated graph for a patient and returns the row id.
func (s *Store) SaveGenogram(ctx context.Context, patientID, sessionRef string, graph *genogram.Graph, model string, attempts int) (uuid.UUID, error) {
	data, err := json.Marshal(graph)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal genogram: %w", err)
	}

	id := uuid.New()
	_, err = s.pool.Exec(ctx, `
		INSERT INTO genograms (id, patient_id, session_ref, data, model, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())`,
		id, patientID, sessionRef, data, model, attempts,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert genogram: %w", err)
	}

	return id, nil
}

// GetGenogram fetches one genogram by row id.
func (s *Store) GetGenogram(ctx context.Context, id uuid.UUID) (*Record, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, patient_id, session_ref, data, model, attempts, created_at
		FROM genograms WHERE id = $1`, id)

	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get genogram %s: %w", id, err)
	}
	return rec, nil
}

// ListByPatient returns a patient's genograms, newest first.
func (s *Store) ListByPatient(ctx context.Context, patientID string) ([]*Record, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, patient_id, session_ref, data, model, attempts, created_at
		FROM genograms WHERE patient_id = $1
		ORDER BY created_at DESC`, patientID)
	if err != nil {
		return nil, fmt.Errorf("list genograms for %s: %w", patientID, err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan genogram row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate genogram rows: %w", err)
	}

	return records, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var rec Record
	var data []byte
	if err := row.Scan(&rec.ID, &rec.PatientID, &rec.SessionRef, &data, &rec.Model, &rec.Attempts, &rec.CreatedAt); err != nil {
		return nil, err
	}

	var graph genogram.Graph
	if err := json.Unmarshal(data, &graph); err != nil {
		return nil, fmt.Errorf("decode stored genogram: %w", err)
	}
	rec.Graph = &graph

	return &rec, nil
}

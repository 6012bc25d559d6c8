package data

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/mchmarny/advscorer/pkg/score"
)

const (
	insertBatchSQL = `INSERT INTO batch (name, records) VALUES (?, ?)`

	insertRecordSQL = `INSERT INTO record (batch_id, position, score_bits, adv_weight_bits, view_restricted)
		VALUES (?, ?, ?, ?, ?)
	`

	selectBatchSQL = `SELECT id, name, records, created_at, COALESCE(updated_at, '') FROM batch WHERE id = ?`

	selectRecordsSQL = `SELECT score_bits, adv_weight_bits, view_restricted, result_bits
		FROM record
		WHERE batch_id = ?
		ORDER BY position
	`

	selectBatchSizeSQL = `SELECT records FROM batch WHERE id = ?`

	updateResultSQL = `UPDATE record SET result_bits = ? WHERE batch_id = ? AND position = ?`

	touchBatchSQL = `UPDATE batch SET updated_at = datetime('now') WHERE id = ?`

	selectBatchesSQL = `SELECT b.id, b.name, b.records, b.created_at, COALESCE(b.updated_at, ''),
			(SELECT COUNT(*) FROM run r WHERE r.batch_id = b.id)
		FROM batch b
		ORDER BY b.id
	`
)

var (
	// ErrBatchNotFound is returned when no batch exists for the given id.
	ErrBatchNotFound = errors.New("batch not found")
)

// BatchInfo describes a stored batch.
type BatchInfo struct {
	ID        int64  `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	Records   int    `json:"records" yaml:"records"`
	Runs      int    `json:"runs" yaml:"runs"`
	CreatedAt string `json:"created_at" yaml:"created_at"`
	UpdatedAt string `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

// Batch is a stored batch loaded as index-aligned columns.
// Results is nil until scores have been saved for the batch.
type Batch struct {
	BatchInfo  `yaml:",inline"`
	Scores     []float32 `json:"scores" yaml:"scores"`
	AdvWeights []float32 `json:"adv_weights" yaml:"adv_weights"`
	Restricted []bool    `json:"view_restricted" yaml:"view_restricted"`
	Results    []float32 `json:"results,omitempty" yaml:"results,omitempty"`
}

// ToRecords returns the batch as a slice of records.
func (b *Batch) ToRecords() []score.Record {
	list := make([]score.Record, len(b.Scores))
	for i := range list {
		list[i] = score.Record{
			Score:          b.Scores[i],
			AdvWeight:      b.AdvWeights[i],
			ViewRestricted: b.Restricted[i],
		}
	}
	return list
}

// ImportBatch stores records under name and returns the new batch id.
func ImportBatch(db *sql.DB, name string, records []score.Record) (int64, error) {
	if db == nil {
		return 0, errDBNotInitialized
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return 0, errors.New("batch name required")
	}
	if len(records) == 0 {
		return 0, errors.New("at least one record required")
	}

	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.Exec(insertBatchSQL, name, len(records))
	if err != nil {
		return 0, fmt.Errorf("failed to insert batch %s: %w", name, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get batch id: %w", err)
	}

	stmt, err := tx.Prepare(insertRecordSQL)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare record insert statement: %w", err)
	}
	defer stmt.Close()

	for i, r := range records {
		if _, err := stmt.Exec(id, i, toBits(r.Score), toBits(r.AdvWeight), r.ViewRestricted); err != nil {
			return 0, fmt.Errorf("failed to insert record %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit batch: %w", err)
	}

	return id, nil
}

// LoadBatch loads the batch with the given id ordered by record position.
func LoadBatch(db *sql.DB, id int64) (*Batch, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}

	b := &Batch{}
	err := db.QueryRow(selectBatchSQL, id).Scan(&b.ID, &b.Name, &b.Records, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("batch %d: %w", id, ErrBatchNotFound)
		}
		return nil, fmt.Errorf("failed to select batch %d: %w", id, err)
	}

	rows, err := db.Query(selectRecordsSQL, id)
	if err != nil {
		return nil, fmt.Errorf("failed to select records for batch %d: %w", id, err)
	}
	defer rows.Close()

	b.Scores = make([]float32, 0, b.Records)
	b.AdvWeights = make([]float32, 0, b.Records)
	b.Restricted = make([]bool, 0, b.Records)
	results := make([]float32, 0, b.Records)
	hasResults := false

	for rows.Next() {
		var (
			s, w       int64
			r          sql.NullInt64
			restricted bool
		)
		if err := rows.Scan(&s, &w, &restricted, &r); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		b.Scores = append(b.Scores, fromBits(s))
		b.AdvWeights = append(b.AdvWeights, fromBits(w))
		b.Restricted = append(b.Restricted, restricted)
		results = append(results, fromBits(r.Int64))
		hasResults = hasResults || r.Valid
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}

	if hasResults {
		b.Results = results
	}

	return b, nil
}

// SaveScores stores the transformed scores of a batch in a single
// transaction. The number of scores must match the batch size.
func SaveScores(db *sql.DB, id int64, scores []float32) error {
	if db == nil {
		return errDBNotInitialized
	}

	return withTx(db, func(tx *sql.Tx) error {
		return saveScores(tx, id, scores)
	})
}

func saveScores(tx *sql.Tx, id int64, scores []float32) error {
	var records int
	if err := tx.QueryRow(selectBatchSizeSQL, id).Scan(&records); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("batch %d: %w", id, ErrBatchNotFound)
		}
		return fmt.Errorf("failed to select batch %d: %w", id, err)
	}

	if len(scores) != records {
		return fmt.Errorf("batch %d holds %d records, got %d scores", id, records, len(scores))
	}

	stmt, err := tx.Prepare(updateResultSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare result update statement: %w", err)
	}
	defer stmt.Close()

	for i, s := range scores {
		if _, err := stmt.Exec(toBits(s), id, i); err != nil {
			return fmt.Errorf("failed to update record %d: %w", i, err)
		}
	}

	if _, err := tx.Exec(touchBatchSQL, id); err != nil {
		return fmt.Errorf("failed to update batch %d: %w", id, err)
	}

	return nil
}

// ListBatches returns all stored batches ordered by id.
func ListBatches(db *sql.DB) ([]*BatchInfo, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}

	rows, err := db.Query(selectBatchesSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to select batches: %w", err)
	}
	defer rows.Close()

	list := make([]*BatchInfo, 0)
	for rows.Next() {
		b := &BatchInfo{}
		if err := rows.Scan(&b.ID, &b.Name, &b.Records, &b.CreatedAt, &b.UpdatedAt, &b.Runs); err != nil {
			return nil, fmt.Errorf("failed to scan batch: %w", err)
		}
		list = append(list, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate batches: %w", err)
	}

	return list, nil
}

// SQLite folds -0 into 0 and NaN into NULL in REAL columns, so values are
// kept as their float32 bit patterns.
func toBits(v float32) int64 {
	return int64(math.Float32bits(v))
}

func fromBits(v int64) float32 {
	return math.Float32frombits(uint32(v))
}

package data

import (
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/mchmarny/advscorer/pkg/score"
)

const (
	insertRunSQL = `INSERT INTO run (batch_id, params, records, boosted, sentinel, passthrough, duration_ns, scores)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	selectRunsSQL = `SELECT id, batch_id, params, records, boosted, sentinel, passthrough, duration_ns, scores, created_at
		FROM run
		WHERE batch_id = ?
		ORDER BY id
	`
)

// Run is one recorded transformation of a stored batch.
type Run struct {
	ID        int64         `json:"id" yaml:"id"`
	BatchID   int64         `json:"batch_id" yaml:"batch_id"`
	Params    score.Params  `json:"params" yaml:"params"`
	Stats     score.Stats   `json:"stats" yaml:"stats"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
	Scores    []float32     `json:"-" yaml:"-"`
	CreatedAt string        `json:"created_at" yaml:"created_at"`
}

// SaveRun records a transformation of batch id along with its output.
func SaveRun(db *sql.DB, id int64, p score.Params, stats score.Stats, d time.Duration, scores []float32) (int64, error) {
	if db == nil {
		return 0, errDBNotInitialized
	}

	var runID int64
	err := withTx(db, func(tx *sql.Tx) error {
		var err error
		runID, err = insertRun(tx, id, p, stats, d, scores)
		return err
	})
	return runID, err
}

// SaveResult stores the transformed scores of batch id and records the run
// in one transaction, so a batch never holds results without their run.
func SaveResult(db *sql.DB, id int64, p score.Params, stats score.Stats, d time.Duration, scores []float32) (int64, error) {
	if db == nil {
		return 0, errDBNotInitialized
	}

	var runID int64
	err := withTx(db, func(tx *sql.Tx) error {
		if err := saveScores(tx, id, scores); err != nil {
			return err
		}
		var err error
		runID, err = insertRun(tx, id, p, stats, d, scores)
		return err
	})
	return runID, err
}

func insertRun(tx *sql.Tx, id int64, p score.Params, stats score.Stats, d time.Duration, scores []float32) (int64, error) {
	pb, err := json.Marshal(p)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal params: %w", err)
	}

	res, err := tx.Exec(insertRunSQL, id, string(pb), stats.Records, stats.Boosted, stats.Sentinel,
		stats.Passthrough, d.Nanoseconds(), encodeScores(scores))
	if err != nil {
		return 0, fmt.Errorf("failed to insert run for batch %d: %w", id, err)
	}

	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run id: %w", err)
	}

	return runID, nil
}

// ListRuns returns the runs of batch id, oldest first.
func ListRuns(db *sql.DB, id int64) ([]*Run, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}

	rows, err := db.Query(selectRunsSQL, id)
	if err != nil {
		return nil, fmt.Errorf("failed to select runs for batch %d: %w", id, err)
	}
	defer rows.Close()

	list := make([]*Run, 0)
	for rows.Next() {
		var (
			r      Run
			params string
			nanos  int64
			blob   []byte
		)
		if err := rows.Scan(&r.ID, &r.BatchID, &params, &r.Stats.Records, &r.Stats.Boosted,
			&r.Stats.Sentinel, &r.Stats.Passthrough, &nanos, &blob, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if err := json.Unmarshal([]byte(params), &r.Params); err != nil {
			return nil, fmt.Errorf("failed to unmarshal params of run %d: %w", r.ID, err)
		}
		r.Duration = time.Duration(nanos)
		r.Scores = decodeScores(blob)
		list = append(list, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}

	return list, nil
}

// encodeScores converts scores to a little-endian byte blob, keeping the
// exact bit patterns including NaN payloads and negative zero.
func encodeScores(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeScores(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}

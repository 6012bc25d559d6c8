package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/mchmarny/advscorer/pkg/data"
	"github.com/mchmarny/advscorer/pkg/score"
	"github.com/urfave/cli/v3"
)

var (
	nameFlag = &cli.StringFlag{
		Name:  "name",
		Usage: "Name of the batch (optional, default: input file name)",
	}

	batchFlag = &cli.Int64Flag{
		Name:     "batch",
		Usage:    "ID of the stored batch",
		Required: true,
	}

	importCmd = &cli.Command{
		Name:    "import",
		Aliases: []string{"i"},
		Usage:   "Import a records file into the batch store",
		Action:  cmdImport,
		Flags: []cli.Flag{
			inFlag,
			nameFlag,
		},
	}

	applyCmd = &cli.Command{
		Name:   "apply",
		Usage:  "Transform a stored batch and save the scores and the run",
		Action: cmdApply,
		Flags: append([]cli.Flag{
			batchFlag,
			workersFlag,
		}, paramFlags...),
	}

	batchesCmd = &cli.Command{
		Name:   "batches",
		Usage:  "List stored batches",
		Action: cmdBatches,
	}

	runsCmd = &cli.Command{
		Name:   "runs",
		Usage:  "List the runs of a stored batch",
		Action: cmdRuns,
		Flags: []cli.Flag{
			batchFlag,
		},
	}
)

// ImportResult is the output of the import command.
type ImportResult struct {
	ID      int64  `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	Records int    `json:"records" yaml:"records"`
}

// ApplyResult is the output of the apply command.
type ApplyResult struct {
	BatchID  int64            `json:"batch_id" yaml:"batch_id"`
	RunID    int64            `json:"run_id" yaml:"run_id"`
	Duration string           `json:"duration" yaml:"duration"`
	Result   *transformResult `json:"result" yaml:"result"`
}

func cmdImport(_ context.Context, cmd *cli.Command) error {
	path := cmd.String(inFlag.Name)
	records, err := readRecords(path)
	if err != nil {
		return err
	}

	name := cmd.String(nameFlag.Name)
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	db, err := getDB(cmd)
	if err != nil {
		return err
	}

	id, err := data.ImportBatch(db, name, records)
	if err != nil {
		return fmt.Errorf("failed to import batch: %w", err)
	}

	slog.Info("batch imported", "id", id, "name", name, "records", len(records))
	return encode(cmd, &ImportResult{ID: id, Name: name, Records: len(records)})
}

func cmdApply(ctx context.Context, cmd *cli.Command) error {
	db, err := getDB(cmd)
	if err != nil {
		return err
	}

	res, err := applyBatch(ctx, db, cmd.Int64(batchFlag.Name), getParams(cmd), getWorkers(cmd))
	if err != nil {
		return err
	}

	return encode(cmd, res)
}

// applyBatch transforms a stored batch, saves the scores and records the run.
func applyBatch(ctx context.Context, db *sql.DB, id int64, p score.Params, workers int) (*ApplyResult, error) {
	b, err := data.LoadBatch(db, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load batch: %w", err)
	}

	scores := make([]float32, len(b.Scores))
	copy(scores, b.Scores)

	start := time.Now()
	res, err := transform(ctx, scores, b.AdvWeights, b.Restricted, p, workers)
	if err != nil {
		return nil, err
	}
	d := time.Since(start)

	runID, err := data.SaveResult(db, id, p, res.Stats, d, scores)
	if err != nil {
		return nil, fmt.Errorf("failed to save result: %w", err)
	}

	slog.Info("batch applied", "batch", id, "run", runID, "boosted", res.Stats.Boosted)
	return &ApplyResult{
		BatchID:  id,
		RunID:    runID,
		Duration: d.String(),
		Result:   res,
	}, nil
}

func cmdBatches(_ context.Context, cmd *cli.Command) error {
	db, err := getDB(cmd)
	if err != nil {
		return err
	}

	list, err := data.ListBatches(db)
	if err != nil {
		return fmt.Errorf("failed to list batches: %w", err)
	}

	return encode(cmd, list)
}

func cmdRuns(_ context.Context, cmd *cli.Command) error {
	db, err := getDB(cmd)
	if err != nil {
		return err
	}

	list, err := data.ListRuns(db, cmd.Int64(batchFlag.Name))
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	return encode(cmd, list)
}

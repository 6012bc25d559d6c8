package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/mchmarny/advscorer/pkg/metrics"
	"github.com/mchmarny/advscorer/pkg/net"
	"github.com/mchmarny/advscorer/pkg/score"
	"github.com/urfave/cli/v3"
)

const (
	fileMode = 0600
)

var (
	inFlag = &cli.StringFlag{
		Name:     "in",
		Usage:    "Path to the records file (.json, .yaml)",
		Required: true,
	}

	outFlag = &cli.StringFlag{
		Name:  "out",
		Usage: "Path to write the result to (optional, default: stdout)",
	}

	serverURLFlag = &cli.StringFlag{
		Name:  "server",
		Usage: "Base URL of a running advscorer server to transform on (optional, e.g. http://127.0.0.1:8080)",
	}

	workersFlag = &cli.IntFlag{
		Name:  "workers",
		Usage: "Number of concurrent shards; 0 uses the config value, 1 runs single-threaded",
	}

	minScoreFlag = &cli.FloatFlag{
		Name:  "min-score",
		Usage: fmt.Sprintf("Minimum score eligible for boost (default: %g)", score.DefaultMinScore),
	}

	maxScoreFlag = &cli.FloatFlag{
		Name:  "max-score",
		Usage: fmt.Sprintf("Score multiplier applied to the boost (default: %g)", score.DefaultMaxScore),
	}

	minAdvWeightFlag = &cli.FloatFlag{
		Name:  "min-adv-weight",
		Usage: "Minimum advertising weight eligible for boost, inclusive (default: smallest positive float32)",
	}

	noAdvScoreFlag = &cli.FloatFlag{
		Name:  "no-adv-score",
		Usage: fmt.Sprintf("Score assigned to restricted records not eligible for boost (default: %g)", score.DefaultNoAdvScore),
	}

	minAdvBoostFlag = &cli.FloatFlag{
		Name:  "min-adv-boost",
		Usage: fmt.Sprintf("Lower bound of the boost (default: %g)", score.DefaultMinAdvBoost),
	}

	maxAdvBoostFlag = &cli.FloatFlag{
		Name:  "max-adv-boost",
		Usage: fmt.Sprintf("Upper bound of the boost (default: %g)", score.DefaultMaxAdvBoost),
	}

	slopeFlag = &cli.FloatFlag{
		Name:  "slope",
		Usage: fmt.Sprintf("Slope of the linear boost (default: %g)", score.DefaultSlope),
	}

	interceptFlag = &cli.FloatFlag{
		Name:  "intercept",
		Usage: fmt.Sprintf("Intercept of the linear boost (default: %g)", score.DefaultIntercept),
	}

	paramFlags = []cli.Flag{
		minScoreFlag,
		maxScoreFlag,
		minAdvWeightFlag,
		noAdvScoreFlag,
		minAdvBoostFlag,
		maxAdvBoostFlag,
		slopeFlag,
		interceptFlag,
	}

	transformCmd = &cli.Command{
		Name:    "transform",
		Aliases: []string{"t"},
		Usage:   "Transform the scores of a records file",
		UsageText: `advscorer transform --in records.json                  # default params
   advscorer transform --in records.yaml --slope 0.2    # override one param
   advscorer --format yaml transform --in records.json --out result.yaml`,
		Action: cmdTransform,
		Flags: append([]cli.Flag{
			inFlag,
			outFlag,
			serverURLFlag,
			workersFlag,
		}, paramFlags...),
	}
)

// getParams returns the configured params with any param flags applied.
func getParams(cmd *cli.Command) score.Params {
	p := getConfig(cmd).Config.Params

	set := func(f *cli.FloatFlag, dst *float32) {
		if cmd.IsSet(f.Name) {
			*dst = float32(cmd.Float(f.Name))
		}
	}

	set(minScoreFlag, &p.MinScore)
	set(maxScoreFlag, &p.MaxScore)
	set(minAdvWeightFlag, &p.MinAdvWeight)
	set(noAdvScoreFlag, &p.NoAdvScore)
	set(minAdvBoostFlag, &p.MinAdvBoost)
	set(maxAdvBoostFlag, &p.MaxAdvBoost)
	set(slopeFlag, &p.Slope)
	set(interceptFlag, &p.Intercept)

	return p
}

func getWorkers(cmd *cli.Command) int {
	if w := cmd.Int(workersFlag.Name); w != 0 {
		return w
	}
	return getConfig(cmd).Config.Workers
}

func cmdTransform(ctx context.Context, cmd *cli.Command) error {
	records, err := readRecords(cmd.String(inFlag.Name))
	if err != nil {
		return err
	}

	var res *transformResult
	if u := cmd.String(serverURLFlag.Name); u != "" {
		res, err = remoteTransform(ctx, u, records, getParams(cmd), getWorkers(cmd))
	} else {
		scores, advWeights, restricted := score.Columns(records)
		res, err = transform(ctx, scores, advWeights, restricted, getParams(cmd), getWorkers(cmd))
	}
	if err != nil {
		return err
	}

	out := cmd.String(outFlag.Name)
	if out == "" {
		return encode(cmd, res)
	}

	f, err := os.OpenFile(out, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, fileMode)
	if err != nil {
		return fmt.Errorf("failed to create output file: %s: %w", out, err)
	}
	defer f.Close()

	if err := encodeTo(f, getConfig(cmd).Format, res); err != nil {
		return fmt.Errorf("failed to write output file: %s: %w", out, err)
	}

	slog.Info("result written", "path", out, "records", res.Stats.Records)
	return nil
}

// remoteTransform sends the records to the transform API of a running server.
func remoteTransform(ctx context.Context, baseURL string, records []score.Record, p score.Params, workers int) (*transformResult, error) {
	u := strings.TrimSuffix(baseURL, "/") + "/transform"
	req := &transformRequest{
		Params:  &p,
		Workers: workers,
		Records: records,
	}

	var res transformResult
	if err := net.PostJSON(ctx, u, req, &res); err != nil {
		return nil, fmt.Errorf("failed to transform on server: %s: %w", u, err)
	}

	slog.Debug("transformed on server", "url", u, "records", res.Stats.Records)
	return &res, nil
}

// transform runs one transformation over the columns in place and records
// it in metrics. Batches whose length is a multiple of the group width are
// sharded when more than one worker is requested.
func transform(ctx context.Context, scores, advWeights []float32, restricted []bool, p score.Params, workers int) (*transformResult, error) {
	n := len(scores)
	stats := score.Summarize(n, scores, advWeights, restricted, p)

	start := time.Now()
	var err error
	if workers != 1 && n > 0 && n%score.Width == 0 {
		err = score.TransformParallel(ctx, n, scores, advWeights, restricted, p, workers)
	} else {
		err = score.TransformAll(scores, advWeights, restricted, p)
	}
	d := time.Since(start)

	metrics.Observe(stats, d, err)
	if err != nil {
		return nil, fmt.Errorf("failed to transform %d records: %w", n, err)
	}

	slog.Debug("transformed",
		"records", stats.Records,
		"boosted", stats.Boosted,
		"sentinel", stats.Sentinel,
		"passthrough", stats.Passthrough,
		"workers", workers,
		"duration", d)

	return &transformResult{
		Params: p,
		Stats:  stats,
		Scores: scoreList(scores),
	}, nil
}

package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mchmarny/advscorer/pkg/score"
	"gopkg.in/yaml.v3"
)

// readRecords loads records from a JSON or YAML file. YAML files may hold
// non-finite values (.nan, .inf) which JSON cannot express.
func readRecords(path string) ([]score.Record, error) {
	if path == "" {
		return nil, errors.New("input file required")
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read records file: %s: %w", path, err)
	}

	var list []score.Record
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &list)
	default:
		err = json.Unmarshal(b, &list)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse records file: %s: %w", path, err)
	}

	if len(list) == 0 {
		return nil, fmt.Errorf("no records in file: %s", path)
	}

	return list, nil
}

// scoreList encodes non-finite scores as strings in JSON.
type scoreList []float32

func (s scoreList) MarshalJSON() ([]byte, error) {
	b := make([]byte, 0, len(s)*8+2)
	b = append(b, '[')
	for i, v := range s {
		if i > 0 {
			b = append(b, ',')
		}
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			b = strconv.AppendQuote(b, strconv.FormatFloat(f, 'g', -1, 32))
			continue
		}
		b = strconv.AppendFloat(b, f, 'g', -1, 32)
	}
	return append(b, ']'), nil
}

func (s *scoreList) UnmarshalJSON(b []byte) error {
	var raw []any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	list := make(scoreList, len(raw))
	for i, v := range raw {
		switch x := v.(type) {
		case float64:
			list[i] = float32(x)
		case string:
			f, err := strconv.ParseFloat(x, 32)
			if err != nil {
				return fmt.Errorf("invalid score at %d: %w", i, err)
			}
			list[i] = float32(f)
		default:
			return fmt.Errorf("invalid score at %d: %v", i, v)
		}
	}
	*s = list
	return nil
}

// transformResult is the output of one transformation.
type transformResult struct {
	Params score.Params `json:"params" yaml:"params"`
	Stats  score.Stats  `json:"stats" yaml:"stats"`
	Scores scoreList    `json:"scores" yaml:"scores"`
}

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/mchmarny/advscorer/pkg/score"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestInit_Idempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		Init()
		Init()
	})

	families, err := prometheus.DefaultGatherer.Gather()
	assert.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "advscorer_transform_duration_seconds")
}

func TestObserve(t *testing.T) {
	okBefore := testutil.ToFloat64(TransformCalls.WithLabelValues(resultOK))
	boostedBefore := testutil.ToFloat64(TransformRecords.WithLabelValues("boosted"))
	sentinelBefore := testutil.ToFloat64(TransformRecords.WithLabelValues("sentinel"))
	passBefore := testutil.ToFloat64(TransformRecords.WithLabelValues("passthrough"))

	Observe(score.Stats{Records: 8, Boosted: 5, Sentinel: 2, Passthrough: 1}, time.Millisecond, nil)

	assert.Equal(t, okBefore+1, testutil.ToFloat64(TransformCalls.WithLabelValues(resultOK)))
	assert.Equal(t, boostedBefore+5, testutil.ToFloat64(TransformRecords.WithLabelValues("boosted")))
	assert.Equal(t, sentinelBefore+2, testutil.ToFloat64(TransformRecords.WithLabelValues("sentinel")))
	assert.Equal(t, passBefore+1, testutil.ToFloat64(TransformRecords.WithLabelValues("passthrough")))
}

func TestObserve_Errors(t *testing.T) {
	contractBefore := testutil.ToFloat64(TransformCalls.WithLabelValues(resultContract))
	errBefore := testutil.ToFloat64(TransformCalls.WithLabelValues(resultError))
	boostedBefore := testutil.ToFloat64(TransformRecords.WithLabelValues("boosted"))

	err := score.Transform(3, make([]float32, 3), make([]float32, 3), make([]bool, 3), score.DefaultParams())
	Observe(score.Stats{Boosted: 3}, time.Millisecond, err)
	Observe(score.Stats{Boosted: 3}, time.Millisecond, errors.New("boom"))

	assert.Equal(t, contractBefore+1, testutil.ToFloat64(TransformCalls.WithLabelValues(resultContract)))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(TransformCalls.WithLabelValues(resultError)))
	assert.Equal(t, boostedBefore, testutil.ToFloat64(TransformRecords.WithLabelValues("boosted")))
}

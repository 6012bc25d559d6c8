package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/mchmarny/advscorer/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApp_Config(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer

	app := newApp()
	app.Writer = &buf

	err := app.Run(context.Background(), []string{appName, "--config", dir, "--format", "yaml", "config", "--slope", "0.3", "--intercept", "0", "--save"})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "slope: 0.3")
	assert.Contains(t, out, "max_score: 100")
	assert.Contains(t, out, "intercept: 0\n")

	c, err := config.ReadOrCreate(dir)
	require.NoError(t, err)
	assert.Equal(t, float32(0.3), c.Params.Slope)
	assert.Equal(t, float32(0), c.Params.Intercept)
}

func TestEncodeTo(t *testing.T) {
	v := map[string]int{"records": 8}

	var buf bytes.Buffer
	require.NoError(t, encodeTo(&buf, formatJSON, v))
	assert.JSONEq(t, `{"records": 8}`, buf.String())

	buf.Reset()
	require.NoError(t, encodeTo(&buf, formatYAML, v))
	assert.Equal(t, "records: 8\n", buf.String())
}

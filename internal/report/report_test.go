package report

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/fieldepi/geostat-cli/internal/correlogram"
	"github.com/fieldepi/geostat-cli/internal/model"
)

func testBoard() []model.BoardEntry {
	return []model.BoardEntry{
		{Score: 12.3456, Covariates: []string{"elev", "precip", "temp"}},
		{Score: 10.5, Covariates: []string{"elev", "precip"}},
	}
}

func TestRenderBoard(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderBoard(&buf, testBoard()))

	out := buf.String()
	assert.Contains(t, out, "ROUND")
	assert.Contains(t, out, "12.3456")
	assert.Contains(t, out, "elev + precip + temp")
	assert.Contains(t, out, "10.5000")
}

func TestRenderCorrelogram(t *testing.T) {
	bins := []correlogram.Bin{
		{MinKM: 0, MaxKM: 50, MidKM: 25, I: 0.42, Pairs: 30},
		{MinKM: 50, MaxKM: 100, MidKM: 75, I: -0.1, Pairs: 12},
	}

	var buf bytes.Buffer
	require.NoError(t, RenderCorrelogram(&buf, bins))

	out := buf.String()
	assert.Contains(t, out, "MORAN'S I")
	assert.Contains(t, out, "0-50")
	assert.Contains(t, out, "0.4200")
	assert.Contains(t, out, "-0.1000")
}

func TestWriteYAML_Roundtrip(t *testing.T) {
	res := &model.RunResult{
		Board:    testBoard(),
		Selected: []string{"elev", "precip"},
		Folds:    5,
		Seed:     42,
	}

	var buf bytes.Buffer
	require.NoError(t, WriteYAML(&buf, res))

	var back model.RunResult
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &back))
	assert.Equal(t, res.Selected, back.Selected)
	assert.Equal(t, res.Folds, back.Folds)
	assert.Len(t, back.Board, 2)
}

func TestWriteJSON(t *testing.T) {
	res := &model.RunResult{Board: testBoard(), Selected: []string{"elev", "precip"}}

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, res))

	var back model.RunResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &back))
	assert.Equal(t, res.Selected, back.Selected)
}

package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const snapshotYAML = `
info:
  columns: [PassengerId, Survived, Pclass]
  shape: [25, 3]
  missing_values: {PassengerId: 0, Survived: 0, Pclass: 0}
  data_types: {PassengerId: int64, Survived: int64, Pclass: int64}
correlation:
  Survived: {Survived: 1.0, Pclass: -0.338}
  Pclass: {Survived: -0.338, Pclass: 1.0}
survival_rates:
  by_class: {"1": 0.629, "2": 0.473, "3": 0.242}
  by_sex: {female: 0.742, male: 0.189}
  by_embarked: {C: 0.553, Q: 0.389, S: 0.339}
  by_title: {Mr: 0.157, Mrs: 0.792}
`

func writeSnapshot(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestSnapshotYAMLPreservesOrder(t *testing.T) {
	var records strings.Builder
	records.WriteString("records:\n")
	for i := 1; i <= 25; i++ {
		fmt.Fprintf(&records, "  - {PassengerId: %d, Survived: %d, Pclass: 3}\n", i, i%2)
	}
	src, err := OpenSource(SourceSnapshot, SourceConfig{Path: writeSnapshot(t, "snap.yaml", snapshotYAML+records.String())})
	require.NoError(t, err)
	ctx := context.Background()

	info, err := src.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, 25, info.Rows())

	m, err := src.Correlation(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Survived", "Pclass"}, m.Features())

	rates, err := src.SurvivalRates(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, rates.ByClass.Keys())
	assert.Equal(t, []string{"C", "Q", "S"}, rates.ByEmbarked.Keys())

	page, err := src.Page(ctx, 3, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Data, 5)
	id, _ := page.Data[0].Get("PassengerId")
	assert.Equal(t, 21.0, id)

	n, err := src.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 25, n)
}

func TestSnapshotMissingSectionsAreUnavailable(t *testing.T) {
	src, err := LoadSnapshot(writeSnapshot(t, "snap.json", `{"info":{"columns":["a"],"shape":[1,1]}}`))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = src.Regression(ctx)
	assert.True(t, errors.Is(err, ErrUnsupported))
	assert.True(t, IsUnavailable(err))

	_, err = src.Chat(ctx, "hi", "dashboard")
	assert.True(t, IsUnavailable(err))
	assert.True(t, IsUnavailable(src.SetContext(ctx, "data")))
}

func TestSnapshotWriteJSONRoundTrip(t *testing.T) {
	src, err := LoadSnapshot(writeSnapshot(t, "snap.yml", snapshotYAML))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, src.WriteJSON(&buf))

	again, err := LoadSnapshot(writeSnapshot(t, "again.json", buf.String()))
	require.NoError(t, err)
	assert.Equal(t, src.Matrix.Features(), again.Matrix.Features())
	assert.Equal(t, src.Rates.ByTitle.Keys(), again.Rates.ByTitle.Keys())
}

func TestOpenSourceUnknown(t *testing.T) {
	_, err := OpenSource("ftp", SourceConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "snapshot")

	_, err = OpenSource(SourceSnapshot, SourceConfig{})
	assert.Error(t, err)
}

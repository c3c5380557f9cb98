package mctal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleMCTAL = `mcnp  6     probid
tally    4
f        2
   5 9
e    3
  0.0 1.0 2.0
vals
  1.0 0.1 2.0 0.2 3.0 0.3
  4.0 0.1 5.0 0.2 6.0 0.3
tally   14
f        1
   3
e    3
  0.0 10.0 20.0
vals
  7.0 0.5 8.0 0.25 9.0 0.1
`

func writeMCTAL(t *testing.T, content string) *Parser {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mctal")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	p, err := Open(path)
	require.NoError(t, err)
	return p
}

func TestTallies(t *testing.T) {
	p := writeMCTAL(t, sampleMCTAL)
	assert.Equal(t, []int{4, 14}, p.Tallies())
}

func TestExtractZones(t *testing.T) {
	tests := []struct {
		name          string
		tally, zone   int
		wantEdges     []float64
		wantContents  []float64
		wantAbsErrors []float64
	}{
		{
			name:  "first zone drops its leading total pair",
			tally: 4, zone: 5,
			wantEdges:    []float64{0, 1},
			wantContents: []float64{2, 0},
			// 0.2 relative on 2.0
			wantAbsErrors: []float64{0.4, 0},
		},
		{
			name:  "second zone skips the first zone block",
			tally: 4, zone: 9,
			wantEdges:     []float64{0, 1},
			wantContents:  []float64{5, 0},
			wantAbsErrors: []float64{1.0, 0},
		},
		{
			name:  "single-zone tally",
			tally: 14, zone: 3,
			wantEdges:     []float64{0, 10},
			wantContents:  []float64{8, 0},
			wantAbsErrors: []float64{2.0, 0},
		},
	}

	p := writeMCTAL(t, sampleMCTAL)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := p.Result(tt.tally, tt.zone)
			require.NoError(t, err)

			assert.Equal(t, tt.wantEdges, res.Edges)
			assert.Equal(t, tt.wantContents, res.Contents)
			for i := range tt.wantAbsErrors {
				assert.InDelta(t, tt.wantAbsErrors[i], res.Errors[i], 1e-12)
			}
			// Bin-width uncertainties are the grid spacings, zero-padded.
			assert.Equal(t, tt.wantEdges[1]-tt.wantEdges[0], res.XErrors[0])
			assert.Equal(t, 0.0, res.XErrors[1])
		})
	}
}

// A zone's value block may start in the middle of a line; the skip accounting
// must hand the leftover tokens of that line to the pair reader.
func TestValueBlockStartsMidLine(t *testing.T) {
	p := writeMCTAL(t, `tally   24
f        2
   5 9
e    3
  0.0 1.0 2.0
vals
  1.0 0.1 2.0 0.2
  3.0 0.3 4.0 0.1 5.0 0.2
  6.0 0.3
`)
	res, err := p.Result(24, 9)
	require.NoError(t, err)

	assert.Equal(t, []float64{5, 0}, res.Contents)
	assert.InDelta(t, 1.0, res.Errors[0], 1e-12)
}

func TestUnknownTally(t *testing.T) {
	p := writeMCTAL(t, sampleMCTAL)
	_, err := p.Result(99, 5)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUnknownZone(t *testing.T) {
	p := writeMCTAL(t, sampleMCTAL)
	_, err := p.Result(4, 7)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTruncatedFileNamesLastState(t *testing.T) {
	p := writeMCTAL(t, `tally    4
f        2
   5 9
e    3
  0.0 1.0 2.0
`)
	_, err := p.Result(4, 9)
	var serr *StateError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, `reached end of file in state "search-value-block"`, serr.Error())
}

func TestCachedResultsAreIndependent(t *testing.T) {
	p := writeMCTAL(t, sampleMCTAL)

	first, err := p.Result(4, 5)
	require.NoError(t, err)
	first.Contents[0] = -1

	second, err := p.Result(4, 5)
	require.NoError(t, err)
	assert.Equal(t, 2.0, second.Contents[0], "callers own their copy of the result")
}

package t4txt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleListing = ` RESULTS ARE GIVEN FOR SOURCE INTENSITY : 1.000000e+00

 RESPONSE FUNCTION : FLUX
 SCORE NAME : flux_spectrum

	 SPECTRUM RESULTS
	 group (MeV)            score          sigma

	 1.000000e+00 - 2.000000e+00	1.000000e+00	1.000000e-01

	 number of batches used: 10

	 SPECTRUM RESULTS
	 group (MeV)            score          sigma

	 0.000000e+00 - 2.000000e+00	2.000000e+00	1.000000e-01

	 number of batches used: 10

 RESPONSE FUNCTION : CURRENT
 SCORE NAME : leakage

	 SPECTRUM RESULTS
	 group (MeV)            score          sigma

	 0.000000e+00 - 1.000000e+00	5.000000e-01	5.000000e-01

	 number of batches used: 10

 simulation time (s) : 12

 RESULTS ARE GIVEN FOR SOURCE INTENSITY : 1.000000e+00

 RESPONSE FUNCTION : FLUX
 SCORE NAME : flux_spectrum

	 SPECTRUM RESULTS
	 group (MeV)            score          sigma

	 1.000000e+00 - 2.000000e+00	3.000000e+00	1.000000e-01
	 2.000000e+00 - 3.000000e+00	4.000000e+00	5.000000e-02
	 5.000000e+00 - 6.000000e+00	2.000000e+00	2.000000e-01

	 number of batches used: 20

	 SPECTRUM RESULTS
	 group (MeV)            score          sigma

	 0.000000e+00 - 2.000000e+00	8.000000e+00	1.000000e-01
	 2.000000e+00 - 3.000000e+00	6.000000e+00	0.000000e+00

	 number of batches used: 20

 RESPONSE FUNCTION : CURRENT
 SCORE NAME : leakage

	 SPECTRUM RESULTS
	 group (MeV)            score          sigma

	 0.000000e+00 - 1.000000e+00	1.000000e+00	5.000000e-01

	 number of batches used: 20

 simulation time (s) : 25
`

func openListing(t *testing.T, batch int) *Parser {
	t.Helper()
	path := filepath.Join(t.TempDir(), "listing.out")
	require.NoError(t, os.WriteFile(path, []byte(sampleListing), 0o644))
	p, err := Open(path, batch)
	require.NoError(t, err)
	return p
}

func TestLastResolvesToLatestEdition(t *testing.T) {
	p := openListing(t, Last)
	assert.Equal(t, 20, p.Batch())
	assert.Equal(t, []string{"flux_spectrum", "leakage"}, p.ScoreNames())
}

func TestExplicitBatch(t *testing.T) {
	p := openListing(t, 10)
	assert.Equal(t, 10, p.Batch())

	res, err := p.Result("flux_spectrum", 0, false)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, res.Edges)
	assert.Equal(t, []float64{1, 0}, res.Contents)
}

func TestUnknownBatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "listing.out")
	require.NoError(t, os.WriteFile(path, []byte(sampleListing), 0o644))

	_, err := Open(path, 15)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGapBinSynthesis(t *testing.T) {
	p := openListing(t, Last)
	res, err := p.Result("flux_spectrum", 0, false)
	require.NoError(t, err)

	// The 3-5 MeV range is omitted from the file; it comes back as a zero bin.
	assert.Equal(t, []float64{1, 2, 3, 5, 6}, res.Edges)
	assert.Equal(t, []float64{3, 4, 0, 2, 0}, res.Contents)

	// Errors are stored relative and come out absolute.
	assert.InDelta(t, 0.3, res.Errors[0], 1e-12)
	assert.InDelta(t, 0.2, res.Errors[1], 1e-12)
	assert.Equal(t, 0.0, res.Errors[2])
	assert.InDelta(t, 0.4, res.Errors[3], 1e-12)
	assert.Equal(t, 0.0, res.Errors[4])
}

func TestDivideByBinWidth(t *testing.T) {
	p := openListing(t, Last)
	res, err := p.Result("flux_spectrum", 1, true)
	require.NoError(t, err)

	// Widths are 2 and 1.
	assert.Equal(t, []float64{0, 2, 3}, res.Edges)
	assert.Equal(t, []float64{4, 6, 0}, res.Contents)
	assert.InDelta(t, 0.4, res.Errors[0], 1e-12)
}

func TestSecondScore(t *testing.T) {
	p := openListing(t, Last)
	res, err := p.Result("leakage", 0, false)
	require.NoError(t, err)

	assert.Equal(t, []float64{0, 1}, res.Edges)
	assert.Equal(t, []float64{1, 0}, res.Contents)
	assert.InDelta(t, 0.5, res.Errors[0], 1e-12)
}

func TestUnknownScoreAndRegion(t *testing.T) {
	p := openListing(t, Last)

	_, err := p.Result("nope", 0, false)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = p.Result("leakage", 3, false)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = p.ResultAt(7, 0, false)
	assert.ErrorIs(t, err, ErrNotFound)
}

package datasource

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arekfu/posthoc/internal/t4xml"
	"github.com/arekfu/posthoc/internal/txt"
)

const tinyReport = `<?xml version="1.0"?>
<report>
  <grid-list>
    <grid name="egrid">0 1 2</grid>
  </grid-list>
  <response-list>
    <response name="resp" id="r1" particle="PHOTON" type="FLUX"/>
  </response-list>
  <score-list>
    <score name="flux" id="1" grid-ref="egrid" response-ref="r1">
      <region-def id="1"/>
    </score>
  </score-list>
  <batches>
    <batch num="10">
      <result score-id="1"><region id="1">3 4</region></result>
    </batch>
    <mean-results batch-num="10">
      <mean-result score-id="1"><region id="1">
        <val>3</val><val>4</val><sd>0.3</sd><sd>0.4</sd>
      </region></mean-result>
    </mean-results>
  </batches>
</report>
`

const tinyMCTAL = `tally    4
f        1
   2
e    3
  0.0 1.0 2.0
vals
  1.0 0.1 2.0 0.2 3.0 0.3
`

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFromT4XML(t *testing.T) {
	path := writeTempFile(t, "report.xml", tinyReport)
	sel := t4xml.DefaultSelection()
	sel.DivideByBin = false

	src, err := FromT4XML(NewCache(), path, "flux", sel, "", nil)
	require.NoError(t, err)

	assert.False(t, src.IsNull())
	assert.Equal(t, "flux", src.Label, "label defaults to the score name")
	assert.Equal(t, []float64{3, 4, 0}, src.Result.Contents)
	assert.Equal(t, "energy [MeV]", src.XLabel)
	assert.Equal(t, "photon flux [1/source]", src.YLabel)
}

func TestMissingFileSubstitutesNull(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.xml")

	src, err := FromT4XML(NewCache(), path, "flux", t4xml.DefaultSelection(), "lbl", nil)
	require.NoError(t, err, "an unreadable file is not an error")
	assert.True(t, src.IsNull())
	assert.Equal(t, "lbl", src.Label)
}

func TestLookupErrorsStillPropagate(t *testing.T) {
	path := writeTempFile(t, "report.xml", tinyReport)

	_, err := FromT4XML(NewCache(), path, "nope", t4xml.DefaultSelection(), "", nil)
	assert.ErrorIs(t, err, t4xml.ErrNotFound)
}

func TestFromMCTAL(t *testing.T) {
	path := writeTempFile(t, "mctal", tinyMCTAL)

	src, err := FromMCTAL(NewCache(), path, 4, 2, "tally 4", nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 0}, src.Result.Contents)

	src, err = FromMCTAL(NewCache(), filepath.Join(t.TempDir(), "nope"), 4, 2, "", nil)
	require.NoError(t, err)
	assert.True(t, src.IsNull())
}

func TestFromText(t *testing.T) {
	path := writeTempFile(t, "data.txt", "1.0 2.0\n3.0 4.0\n")
	tokenize, err := txt.ColumnTokenizer("0:1", "#", " ")
	require.NoError(t, err)

	src, err := FromText(path, tokenize, "data", "x", "y", nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 4}, src.Result.Contents)
	assert.Equal(t, "x", src.XLabel)

	src, err = FromText(filepath.Join(t.TempDir(), "nope"), tokenize, "", "", "", nil)
	require.NoError(t, err)
	assert.True(t, src.IsNull())
}

func TestConst(t *testing.T) {
	edges := []float64{0, 1, 2}
	src := Const(edges, 7, "seven", "", "", nil)

	assert.Equal(t, []float64{7, 7, 7}, src.Result.Contents)
	edges[0] = 42
	assert.Equal(t, 0.0, src.Result.Edges[0], "edges are copied, not aliased")
}

func TestCacheReusesParsedReports(t *testing.T) {
	path := writeTempFile(t, "report.xml", tinyReport)
	cache := NewCache()

	_, err := cache.xml(path)
	require.NoError(t, err)
	first := cache.xmls[path]

	again, err := cache.xml(path)
	require.NoError(t, err)
	assert.Same(t, first, again)

	cache.Invalidate(path)
	assert.Empty(t, cache.xmls)

	_, err = cache.xml(path)
	require.NoError(t, err)
	assert.NotSame(t, first, cache.xmls[path])
}

func TestCacheClear(t *testing.T) {
	path := writeTempFile(t, "mctal", tinyMCTAL)
	cache := NewCache()

	_, err := cache.mctal(path)
	require.NoError(t, err)
	require.NotEmpty(t, cache.mctals)

	cache.Clear()
	assert.Empty(t, cache.mctals)
}

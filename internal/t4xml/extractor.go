// Package t4xml extracts scores, grids and responses from structured XML
// simulation reports. The whole document is parsed once into a tree at open
// time; every query then resolves named records against that tree.
package t4xml

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/arekfu/posthoc/internal/result"
	"github.com/arekfu/posthoc/utils"
)

// ErrNotFound marks a lookup failure (unknown grid, score, response, batch,
// region or cell).
var ErrNotFound = errors.New("not found")

// Last selects the most recently recorded batch or mean-results block.
const Last = -1

// Selection addresses one extracted distribution within a score.
type Selection struct {
	// Batch is the batch number, or Last.
	Batch int
	// RegionID is the id of the score region.
	RegionID int
	// Cell holds the x, y, z indices of the requested distribution when the
	// score region is a mesh. Ignored for flat scores.
	Cell [3]int
	// TimeStep selects the time window of the requested distribution.
	TimeStep int
	// DivideByBin divides contents (and errors) by the bin width.
	DivideByBin bool
}

// DefaultSelection picks region 1, the first cell and time step of the last
// batch, divided by bin width.
func DefaultSelection() Selection {
	return Selection{Batch: Last, RegionID: 1, DivideByBin: true}
}

// Extractor navigates one parsed XML report.
type Extractor struct {
	path string
	root *etree.Element
}

// Open reads and parses the XML report at path.
func Open(path string) (*Extractor, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromFile(path); err != nil {
		return nil, err
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("%s: document has no root element", path)
	}
	return &Extractor{path: path, root: root}, nil
}

// Grid returns the named grid as an ascending or descending numeric array,
// exactly as stored.
func (x *Extractor) Grid(name string) ([]float64, error) {
	elem := x.root.FindElement(fmt.Sprintf("./grid-list/grid[@name='%s']", name))
	if elem == nil {
		return nil, fmt.Errorf("grid %q: %w", name, ErrNotFound)
	}
	return parseNumberList(elem.Text())
}

// GridNames returns the names of all defined grids.
func (x *Extractor) GridNames() []string {
	return x.names("./grid-list/grid")
}

// ScoreNames returns the names of all defined scores.
func (x *Extractor) ScoreNames() []string {
	return x.names("./score-list/score")
}

// ResponseNames returns the names of all defined responses.
func (x *Extractor) ResponseNames() []string {
	return x.names("./response-list/response")
}

func (x *Extractor) names(path string) []string {
	elems := x.root.FindElements(path)
	names := make([]string, 0, len(elems))
	for _, e := range elems {
		names = append(names, e.SelectAttrValue("name", ""))
	}
	return names
}

// scoreDef collects everything needed to extract one score selection.
type scoreDef struct {
	name     string
	id       string
	gridName string

	divisor    float64
	hasDivisor bool

	mesh       bool
	nx, ny, nz int

	timeGridName string
	muGridName   string

	responseRef string
}

func (x *Extractor) score(name string, regionID int) (*scoreDef, error) {
	elem := x.root.FindElement(fmt.Sprintf("./score-list/score[@name='%s']", name))
	if elem == nil {
		return nil, fmt.Errorf("score %q: %w", name, ErrNotFound)
	}
	region := elem.FindElement(fmt.Sprintf("./region-def[@id='%d']", regionID))
	if region == nil {
		return nil, fmt.Errorf("region %d of score %q: %w", regionID, name, ErrNotFound)
	}

	def := &scoreDef{
		name:         name,
		id:           elem.SelectAttrValue("id", ""),
		gridName:     elem.SelectAttrValue("grid-ref", ""),
		timeGridName: elem.SelectAttrValue("time-grid-ref", ""),
		muGridName:   elem.SelectAttrValue("mu-grid-ref", ""),
		responseRef:  elem.SelectAttrValue("response-ref", ""),
	}

	if div := region.SelectAttrValue("div-value", ""); div != "" {
		v, err := strconv.ParseFloat(div, 64)
		if err != nil {
			return nil, fmt.Errorf("score %q: bad div-value %q: %w", name, div, err)
		}
		def.divisor = v
		def.hasDivisor = true
	}

	if region.SelectAttrValue("zone-type", "") == "mesh" {
		def.mesh = true
		for _, ext := range []struct {
			attr string
			dst  *int
		}{
			{"nx", &def.nx}, {"ny", &def.ny}, {"nz", &def.nz},
		} {
			v, err := strconv.Atoi(region.SelectAttrValue(ext.attr, ""))
			if err != nil {
				return nil, fmt.Errorf("score %q: bad mesh extent %s: %w", name, ext.attr, err)
			}
			*ext.dst = v
		}
	}

	return def, nil
}

// timeSteps returns the number of time windows the score's value list spans.
// A score without a time grid has a single implicit window.
func (x *Extractor) timeSteps(def *scoreDef) (int, error) {
	if def.timeGridName == "" {
		return 1, nil
	}
	tgrid, err := x.Grid(def.timeGridName)
	if err != nil {
		return 0, err
	}
	return len(tgrid) - 1, nil
}

// MeanResult returns the statistical mean (with standard deviations) for the
// given score, accumulated up to the selected batch.
func (x *Extractor) MeanResult(scoreName string, sel Selection) (*result.Result, error) {
	def, err := x.score(scoreName, sel.RegionID)
	if err != nil {
		return nil, err
	}

	block, err := x.meanResultsBlock(sel.Batch)
	if err != nil {
		return nil, err
	}
	region := block.FindElement(fmt.Sprintf(
		"./mean-result[@score-id='%s']/region[@id='%d']", def.id, sel.RegionID))
	if region == nil {
		return nil, fmt.Errorf("mean result for score %q region %d: %w",
			scoreName, sel.RegionID, ErrNotFound)
	}

	vals, err := elementList(region, "val")
	if err != nil {
		return nil, err
	}
	sds, err := elementList(region, "sd")
	if err != nil {
		return nil, err
	}
	if len(vals) != len(sds) {
		return nil, fmt.Errorf("score %q: %d values but %d standard deviations",
			scoreName, len(vals), len(sds))
	}

	return x.assemble(def, sel, vals, sds)
}

// BatchResult returns the raw result of a single batch for the given score.
// Single-batch values carry no standard deviations.
func (x *Extractor) BatchResult(scoreName string, sel Selection) (*result.Result, error) {
	def, err := x.score(scoreName, sel.RegionID)
	if err != nil {
		return nil, err
	}

	block, err := x.batchBlock(sel.Batch)
	if err != nil {
		return nil, err
	}
	region := block.FindElement(fmt.Sprintf(
		"./result[@score-id='%s']/region[@id='%d']", def.id, sel.RegionID))
	if region == nil {
		return nil, fmt.Errorf("batch result for score %q region %d: %w",
			scoreName, sel.RegionID, ErrNotFound)
	}

	vals, err := parseNumberList(region.Text())
	if err != nil {
		return nil, err
	}

	return x.assemble(def, sel, vals, nil)
}

// assemble turns the flat value (and optional standard-deviation) lists into
// a result: mesh or time-window selection, descending-grid reversal,
// bin-width and divisor normalization, sentinel padding.
func (x *Extractor) assemble(def *scoreDef, sel Selection, vals, sds []float64) (*result.Result, error) {
	grid, err := x.Grid(def.gridName)
	if err != nil {
		return nil, err
	}
	if len(grid) < 2 {
		return nil, fmt.Errorf("grid %q has fewer than two edges", def.gridName)
	}

	// Descending grids are stored high-to-low; flip the grid here and the
	// extracted slice below, keeping index correspondence.
	descending := grid[0] > grid[len(grid)-1]
	if descending {
		utils.Reverse(grid)
	}

	nBins := len(grid) - 1
	steps, err := x.timeSteps(def)
	if err != nil {
		return nil, err
	}
	if sel.TimeStep < 0 || sel.TimeStep >= steps {
		return nil, fmt.Errorf("time step %d of score %q (have %d): %w",
			sel.TimeStep, def.name, steps, ErrNotFound)
	}

	var pick func(flat []float64) ([]float64, error)
	if def.mesh {
		pick = func(flat []float64) ([]float64, error) {
			return meshSlice(flat, sel, steps, nBins, def)
		}
	} else {
		pick = func(flat []float64) ([]float64, error) {
			want := steps * nBins
			if len(flat) != want {
				return nil, fmt.Errorf("score %q: expected %d values, got %d",
					def.name, want, len(flat))
			}
			window := flat[sel.TimeStep*nBins : (sel.TimeStep+1)*nBins]
			return utils.Clone(window), nil
		}
	}

	contents, err := pick(vals)
	if err != nil {
		return nil, err
	}
	var errs []float64
	if sds != nil {
		if errs, err = pick(sds); err != nil {
			return nil, err
		}
	}

	if descending {
		utils.Reverse(contents)
		if errs != nil {
			utils.Reverse(errs)
		}
	}

	if sel.DivideByBin {
		widths := utils.Diff(grid)
		for i := range contents {
			contents[i] /= widths[i]
		}
		for i := range errs {
			errs[i] /= widths[i]
		}
	}
	if def.hasDivisor {
		for i := range contents {
			contents[i] /= def.divisor
		}
		for i := range errs {
			errs[i] /= def.divisor
		}
	}

	contents = append(contents, 0)
	if errs != nil {
		errs = append(errs, 0)
	}

	slog.Debug("extracted score",
		slog.String("score", def.name), slog.Int("bins", nBins),
		slog.Bool("mesh", def.mesh), slog.Bool("descending", descending))

	return &result.Result{Edges: grid, Contents: contents, Errors: errs}, nil
}

// meshSlice picks the energy distribution of one (time, x, y, z) cell out of
// a flat list laid out as (time, energy, x, y, z).
func meshSlice(flat []float64, sel Selection, steps, nBins int, def *scoreDef) ([]float64, error) {
	want := steps * nBins * def.nx * def.ny * def.nz
	if len(flat) != want {
		return nil, fmt.Errorf("score %q: expected %d mesh values, got %d",
			def.name, want, len(flat))
	}
	ix, iy, iz := sel.Cell[0], sel.Cell[1], sel.Cell[2]
	if ix < 0 || ix >= def.nx || iy < 0 || iy >= def.ny || iz < 0 || iz >= def.nz {
		return nil, fmt.Errorf("cell (%d,%d,%d) of score %q (mesh %dx%dx%d): %w",
			ix, iy, iz, def.name, def.nx, def.ny, def.nz, ErrNotFound)
	}

	out := make([]float64, nBins)
	for e := 0; e < nBins; e++ {
		idx := (((sel.TimeStep*nBins+e)*def.nx+ix)*def.ny+iy)*def.nz + iz
		out[e] = flat[idx]
	}
	return out, nil
}

func (x *Extractor) batchBlock(batch int) (*etree.Element, error) {
	if batch == Last {
		blocks := x.root.FindElements("./batches/batch")
		if len(blocks) == 0 {
			return nil, fmt.Errorf("batch blocks in %s: %w", x.path, ErrNotFound)
		}
		return blocks[len(blocks)-1], nil
	}
	block := x.root.FindElement(fmt.Sprintf("./batches/batch[@num='%d']", batch))
	if block == nil {
		return nil, fmt.Errorf("batch %d in %s: %w", batch, x.path, ErrNotFound)
	}
	return block, nil
}

func (x *Extractor) meanResultsBlock(batch int) (*etree.Element, error) {
	if batch == Last {
		blocks := x.root.FindElements("./batches/mean-results")
		if len(blocks) == 0 {
			return nil, fmt.Errorf("mean-results blocks in %s: %w", x.path, ErrNotFound)
		}
		return blocks[len(blocks)-1], nil
	}
	block := x.root.FindElement(fmt.Sprintf("./batches/mean-results[@batch-num='%d']", batch))
	if block == nil {
		return nil, fmt.Errorf("mean results for batch %d in %s: %w", batch, x.path, ErrNotFound)
	}
	return block, nil
}

// Labels suggests axis labels for the given score. dividedByBin states
// whether the extracted contents were divided by the bin width, which changes
// the unit annotation.
func (x *Extractor) Labels(scoreName string, dividedByBin bool) (xlabel, ylabel string, err error) {
	def, err := x.score(scoreName, 1)
	if err != nil {
		return "", "", err
	}
	resp := x.root.FindElement(fmt.Sprintf("./response-list/response[@id='%s']", def.responseRef))
	if resp == nil {
		return "", "", fmt.Errorf("response %q: %w", def.responseRef, ErrNotFound)
	}

	particle := strings.ToLower(resp.SelectAttrValue("particle", ""))
	respType := strings.ToLower(resp.SelectAttrValue("type", ""))

	unit := "source"
	if def.hasDivisor {
		unit += " cm^2"
	}
	if dividedByBin {
		unit += " MeV"
	}
	if strings.Contains(unit, " ") {
		unit = "[1/(" + unit + ")]"
	} else {
		unit = "[1/" + unit + "]"
	}
	ylabel = particle + " " + respType + " " + unit

	switch {
	case def.timeGridName != "":
		xlabel = "time"
	case def.muGridName != "":
		xlabel = "mu"
	default:
		xlabel = "energy [MeV]"
	}
	return xlabel, ylabel, nil
}

func parseNumberList(text string) ([]float64, error) {
	fields := strings.Fields(text)
	out := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("bad numeric value %q: %w", f, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func elementList(parent *etree.Element, tag string) ([]float64, error) {
	elems := parent.SelectElements(tag)
	out := make([]float64, 0, len(elems))
	for _, e := range elems {
		v, err := strconv.ParseFloat(strings.TrimSpace(e.Text()), 64)
		if err != nil {
			return nil, fmt.Errorf("bad <%s> value %q: %w", tag, e.Text(), err)
		}
		out = append(out, v)
	}
	return out, nil
}

// Package datasource wraps the report extractors behind a uniform façade for
// plotting-oriented callers: a source carries one extracted result plus the
// labels and style options a renderer needs, and an unreadable file degrades
// to an empty placeholder result instead of an error.
package datasource

import (
	"errors"
	"io/fs"
	"log/slog"

	"github.com/arekfu/posthoc/internal/mctal"
	"github.com/arekfu/posthoc/internal/result"
	"github.com/arekfu/posthoc/internal/t4txt"
	"github.com/arekfu/posthoc/internal/t4xml"
	"github.com/arekfu/posthoc/internal/txt"
	"github.com/arekfu/posthoc/utils"
)

// Source is one plottable data series. Options carries opaque style metadata
// (color, marker, ...) for the rendering layer; nothing here interprets it.
type Source struct {
	Result  *result.Result
	Label   string
	XLabel  string
	YLabel  string
	Options map[string]string
}

// Null resets the source to an empty placeholder result.
func (s *Source) Null() {
	s.Result = &result.Result{}
}

// IsNull reports whether the source holds the empty placeholder.
func (s *Source) IsNull() bool {
	return s.Result == nil || len(s.Result.Edges) == 0
}

// ioFailure reports whether err is a file-access failure, the only class the
// façade papers over.
func ioFailure(err error) bool {
	var pathErr *fs.PathError
	return errors.As(err, &pathErr)
}

// FromT4XML extracts a mean result from a structured XML report. The parsed
// report is cached per file name in cache.
func FromT4XML(cache *Cache, path, scoreName string, sel t4xml.Selection,
	label string, options map[string]string) (*Source, error) {

	src := &Source{Label: label, Options: options}
	if src.Label == "" {
		src.Label = scoreName
	}

	x, err := cache.xml(path)
	if err != nil {
		if ioFailure(err) {
			slog.Error("could not open XML report, substituting empty result",
				slog.String("path", path), slog.Any("error", err))
			src.Null()
			return src, nil
		}
		return nil, err
	}

	res, err := x.MeanResult(scoreName, sel)
	if err != nil {
		return nil, err
	}
	src.Result = res
	src.XLabel, src.YLabel, err = x.Labels(scoreName, sel.DivideByBin)
	if err != nil {
		return nil, err
	}
	return src, nil
}

// FromMCTAL extracts a (tally, zone) result from an MCTAL report. The parsed
// tally index is cached per file name in cache.
func FromMCTAL(cache *Cache, path string, tally, zone int,
	label string, options map[string]string) (*Source, error) {

	src := &Source{Label: label, Options: options}

	p, err := cache.mctal(path)
	if err != nil {
		if ioFailure(err) {
			slog.Error("could not open MCTAL report, substituting empty result",
				slog.String("path", path), slog.Any("error", err))
			src.Null()
			return src, nil
		}
		return nil, err
	}

	res, err := p.Result(tally, zone)
	if err != nil {
		return nil, err
	}
	src.Result = res
	return src, nil
}

// FromListing extracts a (score, region) result from a free-form listing.
// The edition index depends on the requested batch, so listings are cached
// per (file name, batch).
func FromListing(cache *Cache, path string, batch int, score string, regionRank int,
	divideByBin bool, label string, options map[string]string) (*Source, error) {

	src := &Source{Label: label, Options: options}
	if src.Label == "" {
		src.Label = score
	}

	p, err := cache.listing(path, batch)
	if err != nil {
		if ioFailure(err) {
			slog.Error("could not open listing, substituting empty result",
				slog.String("path", path), slog.Any("error", err))
			src.Null()
			return src, nil
		}
		return nil, err
	}

	res, err := p.Result(score, regionRank, divideByBin)
	if err != nil {
		return nil, err
	}
	src.Result = res
	return src, nil
}

// FromText parses a line-oriented text file with the given tokenizer. Text
// parses are not cached; the parse is the whole cost.
func FromText(path string, tokenize txt.Tokenizer,
	label, xlabel, ylabel string, options map[string]string) (*Source, error) {

	src := &Source{Label: label, XLabel: xlabel, YLabel: ylabel, Options: options}

	res, err := txt.New(path, tokenize).Result()
	if err != nil {
		if ioFailure(err) {
			slog.Error("could not open text file, substituting empty result",
				slog.String("path", path), slog.Any("error", err))
			src.Null()
			return src, nil
		}
		return nil, err
	}
	src.Result = res
	return src, nil
}

// Const builds a source holding a constant value over the given edges.
func Const(edges []float64, c float64, label, xlabel, ylabel string,
	options map[string]string) *Source {

	contents := make([]float64, len(edges))
	for i := range contents {
		contents[i] = c
	}
	return &Source{
		Result:  &result.Result{Edges: utils.Clone(edges), Contents: contents},
		Label:   label,
		XLabel:  xlabel,
		YLabel:  ylabel,
		Options: options,
	}
}

// Cache holds parsed report objects keyed by file name, with an explicit
// owner and lifetime; callers share one cache across sources built from the
// same files and invalidate it when the files change.
type Cache struct {
	xmls     map[string]*t4xml.Extractor
	mctals   map[string]*mctal.Parser
	listings map[listingKey]*t4txt.Parser
}

type listingKey struct {
	path  string
	batch int
}

func NewCache() *Cache {
	return &Cache{
		xmls:     make(map[string]*t4xml.Extractor),
		mctals:   make(map[string]*mctal.Parser),
		listings: make(map[listingKey]*t4txt.Parser),
	}
}

func (c *Cache) xml(path string) (*t4xml.Extractor, error) {
	if x, ok := c.xmls[path]; ok {
		slog.Debug("using cached XML report", slog.String("path", path))
		return x, nil
	}
	x, err := t4xml.Open(path)
	if err != nil {
		return nil, err
	}
	c.xmls[path] = x
	return x, nil
}

func (c *Cache) mctal(path string) (*mctal.Parser, error) {
	if p, ok := c.mctals[path]; ok {
		slog.Debug("using cached MCTAL index", slog.String("path", path))
		return p, nil
	}
	p, err := mctal.Open(path)
	if err != nil {
		return nil, err
	}
	c.mctals[path] = p
	return p, nil
}

func (c *Cache) listing(path string, batch int) (*t4txt.Parser, error) {
	key := listingKey{path, batch}
	if p, ok := c.listings[key]; ok {
		slog.Debug("using cached listing index", slog.String("path", path))
		return p, nil
	}
	p, err := t4txt.Open(path, batch)
	if err != nil {
		return nil, err
	}
	c.listings[key] = p
	return p, nil
}

// Invalidate drops every cached object built from path.
func (c *Cache) Invalidate(path string) {
	delete(c.xmls, path)
	delete(c.mctals, path)
	for key := range c.listings {
		if key.path == path {
			delete(c.listings, key)
		}
	}
}

// Clear drops the whole cache.
func (c *Cache) Clear() {
	c.xmls = make(map[string]*t4xml.Extractor)
	c.mctals = make(map[string]*mctal.Parser)
	c.listings = make(map[listingKey]*t4txt.Parser)
}

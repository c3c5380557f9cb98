// Package t4txt parses free-form text listings that repeat one "edition" of
// results per simulation batch. A single forward scan records the byte range
// of every (score, region) data block in every edition, so that extraction
// can seek straight to the selected block.
package t4txt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/arekfu/posthoc/internal/result"
)

var (
	// Start of a new edition.
	editionStartPattern = regexp.MustCompile(`(?i)results are given for source intensity`)

	// Start of a new score sub-section.
	scoreStartPattern = regexp.MustCompile(`(?i)response function`)

	// SCORE NAME : flux_spectrum
	scoreNamePattern = regexp.MustCompile(`(?i)score name\s*:\s*(\S+)`)

	// Start of a region's data block.
	regionStartPattern = regexp.MustCompile(`(?i)spectrum results`)

	// number of batches used: 20
	batchCountPattern = regexp.MustCompile(`(?i)number of batches used\s*:\s*([0-9]+)`)

	// End of the edition.
	editionEndPattern = regexp.MustCompile(`(?i)simulation time`)

	//	1.000000e-01 - 2.000000e-01	6.1e-02	1.4e+00
	dataLinePattern = regexp.MustCompile(
		`^\s*([-+0-9.eE]+)\s*-\s*([-+0-9.eE]+)\s+(\S+)\s+(\S+)`)
)

// ErrNotFound marks a lookup failure (unknown score, region or batch).
var ErrNotFound = errors.New("not found")

// Last selects the most recently completed edition.
const Last = -1

type span struct {
	start, end int64
}

// edition holds, per score index, one byte range per region encountered.
type edition struct {
	batch int
	spans [][]span
	names []string
}

// Parser indexes the editions of one listing file.
type Parser struct {
	path       string
	editions   []edition
	scoreIndex map[string]int
	batch      int
}

// Open scans the file at path for the edition matching batch (or the last
// one, with Last). Scanning stops as soon as the requested edition has been
// completed.
func Open(path string, batch int) (*Parser, error) {
	p := &Parser{path: path, scoreIndex: make(map[string]int)}
	if err := p.scan(batch); err != nil {
		return nil, err
	}

	if batch == Last {
		if len(p.editions) == 0 {
			return nil, fmt.Errorf("no complete edition in %s: %w", path, ErrNotFound)
		}
		p.batch = p.editions[len(p.editions)-1].batch
	} else {
		p.batch = batch
	}

	if _, err := p.edition(); err != nil {
		return nil, err
	}

	// Score names are taken from the last edition scanned.
	last := p.editions[len(p.editions)-1]
	for i, name := range last.names {
		p.scoreIndex[name] = i
	}

	slog.Debug("indexed listing", slog.String("path", path),
		slog.Int("editions", len(p.editions)), slog.Int("batch", p.batch))
	return p, nil
}

func (p *Parser) scan(batch int) error {
	f, err := os.Open(p.path)
	if err != nil {
		return err
	}
	defer f.Close()

	var (
		current      edition
		scoreSpans   []span
		inEdition    bool
		pendingStart int64
		havePending  bool
	)

	flushScore := func() {
		if scoreSpans != nil {
			current.spans = append(current.spans, scoreSpans)
			scoreSpans = nil
		}
	}

	reader := bufio.NewReader(f)
	var offset int64
	for {
		lineStart := offset
		line, readErr := reader.ReadString('\n')
		offset += int64(len(line))

		switch {
		case editionStartPattern.MatchString(line):
			current = edition{}
			scoreSpans = nil
			havePending = false
			inEdition = true

		case !inEdition:
			// Ignore everything before the first edition header.

		case scoreStartPattern.MatchString(line):
			flushScore()

		case scoreNamePattern.MatchString(line):
			match := scoreNamePattern.FindStringSubmatch(line)
			current.names = append(current.names, match[1])

		case regionStartPattern.MatchString(line):
			pendingStart = offset
			havePending = true

		case batchCountPattern.MatchString(line):
			match := batchCountPattern.FindStringSubmatch(line)
			n, _ := strconv.Atoi(match[1])
			current.batch = n
			if havePending {
				scoreSpans = append(scoreSpans, span{start: pendingStart, end: lineStart})
				havePending = false
			}

		case editionEndPattern.MatchString(line):
			flushScore()
			p.editions = append(p.editions, current)
			inEdition = false
			if batch != Last && current.batch == batch {
				return nil
			}
		}

		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return readErr
		}
	}
}

func (p *Parser) edition() (*edition, error) {
	for i := range p.editions {
		if p.editions[i].batch == p.batch {
			return &p.editions[i], nil
		}
	}
	return nil, fmt.Errorf("batch %d in %s: %w", p.batch, p.path, ErrNotFound)
}

// Batch returns the batch number the parser resolved to.
func (p *Parser) Batch() int {
	return p.batch
}

// ScoreNames returns the declared score names in declaration order.
func (p *Parser) ScoreNames() []string {
	if len(p.editions) == 0 {
		return nil
	}
	return append([]string(nil), p.editions[len(p.editions)-1].names...)
}

// Result extracts the named score's data block for the region of the given
// rank (zero-based, in order of appearance).
func (p *Parser) Result(score string, regionRank int, divideByBin bool) (*result.Result, error) {
	idx, ok := p.scoreIndex[score]
	if !ok {
		return nil, fmt.Errorf("score %q in %s: %w", score, p.path, ErrNotFound)
	}
	return p.ResultAt(idx, regionRank, divideByBin)
}

// ResultAt is Result with the score addressed by index instead of name.
func (p *Parser) ResultAt(scoreIndex, regionRank int, divideByBin bool) (*result.Result, error) {
	ed, err := p.edition()
	if err != nil {
		return nil, err
	}
	if scoreIndex < 0 || scoreIndex >= len(ed.spans) {
		return nil, fmt.Errorf("score index %d in %s: %w", scoreIndex, p.path, ErrNotFound)
	}
	regions := ed.spans[scoreIndex]
	if regionRank < 0 || regionRank >= len(regions) {
		return nil, fmt.Errorf("region %d of score index %d in %s: %w",
			regionRank, scoreIndex, p.path, ErrNotFound)
	}

	return p.read(regions[regionRank], divideByBin)
}

// read parses the data lines inside one recorded byte range. The report
// omits contiguous bins whose content is exactly zero, so a zero gap bin is
// synthesized whenever the low edge of a row does not continue the high edge
// of the previous one.
func (p *Parser) read(sp span, divideByBin bool) (*result.Result, error) {
	f, err := os.Open(p.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if _, err := f.Seek(sp.start, io.SeekStart); err != nil {
		return nil, err
	}

	var edges, contents, errs []float64
	var prevHigh float64
	haveRows := false

	reader := bufio.NewReader(f)
	offset := sp.start
	for offset < sp.end {
		line, readErr := reader.ReadString('\n')
		offset += int64(len(line))

		if match := dataLinePattern.FindStringSubmatch(line); match != nil {
			lo, err := parseField(match[1])
			if err != nil {
				return nil, err
			}
			hi, err := parseField(match[2])
			if err != nil {
				return nil, err
			}
			val, err := parseField(match[3])
			if err != nil {
				return nil, err
			}
			relErr, err := parseField(match[4])
			if err != nil {
				return nil, err
			}

			if haveRows && lo != prevHigh {
				// Gap bin for the omitted zero-content range.
				edges = append(edges, prevHigh)
				contents = append(contents, 0)
				errs = append(errs, 0)
			}
			edges = append(edges, lo)
			contents = append(contents, val)
			errs = append(errs, relErr*val)
			prevHigh = hi
			haveRows = true
		}

		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return nil, readErr
		}
	}

	if !haveRows {
		return nil, fmt.Errorf("no data lines in block %d-%d of %s", sp.start, sp.end, p.path)
	}

	edges = append(edges, prevHigh)
	contents = append(contents, 0)
	errs = append(errs, 0)

	res := &result.Result{Edges: edges, Contents: contents, Errors: errs}
	if divideByBin {
		res.DivideByBinSize(result.PadLast)
	}
	return res, nil
}

func parseField(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("bad numeric field %q: %w", s, err)
	}
	return v, nil
}

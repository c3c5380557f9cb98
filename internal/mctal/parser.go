// Package mctal parses fixed-format MCTAL tally reports. An initial forward
// scan indexes the byte offset of every tally block; extraction then seeks
// straight to the requested tally and drives a line-by-line state machine to
// the requested zone's value block.
package mctal

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"sort"
	"strconv"

	"github.com/arekfu/posthoc/internal/result"
	"github.com/arekfu/posthoc/utils"
)

var (
	// tally   14
	tallyPattern = regexp.MustCompile(`(?i)^tally +([0-9]+)`)

	// f        2
	zoneCountPattern = regexp.MustCompile(`(?i)^f +([0-9]+)`)

	// et / e / t / u / s / m / c followed by the grid size, e.g. "e    41"
	gridHeaderPattern = regexp.MustCompile(`(?i)^([usmcet][tc]?) +([0-9]+)`)

	// vals
	valsPattern = regexp.MustCompile(`(?i)^vals`)
)

// ErrNotFound marks a lookup failure (unknown tally or zone).
var ErrNotFound = errors.New("not found")

// StateError reports that the value block ended before the state machine
// finished, naming the last state reached.
type StateError struct {
	Last state
}

func (e *StateError) Error() string {
	return fmt.Sprintf("reached end of file in state %q", e.Last)
}

type tallyZone struct {
	tally int
	zone  int
}

// Parser extracts (tally, zone) results from one MCTAL file. The tally index
// is built once at open time; extracted results are cached per selection.
type Parser struct {
	path    string
	offsets map[int]int64
	cache   map[tallyZone]*result.Result
}

// Open indexes the tally blocks of the file at path.
func Open(path string) (*Parser, error) {
	p := &Parser{
		path:    path,
		offsets: make(map[int]int64),
		cache:   make(map[tallyZone]*result.Result),
	}
	if err := p.scan(); err != nil {
		return nil, err
	}
	return p, nil
}

// scan records, for every tally header, the byte offset of the line that
// follows it.
func (p *Parser) scan() error {
	f, err := os.Open(p.path)
	if err != nil {
		return err
	}
	defer f.Close()

	reader := bufio.NewReader(f)
	var offset int64
	for {
		line, err := reader.ReadString('\n')
		offset += int64(len(line))
		if match := tallyPattern.FindStringSubmatch(line); match != nil {
			num, _ := strconv.Atoi(match[1])
			slog.Debug("found tally", slog.Int("tally", num), slog.Int64("offset", offset))
			p.offsets[num] = offset
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// Tallies returns the indexed tally numbers in ascending order.
func (p *Parser) Tallies() []int {
	nums := make([]int, 0, len(p.offsets))
	for n := range p.offsets {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}

// Result returns the result for the given tally and zone, extracting it on
// first request and serving a copy of the cached value afterwards.
func (p *Parser) Result(tally, zone int) (*result.Result, error) {
	key := tallyZone{tally, zone}
	if res, ok := p.cache[key]; ok {
		return res.Clone(), nil
	}
	res, err := p.extract(tally, zone)
	if err != nil {
		return nil, err
	}
	p.cache[key] = res
	return res.Clone(), nil
}

func (p *Parser) extract(tally, zone int) (*result.Result, error) {
	offset, ok := p.offsets[tally]
	if !ok {
		return nil, fmt.Errorf("tally %d in %s: %w", tally, p.path, ErrNotFound)
	}

	f, err := os.Open(p.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, err
	}

	m := newMachine(zone)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if err := m.step(scanner.Text()); err != nil {
			return nil, err
		}
		if m.state == stateDone {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if m.state != stateDone {
		return nil, &StateError{Last: m.state}
	}

	ys := append(m.ys, 0)
	eys := append(m.eys, 0)
	if len(m.xs) != len(ys) || len(ys) != len(eys) {
		return nil, fmt.Errorf("inconsistent lengths of x (%d)/y (%d)/ey (%d) arrays",
			len(m.xs), len(ys), len(eys))
	}

	// The file carries relative errors; normalize to absolute.
	for i := range eys {
		eys[i] *= ys[i]
	}
	// Bin-width uncertainties are the grid spacings, padded to match.
	exs := append(utils.Diff(m.xs), 0)

	slog.Debug("extracted tally",
		slog.Int("tally", tally), slog.Int("zone", zone), slog.Int("bins", len(ys)-1))

	return &result.Result{Edges: m.xs, Contents: ys, Errors: eys, XErrors: exs}, nil
}

package mctal

import (
	"fmt"
	"strconv"
	"strings"
)

type state int

const (
	stateSearchZoneCount state = iota
	stateReadZoneList
	stateSearchGridHeader
	stateReadGridValues
	stateSearchValueBlock
	stateSkipToZoneOffset
	stateReadValuePairs
	stateDone
)

func (s state) String() string {
	switch s {
	case stateSearchZoneCount:
		return "search-zone-count"
	case stateReadZoneList:
		return "read-zone-list"
	case stateSearchGridHeader:
		return "search-grid-header"
	case stateReadGridValues:
		return "read-grid-values"
	case stateSearchValueBlock:
		return "search-value-block"
	case stateSkipToZoneOffset:
		return "skip-to-zone-offset"
	case stateReadValuePairs:
		return "read-value-pairs"
	case stateDone:
		return "done"
	}
	return "unknown"
}

// machine extracts one (tally, zone) value block, one line at a time. It
// starts just after a tally header and is done once the requested zone's
// value/error pairs have been read in full.
type machine struct {
	zone int

	state     state
	nZones    int
	zones     []int
	zoneIndex int
	nVals     int
	xs        []float64
	mustSkip  int
	ys        []float64
	eys       []float64
}

func newMachine(zone int) *machine {
	return &machine{zone: zone, state: stateSearchZoneCount}
}

// step advances the machine by one line. When zone-skip accounting overshoots
// mid-line, the leftover tokens of that same line are handed straight to the
// value reader; that same-line fallthrough is load-bearing, because a zone's
// value block can start anywhere inside a line.
func (m *machine) step(line string) error {
	switch m.state {
	case stateSearchZoneCount:
		if match := zoneCountPattern.FindStringSubmatch(line); match != nil {
			n, _ := strconv.Atoi(match[1])
			if n > 0 {
				m.nZones = n
				m.state = stateReadZoneList
			}
		}

	case stateReadZoneList:
		for _, tok := range strings.Fields(line) {
			z, err := strconv.Atoi(tok)
			if err != nil {
				return fmt.Errorf("bad zone number %q: %w", tok, err)
			}
			m.zones = append(m.zones, z)
		}
		if len(m.zones) >= m.nZones {
			idx := -1
			for i, z := range m.zones {
				if z == m.zone {
					idx = i
					break
				}
			}
			if idx < 0 {
				return fmt.Errorf("zone %d: %w", m.zone, ErrNotFound)
			}
			m.zoneIndex = idx
			m.state = stateSearchGridHeader
		}

	case stateSearchGridHeader:
		if match := gridHeaderPattern.FindStringSubmatch(line); match != nil {
			n, _ := strconv.Atoi(match[2])
			if n-1 > 0 {
				m.nVals = n - 1
				m.state = stateReadGridValues
			}
		}

	case stateReadGridValues:
		vals, err := parseFloats(strings.Fields(line))
		if err != nil {
			return err
		}
		m.xs = append(m.xs, vals...)
		if len(m.xs) >= m.nVals {
			m.xs = m.xs[:m.nVals]
			m.state = stateSearchValueBlock
		}

	case stateSearchValueBlock:
		if valsPattern.MatchString(line) {
			// Each grid point of each preceding zone contributes a value and
			// an error token.
			m.mustSkip = 2 * m.zoneIndex * (m.nVals + 1)
			m.state = stateSkipToZoneOffset
		}

	case stateSkipToZoneOffset:
		tokens := strings.Fields(line)
		m.mustSkip -= len(tokens)
		if m.mustSkip < 0 {
			rest := tokens[len(tokens)+m.mustSkip:]
			m.state = stateReadValuePairs
			return m.readPairs(rest)
		}

	case stateReadValuePairs:
		return m.readPairs(strings.Fields(line))
	}

	return nil
}

// readPairs splits the interleaved value/error stream by parity of position
// within the handed tokens.
func (m *machine) readPairs(tokens []string) error {
	vals, err := parseFloats(tokens)
	if err != nil {
		return err
	}
	for i, v := range vals {
		if i%2 == 0 {
			m.ys = append(m.ys, v)
		} else {
			m.eys = append(m.eys, v)
		}
	}
	if len(m.ys) >= m.nVals+1 {
		// The first pair of each zone block is a total, not a bin value.
		m.ys = m.ys[1:m.nVals]
		m.eys = m.eys[1:m.nVals]
		m.state = stateDone
	}
	return nil
}

func parseFloats(tokens []string) ([]float64, error) {
	out := make([]float64, 0, len(tokens))
	for _, tok := range tokens {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, fmt.Errorf("bad numeric token %q: %w", tok, err)
		}
		out = append(out, v)
	}
	return out, nil
}

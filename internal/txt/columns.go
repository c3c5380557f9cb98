package txt

import (
	"fmt"
	"strconv"
	"strings"
)

// ColumnTokenizer builds a Tokenizer from a column specification of the form
// "i:j[:k[:l]]" giving the zero-based token indices of x, y and optionally
// ey and ex. Characters in commentChars introduce a trailing comment;
// characters in delimiterChars split the line into tokens.
func ColumnTokenizer(columnSpec, commentChars, delimiterChars string) (Tokenizer, error) {
	parts := strings.Split(columnSpec, ":")
	if len(parts) < 2 || len(parts) > 4 {
		return nil, fmt.Errorf("column spec %q must contain 2, 3 or 4 indices", columnSpec)
	}
	indices := make([]int, len(parts))
	for i, p := range parts {
		idx, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("column spec %q: %w", columnSpec, err)
		}
		indices[i] = idx
	}

	return func(line string) ([]float64, error) {
		stripped := strings.TrimSpace(line)
		if i := strings.IndexAny(stripped, commentChars); i >= 0 {
			stripped = stripped[:i]
		}

		tokens := strings.FieldsFunc(stripped, func(r rune) bool {
			return strings.ContainsRune(delimiterChars, r)
		})
		if len(tokens) == 0 {
			return nil, nil
		}

		fields := make([]float64, len(indices))
		for i, idx := range indices {
			if idx >= len(tokens) {
				return nil, fmt.Errorf("column %d out of range, line has %d tokens", idx, len(tokens))
			}
			v, err := strconv.ParseFloat(tokens[idx], 64)
			if err != nil {
				return nil, fmt.Errorf("column %d: %w", idx, err)
			}
			fields[i] = v
		}
		return fields, nil
	}, nil
}

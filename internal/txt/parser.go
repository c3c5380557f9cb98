// Package txt turns arbitrary line-oriented text files into results via a
// caller-supplied per-line tokenizer.
package txt

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"

	"github.com/arekfu/posthoc/internal/result"
)

// Tokenizer examines one line and returns its numeric fields in the order
// (x, y[, ey[, ex]]), or nil to skip the line. Returning between 2 and 4
// fields is the caller's contract; the parser enforces that the count never
// changes mid-file.
type Tokenizer func(line string) ([]float64, error)

type ParseError struct {
	Line    string
	LineNum int
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d: %v", e.LineNum, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

type Parser struct {
	path     string
	tokenize Tokenizer
}

func New(path string, tokenize Tokenizer) *Parser {
	return &Parser{path: path, tokenize: tokenize}
}

// Result parses the whole file and assembles the accepted tuples column-wise.
// Absent optional columns stay absent in the result; they are not zero-filled.
func (p *Parser) Result() (*result.Result, error) {
	f, err := os.Open(p.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var xs, ys, eys, exs []float64
	nFields := 0

	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		fields, err := p.tokenize(line)
		if err != nil {
			return nil, &ParseError{Line: line, LineNum: lineNum, Err: err}
		}
		if fields == nil {
			continue
		}
		slog.Debug("tokenized line", slog.Int("line", lineNum), slog.Any("fields", fields))

		if nFields == 0 {
			nFields = len(fields)
			if nFields < 2 || nFields > 4 {
				return nil, &ParseError{Line: line, LineNum: lineNum,
					Err: fmt.Errorf("tokenizer returned %d fields, want 2 to 4", nFields)}
			}
		}
		if len(fields) != nFields {
			return nil, &ParseError{Line: line, LineNum: lineNum,
				Err: fmt.Errorf("inconsistent number of fields: expected %d, got %d", nFields, len(fields))}
		}

		xs = append(xs, fields[0])
		ys = append(ys, fields[1])
		if nFields >= 3 {
			eys = append(eys, fields[2])
		}
		if nFields == 4 {
			exs = append(exs, fields[3])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return &result.Result{Edges: xs, Contents: ys, Errors: eys, XErrors: exs}, nil
}

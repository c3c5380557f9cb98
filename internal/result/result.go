// Package result holds the canonical binned-result data model shared by all
// report extractors, plus the arithmetic needed to combine results while
// propagating statistical uncertainties.
package result

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/arekfu/posthoc/utils"
)

// Epsilon of float64, used to derive the default edge-comparison tolerance.
const eps = 2.220446049250313e-16

// Tolerance, when set to a non-zero value, overrides the default absolute
// tolerance used to compare bin edges in binary operations.
var Tolerance float64

var (
	ErrIncompatibleEdges = errors.New("results have incompatible edges")
	ErrEmpty             = errors.New("empty result operand")
)

// Pad selects which bin reuses an assumed width of 1 when dividing or
// multiplying by bin size. Widths have one fewer element than edges, so one
// end has to be padded.
type Pad int

const (
	PadFirst Pad = iota
	PadLast
)

// Result is a binned histogram-like result. Edges holds the bin boundaries;
// Contents holds one value per boundary, the last entry being a 0 sentinel
// for "beyond the last real bin" so that all four arrays share one length.
// Errors (standard deviations) and XErrors (bin-width uncertainties) are
// optional; nil means the uncertainty is not tracked, which is not the same
// thing as zero.
type Result struct {
	Edges    []float64
	Contents []float64
	Errors   []float64
	XErrors  []float64
}

// New builds a Result, deep-copying every slice so the caller cannot alias
// the internal arrays.
func New(edges, contents, errors, xerrors []float64) *Result {
	return &Result{
		Edges:    utils.Clone(edges),
		Contents: utils.Clone(contents),
		Errors:   utils.Clone(errors),
		XErrors:  utils.Clone(xerrors),
	}
}

func (r *Result) String() string {
	return fmt.Sprintf("(%v, %v, %v, %v)", r.Edges, r.Contents, r.Errors, r.XErrors)
}

// Len returns the number of edges (one more than the number of real bins).
func (r *Result) Len() int {
	return len(r.Edges)
}

// Clone returns a deep copy.
func (r *Result) Clone() *Result {
	return New(r.Edges, r.Contents, r.Errors, r.XErrors)
}

func (r *Result) checkEdges(other *Result) error {
	if len(r.Edges) == 0 || len(other.Edges) == 0 {
		return ErrEmpty
	}

	tol := Tolerance
	if tol == 0 {
		tol = 100. * eps
	}

	if len(r.Edges) != len(other.Edges) {
		return fmt.Errorf("edges have different sizes: %d != %d: %w",
			len(r.Edges), len(other.Edges), ErrIncompatibleEdges)
	}
	if !utils.AllClose(r.Edges, other.Edges, tol) {
		return fmt.Errorf("edges differ by more than tolerance %g: %w", tol, ErrIncompatibleEdges)
	}

	if r.XErrors == nil || other.XErrors == nil {
		return nil
	}
	if len(r.XErrors) != len(other.XErrors) {
		return fmt.Errorf("xerrors have different sizes: %d != %d: %w",
			len(r.XErrors), len(other.XErrors), ErrIncompatibleEdges)
	}
	if !utils.AllClose(r.XErrors, other.XErrors, tol) {
		return fmt.Errorf("xerrors differ by more than tolerance %g: %w", tol, ErrIncompatibleEdges)
	}
	return nil
}

// sumErrors combines two optional error arrays in quadrature. If only one is
// present it passes through; if neither is, the combination stays absent.
func sumErrors(a, b []float64) []float64 {
	switch {
	case a != nil && b != nil:
		out := make([]float64, len(a))
		for i := range a {
			out[i] = math.Sqrt(a[i]*a[i] + b[i]*b[i])
		}
		return out
	case b != nil:
		return utils.Clone(b)
	default:
		return utils.Clone(a)
	}
}

// Add returns a new result with the operand added. Adding a scalar shifts the
// contents and leaves the errors alone; adding another result combines the
// errors in quadrature.
func (r *Result) Add(o Operand) (*Result, error) {
	return r.addSub(o, 1.)
}

// Sub returns a new result with the operand subtracted. Uncertainties combine
// exactly as in Add.
func (r *Result) Sub(o Operand) (*Result, error) {
	return r.addSub(o, -1.)
}

func (r *Result) addSub(o Operand, sign float64) (*Result, error) {
	out := &Result{
		Edges:   utils.Clone(r.Edges),
		XErrors: utils.Clone(r.XErrors),
	}
	if o.IsScalar() {
		out.Contents = make([]float64, len(r.Contents))
		for i, c := range r.Contents {
			out.Contents[i] = c + sign*o.Value
		}
		out.Errors = utils.Clone(r.Errors)
		return out, nil
	}

	other := o.Result
	if err := r.checkEdges(other); err != nil {
		return nil, err
	}
	out.Contents = make([]float64, len(r.Contents))
	for i := range r.Contents {
		out.Contents[i] = r.Contents[i] + sign*other.Contents[i]
	}
	out.Errors = sumErrors(r.Errors, other.Errors)
	return out, nil
}

// Mul returns a new result with the operand multiplied in. Multiplying by a
// scalar scales contents and errors by the same factor; a scalar is not an
// independent measurement, so no quadrature is involved. Multiplying two
// results uses the propagated-product formula.
func (r *Result) Mul(o Operand) (*Result, error) {
	out := &Result{
		Edges:   utils.Clone(r.Edges),
		XErrors: utils.Clone(r.XErrors),
	}
	if o.IsScalar() {
		out.Contents = scaled(r.Contents, o.Value)
		out.Errors = scaled(r.Errors, o.Value)
		return out, nil
	}

	other := o.Result
	if err := r.checkEdges(other); err != nil {
		return nil, err
	}
	out.Contents = make([]float64, len(r.Contents))
	for i := range r.Contents {
		out.Contents[i] = r.Contents[i] * other.Contents[i]
	}
	switch {
	case r.Errors != nil && other.Errors != nil:
		out.Errors = make([]float64, len(r.Contents))
		for i := range r.Contents {
			a := r.Contents[i] * other.Errors[i]
			b := r.Errors[i] * other.Contents[i]
			out.Errors[i] = math.Sqrt(a*a + b*b)
		}
	case other.Errors != nil:
		out.Errors = make([]float64, len(r.Contents))
		for i := range r.Contents {
			out.Errors[i] = r.Contents[i] * other.Errors[i]
		}
	case r.Errors != nil:
		out.Errors = make([]float64, len(r.Contents))
		for i := range r.Contents {
			out.Errors[i] = r.Errors[i] * other.Contents[i]
		}
	}
	return out, nil
}

// Div returns a new result with the receiver divided by the operand. Invalid
// floating-point outcomes (0/0 and friends) are mapped to 0 in both contents
// and errors rather than being left as NaN, so low-statistics bins do not
// poison downstream ratios.
func (r *Result) Div(o Operand) (*Result, error) {
	out := &Result{
		Edges:   utils.Clone(r.Edges),
		XErrors: utils.Clone(r.XErrors),
	}
	if o.IsScalar() {
		out.Contents = scaled(r.Contents, 1./o.Value)
		out.Errors = scaled(r.Errors, 1./o.Value)
		return out, nil
	}

	other := o.Result
	if err := r.checkEdges(other); err != nil {
		return nil, err
	}
	out.Contents = make([]float64, len(r.Contents))
	for i := range r.Contents {
		out.Contents[i] = finiteOrZero(r.Contents[i] / other.Contents[i])
	}
	switch {
	case r.Errors != nil && other.Errors != nil:
		out.Errors = make([]float64, len(r.Contents))
		for i := range r.Contents {
			ra := r.Errors[i] / r.Contents[i]
			rb := other.Errors[i] / other.Contents[i]
			out.Errors[i] = finiteOrZero(out.Contents[i] * math.Sqrt(ra*ra+rb*rb))
		}
	case other.Errors != nil:
		out.Errors = make([]float64, len(r.Contents))
		for i := range r.Contents {
			out.Errors[i] = finiteOrZero(out.Contents[i] * other.Errors[i] / other.Contents[i])
		}
	case r.Errors != nil:
		out.Errors = make([]float64, len(r.Contents))
		for i := range r.Contents {
			out.Errors[i] = finiteOrZero(r.Errors[i] / other.Contents[i])
		}
	}
	return out, nil
}

func scaled(xs []float64, factor float64) []float64 {
	if xs == nil {
		return nil
	}
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = x * factor
	}
	return out
}

func finiteOrZero(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return x
}

// Slice returns a new result restricted to the half-open edge range [lo, hi).
func (r *Result) Slice(lo, hi int) *Result {
	out := &Result{
		Edges:    utils.Clone(r.Edges[lo:hi]),
		Contents: utils.Clone(r.Contents[lo:hi]),
	}
	if r.Errors != nil {
		out.Errors = utils.Clone(r.Errors[lo:hi])
	}
	if r.XErrors != nil {
		out.XErrors = utils.Clone(r.XErrors[lo:hi])
	}
	return out
}

// Rebin groups every n consecutive real bins into one. With mean set the
// group content is the average, otherwise the sum; errors and xerrors combine
// per group as the square root of the mean (or sum) of squares. The sentinel
// bin is re-appended afterwards.
func (r *Result) Rebin(n int, mean bool) error {
	nEdges := len(r.Edges)
	nBins := nEdges - 1
	if n <= 0 || nBins%n != 0 {
		return fmt.Errorf("cannot rebin %d bins by groups of %d", nBins, n)
	}

	edges := make([]float64, 0, nBins/n+1)
	for i := 0; i < nEdges; i += n {
		edges = append(edges, r.Edges[i])
	}
	r.Edges = edges

	r.Contents = regroup(r.Contents[:nBins], n, mean, false)
	if r.Errors != nil {
		r.Errors = regroup(r.Errors[:nBins], n, mean, true)
	}
	if r.XErrors != nil {
		r.XErrors = regroup(r.XErrors[:nBins], n, mean, true)
	}

	slog.Debug("rebin", slog.Int("n", n), slog.String("result", r.String()))
	return nil
}

// regroup collapses consecutive groups of n values into one value each and
// appends the 0 sentinel. With quadrature set, values combine as
// sqrt(mean-or-sum of squares) instead of plain mean-or-sum.
func regroup(xs []float64, n int, mean, quadrature bool) []float64 {
	out := make([]float64, 0, len(xs)/n+1)
	for i := 0; i < len(xs); i += n {
		acc := 0.0
		for _, x := range xs[i : i+n] {
			if quadrature {
				acc += x * x
			} else {
				acc += x
			}
		}
		if mean {
			acc /= float64(n)
		}
		if quadrature {
			acc = math.Sqrt(acc)
		}
		out = append(out, acc)
	}
	return append(out, 0)
}

// RescaleEdges multiplies the edges (and xerrors, if present) by factor. With
// rescaleContents set, contents and errors are divided by the same factor,
// which preserves the integral under a pure axis unit change.
func (r *Result) RescaleEdges(factor float64, rescaleContents bool) {
	for i := range r.Edges {
		r.Edges[i] *= factor
	}
	r.XErrors = scaled(r.XErrors, factor)
	if rescaleContents {
		for i := range r.Contents {
			r.Contents[i] /= factor
		}
		r.Errors = scaled(r.Errors, 1./factor)
	}
	slog.Debug("rescale_edges", slog.Float64("factor", factor), slog.String("result", r.String()))
}

// RescaleErrors multiplies the errors, if present, by factor.
func (r *Result) RescaleErrors(factor float64) {
	r.Errors = scaled(r.Errors, factor)
}

// AppendBin adds one bin at the high end. A nil edge extrapolates the last
// bin width.
func (r *Result) AppendBin(edge *float64, content, errVal, xerror float64) {
	newEdge := 0.0
	if edge != nil {
		newEdge = *edge
	} else {
		n := len(r.Edges)
		newEdge = 2.*r.Edges[n-1] - r.Edges[n-2]
	}
	r.Edges = append(r.Edges, newEdge)
	r.Contents = append(r.Contents, content)
	if r.Errors != nil {
		r.Errors = append(r.Errors, errVal)
	}
	if r.XErrors != nil {
		r.XErrors = append(r.XErrors, xerror)
	}
}

// Chop zeroes every content strictly below threshold, along with its paired
// error, so that spurious low-statistics tails cannot dominate ratios.
func (r *Result) Chop(threshold float64) {
	for i, c := range r.Contents {
		if c < threshold {
			r.Contents[i] = 0
			if r.Errors != nil {
				r.Errors[i] = 0
			}
		}
	}
}

// binSizes returns the per-bin widths padded with an assumed width of 1 on
// the side selected by pad, so the array lines up with contents.
func (r *Result) binSizes(pad Pad) []float64 {
	widths := utils.Diff(r.Edges)
	if pad == PadFirst {
		return append([]float64{1.}, widths...)
	}
	return append(widths, 1.)
}

// DivideByBinSize divides contents and errors by the per-bin width.
func (r *Result) DivideByBinSize(pad Pad) {
	sizes := r.binSizes(pad)
	for i := range r.Contents {
		r.Contents[i] /= sizes[i]
	}
	if r.Errors != nil {
		for i := range r.Errors {
			r.Errors[i] /= sizes[i]
		}
	}
}

// MultiplyByBinSize multiplies contents and errors by the per-bin width.
func (r *Result) MultiplyByBinSize(pad Pad) {
	sizes := r.binSizes(pad)
	for i := range r.Contents {
		r.Contents[i] *= sizes[i]
	}
	if r.Errors != nil {
		for i := range r.Errors {
			r.Errors[i] *= sizes[i]
		}
	}
}

// Integrate sums the non-sentinel contents, optionally weighted by bin width.
// This is a left-Riemann integral, consistent with the step-function reading
// of the data.
func (r *Result) Integrate(multiplyByBin bool) float64 {
	sum := 0.0
	if multiplyByBin {
		widths := utils.Diff(r.Edges)
		for i, w := range widths {
			sum += r.Contents[i] * w
		}
		return sum
	}
	return utils.Sum(r.Contents[:len(r.Contents)-1])
}

// BinCenters returns a derived result whose contents are the bin midpoints,
// with the trailing entry synthesized by linear extrapolation of the last two
// centers. Useful to adapt a result for marker-style consumers.
func (r *Result) BinCenters() *Result {
	n := len(r.Edges)
	centers := make([]float64, 0, n)
	for i := 0; i < n-1; i++ {
		centers = append(centers, 0.5*(r.Edges[i]+r.Edges[i+1]))
	}
	centers = append(centers, 2.*centers[n-2]-centers[n-3])
	return &Result{
		Edges:    utils.Clone(r.Edges),
		Contents: centers,
	}
}

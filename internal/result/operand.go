package result

// Operand is the right-hand side of an arithmetic operation: either a bare
// number or another result. Resolving the variant once per call replaces the
// duck-typed dispatch that each operator would otherwise need.
type Operand struct {
	Result *Result
	Value  float64
}

// Scalar wraps a number as an operand.
func Scalar(v float64) Operand {
	return Operand{Value: v}
}

// Term wraps another result as an operand.
func Term(r *Result) Operand {
	return Operand{Result: r}
}

func (o Operand) IsScalar() bool {
	return o.Result == nil
}

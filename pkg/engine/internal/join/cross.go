package join

import (
	"github.com/JacekPliszka/polars/pkg/engine/internal/errors"
)

// Cross returns the Cartesian product of nLeft and nRight rows in left-major
// order. A positive maxRows limits the size of the product.
func Cross(nLeft, nRight, maxRows int) (Indices, error) {
	total := int64(nLeft) * int64(nRight)
	if maxRows > 0 && total > int64(maxRows) {
		return Indices{}, errors.Computef("cross join", "product of %d and %d rows exceeds the limit of %d rows", nLeft, nRight, maxRows)
	}

	out := Indices{Left: make([]int, 0, total), Right: make([]int, 0, total)}
	for l := 0; l < nLeft; l++ {
		for r := 0; r < nRight; r++ {
			out.Left = append(out.Left, l)
			out.Right = append(out.Right, r)
		}
	}
	return out, nil
}

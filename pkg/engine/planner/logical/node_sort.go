package logical

import (
	"github.com/JacekPliszka/polars/pkg/engine/internal/errors"
	"github.com/JacekPliszka/polars/pkg/engine/types"
)

// SortKey is one sort criterion.
type SortKey struct {
	Expr       Expr
	Descending bool
	NullsLast  bool
}

func (k SortKey) String() string {
	s := k.Expr.String()
	if k.Descending {
		s += " desc"
	}
	if k.NullsLast {
		s += " nulls_last"
	}
	return s
}

// Sort orders the rows of Input by Keys. Sorting is stable: rows with equal
// keys keep their input order.
type Sort struct {
	Input Plan
	Keys  []SortKey
}

func (s *Sort) Type() PlanType { return PlanTypeSort }
func (s *Sort) Inputs() []Plan { return []Plan{s.Input} }

func (s *Sort) Schema() (types.Schema, error) {
	schema, err := s.Input.Schema()
	if err != nil {
		return types.Schema{}, err
	}
	if len(s.Keys) == 0 {
		return types.Schema{}, errors.Shapef("sort", "no sort keys")
	}
	for _, k := range s.Keys {
		if ContainsAggregate(k.Expr) {
			return types.Schema{}, errors.Computef(k.Expr.String(), "aggregations are not allowed in sort keys")
		}
		t, err := TypeOf(k.Expr, schema)
		if err != nil {
			return types.Schema{}, err
		}
		if !t.IsOrdered() && t != types.Null {
			return types.Schema{}, errors.DataTypef(k.Expr.String(), "cannot sort by %s", t)
		}
	}
	return schema, nil
}

func (s *Sort) SortedBy() []string {
	var sorted []string
	for _, k := range s.Keys {
		c, ok := k.Expr.(*ColumnExpr)
		if !ok || k.Descending || k.NullsLast {
			break
		}
		sorted = append(sorted, c.Name)
	}
	return sorted
}

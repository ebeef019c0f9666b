package logical

import (
	"slices"

	"github.com/JacekPliszka/polars/pkg/engine/internal/errors"
	"github.com/JacekPliszka/polars/pkg/engine/types"
)

// SliceRange selects Length rows starting at row Offset.
type SliceRange struct {
	Offset, Length int
}

// Scan reads a [Source]. The optimizer pushes column selections, predicates
// and row ranges into scans.
type Scan struct {
	Source Source

	// Projection lists the output columns. Nil outputs all source columns.
	Projection []string

	// Predicate filters source rows. It may reference any source column,
	// including columns not in Projection.
	Predicate Expr

	// Slice is applied after Predicate.
	Slice *SliceRange
}

func (s *Scan) Type() PlanType { return PlanTypeScan }
func (s *Scan) Inputs() []Plan { return nil }

func (s *Scan) Schema() (types.Schema, error) {
	full, err := s.Source.Schema()
	if err != nil {
		return types.Schema{}, err
	}
	if s.Predicate != nil {
		if !IsRowLocal(s.Predicate) {
			return types.Schema{}, errors.Computef(s.Predicate.String(), "scan predicates must be row-wise expressions")
		}
		if err := checkPredicate(s.Predicate, full); err != nil {
			return types.Schema{}, err
		}
	}
	if s.Projection == nil {
		return full, nil
	}

	fields := make([]types.Field, 0, len(s.Projection))
	for _, name := range s.Projection {
		f, ok := full.Field(name)
		if !ok {
			return types.Schema{}, errors.Schemaf(name, "column not found in source %s", s.Source.Name())
		}
		fields = append(fields, f)
	}
	return types.NewSchema(fields...), nil
}

func (s *Scan) SortedBy() []string {
	if s.Projection == nil {
		return s.Source.SortedBy()
	}
	return truncateSorted(s.Source.SortedBy(), func(name string) bool {
		return slices.Contains(s.Projection, name)
	})
}

// ReadColumns returns the source columns a scan needs to read: its
// projection plus the columns referenced by its predicate. Nil means all.
func (s *Scan) ReadColumns() []string {
	if s.Projection == nil {
		return nil
	}
	cols := slices.Clone(s.Projection)
	if s.Predicate != nil {
		for _, name := range Columns(s.Predicate) {
			if !slices.Contains(cols, name) {
				cols = append(cols, name)
			}
		}
	}
	return cols
}

// checkPredicate validates that pred evaluates to a boolean per row of
// schema. Aggregates in pred are broadcast to every row.
func checkPredicate(pred Expr, schema types.Schema) error {
	if IsScalar(pred) && ContainsAggregate(pred) {
		return errors.Computef(pred.String(), "predicate must reference a column outside of aggregations")
	}
	t, err := TypeOf(pred, schema)
	if err != nil {
		return err
	}
	if t != types.Bool && t != types.Null {
		return errors.DataTypef(pred.String(), "predicate must be Bool, got %s", t)
	}
	return nil
}

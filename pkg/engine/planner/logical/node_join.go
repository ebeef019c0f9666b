package logical

import (
	"github.com/JacekPliszka/polars/pkg/engine/internal/errors"
	"github.com/JacekPliszka/polars/pkg/engine/internal/join"
	"github.com/JacekPliszka/polars/pkg/engine/types"
)

// AsOfOptions configure an as-of join.
type AsOfOptions struct {
	Strategy types.AsOfStrategy

	// Tolerance bounds the distance between matched keys, in key units.
	// It only applies if HasTolerance is set.
	Tolerance    float64
	HasTolerance bool

	// LeftBy and RightBy name columns that must be equal for rows to match.
	LeftBy, RightBy []string
}

// JoinOptions configure a [Join].
type JoinOptions struct {
	Type types.JoinType

	// LeftOn and RightOn are the key expressions, evaluated against the left
	// and right input. An as-of join takes exactly one key on each side.
	LeftOn, RightOn []Expr

	// Suffix is appended to right column names that collide with left
	// column names. Empty means [join.DefaultSuffix].
	Suffix string

	Validate types.JoinValidation

	// JoinNulls lets null keys match each other.
	JoinNulls bool

	// Coalesce merges the key columns of an outer join into the left key
	// columns.
	Coalesce bool

	AsOf AsOfOptions
}

// Join combines the rows of Left and Right.
type Join struct {
	Left, Right Plan
	JoinOptions
}

func (j *Join) Type() PlanType { return PlanTypeJoin }
func (j *Join) Inputs() []Plan { return []Plan{j.Left, j.Right} }

func (j *Join) Schema() (types.Schema, error) {
	cols, _, _, err := j.Layout()
	if err != nil {
		return types.Schema{}, err
	}
	return join.Schema(cols), nil
}

func (j *Join) SortedBy() []string {
	if j.JoinOptions.Type == types.JoinTypeOuter {
		return nil
	}
	return j.Left.SortedBy()
}

// Layout validates the join and returns its output columns along with the
// schemas of both inputs.
func (j *Join) Layout() ([]join.OutputColumn, types.Schema, types.Schema, error) {
	left, err := j.Left.Schema()
	if err != nil {
		return nil, left, types.Schema{}, err
	}
	right, err := j.Right.Schema()
	if err != nil {
		return nil, left, right, err
	}

	keys, err := j.checkKeys(left, right)
	if err != nil {
		return nil, left, right, err
	}
	cols, err := join.Layout(left, right, join.LayoutOptions{
		Type:     j.JoinOptions.Type,
		Suffix:   j.Suffix,
		Coalesce: j.Coalesce,
		Keys:     keys,
	})
	return cols, left, right, err
}

func (j *Join) checkKeys(left, right types.Schema) ([]join.KeyPair, error) {
	switch j.JoinOptions.Type {
	case types.JoinTypeCross:
		if len(j.LeftOn) > 0 || len(j.RightOn) > 0 {
			return nil, errors.Computef("cross join", "cross joins take no keys")
		}
		return nil, nil
	case types.JoinTypeInner, types.JoinTypeLeft, types.JoinTypeOuter, types.JoinTypeSemi, types.JoinTypeAnti, types.JoinTypeAsOf:
	default:
		return nil, errors.Computef("join", "invalid join type %s", j.JoinOptions.Type)
	}

	if len(j.LeftOn) != len(j.RightOn) {
		return nil, errors.Shapef("join", "%d left keys but %d right keys", len(j.LeftOn), len(j.RightOn))
	}
	if len(j.LeftOn) == 0 {
		return nil, errors.Shapef("join", "%s join requires at least one key", j.JoinOptions.Type)
	}
	if j.JoinOptions.Type == types.JoinTypeAsOf && len(j.LeftOn) != 1 {
		return nil, errors.Shapef("asof join", "as-of joins take exactly one key, got %d", len(j.LeftOn))
	}

	keys := make([]join.KeyPair, 0, len(j.LeftOn)+len(j.AsOf.LeftBy))
	for i := range j.LeftOn {
		l, r := j.LeftOn[i], j.RightOn[i]
		if err := checkJoinKey(l, r, left, right, j.JoinOptions.Type == types.JoinTypeAsOf); err != nil {
			return nil, err
		}
		lc, lok := l.(*ColumnExpr)
		rc, rok := r.(*ColumnExpr)
		if lok && rok {
			keys = append(keys, join.KeyPair{Left: lc.Name, Right: rc.Name})
		}
	}

	if j.JoinOptions.Type != types.JoinTypeAsOf {
		if len(j.AsOf.LeftBy) > 0 || len(j.AsOf.RightBy) > 0 {
			return nil, errors.Computef("join", "by keys are only supported for as-of joins")
		}
		return keys, nil
	}
	if len(j.AsOf.LeftBy) != len(j.AsOf.RightBy) {
		return nil, errors.Shapef("asof join", "%d left by keys but %d right by keys", len(j.AsOf.LeftBy), len(j.AsOf.RightBy))
	}
	for i := range j.AsOf.LeftBy {
		l, r := Col(j.AsOf.LeftBy[i]), Col(j.AsOf.RightBy[i])
		if err := checkJoinKey(l, r, left, right, false); err != nil {
			return nil, err
		}
		keys = append(keys, join.KeyPair{Left: l.Name, Right: r.Name})
	}
	return keys, nil
}

func checkJoinKey(l, r Expr, left, right types.Schema, asof bool) error {
	for _, e := range []Expr{l, r} {
		if !IsRowLocal(e) {
			return errors.Computef(e.String(), "join keys must be row-wise expressions")
		}
	}
	lt, err := TypeOf(l, left)
	if err != nil {
		return err
	}
	rt, err := TypeOf(r, right)
	if err != nil {
		return err
	}
	if asof {
		for _, t := range []types.DataType{lt, rt} {
			if !t.IsNumeric() && !t.IsTemporal() {
				return errors.DataTypef(l.String(), "as-of key must be numeric or temporal, got %s", t)
			}
		}
	}
	if _, ok := types.Supertype(lt, rt); !ok && !(lt.IsStringLike() && rt.IsStringLike()) {
		return errors.DataTypef(l.String(), "join key types %s and %s are not comparable", lt, rt)
	}
	return nil
}

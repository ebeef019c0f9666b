package aggregate

import (
	"math"
	"sort"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/JacekPliszka/polars/pkg/engine/internal/arrowutil"
	"github.com/JacekPliszka/polars/pkg/engine/internal/errors"
	"github.com/JacekPliszka/polars/pkg/engine/types"
)

type sumIntState struct {
	acc      *arrowutil.Accessor
	sum      int64
	n        int
	overflow bool
}

func (s *sumIntState) add(row int) {
	if s.acc.IsNull(row) {
		return
	}
	s.addValue(s.acc.Int(row), 1)
}

func (s *sumIntState) addValue(v int64, n int) {
	sum, overflow := addInt64(s.sum, v)
	s.sum = sum
	s.overflow = s.overflow || overflow
	s.n += n
}

func (s *sumIntState) merge(other state) {
	o := other.(*sumIntState)
	s.addValue(o.sum, o.n)
	s.overflow = s.overflow || o.overflow
}

func addInt64(a, b int64) (int64, bool) {
	c := a + b
	return c, (c > a) != (b > 0)
}

func sumIntKernel(acc *arrowutil.Accessor, out types.DataType, opts Options) kernel {
	return kernel{
		newState: func() state { return &sumIntState{acc: acc} },
		finish: func(mem memory.Allocator, _ arrow.Array, states []state) (arrow.Array, error) {
			b := arrowutil.NewBuilder(mem, out)
			defer b.Release()
			for _, st := range states {
				s := st.(*sumIntState)
				switch {
				case s.overflow:
					return nil, errors.Computef(opts.Subject, "integer overflow in sum")
				case s.n == 0 && opts.SumNullPolicy == types.SumNullAsNull:
					b.AppendNull()
				default:
					if err := arrowutil.Append(b, s.sum); err != nil {
						return nil, errors.DataTypef(opts.Subject, "%s", err)
					}
				}
			}
			return b.NewArray(), nil
		},
	}
}

type sumFloatState struct {
	acc *arrowutil.Accessor
	sum float64
	n   int
}

func (s *sumFloatState) add(row int) {
	if s.acc.IsNull(row) {
		return
	}
	s.sum += s.acc.Float(row)
	s.n++
}

func (s *sumFloatState) merge(other state) {
	o := other.(*sumFloatState)
	s.sum += o.sum
	s.n += o.n
}

func sumFloatKernel(acc *arrowutil.Accessor, policy types.SumNullPolicy) kernel {
	return kernel{
		newState: func() state { return &sumFloatState{acc: acc} },
		finish: func(mem memory.Allocator, _ arrow.Array, states []state) (arrow.Array, error) {
			b := array.NewFloat64Builder(mem)
			defer b.Release()
			for _, st := range states {
				s := st.(*sumFloatState)
				if s.n == 0 && policy == types.SumNullAsNull {
					b.AppendNull()
					continue
				}
				b.Append(s.sum)
			}
			return b.NewArray(), nil
		},
	}
}

func meanKernel(acc *arrowutil.Accessor) kernel {
	return kernel{
		newState: func() state { return &sumFloatState{acc: acc} },
		finish: func(mem memory.Allocator, _ arrow.Array, states []state) (arrow.Array, error) {
			b := array.NewFloat64Builder(mem)
			defer b.Release()
			for _, st := range states {
				s := st.(*sumFloatState)
				if s.n == 0 {
					b.AppendNull()
					continue
				}
				b.Append(s.sum / float64(s.n))
			}
			return b.NewArray(), nil
		},
	}
}

type countState struct {
	acc       *arrowutil.Accessor
	n         int64
	withNulls bool
}

func (s *countState) add(row int) {
	if s.withNulls || !s.acc.IsNull(row) {
		s.n++
	}
}

func (s *countState) merge(other state) { s.n += other.(*countState).n }

func countKernel(acc *arrowutil.Accessor, withNulls bool) kernel {
	return kernel{
		newState: func() state { return &countState{acc: acc, withNulls: withNulls} },
		finish: func(mem memory.Allocator, _ arrow.Array, states []state) (arrow.Array, error) {
			b := array.NewInt64Builder(mem)
			defer b.Release()
			for _, st := range states {
				b.Append(st.(*countState).n)
			}
			return b.NewArray(), nil
		},
	}
}

// argBestState tracks the row holding the smallest (dir < 0) or largest
// (dir > 0) non-null value. Ties keep the earliest row.
type argBestState struct {
	acc *arrowutil.Accessor
	dir int
	row int
}

func (s *argBestState) add(row int) {
	if s.acc.IsNull(row) {
		return
	}
	if s.row < 0 || s.better(row, s.row) {
		s.row = row
	}
}

func (s *argBestState) better(a, b int) bool {
	c := s.acc.Compare(a, s.acc, b)
	return c*s.dir > 0 || (c == 0 && a < b)
}

func (s *argBestState) merge(other state) {
	if o := other.(*argBestState); o.row >= 0 {
		s.add(o.row)
	}
}

func argBestKernel(acc *arrowutil.Accessor, dir int) kernel {
	return kernel{
		newState: func() state { return &argBestState{acc: acc, dir: dir, row: -1} },
		finish: func(mem memory.Allocator, values arrow.Array, states []state) (arrow.Array, error) {
			positions := make([]int, len(states))
			for g, st := range states {
				positions[g] = st.(*argBestState).row
			}
			return arrowutil.Take(mem, values, positions), nil
		},
	}
}

type nUniqueState struct {
	acc  *arrowutil.Accessor
	seen map[any]struct{}
}

func (s *nUniqueState) add(row int) {
	v := s.acc.Value(row)
	if f, ok := v.(float64); ok && math.IsNaN(f) {
		v = nanKey{}
	}
	s.seen[v] = struct{}{}
}

type nanKey struct{}

func (s *nUniqueState) merge(other state) {
	for v := range other.(*nUniqueState).seen {
		s.seen[v] = struct{}{}
	}
}

func nUniqueKernel(acc *arrowutil.Accessor) kernel {
	return kernel{
		newState: func() state { return &nUniqueState{acc: acc, seen: make(map[any]struct{})} },
		finish: func(mem memory.Allocator, _ arrow.Array, states []state) (arrow.Array, error) {
			b := array.NewInt64Builder(mem)
			defer b.Release()
			for _, st := range states {
				b.Append(int64(len(st.(*nUniqueState).seen)))
			}
			return b.NewArray(), nil
		},
	}
}

type quantileState struct {
	acc    *arrowutil.Accessor
	values []float64
}

func (s *quantileState) add(row int) {
	if !s.acc.IsNull(row) {
		s.values = append(s.values, s.acc.Float(row))
	}
}

func (s *quantileState) merge(other state) {
	s.values = append(s.values, other.(*quantileState).values...)
}

func quantileKernel(acc *arrowutil.Accessor, q float64) kernel {
	return kernel{
		newState: func() state { return &quantileState{acc: acc} },
		finish: func(mem memory.Allocator, _ arrow.Array, states []state) (arrow.Array, error) {
			b := array.NewFloat64Builder(mem)
			defer b.Release()
			for _, st := range states {
				values := st.(*quantileState).values
				if len(values) == 0 {
					b.AppendNull()
					continue
				}
				b.Append(Quantile(values, q))
			}
			return b.NewArray(), nil
		},
	}
}

// Quantile returns the q-th quantile of values using linear interpolation
// between the closest ranks. values is sorted in place.
func Quantile(values []float64, q float64) float64 {
	sort.Float64s(values)
	pos := q * float64(len(values)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return values[lo]
	}
	frac := pos - float64(lo)
	return values[lo] + (values[hi]-values[lo])*frac
}

// momentsState holds count, mean and the sum of squared deviations. States
// are merged with the parallel variance formula of Chan et al.
type momentsState struct {
	acc  *arrowutil.Accessor
	n    float64
	mean float64
	m2   float64
}

func (s *momentsState) add(row int) {
	if s.acc.IsNull(row) {
		return
	}
	x := s.acc.Float(row)
	s.n++
	delta := x - s.mean
	s.mean += delta / s.n
	s.m2 += delta * (x - s.mean)
}

func (s *momentsState) merge(other state) {
	o := other.(*momentsState)
	if o.n == 0 {
		return
	}
	if s.n == 0 {
		s.n, s.mean, s.m2 = o.n, o.mean, o.m2
		return
	}
	n := s.n + o.n
	delta := o.mean - s.mean
	s.m2 += o.m2 + delta*delta*s.n*o.n/n
	s.mean += delta * o.n / n
	s.n = n
}

func momentsKernel(acc *arrowutil.Accessor, std bool) kernel {
	return kernel{
		newState: func() state { return &momentsState{acc: acc} },
		finish: func(mem memory.Allocator, _ arrow.Array, states []state) (arrow.Array, error) {
			b := array.NewFloat64Builder(mem)
			defer b.Release()
			for _, st := range states {
				s := st.(*momentsState)
				if s.n < 2 {
					b.AppendNull()
					continue
				}
				variance := s.m2 / (s.n - 1)
				if std {
					variance = math.Sqrt(variance)
				}
				b.Append(variance)
			}
			return b.NewArray(), nil
		},
	}
}

// Package groups builds grouping indices: mappings from group keys to the
// positions of the rows holding them.
package groups

// Proxy maps each group to its member row positions. A Proxy is either a
// [*Slice], for groups that are contiguous runs of rows, or an [*Idx], for
// groups whose rows are scattered.
//
// Groups are numbered 0..Len()-1 in emission order. Unless rows were
// dropped, every row of the source appears in exactly one group, and member
// rows are listed in ascending order.
type Proxy interface {
	// Len returns the number of groups.
	Len() int
	// Size returns the number of rows in group g.
	Size(g int) int
	// First returns the first row of group g, or -1 if the group is empty.
	First(g int) int
	// Last returns the last row of group g, or -1 if the group is empty.
	Last(g int) int
	// Each calls fn for every row of group g in ascending order.
	Each(g int, fn func(row int))
	// Rows returns the rows of group g.
	Rows(g int) []int

	isProxy()
}

// Slice is a Proxy whose groups are runs of consecutive rows. Each entry is
// a (start, length) pair.
type Slice struct {
	Groups [][2]int
}

var _ Proxy = (*Slice)(nil)

func (s *Slice) isProxy()       {}
func (s *Slice) Len() int       { return len(s.Groups) }
func (s *Slice) Size(g int) int { return s.Groups[g][1] }

func (s *Slice) First(g int) int {
	if s.Groups[g][1] == 0 {
		return -1
	}
	return s.Groups[g][0]
}

func (s *Slice) Last(g int) int {
	if s.Groups[g][1] == 0 {
		return -1
	}
	return s.Groups[g][0] + s.Groups[g][1] - 1
}

func (s *Slice) Each(g int, fn func(row int)) {
	start, length := s.Groups[g][0], s.Groups[g][1]
	for row := start; row < start+length; row++ {
		fn(row)
	}
}

func (s *Slice) Rows(g int) []int {
	start, length := s.Groups[g][0], s.Groups[g][1]
	rows := make([]int, length)
	for i := range rows {
		rows[i] = start + i
	}
	return rows
}

// Idx is a Proxy that lists the member rows of every group explicitly.
type Idx struct {
	All [][]int
}

var _ Proxy = (*Idx)(nil)

func (x *Idx) isProxy()         {}
func (x *Idx) Len() int         { return len(x.All) }
func (x *Idx) Size(g int) int   { return len(x.All[g]) }
func (x *Idx) Rows(g int) []int { return x.All[g] }

func (x *Idx) First(g int) int {
	if len(x.All[g]) == 0 {
		return -1
	}
	return x.All[g][0]
}

func (x *Idx) Last(g int) int {
	if len(x.All[g]) == 0 {
		return -1
	}
	return x.All[g][len(x.All[g])-1]
}

func (x *Idx) Each(g int, fn func(row int)) {
	for _, row := range x.All[g] {
		fn(row)
	}
}

// FirstRows returns the first row of every group.
func FirstRows(p Proxy) []int {
	rows := make([]int, p.Len())
	for g := range rows {
		rows[g] = p.First(g)
	}
	return rows
}

// GroupIDs returns, for each of n rows, the group containing it, or -1 for
// rows that belong to no group.
func GroupIDs(p Proxy, n int) []int {
	ids := make([]int, n)
	for i := range ids {
		ids[i] = -1
	}
	switch p := p.(type) {
	case *Slice:
		for g, s := range p.Groups {
			for row := s[0]; row < s[0]+s[1]; row++ {
				ids[row] = g
			}
		}
	case *Idx:
		for g, rows := range p.All {
			for _, row := range rows {
				ids[row] = g
			}
		}
	}
	return ids
}

// Single returns a proxy with one group covering rows [0, n).
func Single(n int) Proxy {
	return &Slice{Groups: [][2]int{{0, n}}}
}

// Reorder returns a proxy with the groups of p in the given order.
func Reorder(p Proxy, order []int) Proxy {
	switch p := p.(type) {
	case *Slice:
		groups := make([][2]int, len(order))
		for i, g := range order {
			groups[i] = p.Groups[g]
		}
		return &Slice{Groups: groups}
	case *Idx:
		all := make([][]int, len(order))
		for i, g := range order {
			all[i] = p.All[g]
		}
		return &Idx{All: all}
	}
	return p
}

package criteria

import "sort"

// IDSet is an unordered set of element ids.
type IDSet map[int64]struct{}

func NewIDSet(ids ...int64) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s IDSet) Add(id int64) { s[id] = struct{}{} }

func (s IDSet) Has(id int64) bool {
	_, ok := s[id]
	return ok
}

func (s IDSet) Len() int { return len(s) }

func (s IDSet) Intersect(o IDSet) IDSet {
	small, large := s, o
	if len(large) < len(small) {
		small, large = large, small
	}
	out := make(IDSet, len(small))
	for id := range small {
		if large.Has(id) {
			out.Add(id)
		}
	}
	return out
}

func (s IDSet) Union(o IDSet) IDSet {
	out := make(IDSet, len(s)+len(o))
	for id := range s {
		out.Add(id)
	}
	for id := range o {
		out.Add(id)
	}
	return out
}

func (s IDSet) Minus(o IDSet) IDSet {
	out := make(IDSet, len(s))
	for id := range s {
		if !o.Has(id) {
			out.Add(id)
		}
	}
	return out
}

func (s IDSet) Equal(o IDSet) bool {
	if len(s) != len(o) {
		return false
	}
	for id := range s {
		if !o.Has(id) {
			return false
		}
	}
	return true
}

// Sorted returns the ids in ascending order.
func (s IDSet) Sorted() []int64 {
	out := make([]int64, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

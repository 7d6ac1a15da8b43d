package version

import "strings"

// Bound is one endpoint of a version range.
type Bound struct {
	Version   string
	Inclusive bool
}

// Range is the intersection of a set of requirement atoms, expressed
// as optional lower and upper bounds. A nil *Range from Intersect
// means the atoms are contradictory (empty intersection).
type Range struct {
	Min *Bound
	Max *Bound
}

// Intersect folds requirement atoms left to right into a single range.
// Lower-bound atoms tighten Min, upper-bound atoms tighten Max, and
// "=" atoms pin both endpoints. It returns nil as soon as the
// accumulated range becomes empty.
func Intersect(requirements []Requirement) *Range {
	r := &Range{}
	for _, req := range requirements {
		switch req.Op {
		case OpGreaterEq:
			r.tightenMin(Bound{req.Version, true})
		case OpGreater:
			r.tightenMin(Bound{req.Version, false})
		case OpLessEq:
			r.tightenMax(Bound{req.Version, true})
		case OpLess:
			r.tightenMax(Bound{req.Version, false})
		case OpEqual:
			if !r.contains(req.Version) {
				return nil
			}
			r.Min = &Bound{req.Version, true}
			r.Max = &Bound{req.Version, true}
		case OpPessimistic:
			lo, hi := PessimisticBounds(req.Version)
			r.tightenMin(Bound{lo, true})
			r.tightenMax(Bound{hi, false})
		}
		if r.empty() {
			return nil
		}
	}
	return r
}

func (r *Range) tightenMin(b Bound) {
	if r.Min == nil {
		r.Min = &b
		return
	}
	switch c := Compare(b.Version, r.Min.Version); {
	case c > 0:
		r.Min = &b
	case c == 0 && !b.Inclusive:
		r.Min.Inclusive = false
	}
}

func (r *Range) tightenMax(b Bound) {
	if r.Max == nil {
		r.Max = &b
		return
	}
	switch c := Compare(b.Version, r.Max.Version); {
	case c < 0:
		r.Max = &b
	case c == 0 && !b.Inclusive:
		r.Max.Inclusive = false
	}
}

// contains reports whether v falls inside the range accumulated so
// far, honoring exclusivity at exact boundaries.
func (r *Range) contains(v string) bool {
	if r.Min != nil {
		c := Compare(v, r.Min.Version)
		if c < 0 || (c == 0 && !r.Min.Inclusive) {
			return false
		}
	}
	if r.Max != nil {
		c := Compare(v, r.Max.Version)
		if c > 0 || (c == 0 && !r.Max.Inclusive) {
			return false
		}
	}
	return true
}

// empty reports whether the bounds contradict each other: min above
// max, or min equal to max with either endpoint exclusive.
func (r *Range) empty() bool {
	if r.Min == nil || r.Max == nil {
		return false
	}
	c := Compare(r.Min.Version, r.Max.Version)
	if c > 0 {
		return true
	}
	return c == 0 && (!r.Min.Inclusive || !r.Max.Inclusive)
}

// String renders the range for display: "= X" for a pinned range,
// ">= min < max" when both bounds are present, a single clause when
// only one side is bounded, and "any" for the unbounded range.
func (r *Range) String() string {
	if r.Min == nil && r.Max == nil {
		return "any"
	}
	if r.Min != nil && r.Max != nil && r.Min.Inclusive && r.Max.Inclusive &&
		Compare(r.Min.Version, r.Max.Version) == 0 {
		return "= " + r.Min.Version
	}
	var parts []string
	if r.Min != nil {
		op := OpGreater
		if r.Min.Inclusive {
			op = OpGreaterEq
		}
		parts = append(parts, string(op)+" "+r.Min.Version)
	}
	if r.Max != nil {
		op := OpLess
		if r.Max.Inclusive {
			op = OpLessEq
		}
		parts = append(parts, string(op)+" "+r.Max.Version)
	}
	return strings.Join(parts, " ")
}

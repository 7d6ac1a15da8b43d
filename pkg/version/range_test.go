package version

import "testing"

func mustParse(t *testing.T, s string) []Requirement {
	t.Helper()
	reqs, err := Parse(s)
	if err != nil {
		t.Fatalf("Parse(%q): %v", s, err)
	}
	return reqs
}

func TestIntersect(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string // expected Range.String(), "" means nil range
		isEmpty bool
	}{
		{name: "single lower bound", input: ">= 1.0.0", want: ">= 1.0.0"},
		{name: "bounded both sides", input: ">= 4.0.0 < 9.0.0", want: ">= 4.0.0 < 9.0.0"},
		{name: "tighter lower wins", input: ">= 1.0.0 >= 2.0.0", want: ">= 2.0.0"},
		{name: "tighter upper wins", input: "< 9.0.0 < 5.0.0", want: "< 5.0.0"},
		{name: "exclusive beats inclusive at same bound", input: ">= 1.0.0 > 1.0.0", want: "> 1.0.0"},
		{name: "equals pins range", input: ">= 1.0.0 = 2.0.0", want: "= 2.0.0"},
		{name: "pessimistic", input: "~> 1.2.3", want: ">= 1.2.3 < 1.3"},
		{name: "disjoint bounds", input: ">= 6.0.0 < 7.0.0 >= 7.0.0", isEmpty: true},
		{name: "equals outside range", input: "< 2.0.0 = 3.0.0", isEmpty: true},
		{name: "equals on exclusive boundary", input: "> 2.0.0 = 2.0.0", isEmpty: true},
		{name: "point range with exclusive bound", input: ">= 2.0.0 < 2.0.0", isEmpty: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Intersect(mustParse(t, tt.input))
			if tt.isEmpty {
				if r != nil {
					t.Fatalf("Intersect(%q) = %v, want nil", tt.input, r)
				}
				return
			}
			if r == nil {
				t.Fatalf("Intersect(%q) = nil, want %q", tt.input, tt.want)
			}
			if got := r.String(); got != tt.want {
				t.Errorf("Intersect(%q).String() = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestIntersectOrderIndependent(t *testing.T) {
	sets := [][]string{
		{">= 1.0.0 < 3.0.0", ">= 2.0.0"},
		{"~> 2.1", "<= 2.5.0"},
		{"= 2.0.0", ">= 1.0.0 <= 2.0.0"},
	}

	for _, pair := range sets {
		a := append(mustParse(t, pair[0]), mustParse(t, pair[1])...)
		b := append(mustParse(t, pair[1]), mustParse(t, pair[0])...)

		ra, rb := Intersect(a), Intersect(b)
		if (ra == nil) != (rb == nil) {
			t.Fatalf("intersect of %v not order independent: %v vs %v", pair, ra, rb)
		}
		if ra != nil && ra.String() != rb.String() {
			t.Errorf("intersect of %v differs by order: %q vs %q", pair, ra, rb)
		}
	}
}

func TestIntersectEqualsCollapses(t *testing.T) {
	reqs := append(mustParse(t, ">= 1.0.0 <= 3.0.0"), Requirement{OpEqual, "2.0.0"})
	r := Intersect(reqs)
	if r == nil {
		t.Fatal("expected non-nil range")
	}
	if r.Min == nil || r.Max == nil || r.Min.Version != "2.0.0" || r.Max.Version != "2.0.0" ||
		!r.Min.Inclusive || !r.Max.Inclusive {
		t.Errorf("range did not collapse to inclusive point: %+v", r)
	}
	if got := r.String(); got != "= 2.0.0" {
		t.Errorf("String() = %q, want \"= 2.0.0\"", got)
	}
}

func TestRangeString(t *testing.T) {
	tests := []struct {
		name string
		r    Range
		want string
	}{
		{"unbounded", Range{}, "any"},
		{"lower only", Range{Min: &Bound{"1.0.0", true}}, ">= 1.0.0"},
		{"upper only exclusive", Range{Max: &Bound{"2.0.0", false}}, "< 2.0.0"},
		{"upper only inclusive", Range{Max: &Bound{"2.0.0", true}}, "<= 2.0.0"},
		{"exclusive lower", Range{Min: &Bound{"1.0.0", false}}, "> 1.0.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.r.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

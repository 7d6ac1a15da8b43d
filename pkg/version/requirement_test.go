package version

import (
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []Requirement
		wantErr bool
	}{
		{
			name:  "single atom",
			input: ">= 4.0.0",
			want:  []Requirement{{OpGreaterEq, "4.0.0"}},
		},
		{
			name:  "two atoms",
			input: ">= 4.0.0 < 9.0.0",
			want:  []Requirement{{OpGreaterEq, "4.0.0"}, {OpLess, "9.0.0"}},
		},
		{
			name:  "glued operator",
			input: ">=4.0.0 <9.0.0",
			want:  []Requirement{{OpGreaterEq, "4.0.0"}, {OpLess, "9.0.0"}},
		},
		{
			name:  "bare version is equals",
			input: "8.5.0",
			want:  []Requirement{{OpEqual, "8.5.0"}},
		},
		{
			name:  "pessimistic desugars",
			input: "~> 1.2.3",
			want:  []Requirement{{OpGreaterEq, "1.2.3"}, {OpLess, "1.3"}},
		},
		{
			name:  "pessimistic two components",
			input: "~> 1.2",
			want:  []Requirement{{OpGreaterEq, "1.2"}, {OpLess, "2"}},
		},
		{
			name:  "wildcard minor",
			input: "1.x",
			want:  []Requirement{{OpGreaterEq, "1.0"}, {OpLess, "2"}},
		},
		{
			name:  "wildcard patch",
			input: "1.2.x",
			want:  []Requirement{{OpGreaterEq, "1.2.0"}, {OpLess, "1.3"}},
		},
		{name: "empty", input: "", wantErr: true},
		{name: "dangling operator", input: ">=", wantErr: true},
		{name: "garbage version", input: ">= foo", wantErr: true},
		{name: "trailing dash", input: "1.0.0-", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Parse(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestSatisfyingVersions(t *testing.T) {
	available := []string{"4.0.0", "5.0.0", "6.0.0", "7.0.0", "8.0.0", "8.5.0", "9.0.0", "10.0.0"}

	reqsA, err := Parse(">= 4.0.0 < 9.0.0")
	if err != nil {
		t.Fatal(err)
	}
	reqsB, err := Parse(">= 8.0.0")
	if err != nil {
		t.Fatal(err)
	}

	got := SatisfyingVersions(available, append(reqsA, reqsB...))
	want := []string{"8.0.0", "8.5.0"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SatisfyingVersions = %v, want %v", got, want)
	}

	// Every result must come from available and satisfy every atom.
	avail := make(map[string]bool)
	for _, v := range available {
		avail[v] = true
	}
	for _, v := range got {
		if !avail[v] {
			t.Errorf("result %q not in available list", v)
		}
		for _, r := range append(reqsA, reqsB...) {
			if !Satisfies(v, r) {
				t.Errorf("result %q fails atom %v", v, r)
			}
		}
	}
}

func TestSatisfyingVersionsPreservesOrder(t *testing.T) {
	available := []string{"2.0.0", "1.0.0", "3.0.0"}
	got := SatisfyingVersions(available, []Requirement{{OpGreaterEq, "1.0.0"}})
	if !reflect.DeepEqual(got, available) {
		t.Errorf("order not preserved: got %v", got)
	}
}

func TestMaxSatisfying(t *testing.T) {
	available := []string{"1.0.0", "2.3.0", "2.9.0", "3.0.0"}
	reqs := []Requirement{{OpGreaterEq, "2.0.0"}, {OpLess, "3.0.0"}}

	v, ok := MaxSatisfying(available, reqs)
	if !ok || v != "2.9.0" {
		t.Errorf("MaxSatisfying = %q, %v, want 2.9.0, true", v, ok)
	}

	_, ok = MaxSatisfying(available, []Requirement{{OpGreater, "3.0.0"}})
	if ok {
		t.Error("MaxSatisfying reported a match for an unsatisfiable requirement")
	}
}

package version

import (
	"fmt"
	"strconv"
	"strings"
)

// Operator is a comparison operator in a version requirement atom.
type Operator string

// Supported requirement operators. Pessimistic ("~>") and wildcard
// forms are desugared by Parse into a [>=, <) atom pair, so consumers
// of parsed atoms only see the first five.
const (
	OpGreaterEq   Operator = ">="
	OpGreater     Operator = ">"
	OpLessEq      Operator = "<="
	OpLess        Operator = "<"
	OpEqual       Operator = "="
	OpPessimistic Operator = "~>"
)

// Requirement is a single version constraint atom, e.g. ">= 4.0.0".
// A requirement string parses to one or more atoms combined with AND
// semantics.
type Requirement struct {
	Op      Operator
	Version string
}

// String renders the atom in canonical "op version" form.
func (r Requirement) String() string {
	return string(r.Op) + " " + r.Version
}

var operators = []Operator{OpGreaterEq, OpLessEq, OpPessimistic, OpGreater, OpLess, OpEqual}

// Parse splits a requirement string into constraint atoms. Clauses are
// whitespace separated; a bare version means "=", wildcard versions
// ("1.x", "1.2.x") and pessimistic clauses ("~> 1.2.3") desugar into a
// lower/upper bound pair. Callers that cannot parse a requirement
// should treat the module as unconstrained rather than aborting.
func Parse(constraint string) ([]Requirement, error) {
	tokens := strings.Fields(constraint)
	if len(tokens) == 0 {
		return nil, fmt.Errorf("empty version requirement")
	}

	var atoms []Requirement
	for i := 0; i < len(tokens); i++ {
		op, rest := splitOperator(tokens[i])
		ver := rest
		if op != "" && ver == "" {
			// Operator and version in separate tokens: ">= 1.2.3".
			i++
			if i >= len(tokens) {
				return nil, fmt.Errorf("operator %q has no version in %q", op, constraint)
			}
			ver = tokens[i]
		}
		if op == "" {
			op = OpEqual
		}
		if !validVersion(ver) {
			return nil, fmt.Errorf("invalid version %q in requirement %q", ver, constraint)
		}

		clause, err := desugar(op, ver)
		if err != nil {
			return nil, err
		}
		atoms = append(atoms, clause...)
	}
	return atoms, nil
}

// splitOperator strips a leading operator from a token, handling both
// glued (">=1.0.0") and separated (">=") forms.
func splitOperator(tok string) (Operator, string) {
	for _, op := range operators {
		if strings.HasPrefix(tok, string(op)) {
			return op, tok[len(op):]
		}
	}
	return "", tok
}

// validVersion accepts dotted versions with an optional pre-release
// suffix, plus the wildcard forms handled by desugar.
func validVersion(v string) bool {
	if v == "" {
		return false
	}
	main := v
	if i := strings.IndexByte(v, '-'); i >= 0 {
		main = v[:i]
		if i == len(v)-1 {
			return false
		}
	}
	for _, part := range strings.Split(main, ".") {
		if part == "" {
			return false
		}
		if part == "x" || part == "X" || part == "*" {
			continue
		}
		if _, err := strconv.Atoi(part); err != nil {
			return false
		}
	}
	return true
}

// desugar expands one clause into its constraint atoms. Wildcard and
// pessimistic clauses become a [>= floor, < ceiling) pair; everything
// else passes through as a single atom.
func desugar(op Operator, ver string) ([]Requirement, error) {
	if isWildcard(ver) {
		if op != OpEqual {
			return nil, fmt.Errorf("wildcard version %q cannot follow operator %q", ver, op)
		}
		lo, hi := wildcardBounds(ver)
		if hi == "" {
			return []Requirement{{OpGreaterEq, lo}}, nil
		}
		return []Requirement{{OpGreaterEq, lo}, {OpLess, hi}}, nil
	}
	if op == OpPessimistic {
		lo, hi := PessimisticBounds(ver)
		return []Requirement{{OpGreaterEq, lo}, {OpLess, hi}}, nil
	}
	return []Requirement{{op, ver}}, nil
}

func isWildcard(v string) bool {
	return strings.ContainsAny(v, "xX*")
}

// wildcardBounds computes the bound pair for forms like "1.x" or
// "1.2.x": the floor replaces the wildcard with 0, the ceiling bumps
// the component before it.
func wildcardBounds(v string) (lo, hi string) {
	parts := strings.Split(v, ".")
	fixed := 0
	for _, p := range parts {
		if p == "x" || p == "X" || p == "*" {
			break
		}
		fixed++
	}
	loParts := make([]string, len(parts))
	hiParts := make([]string, fixed)
	for i := range parts {
		if i < fixed {
			loParts[i] = parts[i]
			hiParts[i] = parts[i]
		} else {
			loParts[i] = "0"
		}
	}
	if fixed == 0 {
		return "0", "" // bare "x" matches everything
	}
	hiParts[fixed-1] = strconv.Itoa(component(parts[fixed-1]) + 1)
	return strings.Join(loParts, "."), strings.Join(hiParts, ".")
}

// PessimisticBounds computes the "~>" bound pair: at least the given
// version, below the next significant component boundary. "~> 1.2.3"
// yields [1.2.3, 1.3) and "~> 1.2" yields [1.2, 2).
func PessimisticBounds(v string) (lo, hi string) {
	main := v
	if i := strings.IndexByte(v, '-'); i >= 0 {
		main = v[:i]
	}
	parts := strings.Split(main, ".")
	if len(parts) == 1 {
		return v, strconv.Itoa(component(parts[0]) + 1)
	}
	hiParts := make([]string, len(parts)-1)
	copy(hiParts, parts[:len(parts)-1])
	hiParts[len(hiParts)-1] = strconv.Itoa(component(parts[len(parts)-2]) + 1)
	return v, strings.Join(hiParts, ".")
}

// Satisfies reports whether version meets the requirement atom.
func Satisfies(version string, r Requirement) bool {
	c := Compare(version, r.Version)
	switch r.Op {
	case OpGreaterEq:
		return c >= 0
	case OpGreater:
		return c > 0
	case OpLessEq:
		return c <= 0
	case OpLess:
		return c < 0
	case OpEqual:
		return c == 0
	case OpPessimistic:
		lo, hi := PessimisticBounds(r.Version)
		return Compare(version, lo) >= 0 && Compare(version, hi) < 0
	}
	return false
}

// SatisfyingVersions filters available versions by testing every
// individual atom, preserving input order. Testing atoms rather than
// the folded range keeps "=" atoms combined with wildcard-derived
// bounds from mis-classifying range edge cases.
func SatisfyingVersions(available []string, requirements []Requirement) []string {
	var out []string
	for _, v := range available {
		ok := true
		for _, r := range requirements {
			if !Satisfies(v, r) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, v)
		}
	}
	return out
}

// MaxSatisfying returns the highest available version meeting every
// requirement atom.
func MaxSatisfying(available []string, requirements []Requirement) (string, bool) {
	best := ""
	for _, v := range SatisfyingVersions(available, requirements) {
		if best == "" || Compare(v, best) > 0 {
			best = v
		}
	}
	return best, best != ""
}

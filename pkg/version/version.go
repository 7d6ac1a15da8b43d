// Package version implements the constraint algebra used to resolve
// module version requirements: parsing requirement strings into atoms,
// testing whether a version satisfies an atom, intersecting atom sets
// into ranges, and filtering available versions.
//
// Version ordering follows registry conventions rather than strict
// semver: dot components compare numerically (a non-numeric component
// counts as 0, missing trailing components count as 0), and anything
// from the first "-" onward is a pre-release suffix. A version without
// a suffix orders above the same version with one; two suffixes compare
// lexicographically.
package version

import (
	"strconv"
	"strings"
)

// split separates a version string into its numeric dot components and
// an optional pre-release suffix (everything after the first "-").
func split(v string) (parts []string, suffix string) {
	if i := strings.IndexByte(v, '-'); i >= 0 {
		suffix = v[i+1:]
		v = v[:i]
	}
	return strings.Split(v, "."), suffix
}

// component converts one dot component to its numeric value.
// Non-numeric components count as 0.
func component(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

// Compare orders two version strings, returning -1 if a < b, 0 if they
// are equal, and 1 if a > b.
func Compare(a, b string) int {
	ap, as := split(a)
	bp, bs := split(b)

	n := len(ap)
	if len(bp) > n {
		n = len(bp)
	}
	for i := 0; i < n; i++ {
		var av, bv int
		if i < len(ap) {
			av = component(ap[i])
		}
		if i < len(bp) {
			bv = component(bp[i])
		}
		if av != bv {
			if av < bv {
				return -1
			}
			return 1
		}
	}

	// Main components equal: a release outranks any pre-release.
	switch {
	case as == "" && bs == "":
		return 0
	case as == "":
		return 1
	case bs == "":
		return -1
	case as < bs:
		return -1
	case as > bs:
		return 1
	}
	return 0
}

// Max returns the highest version in candidates, or "" if empty.
func Max(candidates []string) string {
	best := ""
	for _, c := range candidates {
		if best == "" || Compare(c, best) > 0 {
			best = c
		}
	}
	return best
}

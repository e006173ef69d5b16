package model

import (
	"strings"

	"github.com/Masterminds/semver"
	"github.com/pkg/errors"
)

// VersionRange is a union of mathematical interval segments, e.g.
// "[1.0,2.0),[3.0,4.0]". Masterminds/semver's own constraint grammar
// (">=1.0, <2.0") doesn't parse this bracket-interval notation, so the
// range is parsed by hand into bound pairs and only the resulting
// endpoints are handed to semver.Version for comparison — the same
// division of labor the teacher's constraints.go keeps between
// "parse the declared string" and "compare with semver.Version".
type VersionRange struct {
	segments []interval
}

type interval struct {
	// exact is set for a single-version segment like "[1.5]"; low/high
	// are nil and inclusiveness is ignored.
	exact *semver.Version

	low            *semver.Version // nil = unbounded below
	lowInclusive   bool
	high           *semver.Version // nil = unbounded above
	highInclusive  bool
}

// IsVersionRange reports whether the given declared version string is a
// range expression (contains any of the range metacharacters) rather
// than a literal version. Literal versions are the common case and are
// handled without touching semver at all, mirroring manifest.go's
// toProps "always semver if we can, but fall back to plain versions"
// order of preference.
func IsVersionRange(declared string) bool {
	for _, r := range declared {
		switch r {
		case '[', '(', ']', ')':
			return true
		}
	}
	return false
}

// ParseVersionRange parses a declared parent version into a
// VersionRange. Callers should only call this after IsVersionRange
// reports true. The grammar is the standard Maven-style interval union:
// one or more comma-separated "[low,high]"/"(low,high)"/"[exact]"
// segments, either bound may be empty for an unbounded side.
func ParseVersionRange(declared string) (VersionRange, error) {
	segs, err := splitSegments(declared)
	if err != nil {
		return VersionRange{}, err
	}
	if len(segs) == 0 {
		return VersionRange{}, errors.Errorf("empty version range %q", declared)
	}

	var r VersionRange
	for _, s := range segs {
		iv, err := parseSegment(s)
		if err != nil {
			return VersionRange{}, err
		}
		r.segments = append(r.segments, iv)
	}
	return r, nil
}

// splitSegments splits a range string on commas that sit between a
// closing bracket and the next opening bracket (union members), leaving
// the comma that separates a single segment's low/high bound intact.
func splitSegments(declared string) ([]string, error) {
	var segs []string
	depth := 0
	start := 0
	for i, r := range declared {
		switch r {
		case '[', '(':
			depth++
		case ']', ')':
			depth--
			if depth < 0 {
				return nil, errors.Errorf("unbalanced brackets in version range %q", declared)
			}
		case ',':
			if depth == 0 {
				segs = append(segs, declared[start:i+1])
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, errors.Errorf("unbalanced brackets in version range %q", declared)
	}
	segs = append(segs, declared[start:])

	out := make([]string, 0, len(segs))
	for _, s := range segs {
		s = strings.Trim(strings.TrimSpace(s), ",")
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func parseSegment(s string) (interval, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return interval{}, errors.Errorf("invalid version range segment %q", s)
	}

	lowInclusive := s[0] == '['
	highInclusive := s[len(s)-1] == ']'
	if (!lowInclusive && s[0] != '(') || (!highInclusive && s[len(s)-1] != ')') {
		return interval{}, errors.Errorf("invalid version range segment %q: must start with [ or ( and end with ] or )", s)
	}

	body := s[1 : len(s)-1]
	if !strings.Contains(body, ",") {
		if body == "" {
			return interval{}, errors.Errorf("invalid version range segment %q: exact-version segment must not be empty", s)
		}
		v, err := semver.NewVersion(body)
		if err != nil {
			return interval{}, errors.Wrapf(err, "parsing exact version in segment %q", s)
		}
		return interval{exact: v}, nil
	}

	parts := strings.SplitN(body, ",", 2)
	low, high := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])

	iv := interval{lowInclusive: lowInclusive, highInclusive: highInclusive}
	if low != "" {
		v, err := semver.NewVersion(low)
		if err != nil {
			return interval{}, errors.Wrapf(err, "parsing lower bound in segment %q", s)
		}
		iv.low = v
	}
	if high != "" {
		v, err := semver.NewVersion(high)
		if err != nil {
			return interval{}, errors.Wrapf(err, "parsing upper bound in segment %q", s)
		}
		iv.high = v
	}
	return iv, nil
}

// Contains reports whether resolvedVersion lies inside the range (any
// union segment matching suffices). A resolved version that fails to
// parse as semver is treated as not contained, since a range can only
// ever admit well-formed versions.
func (r VersionRange) Contains(resolvedVersion string) bool {
	v, err := semver.NewVersion(resolvedVersion)
	if err != nil {
		return false
	}
	for _, iv := range r.segments {
		if iv.matches(v) {
			return true
		}
	}
	return false
}

func (iv interval) matches(v *semver.Version) bool {
	if iv.exact != nil {
		return v.Equal(iv.exact)
	}
	if iv.low != nil {
		if iv.lowInclusive {
			if v.LessThan(iv.low) {
				return false
			}
		} else if !v.GreaterThan(iv.low) {
			return false
		}
	}
	if iv.high != nil {
		if iv.highInclusive {
			if v.GreaterThan(iv.high) {
				return false
			}
		} else if !v.LessThan(iv.high) {
			return false
		}
	}
	return true
}

// IsLiteralConstant reports whether a version string is a constant,
// i.e. contains no unresolved "${...}" property expression. Used to
// enforce "Version must be a constant" (§4.6.1) when a range is in
// play.
func IsLiteralConstant(version string) bool {
	for i := 0; i+1 < len(version); i++ {
		if version[i] == '$' && version[i+1] == '{' {
			return false
		}
	}
	return true
}

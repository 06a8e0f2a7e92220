package httpclient

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// StatusCodeRange represents a range of HTTP status codes (inclusive).
type StatusCodeRange struct {
	Min int
	Max int
}

// Contains returns true if the code falls within this range.
func (r StatusCodeRange) Contains(code int) bool {
	return code >= r.Min && code <= r.Max
}

// StatusCodeSet is a set of HTTP status codes built from individual codes
// and inclusive ranges, for example "403,503,520-524".
type StatusCodeSet struct {
	codes  map[int]struct{}
	ranges []StatusCodeRange
}

// ParseStatusCodes parses a string like "200-299,404" into a StatusCodeSet.
// An empty input yields an empty set.
func ParseStatusCodes(s string) (*StatusCodeSet, error) {
	set := &StatusCodeSet{codes: make(map[int]struct{})}

	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		if lo, hi, isRange := strings.Cut(part, "-"); isRange {
			low, err := parseCode(lo)
			if err != nil {
				return nil, fmt.Errorf("invalid range start %q: %w", lo, err)
			}
			high, err := parseCode(hi)
			if err != nil {
				return nil, fmt.Errorf("invalid range end %q: %w", hi, err)
			}
			if low > high {
				return nil, fmt.Errorf("invalid range %d-%d: min > max", low, high)
			}
			set.ranges = append(set.ranges, StatusCodeRange{Min: low, Max: high})
			continue
		}

		code, err := parseCode(part)
		if err != nil {
			return nil, fmt.Errorf("invalid status code %q: %w", part, err)
		}
		set.codes[code] = struct{}{}
	}

	return set, nil
}

func parseCode(s string) (int, error) {
	code, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if code < 100 || code > 599 {
		return 0, fmt.Errorf("%d is outside 100-599", code)
	}
	return code, nil
}

// MustParseStatusCodes is like ParseStatusCodes but panics on error.
// Use only for package-level constants.
func MustParseStatusCodes(s string) *StatusCodeSet {
	set, err := ParseStatusCodes(s)
	if err != nil {
		panic(err)
	}
	return set
}

// Contains returns true if the status code is in the set.
func (s *StatusCodeSet) Contains(code int) bool {
	if s == nil {
		return false
	}
	if _, ok := s.codes[code]; ok {
		return true
	}
	for _, r := range s.ranges {
		if r.Contains(code) {
			return true
		}
	}
	return false
}

// String renders the set with individual codes sorted first, then ranges.
func (s *StatusCodeSet) String() string {
	if s == nil {
		return ""
	}

	codes := make([]int, 0, len(s.codes))
	for code := range s.codes {
		codes = append(codes, code)
	}
	sort.Ints(codes)

	parts := make([]string, 0, len(codes)+len(s.ranges))
	for _, code := range codes {
		parts = append(parts, strconv.Itoa(code))
	}
	for _, r := range s.ranges {
		parts = append(parts, fmt.Sprintf("%d-%d", r.Min, r.Max))
	}
	return strings.Join(parts, ",")
}

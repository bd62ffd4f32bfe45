// Package version parses chart versions and knows which configuration
// modules each release line supports.
package version

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

var (
	ErrInvalidVersionFormat = errors.New("invalid version format")
	ErrUnsupportedVersion   = errors.New("unsupported version")
)

// Rank orders prerelease stages. Unknown tags sort below everything.
type Rank int

const (
	RankUnknown Rank = iota
	RankAlpha
	RankBeta
	RankRC
	RankRelease
)

func (r Rank) String() string {
	switch r {
	case RankAlpha:
		return "alpha"
	case RankBeta:
		return "beta"
	case RankRC:
		return "rc"
	case RankRelease:
		return "release"
	}
	return "unknown"
}

var prereleasePattern = regexp.MustCompile(`^([A-Za-z]+)[.-]?(\d+)?`)

// Version is a parsed MAJOR.MINOR.PATCH[-PRERELEASE] chart version.
// The zero value sorts below every parsed version.
type Version struct {
	major, minor, patch int
	prerelease          string
	rank                Rank
	number              int
	sv                  *semver.Version
}

// Parse validates s and returns the parsed version.
func Parse(s string) (Version, error) {
	s = strings.TrimSpace(s)
	sv, err := semver.StrictNewVersion(s)
	if err != nil {
		return Version{}, fmt.Errorf("%w: %q: %v", ErrInvalidVersionFormat, s, err)
	}
	if sv.Metadata() != "" {
		return Version{}, fmt.Errorf("%w: %q: build metadata is not allowed", ErrInvalidVersionFormat, s)
	}

	v := Version{
		major:      int(sv.Major()),
		minor:      int(sv.Minor()),
		patch:      int(sv.Patch()),
		prerelease: sv.Prerelease(),
		rank:       RankRelease,
		sv:         sv,
	}
	if v.prerelease != "" {
		v.rank, v.number = classify(v.prerelease)
	}
	return v, nil
}

// MustParse is Parse for literals known to be valid.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

func classify(pre string) (Rank, int) {
	m := prereleasePattern.FindStringSubmatch(pre)
	if m == nil {
		return RankUnknown, 0
	}
	n := 0
	if m[2] != "" {
		n, _ = strconv.Atoi(m[2])
	}
	switch strings.ToLower(m[1]) {
	case "alpha":
		return RankAlpha, n
	case "beta":
		return RankBeta, n
	case "rc":
		return RankRC, n
	}
	return RankUnknown, n
}

func (v Version) Major() int         { return v.major }
func (v Version) Minor() int         { return v.minor }
func (v Version) Patch() int         { return v.patch }
func (v Version) Prerelease() string { return v.prerelease }
func (v Version) Rank() Rank         { return v.rank }

// IsZero reports whether v was never parsed.
func (v Version) IsZero() bool { return v.sv == nil }

// Line is the "MAJOR.MINOR" release line used as the catalog key.
func (v Version) Line() string {
	return fmt.Sprintf("%d.%d", v.major, v.minor)
}

func (v Version) String() string {
	if v.sv == nil {
		return "0.0.0"
	}
	return v.sv.Original()
}

// Compare returns -1, 0 or 1. Ordering is by numeric triple, then
// prerelease rank (alpha < beta < rc < release), then prerelease number,
// with semver precedence as the final tiebreak.
func (v Version) Compare(o Version) int {
	if c := cmpInt(v.major, o.major); c != 0 {
		return c
	}
	if c := cmpInt(v.minor, o.minor); c != 0 {
		return c
	}
	if c := cmpInt(v.patch, o.patch); c != 0 {
		return c
	}
	if c := cmpInt(int(v.rank), int(o.rank)); c != 0 {
		return c
	}
	if c := cmpInt(v.number, o.number); c != 0 {
		return c
	}
	if v.sv == nil || o.sv == nil {
		return cmpInt(boolInt(v.sv != nil), boolInt(o.sv != nil))
	}
	return v.sv.Compare(o.sv)
}

func (v Version) Less(o Version) bool  { return v.Compare(o) < 0 }
func (v Version) Equal(o Version) bool { return v.Compare(o) == 0 }

// Within reports min <= v and, when max is non-nil, v <= max.
func (v Version) Within(min Version, max *Version) bool {
	if v.Less(min) {
		return false
	}
	return max == nil || !max.Less(v)
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

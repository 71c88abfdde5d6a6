// Package mdnssd holds the DNS-SD service value type and the instance-name
// collision-avoidance rule (spec §3, §6.2). It has no dependency on the
// wire codec, cache, or engine: it is the shared vocabulary those packages
// build on.
package mdnssd

import (
	"regexp"
	"strconv"
)

// renamePattern splits a trailing " (n)" disambiguator off an instance
// name, per spec §6.2.
var renamePattern = regexp.MustCompile(`^(.*?)(?: \((\d+)\))?$`)

// Rename computes the next candidate instance name for s, per spec §6.2:
//
//   - if the " (n)" suffix is absent, the new name is "s (2)";
//   - otherwise, n is replaced by n+1 in place.
//
// Applying Rename twice to a name with no existing suffix yields
// "s (3)" (spec §8 property 6): the first call appends " (2)", the
// second increments it to " (3)".
func Rename(s string) string {
	m := renamePattern.FindStringSubmatch(s)
	base, suffix := m[1], m[2]

	if suffix == "" {
		return base + " (2)"
	}

	n, _ := strconv.Atoi(suffix)
	return base + " (" + strconv.Itoa(n+1) + ")"
}

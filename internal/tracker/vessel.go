package tracker

import "strings"

// NormalizeVesselName trims, upper-cases, and collapses internal whitespace.
// Dots and dashes are kept.
func NormalizeVesselName(name string) string {
	return strings.Join(strings.Fields(strings.ToUpper(name)), " ")
}

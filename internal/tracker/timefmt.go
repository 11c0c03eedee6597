package tracker

import (
	"strings"
	"time"
	_ "time/tzdata" // Europe/Berlin must resolve on minimal images.
)

// UnknownTime is rendered for missing timestamps in user-facing text.
const UnknownTime = "Unbekannt"

const berlinLayout = "02.01.2006 15:04"

var berlin = mustLoadBerlin()

func mustLoadBerlin() *time.Location {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		return time.FixedZone("CET", 3600)
	}
	return loc
}

// Berlin returns the terminal operators' local time zone.
func Berlin() *time.Location {
	return berlin
}

// FormatBerlin renders t as DD.MM.YYYY HH:MM in Berlin time.
func FormatBerlin(t *time.Time) string {
	if t == nil || t.IsZero() {
		return UnknownTime
	}
	return t.In(berlin).Format(berlinLayout)
}

var portalLayouts = []string{
	berlinLayout,
	"02.01.2006 15:04:05",
	"02.01.2006",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParsePortalTime parses timestamps as printed by terminal portals. Values
// without an offset are interpreted in Berlin time. Empty input yields nil.
func ParsePortalTime(raw string) (*time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		utc := t.UTC()
		return &utc, true
	}
	for _, layout := range portalLayouts {
		if t, err := time.ParseInLocation(layout, raw, berlin); err == nil {
			utc := t.UTC()
			return &utc, true
		}
	}
	return nil, false
}

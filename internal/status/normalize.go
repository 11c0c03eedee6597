package status

import (
	"strings"
	"unicode"

	"github.com/JakeFAU/container-status-poller/internal/tracker"
)

// Signals are the raw indicators a provider extracted for one container.
// Providers set the booleans when their page exposes a dedicated field and
// leave the rest to keyword matching on the text fields.
type Signals struct {
	StatusRaw            string
	DischargeOrderStatus string
	Discharged           bool
	Ready                bool
	DeliveredOut         bool
}

var (
	deliveredKeywords = []string{"delivered", "delivered out", "ausgeliefert", "gate out", "outgated", "abgeholt"}
	readyKeywords     = []string{"ready", "bereit", "freigestellt", "released", "available for pickup", "abholbereit"}
	// Portal status text.
	dischargedKeywords = []string{"discharged", "gelöscht", "geloescht", "entladen", "on terminal", "im terminal", "on yard"}
	// Discharge order field only.
	orderDoneKeywords = []string{"discharged", "gelöscht", "geloescht", "entladen", "completed", "erledigt"}

	negations = map[string]struct{}{
		"not": {}, "no": {}, "nicht": {}, "kein": {}, "keine": {}, "un": {},
	}
)

// negationWindow is how many words before a keyword are checked for a negation.
const negationWindow = 2

// Normalize applies DELIVERED_OUT > READY > DISCHARGED > PREANNOUNCED.
// Keywords match whole words only and are ignored when a negation such as
// "not" or "nicht" precedes them.
func Normalize(s Signals) tracker.NormalizedStatus {
	raw := words(s.StatusRaw)
	order := words(s.DischargeOrderStatus)
	switch {
	case s.DeliveredOut || matchesAny(raw, deliveredKeywords):
		return tracker.StatusDeliveredOut
	case s.Ready || matchesAny(raw, readyKeywords) || matchesAny(order, readyKeywords):
		return tracker.StatusReady
	case s.Discharged || matchesAny(raw, dischargedKeywords) || matchesAny(order, orderDoneKeywords):
		return tracker.StatusDischarged
	default:
		return tracker.StatusPreannounced
	}
}

func words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func matchesAny(text []string, keywords []string) bool {
	if len(text) == 0 {
		return false
	}
	for _, k := range keywords {
		if matchesPhrase(text, strings.Fields(k)) {
			return true
		}
	}
	return false
}

// matchesPhrase reports whether phrase occurs as consecutive words in text
// without a negation in the preceding window.
func matchesPhrase(text, phrase []string) bool {
	for i := 0; i+len(phrase) <= len(text); i++ {
		if !equalWords(text[i:i+len(phrase)], phrase) {
			continue
		}
		if !negated(text, i) {
			return true
		}
	}
	return false
}

func equalWords(a, b []string) bool {
	for i := range b {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func negated(text []string, at int) bool {
	for j := max(0, at-negationWindow); j < at; j++ {
		if _, ok := negations[text[j]]; ok {
			return true
		}
	}
	return false
}

package hunt

import "strings"

// LeakDetector decides whether an assistant reply gave away the secret
// location contrary to the persona rules.
type LeakDetector interface {
	Leaked(reply string, loc Location) bool
}

// NameLeakDetector flags a reply that contains the location's name,
// insensitive to case and punctuation.
type NameLeakDetector struct{}

func (NameLeakDetector) Leaked(reply string, loc Location) bool {
	name := normalize(loc.Name)
	if name == "" {
		return false
	}
	return strings.Contains(normalize(reply), name)
}

func normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

package consolidation

import "strings"

// titleCaseNormalize applies the engine's entity-name normalization rule:
// split the name on runs of whitespace and hyphens, preserving the
// separators; a part that is all-upper-plus-digits (an acronym) or that
// already mixes case is left untouched; a part that is all lower-case
// gets its first letter upper-cased and the rest lower-cased.
//
//	"machine learning" -> "Machine Learning"
//	"GPT-4"             -> "GPT-4"
//	"TypeScript"         -> "TypeScript"
//	"AWS"                -> "AWS"
func titleCaseNormalize(name string) string {
	isSep := func(r rune) bool { return r == ' ' || r == '\t' || r == '-' }

	var b strings.Builder
	var part strings.Builder
	flush := func() {
		if part.Len() > 0 {
			b.WriteString(normalizePart(part.String()))
			part.Reset()
		}
	}
	for _, r := range name {
		if isSep(r) {
			flush()
			b.WriteRune(r)
			continue
		}
		part.WriteRune(r)
	}
	flush()
	return b.String()
}

func normalizePart(part string) string {
	hasLower, hasUpper := false, false
	for _, r := range part {
		switch {
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		}
	}
	if hasUpper && hasLower {
		return part // mixed case: leave as-is
	}
	if hasUpper || !hasLower {
		return part // acronym / all-caps / digits-only: leave as-is
	}
	return strings.ToUpper(part[:1]) + strings.ToLower(part[1:])
}

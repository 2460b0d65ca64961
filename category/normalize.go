package category

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var lower = cases.Lower(language.Und)

// fold lowercases s and strips combining marks, so "Café" becomes "cafe".
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return lower.String(out)
}

func isAlnum(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// alnumFields splits s on every run of characters that are neither letters nor digits.
func alnumFields(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return !isAlnum(r) })
}

func finish(tokens []string) (string, bool) {
	out := strings.Join(tokens, " ")
	return out, out != ""
}

func dropWords(tokens []string, words map[string]struct{}) []string {
	kept := tokens[:0]
	for _, tok := range tokens {
		if _, ok := words[tok]; !ok {
			kept = append(kept, tok)
		}
	}
	return kept
}

// NormalizeName prepares company and person names: lowercase, letters and
// digits only, English stop words and generic business words removed.
func NormalizeName(raw string) (string, bool) {
	return finish(dropWords(alnumFields(fold(raw)), nameStopwords))
}

// NormalizePhone keeps digits only. A trailing ".0" left over from numeric
// spreadsheet cells is removed first, and numbers made of one repeated digit
// are treated as placeholders.
func NormalizePhone(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	s = strings.TrimSuffix(s, ".0")

	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	if len(digits) > 1 && strings.Count(digits, digits[:1]) == len(digits) {
		return "", false
	}
	return digits, digits != ""
}

// commonEmail lowercases, removes whitespace and blanks filler addresses.
func commonEmail(raw string) string {
	s := strings.Join(strings.Fields(fold(raw)), "")
	if _, ok := fillerEmails[s]; ok {
		return ""
	}
	return s
}

// NormalizeEmail keeps the letters and digits of the full address.
func NormalizeEmail(raw string) (string, bool) {
	return finish([]string{strings.Join(alnumFields(commonEmail(raw)), "")})
}

// NormalizeEmailDomain keeps the domain of an address without generic top
// level labels or large public providers, which carry no identity.
func NormalizeEmailDomain(raw string) (string, bool) {
	email := commonEmail(raw)
	at := strings.IndexByte(email, '@')
	if at < 0 {
		return "", false
	}

	labels := strings.Split(email[at+1:], ".")
	kept := labels[:0]
	for _, l := range labels {
		if l == "" {
			continue
		}
		if _, ok := domainStopwords[l]; ok {
			continue
		}
		kept = append(kept, l)
	}

	out := strings.Join(kept, ".")
	return out, out != ""
}

// NormalizeAddress prepares street addresses: ZIP+4 suffixes removed, letters
// split from digits, common words abbreviated, single letters joined,
// ordinals joined, unit words removed and any leading text before the house
// number dropped.
func NormalizeAddress(raw string) (string, bool) {
	s := fold(raw)
	s = trimZipSuffix(strings.TrimSpace(s))

	var tokens []string
	for _, f := range alnumFields(s) {
		for _, part := range splitLetterDigit(f) {
			if abbr, ok := addressAbbreviations[part]; ok {
				part = abbr
			}
			tokens = append(tokens, part)
		}
	}

	tokens = joinSingleLetters(tokens)
	tokens = joinOrdinals(tokens)
	tokens = dropWords(tokens, unitWords)

	// Drop text before the first token that starts with a digit.
	start := len(tokens)
	for i, tok := range tokens {
		if tok[0] >= '0' && tok[0] <= '9' {
			start = i
			break
		}
	}

	return finish(tokens[start:])
}

// trimZipSuffix removes a trailing "-digits" group.
func trimZipSuffix(s string) string {
	i := len(s)
	for i > 0 && s[i-1] >= '0' && s[i-1] <= '9' {
		i--
	}
	if i < len(s) && i > 0 && s[i-1] == '-' {
		return s[:i-1]
	}
	return s
}

// splitLetterDigit cuts a token wherever letters and digits meet: "12b" becomes "12", "b".
func splitLetterDigit(tok string) []string {
	var parts []string
	start := 0
	var prevDigit bool
	for i, r := range tok {
		digit := unicode.IsDigit(r)
		if i > start && digit != prevDigit {
			parts = append(parts, tok[start:i])
			start = i
		}
		prevDigit = digit
	}
	return append(parts, tok[start:])
}

func isSingleLetter(tok string) bool {
	r := []rune(tok)
	return len(r) == 1 && unicode.IsLetter(r[0])
}

// joinSingleLetters merges runs of one-letter tokens: "p o box" becomes "po box".
func joinSingleLetters(tokens []string) []string {
	out := tokens[:0]
	prevSingle := false
	for _, tok := range tokens {
		single := isSingleLetter(tok)
		if single && prevSingle {
			out[len(out)-1] += tok
		} else {
			out = append(out, tok)
		}
		prevSingle = single
	}
	return out
}

// joinOrdinals merges a number with its ordinal suffix: "21 st" becomes "21st".
func joinOrdinals(tokens []string) []string {
	out := tokens[:0]
	for _, tok := range tokens {
		if n := len(out); n > 0 && isOrdinalPair(out[n-1], tok) {
			out[n-1] += tok
			continue
		}
		out = append(out, tok)
	}
	return out
}

func isOrdinalPair(prev, suffix string) bool {
	last := prev[len(prev)-1]
	if last < '0' || last > '9' {
		return false
	}
	switch suffix {
	case "st":
		return last == '1'
	case "nd":
		return last == '2'
	case "rd":
		return last == '3'
	case "th":
		return true
	default:
		return false
	}
}

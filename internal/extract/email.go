package extract

import (
	"regexp"
	"strings"
)

var emailRe = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)

// EmailAddress returns the first local@domain.tld address in text, or "".
func EmailAddress(text string) string {
	return emailRe.FindString(text)
}

// QuotedField returns the quoted value following label, as in
// `subject: "Status"` or `Body "All good"`. Straight and curly double
// quotes are accepted; the label is matched case-insensitively. An absent
// or empty value yields "".
func QuotedField(text, label string) string {
	re, err := fieldPattern(label)
	if err != nil {
		return ""
	}
	if m := re.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// fieldPatterns caches compiled label patterns for the fixed labels.
var fieldPatterns = map[string]*regexp.Regexp{
	"subject": mustField("subject"),
	"body":    mustField("body"),
}

func fieldPattern(label string) (*regexp.Regexp, error) {
	if re, ok := fieldPatterns[strings.ToLower(label)]; ok {
		return re, nil
	}
	return regexp.Compile(fieldExpr(label))
}

func mustField(label string) *regexp.Regexp { return regexp.MustCompile(fieldExpr(label)) }

func fieldExpr(label string) string {
	return `(?is)\b` + regexp.QuoteMeta(label) + `[:\s]+["“]([^"”]*)["”]`
}

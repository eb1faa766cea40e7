package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// tablePrefixRe matches a leading table index marker: 表1, 表2, 表 3.
var tablePrefixRe = regexp.MustCompile(`^表1?\s*\d+\s*`)

// continuationRe matches a trailing continuation marker in ASCII or
// fullwidth parentheses: (续) or （续）.
var continuationRe = regexp.MustCompile(`[（(]续[）)]\s*$`)

// bilingualBoundaryRe finds the transition from a CJK character to a
// printable ASCII character inside a bilingual page-header label.
var bilingualBoundaryRe = regexp.MustCompile(`([\x{4e00}-\x{9fff}])([\x21-\x7E])`)

// NormalizeTitle strips the structural table-number prefix and continuation
// suffix from a raw table title. An empty result means the page carried no
// meaningful title and should be skipped.
func NormalizeTitle(raw string) string {
	title := strings.TrimSpace(raw)
	title = tablePrefixRe.ReplaceAllString(title, "")
	title = continuationRe.ReplaceAllString(title, "")
	return strings.TrimSpace(title)
}

// SplitBilingualLabel splits a page-header label of the form
// "<Chinese><ENGLISH,WITH,COMMAS>" at the script transition. The English
// side treats commas as word separators and capitalizes each word, so
// "燃油泵PUMP,FUEL" becomes cn "燃油泵", en "Pump Fuel". A label with no
// script transition is returned verbatim as the English side, untouched.
func SplitBilingualLabel(raw string) (cn, en string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ""
	}

	loc := bilingualBoundaryRe.FindStringIndex(raw)
	if loc == nil {
		return "", raw
	}

	// The match starts at the last CJK character; the split point is just
	// after it.
	_, size := utf8.DecodeRuneInString(raw[loc[0]:])
	splitIdx := loc[0] + size

	cn = strings.TrimSpace(raw[:splitIdx])
	en = titleCaseLabel(raw[splitIdx:])
	return cn, en
}

func titleCaseLabel(raw string) string {
	raw = strings.ReplaceAll(raw, ",", " ")
	parts := strings.Fields(raw)
	for i, p := range parts {
		parts[i] = capitalizeWord(p)
	}
	return strings.Join(parts, " ")
}

func capitalizeWord(w string) string {
	if w == "" {
		return w
	}
	return strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
}

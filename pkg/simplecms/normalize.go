package simplecms

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	slugInvalid     = regexp.MustCompile(`[^a-z0-9-]+`)
	slugMultiHyphen = regexp.MustCompile(`-{2,}`)
	slugValid       = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
)

// Slugify folds accents, lowercases and hyphenates a title into a page slug.
func Slugify(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	out = strings.ToLower(out)
	out = strings.Join(strings.Fields(out), "-")
	out = slugInvalid.ReplaceAllString(out, "")
	out = slugMultiHyphen.ReplaceAllString(out, "-")
	return strings.Trim(out, "-")
}

// IsValidSlug reports whether s is already in slug form.
func IsValidSlug(s string) bool {
	return slugValid.MatchString(s)
}

// NormalizeBodyFormat defaults an empty format to markdown.
func NormalizeBodyFormat(f BodyFormat) BodyFormat {
	if f == "" {
		return BodyMarkdown
	}
	return BodyFormat(strings.ToLower(string(f)))
}

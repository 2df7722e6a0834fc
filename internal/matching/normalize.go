package matching

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const qualifierWords = `remix|radio edit|extended|edit|version|karaoke|cover|live|remastered|mono|stereo`

var (
	promoBracketRe  = regexp.MustCompile(`[\(\[][^)\]]*(official|video|audio|lyric|lyrics|mv|hd|4k|remaster(ed)?|live|cover)[^)\]]*[\)\]]`)
	qualifierTailRe = regexp.MustCompile(`\s*[-_]+\s*\b(` + qualifierWords + `)\b.*$`)
	qualifierRe     = regexp.MustCompile(`\b(` + qualifierWords + `)\b`)
	separatorRe     = regexp.MustCompile(`[|\-_/–—]+`)
	featuringRe     = regexp.MustCompile(`\b(feat\.?|ft\.?|con|with)\b`)
	artistSepRe     = regexp.MustCompile(`[,/&;+]+`)
	nonAlnumRe      = regexp.MustCompile(`[^a-z0-9]+`)
)

var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {},
	"official": {}, "video": {}, "audio": {}, "lyric": {}, "lyrics": {},
	"remix": {}, "edit": {}, "radio": {}, "version": {},
	"feat": {}, "ft": {}, "con": {}, "with": {}, "featuring": {},
}

// signatureSize is how many artist tokens a signature keeps.
const signatureSize = 2

// fold decomposes s, drops anything outside ASCII and lowercases the rest.
func fold(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.Predicate(func(r rune) bool { return r > unicode.MaxASCII })))
	out, _, err := transform.String(t, s)
	if err != nil {
		return ""
	}
	return strings.ToLower(out)
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeTitle reduces a raw title to the form used for comparison.
//
// Promotional brackets ("(Official Video)", "[4K]") and a trailing "- Radio Edit" style suffix
// are removed, separators collapse to spaces, then remaining qualifier words are dropped.
// Separators go before the qualifier pass so that "_live" loses its qualifier on the first call;
// NormalizeTitle(NormalizeTitle(x)) == NormalizeTitle(x).
func NormalizeTitle(raw string) string {
	s := fold(raw)
	s = promoBracketRe.ReplaceAllString(s, " ")
	s = qualifierTailRe.ReplaceAllString(s, " ")
	s = separatorRe.ReplaceAllString(s, " ")
	s = qualifierRe.ReplaceAllString(s, " ")
	return collapseSpaces(s)
}

// NormalizeArtists builds the artist signature: at most two tokens drawn from the credited names,
// longest first with lexical order breaking ties.
//
// Anything after a featuring marker (feat, ft, con, with) is dropped from each name.
func NormalizeArtists(raw []string) []string {
	seen := make(map[string]struct{})
	for _, name := range raw {
		s := fold(name)
		if loc := featuringRe.FindStringIndex(s); loc != nil {
			s = s[:loc[0]]
		}
		s = artistSepRe.ReplaceAllString(s, " ")
		for _, tok := range strings.Fields(s) {
			seen[tok] = struct{}{}
		}
	}

	tokens := make([]string, 0, len(seen))
	for tok := range seen {
		tokens = append(tokens, tok)
	}
	sort.Slice(tokens, func(i, j int) bool {
		if len(tokens[i]) != len(tokens[j]) {
			return len(tokens[i]) > len(tokens[j])
		}
		return tokens[i] < tokens[j]
	})

	if len(tokens) > signatureSize {
		tokens = tokens[:signatureSize]
	}
	return tokens
}

// TokenSet splits text into lowercase alphanumeric tokens, minus stop words.
func TokenSet(text string) map[string]struct{} {
	s := nonAlnumRe.ReplaceAllString(fold(text), " ")
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(s) {
		if _, stop := stopWords[tok]; stop {
			continue
		}
		set[tok] = struct{}{}
	}
	return set
}

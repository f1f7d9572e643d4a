// Package textfilter softens dialogue for family content ratings. Stories
// are written once; when a session is rated for younger audiences the
// player runs each dialogue line through the filter before display.
package textfilter

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Rating is a coarse content rating attached to a play session.
type Rating string

const (
	RatingFamily  Rating = "family"
	RatingTeen    Rating = "teen"
	RatingMature  Rating = "mature"
	DefaultRating        = RatingTeen
)

// ParseRating maps a user-supplied rating string, accepting a few common
// MPAA-style spellings. Unknown values fall back to the default.
func ParseRating(s string) Rating {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "family", "g", "pg":
		return RatingFamily
	case "teen", "pg13", "pg-13":
		return RatingTeen
	case "mature", "r", "adult":
		return RatingMature
	default:
		return DefaultRating
	}
}

// Active reports whether dialogue at this rating should be filtered.
func (r Rating) Active() bool {
	return r == RatingFamily || r == RatingTeen
}

// replacements maps each filtered word to a softened alternative. Words
// with no printable alternative are masked instead.
var replacements = map[string]string{
	"fuck":    "fudge",
	"fucking": "freaking",
	"shit":    "shoot",
	"damn":    "dang",
	"goddamn": "gosh-dang",
	"hell":    "heck",
	"ass":     "butt",
	"asshole": "jerk",
	"bitch":   "jerk",
	"bastard": "jerk",
	"crap":    "crud",
	"piss":    "tick",
	"pissed":  "ticked",
	"prick":   "jerk",
}

// masked are words softened to a censor mark rather than a synonym.
var masked = []string{
	"cock", "dick", "pussy", "whore", "slut",
}

// Filter rewrites dialogue lines according to a session's content rating.
// The zero value is not usable; construct with New.
type Filter struct {
	rating  Rating
	pattern *regexp.Regexp
}

// New builds a filter for the given rating. The word pattern is compiled
// once; Clean is safe for concurrent use.
func New(rating Rating) *Filter {
	words := make([]string, 0, len(replacements)+len(masked))
	for w := range replacements {
		words = append(words, regexp.QuoteMeta(w))
	}
	for _, w := range masked {
		words = append(words, regexp.QuoteMeta(w))
	}
	return &Filter{
		rating:  rating,
		pattern: regexp.MustCompile(`(?i)\b(` + strings.Join(words, "|") + `)\b`),
	}
}

// Rating returns the rating the filter was built for.
func (f *Filter) Rating() Rating {
	return f.rating
}

// Clean returns the line with filtered words softened. At a mature rating
// the line passes through untouched.
func (f *Filter) Clean(line string) string {
	if !f.rating.Active() {
		return line
	}
	return f.pattern.ReplaceAllStringFunc(line, func(match string) string {
		repl, ok := replacements[strings.ToLower(match)]
		if !ok {
			return "[censored]"
		}
		return matchCase(match, repl)
	})
}

// Flagged reports whether the line contains any word the filter would
// rewrite, regardless of rating.
func (f *Filter) Flagged(line string) bool {
	return f.pattern.MatchString(line)
}

// matchCase applies the casing of the original word to its replacement:
// all-caps stays all-caps, title case stays title case, anything else is
// lowercased.
func matchCase(original, replacement string) string {
	if original == strings.ToUpper(original) {
		return strings.ToUpper(replacement)
	}
	r := []rune(original)
	if unicode.IsUpper(r[0]) {
		return cases.Title(language.English).String(replacement)
	}
	return replacement
}

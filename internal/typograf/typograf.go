// Package typograf applies typographic substitutions to the text of an HTML
// document: ellipses, locale quotes, dashes, symbols, doubled spaces and
// non-breaking spaces after short words. Markup is re-emitted byte for byte
// and the contents of script, style, pre, code and textarea are left alone.
package typograf

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/text/language"
)

const nbsp = '\u00a0'

var supported = []language.Tag{
	language.Russian,
	language.AmericanEnglish,
}

var matcher = language.NewMatcher(supported)

type rules struct {
	open      [2]string
	close     [2]string
	dash      string
	shortWord bool
}

var localeRules = map[language.Tag]rules{
	language.Russian: {
		open:      [2]string{"«", "„"},
		close:     [2]string{"»", "“"},
		dash:      "\u00a0— ",
		shortWord: true,
	},
	language.AmericanEnglish: {
		open:  [2]string{"“", "‘"},
		close: [2]string{"”", "’"},
		dash:  " — ",
	},
}

// blocks end any quote left open inside them.
var blocks = map[string]bool{
	"p": true, "div": true, "li": true, "td": true, "th": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"blockquote": true, "dd": true, "dt": true, "figcaption": true,
	"section": true, "article": true, "header": true, "footer": true,
}

// skipped elements keep their text verbatim.
var skipped = map[string]bool{
	"script":   true,
	"style":    true,
	"pre":      true,
	"code":     true,
	"textarea": true,
}

var (
	ellipsisRe    = regexp.MustCompile(`\.{3}`)
	dashRe        = regexp.MustCompile(`[ \x{00a0}]+-{1,2}[ \x{00a0}]+`)
	copyRe        = regexp.MustCompile(`(?i)\(c\)`)
	regRe         = regexp.MustCompile(`(?i)\(r\)`)
	tmRe          = regexp.MustCompile(`(?i)\(tm\)`)
	plusMinusRe   = regexp.MustCompile(`\+-`)
	doubleSpaceRe = regexp.MustCompile(`([^\s])[ \x{00a0}]{2,}`)
	shortWordRe   = regexp.MustCompile(`(^|[\s(«„\x{00a0}])(\p{L}{1,2}) `)
)

// Typograf rewrites HTML text for one primary locale.
type Typograf struct {
	locale language.Tag
	rules  rules
}

// New builds a typograf for the given locales. The first locale decides the
// rule set; later ones must still be valid tags.
func New(locales ...string) (*Typograf, error) {
	if len(locales) == 0 {
		return nil, fmt.Errorf("typograf: at least one locale is required")
	}

	tags := make([]language.Tag, 0, len(locales))
	for _, l := range locales {
		tag, err := language.Parse(l)
		if err != nil {
			return nil, fmt.Errorf("typograf: invalid locale %q: %w", l, err)
		}
		tags = append(tags, tag)
	}

	_, idx, confidence := matcher.Match(tags[0])
	if confidence == language.No {
		return nil, fmt.Errorf("typograf: unsupported locale %q", locales[0])
	}

	locale := supported[idx]
	return &Typograf{locale: locale, rules: localeRules[locale]}, nil
}

// Locale returns the tag whose rules are applied.
func (t *Typograf) Locale() language.Tag { return t.locale }

// Process rewrites the text nodes of an HTML document.
func (t *Typograf) Process(src []byte) ([]byte, error) {
	var out bytes.Buffer
	out.Grow(len(src) + len(src)/8)

	z := html.NewTokenizer(bytes.NewReader(src))
	depth := 0
	state := &quoteState{}

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if z.Err() == io.EOF {
				return out.Bytes(), nil
			}
			return nil, z.Err()
		case html.TextToken:
			raw := z.Raw()
			if depth > 0 {
				out.Write(raw)
				continue
			}
			out.WriteString(t.text(string(raw), state))
		case html.StartTagToken:
			out.Write(z.Raw())
			name, _ := z.TagName()
			if skipped[string(name)] {
				depth++
			}
			if blocks[string(name)] {
				*state = quoteState{}
			}
		case html.EndTagToken:
			out.Write(z.Raw())
			name, _ := z.TagName()
			if skipped[string(name)] && depth > 0 {
				depth--
			}
			if blocks[string(name)] {
				*state = quoteState{}
			}
		default:
			out.Write(z.Raw())
		}
	}
}

// String processes a fragment of plain text.
func (t *Typograf) String(text string) string {
	return t.text(text, &quoteState{})
}

// text rewrites one raw text node. The quote state carries nesting across
// nodes split by inline markup.
func (t *Typograf) text(text string, state *quoteState) string {
	if strings.TrimSpace(text) == "" {
		if text != "" {
			state.prev = ' '
			state.opened = false
		}
		return text
	}

	text = strings.ReplaceAll(text, "&nbsp;", string(nbsp))
	text = strings.ReplaceAll(text, "&quot;", `"`)

	text = ellipsisRe.ReplaceAllString(text, "…")
	text = copyRe.ReplaceAllString(text, "©")
	text = regRe.ReplaceAllString(text, "®")
	text = tmRe.ReplaceAllString(text, "™")
	text = plusMinusRe.ReplaceAllString(text, "±")
	text = doubleSpaceRe.ReplaceAllString(text, "$1 ")
	text = dashRe.ReplaceAllString(text, t.rules.dash)
	text = t.quotes(text, state)

	if t.rules.shortWord {
		// Adjacent short words share a separator, so a second pass catches
		// the ones the first pass consumed.
		text = shortWordRe.ReplaceAllString(text, "$1$2\u00a0")
		text = shortWordRe.ReplaceAllString(text, "$1$2\u00a0")
	}

	return strings.ReplaceAll(text, string(nbsp), "&nbsp;")
}

type quoteState struct {
	depth int
	prev  rune
	// opened is set right after an opening quote, so "" closes at once.
	opened bool
}

func (t *Typograf) quotes(text string, state *quoteState) string {
	if !strings.Contains(text, `"`) {
		if r, _ := utf8.DecodeLastRuneInString(text); r != utf8.RuneError {
			state.prev = r
			state.opened = false
		}
		return text
	}

	var b strings.Builder
	b.Grow(len(text) + 8)
	for _, r := range text {
		if r != '"' {
			b.WriteRune(r)
			state.prev = r
			state.opened = false
			continue
		}

		if !state.opened && opensQuote(state.prev) {
			level := min(state.depth, 1)
			b.WriteString(t.rules.open[level])
			state.depth++
			state.opened = true
		} else {
			if state.depth > 0 {
				state.depth--
			}
			b.WriteString(t.rules.close[min(state.depth, 1)])
			state.opened = false
		}
		state.prev = r
	}
	return b.String()
}

func opensQuote(prev rune) bool {
	if prev == 0 || unicode.IsSpace(prev) || prev == nbsp {
		return true
	}
	return strings.ContainsRune("([{«„“‘—-", prev)
}

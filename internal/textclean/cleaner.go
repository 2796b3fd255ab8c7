// Package textclean normalises review text and drops entries not worth analysing.
package textclean

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/Harsh-BH/reviewlens/internal/domain"
)

// Config controls length bounds and the blocklist.
type Config struct {
	MinLength            int
	MinLengthLogographic int
	MaxLength            int
	Blocklist            []string
}

// DefaultConfig accepts 5 to 2000 characters, or 2 for logographic scripts.
func DefaultConfig() Config {
	return Config{MinLength: 5, MinLengthLogographic: 2, MaxLength: 2000}
}

// Cleaner is safe for concurrent use.
type Cleaner struct {
	cfg       Config
	blocklist []string
}

func New(cfg Config) *Cleaner {
	def := DefaultConfig()
	if cfg.MinLength <= 0 {
		cfg.MinLength = def.MinLength
	}
	if cfg.MinLengthLogographic <= 0 {
		cfg.MinLengthLogographic = def.MinLengthLogographic
	}
	if cfg.MaxLength <= 0 {
		cfg.MaxLength = def.MaxLength
	}
	c := &Cleaner{cfg: cfg}
	for _, term := range cfg.Blocklist {
		if term = strings.ToLower(strings.TrimSpace(term)); term != "" {
			c.blocklist = append(c.blocklist, term)
		}
	}
	return c
}

// Clean returns the normalised text, or false when the text must be dropped.
func (c *Cleaner) Clean(text string, lang domain.Language) (string, bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	if strings.ContainsAny(text, "<&") {
		text = stripHTML(text)
	}

	text = normalize(text)

	n := utf8.RuneCountInString(text)
	minLen := c.cfg.MinLength
	if lang.IsLogographic() || isMostlyHan(text) {
		minLen = c.cfg.MinLengthLogographic
	}
	if n < minLen || n > c.cfg.MaxLength {
		return "", false
	}

	if isMeaningless(text) {
		return "", false
	}

	lower := strings.ToLower(text)
	for _, term := range c.blocklist {
		if strings.Contains(lower, term) {
			return "", false
		}
	}
	return text, true
}

func stripHTML(text string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return text
	}
	doc.Find("br, p, div, li").Each(func(_ int, s *goquery.Selection) {
		s.AfterHtml(" ")
	})
	return doc.Text()
}

// normalize keeps letters, numbers, punctuation and spaces, collapsing whitespace runs.
func normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	space := false
	for _, r := range text {
		switch {
		case unicode.IsSpace(r) || unicode.Is(unicode.Z, r):
			space = true
		case unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsPunct(r):
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		}
	}
	return b.String()
}

var (
	throwawayEn = regexp.MustCompile(`^(?i:good|bad|ok|okay|fine|great|excellent|terrible|poor|awesome|nice|cool)+$`)
	throwawayZh = regexp.MustCompile(`^(好|棒|差|一般|可以|还行|不错|好评|差评)+$`)
)

// isMeaningless matches pure digits or punctuation and repeated acknowledgement words.
func isMeaningless(text string) bool {
	var compact strings.Builder
	hasLetter := false
	for _, r := range text {
		if unicode.IsLetter(r) {
			hasLetter = true
		}
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			compact.WriteRune(r)
		}
	}
	if !hasLetter {
		return true
	}
	s := compact.String()
	return throwawayEn.MatchString(s) || throwawayZh.MatchString(s)
}

func isMostlyHan(text string) bool {
	han, letters := 0, 0
	for _, r := range text {
		if unicode.IsLetter(r) {
			letters++
			if unicode.Is(unicode.Han, r) {
				han++
			}
		}
	}
	return letters > 0 && han*2 > letters
}

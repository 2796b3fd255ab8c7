package textclean

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Harsh-BH/reviewlens/internal/domain"
)

func TestClean(t *testing.T) {
	c := New(Config{Blocklist: []string{"Casino", " "}})

	cases := []struct {
		name string
		text string
		lang domain.Language
		want string
		ok   bool
	}{
		{"plain", "Fast and stable app", domain.LangEnglish, "Fast and stable app", true},
		{"collapses whitespace", "  Fast\n\n and\tstable  ", domain.LangEnglish, "Fast and stable", true},
		{"drops emoji", "Love it 😍😍 so fast", domain.LangEnglish, "Love it so fast", true},
		{"strips html", "<p>Great <b>battery</b></p><br>life here", domain.LangEnglish, "Great battery life here", true},
		{"decodes entities", "Ads &amp; popups everywhere", domain.LangEnglish, "Ads & popups everywhere", true},
		{"empty", "   ", domain.LangEnglish, "", false},
		{"too short", "Nice", domain.LangEnglish, "", false},
		{"digits only", "12345.678", domain.LangEnglish, "", false},
		{"punctuation only", "!!!???...", domain.LangEnglish, "", false},
		{"throwaway english", "Good good!", domain.LangEnglish, "", false},
		{"throwaway mixed case", "AWESOME", domain.LangEnglish, "", false},
		{"throwaway chinese", "好好好好", domain.LangChinese, "", false},
		{"short chinese accepted", "很卡", domain.LangChinese, "很卡", true},
		{"chinese text under english request", "经常闪退", domain.LangEnglish, "经常闪退", true},
		{"blocklisted", "Win money at the casino now", domain.LangEnglish, "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := c.Clean(tc.text, tc.lang)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestClean_MaxLength(t *testing.T) {
	c := New(DefaultConfig())

	_, ok := c.Clean(strings.Repeat("a", 2000), domain.LangEnglish)
	assert.True(t, ok)

	_, ok = c.Clean(strings.Repeat("a", 2001), domain.LangEnglish)
	assert.False(t, ok)
}

func TestClean_LengthCountsRunes(t *testing.T) {
	c := New(Config{MinLength: 5, MinLengthLogographic: 3})

	_, ok := c.Clean("界面好看", domain.LangChinese)
	assert.True(t, ok)

	_, ok = c.Clean("界面", domain.LangChinese)
	assert.False(t, ok)
}

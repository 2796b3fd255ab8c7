package extractor

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Harsh-BH/reviewlens/internal/domain"
)

const validDict = `
language: en
tokenizer: words
templates:
  liked: "Users like the {feature} feature"
  disliked: "Users mentioned issues with the {feature}"
synonyms:
  GUI: UI
positive: [Good]
negative: [bad]
features:
  - key: interface
    name: User Interface
    keywords: [UI, Design]
`

func TestLoadBuiltin(t *testing.T) {
	dicts, err := LoadBuiltin()
	require.NoError(t, err)
	require.Contains(t, dicts, domain.LangEnglish)
	require.Contains(t, dicts, domain.LangChinese)

	en := dicts[domain.LangEnglish]
	assert.Equal(t, TokenizeWords, en.Tokenizer)
	assert.Equal(t, TokenizeRunes, dicts[domain.LangChinese].Tokenizer)
	assert.Equal(t, "performance", en.Features[2].Key)

	idx, ok := en.FeatureIndex("battery usage")
	require.True(t, ok)
	assert.Equal(t, "battery", en.Features[idx].Key)
}

func TestParseDictionary_Normalises(t *testing.T) {
	d, err := ParseDictionary([]byte(validDict))
	require.NoError(t, err)
	assert.Equal(t, []string{"ui", "design"}, d.Features[0].Keywords)
	assert.Equal(t, "ui", d.Synonyms["gui"])
	assert.Equal(t, []string{"good"}, d.Positive)
	assert.Equal(t, "Users like the Speed feature", d.Template(domain.PolarityPositive, "Speed"))
	assert.Equal(t, "Users mentioned issues with the Speed", d.Template(domain.PolarityNegative, "Speed"))
}

func TestParseDictionary_Rejects(t *testing.T) {
	cases := map[string]string{
		"bad tokenizer": `
language: en
tokenizer: bigram
templates: {liked: "{feature}", disliked: "{feature}"}
positive: [a]
negative: [b]
features: [{key: k, name: n, keywords: [x]}]
`,
		"template without placeholder": `
language: en
tokenizer: words
templates: {liked: "Users like it", disliked: "{feature}"}
positive: [a]
negative: [b]
features: [{key: k, name: n, keywords: [x]}]
`,
		"empty keywords": `
language: en
tokenizer: words
templates: {liked: "{feature}", disliked: "{feature}"}
positive: [a]
negative: [b]
features: [{key: k, name: n, keywords: []}]
`,
		"duplicate feature key": `
language: en
tokenizer: words
templates: {liked: "{feature}", disliked: "{feature}"}
positive: [a]
negative: [b]
features: [{key: k, name: n1, keywords: [x]}, {key: k, name: n2, keywords: [y]}]
`,
		"unsupported language": `
language: fr
tokenizer: words
templates: {liked: "{feature}", disliked: "{feature}"}
positive: [a]
negative: [b]
features: [{key: k, name: n, keywords: [x]}]
`,
		"malformed yaml": "features: [",
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseDictionary([]byte(raw))
			assert.Error(t, err)
		})
	}
}

func TestLoadDictionaries_DuplicateLanguage(t *testing.T) {
	fsys := fstest.MapFS{
		"a.yaml": {Data: []byte(validDict)},
		"b.yaml": {Data: []byte(validDict)},
	}
	_, err := LoadDictionaries(fsys)
	assert.ErrorContains(t, err, "duplicate language")
}

func TestLoadDictionaries_Empty(t *testing.T) {
	_, err := LoadDictionaries(fstest.MapFS{})
	assert.Error(t, err)
}

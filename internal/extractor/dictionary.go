package extractor

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/Harsh-BH/reviewlens/internal/domain"
)

//go:embed dictionaries/*.yaml
var builtin embed.FS

const featurePlaceholder = "{feature}"

// Tokenizer modes.
const (
	TokenizeWords = "words"
	TokenizeRunes = "runes"
)

// FeatureDef maps one feature to the keywords that signal it.
type FeatureDef struct {
	Key      string   `yaml:"key" validate:"required"`
	Name     string   `yaml:"name" validate:"required"`
	Keywords []string `yaml:"keywords" validate:"required,min=1,dive,required"`
}

// Templates are used when no review can serve as an example.
type Templates struct {
	Liked    string `yaml:"liked" validate:"required,contains={feature}"`
	Disliked string `yaml:"disliked" validate:"required,contains={feature}"`
}

// Dictionary is the typed keyword table for one language.
type Dictionary struct {
	Language  domain.Language   `yaml:"language" validate:"required"`
	Tokenizer string            `yaml:"tokenizer" validate:"required,oneof=words runes"`
	Templates Templates         `yaml:"templates" validate:"required"`
	Synonyms  map[string]string `yaml:"synonyms" validate:"omitempty,dive,keys,required,endkeys,required"`
	Positive  []string          `yaml:"positive" validate:"required,min=1,dive,required"`
	Negative  []string          `yaml:"negative" validate:"required,min=1,dive,required"`
	Features  []FeatureDef      `yaml:"features" validate:"required,min=1,unique=Key,unique=Name,dive"`

	// synonym variants longest first, resolved once at load
	synonymOrder []string
	byName       map[string]int
}

// Template renders the fallback sentence for a feature.
func (d *Dictionary) Template(p domain.Polarity, feature string) string {
	t := d.Templates.Liked
	if p == domain.PolarityNegative {
		t = d.Templates.Disliked
	}
	return strings.ReplaceAll(t, featurePlaceholder, feature)
}

// FeatureIndex looks a feature up by display name or key, case-insensitively.
func (d *Dictionary) FeatureIndex(name string) (int, bool) {
	i, ok := d.byName[strings.ToLower(strings.TrimSpace(name))]
	return i, ok
}

var validate = validator.New()

// LoadBuiltin loads the dictionaries compiled into the binary.
func LoadBuiltin() (map[domain.Language]*Dictionary, error) {
	sub, err := fs.Sub(builtin, "dictionaries")
	if err != nil {
		return nil, err
	}
	return LoadDictionaries(sub)
}

// LoadDictionaries parses and validates every *.yaml file in fsys. Adding a language
// means adding a file.
func LoadDictionaries(fsys fs.FS) (map[domain.Language]*Dictionary, error) {
	names, err := fs.Glob(fsys, "*.yaml")
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("extractor: no dictionaries found")
	}
	sort.Strings(names)

	dicts := make(map[domain.Language]*Dictionary, len(names))
	for _, name := range names {
		raw, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("extractor: read %s: %w", name, err)
		}
		d, err := ParseDictionary(raw)
		if err != nil {
			return nil, fmt.Errorf("extractor: %s: %w", path.Base(name), err)
		}
		if _, dup := dicts[d.Language]; dup {
			return nil, fmt.Errorf("extractor: %s: duplicate language %q", name, d.Language)
		}
		dicts[d.Language] = d
	}
	return dicts, nil
}

// ParseDictionary decodes and validates a single YAML dictionary.
func ParseDictionary(raw []byte) (*Dictionary, error) {
	var d Dictionary
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := validate.Struct(&d); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}
	if !d.Language.IsValid() {
		return nil, fmt.Errorf("validate: %w: %q", domain.ErrInvalidLanguage, d.Language)
	}

	lowerAll(d.Positive)
	lowerAll(d.Negative)
	for i := range d.Features {
		lowerAll(d.Features[i].Keywords)
	}
	syn := make(map[string]string, len(d.Synonyms))
	for k, v := range d.Synonyms {
		syn[strings.ToLower(k)] = strings.ToLower(v)
	}
	d.Synonyms = syn
	for k := range syn {
		d.synonymOrder = append(d.synonymOrder, k)
	}
	sort.Slice(d.synonymOrder, func(i, j int) bool {
		a, b := d.synonymOrder[i], d.synonymOrder[j]
		if len(a) != len(b) {
			return len(a) > len(b)
		}
		return a < b
	})

	d.byName = make(map[string]int, 2*len(d.Features))
	for i, f := range d.Features {
		d.byName[strings.ToLower(f.Name)] = i
		d.byName[strings.ToLower(f.Key)] = i
	}
	return &d, nil
}

func lowerAll(words []string) {
	for i, w := range words {
		words[i] = strings.ToLower(strings.TrimSpace(w))
	}
}

// Package i18n provides localized display strings for search responses.
package i18n

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys.
const (
	KeyDidYouMean       = "Search.DidYouMean"
	KeyTopCategories    = "Search.TopCategories"
	KeyTopManufacturers = "Search.TopManufacturers"
	KeyTermMinLength    = "Search.SearchTermMinimumLengthIsNCharacters"
)

var messages = map[language.Tag]map[string]string{
	language.English: {
		KeyDidYouMean:       "Did you mean",
		KeyTopCategories:    "Top categories",
		KeyTopManufacturers: "Top manufacturers",
		KeyTermMinLength:    "The search term must be at least %d characters long.",
	},
	language.German: {
		KeyDidYouMean:       "Meinten Sie",
		KeyTopCategories:    "Top-Kategorien",
		KeyTopManufacturers: "Top-Hersteller",
		KeyTermMinLength:    "Der Suchbegriff muss mindestens %d Zeichen lang sein.",
	},
	language.Turkish: {
		KeyDidYouMean:       "Bunu mu demek istediniz",
		KeyTopCategories:    "Öne çıkan kategoriler",
		KeyTopManufacturers: "Öne çıkan markalar",
		KeyTermMinLength:    "Arama terimi en az %d karakter uzunluğunda olmalıdır.",
	},
}

// Translator looks up display strings from an in-process message catalog.
type Translator struct {
	catalog   *catalog.Builder
	matcher   language.Matcher
	supported []language.Tag
	fallback  language.Tag
}

// New builds a Translator whose fallback language is defaultLanguage.
func New(defaultLanguage string) (*Translator, error) {
	fallback, err := language.Parse(defaultLanguage)
	if err != nil {
		return nil, fmt.Errorf("i18n: parse default language %q: %w", defaultLanguage, err)
	}

	b := catalog.NewBuilder(catalog.Fallback(language.English))
	supported := []language.Tag{language.English, language.German, language.Turkish}
	for _, tag := range supported {
		for key, msg := range messages[tag] {
			if err := b.SetString(tag, key, msg); err != nil {
				return nil, fmt.Errorf("i18n: set %s/%s: %w", tag, key, err)
			}
		}
	}

	t := &Translator{
		catalog:   b,
		supported: supported,
		fallback:  language.English,
	}
	t.matcher = language.NewMatcher(supported)
	if _, idx, conf := t.matcher.Match(fallback); conf != language.No {
		t.fallback = supported[idx]
	}
	return t, nil
}

// T returns the message for key in lang, formatted with args. Unknown
// languages fall back to the default language; unknown keys render as the key.
func (t *Translator) T(lang, key string, args ...any) string {
	p := message.NewPrinter(t.tag(lang), message.Catalog(t.catalog))
	return p.Sprintf(key, args...)
}

// Match picks the supported language code closest to the requested ones.
// Each entry may be a plain code ("de") or an Accept-Language header value.
func (t *Translator) Match(requested ...string) string {
	var tags []language.Tag
	for _, r := range requested {
		if r == "" {
			continue
		}
		parsed, _, err := language.ParseAcceptLanguage(r)
		if err != nil {
			continue
		}
		tags = append(tags, parsed...)
	}
	if len(tags) == 0 {
		return code(t.fallback)
	}
	_, idx, conf := t.matcher.Match(tags...)
	if conf == language.No {
		return code(t.fallback)
	}
	return code(t.supported[idx])
}

func (t *Translator) tag(lang string) language.Tag {
	if lang == "" {
		return t.fallback
	}
	parsed, err := language.Parse(lang)
	if err != nil {
		return t.fallback
	}
	_, idx, conf := t.matcher.Match(parsed)
	if conf == language.No {
		return t.fallback
	}
	return t.supported[idx]
}

func code(tag language.Tag) string {
	base, _ := tag.Base()
	return base.String()
}

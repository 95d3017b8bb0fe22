package formschema

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// EditorLanguages are the languages the form editor offers for labels.
var EditorLanguages = []string{"en", "es", "ar"}

// KnownLanguages are the language keys a translation may carry.
var KnownLanguages = []string{
	"en", "es", "fr", "de", "it", "pt", "ru", "zh", "ja", "ar", "hi", "bn", "pa", "jv", "ko", "vi",
}

// LanguageOption describes one selectable language.
type LanguageOption struct {
	Value  string `json:"value"`
	Label  string `json:"label"`
	Native string `json:"native"`
	RTL    bool   `json:"rtl"`
}

// ParseLanguageKey normalizes a language key such as "eng" or "es-MX" to the
// base language code used in translations.
func ParseLanguageKey(s string) (string, error) {
	tag, err := language.Parse(s)
	if err != nil {
		return "", fmt.Errorf("%w: language %q: %v", ErrInvalidArgument, s, err)
	}
	base, _ := tag.Base()
	return base.String(), nil
}

// LanguageOptions returns display data for keys, skipping keys that are not
// valid language tags.
func LanguageOptions(keys []string) []LanguageOption {
	namer := display.English.Languages()
	out := make([]LanguageOption, 0, len(keys))
	for _, k := range keys {
		tag, err := language.Parse(k)
		if err != nil {
			continue
		}
		script, _ := tag.Script()
		out = append(out, LanguageOption{
			Value:  k,
			Label:  namer.Name(tag),
			Native: display.Self.Name(tag),
			RTL:    isRTL(script.String()),
		})
	}
	return out
}

func isRTL(script string) bool {
	switch script {
	case "Arab", "Hebr", "Syrc", "Thaa", "Nkoo", "Adlm", "Rohg":
		return true
	}
	return false
}

package formschema

import (
	"encoding/json"
	"fmt"

	"github.com/clinicadmin/clinicadmin/pkg/ordered"
)

// DefaultLanguage is the fallback language for labels and options.
const DefaultLanguage = "en"

// TranslationObject maps language keys to display text. Languages keep the
// order they were added in, which is the JSON document order when decoded.
// Values are immutable: With and Without return modified copies.
type TranslationObject struct {
	keys []string
	text map[string]string
}

// NewTranslation builds a TranslationObject from language/text pairs.
// A trailing unpaired argument is ignored.
func NewTranslation(pairs ...string) TranslationObject {
	var t TranslationObject
	for i := 0; i+1 < len(pairs); i += 2 {
		t = t.With(pairs[i], pairs[i+1])
	}
	return t
}

func (t TranslationObject) Len() int { return len(t.keys) }

// Languages returns the language keys in insertion order.
func (t TranslationObject) Languages() []string {
	out := make([]string, len(t.keys))
	copy(out, t.keys)
	return out
}

func (t TranslationObject) Get(language string) (string, bool) {
	s, ok := t.text[language]
	return s, ok
}

// With returns a copy with language set to text. An existing language keeps
// its position.
func (t TranslationObject) With(language, text string) TranslationObject {
	out := t.clone()
	if _, ok := out.text[language]; !ok {
		out.keys = append(out.keys, language)
	}
	out.text[language] = text
	return out
}

// Without returns a copy with language removed.
func (t TranslationObject) Without(language string) TranslationObject {
	if _, ok := t.text[language]; !ok {
		return t
	}
	out := TranslationObject{text: make(map[string]string, len(t.keys))}
	for _, k := range t.keys {
		if k == language {
			continue
		}
		out.keys = append(out.keys, k)
		out.text[k] = t.text[k]
	}
	return out
}

// Map returns the translations as a plain map. Order is lost.
func (t TranslationObject) Map() map[string]string {
	out := make(map[string]string, len(t.keys))
	for k, v := range t.text {
		out[k] = v
	}
	return out
}

// Equal reports whether both objects hold the same languages in the same
// order with the same text.
func (t TranslationObject) Equal(o TranslationObject) bool {
	if len(t.keys) != len(o.keys) {
		return false
	}
	for i, k := range t.keys {
		if o.keys[i] != k || o.text[k] != t.text[k] {
			return false
		}
	}
	return true
}

// MapText returns a copy with fn applied to every text value.
func (t TranslationObject) MapText(fn func(string) string) TranslationObject {
	out := TranslationObject{keys: t.Languages(), text: make(map[string]string, len(t.keys))}
	for _, k := range t.keys {
		out.text[k] = fn(t.text[k])
	}
	return out
}

func (t TranslationObject) clone() TranslationObject {
	out := TranslationObject{
		keys: make([]string, len(t.keys), len(t.keys)+1),
		text: make(map[string]string, len(t.keys)+1),
	}
	copy(out.keys, t.keys)
	for k, v := range t.text {
		out.text[k] = v
	}
	return out
}

func (t TranslationObject) toObject() *ordered.Object {
	obj := ordered.New()
	for _, k := range t.keys {
		obj.Set(k, t.text[k])
	}
	return obj
}

func (t TranslationObject) MarshalJSON() ([]byte, error) {
	return t.toObject().MarshalJSON()
}

func (t *TranslationObject) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = TranslationObject{}
		return nil
	}
	obj, err := ordered.DecodeObject(data)
	if err != nil {
		return fmt.Errorf("translation: %w", err)
	}
	*t = translationFromObject(obj)
	return nil
}

// translationFromObject reads every non-null value as text. Numbers and
// booleans are formatted; nested values are skipped.
func translationFromObject(obj *ordered.Object) TranslationObject {
	var out TranslationObject
	for _, k := range obj.Keys() {
		v, _ := obj.Get(k)
		switch s := v.(type) {
		case string:
			out = out.With(k, s)
		case float64, bool, json.Number:
			out = out.With(k, fmt.Sprint(s))
		}
	}
	return out
}

// Resolve returns the text for language. When it is missing the English
// text is used, then the first language in insertion order. An empty
// object resolves to "".
func Resolve(t TranslationObject, language string) string {
	if t.Len() == 0 {
		return ""
	}
	if s, ok := t.text[language]; ok {
		return s
	}
	if s, ok := t.text[DefaultLanguage]; ok {
		return s
	}
	return t.text[t.keys[0]]
}

package formschema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/clinicadmin/clinicadmin/pkg/ordered"
)

// FieldOption is one choice of an option-bearing field. It is either a plain
// label/value pair or a set of translations, in which case Value is the
// resolved English (or first) translation.
type FieldOption struct {
	Label        string
	Value        string
	Translations TranslationObject

	translated bool
	hasValue   bool
}

// NewOption returns a label/value option.
func NewOption(label, value string) FieldOption {
	return FieldOption{Label: label, Value: value, hasValue: true}
}

// TranslatedOption returns an option backed by translations.
func TranslatedOption(t TranslationObject) FieldOption {
	return FieldOption{
		Value:        Resolve(t, DefaultLanguage),
		Translations: t,
		translated:   true,
		hasValue:     t.Len() > 0,
	}
}

// IsTranslated reports whether the option carries translations rather than
// a label/value pair.
func (o FieldOption) IsTranslated() bool { return o.translated }

// Key returns the identity used for deduplication. Options without a value
// have no key.
func (o FieldOption) Key() (string, bool) {
	return o.Value, o.hasValue
}

// Display returns the text shown for language.
func (o FieldOption) Display(language string) string {
	if o.translated {
		return Resolve(o.Translations, language)
	}
	if o.Label != "" {
		return o.Label
	}
	return o.Value
}

func (o FieldOption) MarshalJSON() ([]byte, error) {
	if o.translated {
		return o.Translations.MarshalJSON()
	}
	obj := ordered.New()
	if o.Label != "" || !o.hasValue {
		obj.Set("label", o.Label)
	}
	if o.hasValue {
		obj.Set("value", o.Value)
	}
	return obj.MarshalJSON()
}

func (o *FieldOption) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	// medicine fields may list bare strings
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*o = NewOption(s, s)
		return nil
	}
	obj, err := ordered.DecodeObject(data)
	if err != nil {
		return fmt.Errorf("option: %w", err)
	}
	*o = optionFromObject(obj)
	return nil
}

// optionFromObject treats an object with a label or value key as a
// label/value pair and anything else as translations.
func optionFromObject(obj *ordered.Object) FieldOption {
	if obj.Has("label") || obj.Has("value") {
		var opt FieldOption
		opt.Label = scalarText(obj, "label")
		if v, ok := obj.Get("value"); ok && v != nil {
			opt.Value = fmt.Sprint(v)
			opt.hasValue = true
		}
		return opt
	}
	return TranslatedOption(translationFromObject(obj))
}

func scalarText(obj *ordered.Object, key string) string {
	v, ok := obj.Get(key)
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// ListToFieldOptions turns catalog entries into options. The label keeps the
// entry as written; the value is lower-cased.
func ListToFieldOptions(items []string) []FieldOption {
	out := make([]FieldOption, 0, len(items))
	for _, it := range items {
		out = append(out, NewOption(it, strings.ToLower(it)))
	}
	return out
}

package formschema

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
)

var (
	ErrFieldNotFound   = errors.New("field not found")
	ErrBaseField       = errors.New("base fields cannot be changed this way")
	ErrInvalidPosition = errors.New("position out of range")
	ErrInvalidOrder    = errors.New("order must list every field exactly once")
	ErrNotSelectable   = errors.New("field does not take options")
	ErrOptionNotFound  = errors.New("option index out of range")
	ErrUnknownAction   = errors.New("unknown action")
	ErrUnknownUnit     = errors.New("unknown unit")
	ErrDuplicateField  = errors.New("field id already in use")
)

// Reduce applies a to form and returns the result. The input form is never
// modified. A rejected action returns the input form and an error.
func (b *Builder) Reduce(form Form, a Action) (Form, error) {
	if sf, ok := a.(SetFormState); ok {
		return sf.Form.Clone(), nil
	}

	next := form.Clone()
	if err := b.apply(&next, a); err != nil {
		return form, fmt.Errorf("%s: %w", a.Type(), err)
	}
	next.UpdatedAt = b.cfg.Now()
	return next, nil
}

// ReduceAll applies actions in order and stops at the first rejected one,
// returning the form as it was before that action.
func (b *Builder) ReduceAll(form Form, actions []Action) (Form, error) {
	for i, a := range actions {
		next, err := b.Reduce(form, a)
		if err != nil {
			return form, fmt.Errorf("action %d: %w", i, err)
		}
		form = next
	}
	return form, nil
}

func (b *Builder) apply(f *Form, a Action) error {
	switch act := a.(type) {
	case AddField:
		return b.addField(f, act)
	case RemoveField:
		return withField(f, act.ID, func(fl *Field) error {
			if fl.BaseField {
				return ErrBaseField
			}
			fl.Deleted = true
			return nil
		})
	case ChangePosition:
		return changePosition(f, act.ID, act.Position)
	case ReorderFields:
		return reorderFields(f, act.IDs)
	case UpdateFieldLabel:
		return withField(f, act.ID, func(fl *Field) error {
			setLabel(fl, act.Language, act.Text)
			return nil
		})
	case ToggleRequired:
		return withField(f, act.ID, func(fl *Field) error {
			if fl.BaseField {
				return ErrBaseField
			}
			fl.Required = !fl.Required
			return nil
		})
	case ToggleVisibility:
		return withField(f, act.ID, func(fl *Field) error {
			fl.Visible = !fl.Visible
			return nil
		})
	case UpdateFieldType:
		return withField(f, act.ID, func(fl *Field) error {
			return setFieldType(fl, act.FieldType)
		})
	case SetOptions:
		return withOptions(f, act.ID, func(fl *Field) error {
			fl.Options = DeduplicateOptions(act.Options)
			return nil
		})
	case AddSelectOption:
		return withOptions(f, act.ID, func(fl *Field) error {
			fl.Options = append(fl.Options, TranslatedOption(NewTranslation(DefaultLanguage, "")))
			return nil
		})
	case RemoveSelectOption:
		return withOption(f, act.ID, act.Index, func(fl *Field) error {
			fl.Options = append(fl.Options[:act.Index:act.Index], fl.Options[act.Index+1:]...)
			return nil
		})
	case AddOptionTranslation:
		return withOption(f, act.ID, act.Index, func(fl *Field) error {
			t := optionTranslations(fl.Options[act.Index])
			if _, ok := t.Get(act.Language); !ok {
				t = t.With(act.Language, "")
			}
			fl.Options[act.Index] = TranslatedOption(t)
			return nil
		})
	case RemoveOptionTranslation:
		return withOption(f, act.ID, act.Index, func(fl *Field) error {
			t := optionTranslations(fl.Options[act.Index]).Without(act.Language)
			fl.Options[act.Index] = TranslatedOption(t)
			return nil
		})
	case UpdateOptionTranslation:
		return withOption(f, act.ID, act.Index, func(fl *Field) error {
			t := optionTranslations(fl.Options[act.Index]).With(act.Language, act.Text)
			fl.Options[act.Index] = TranslatedOption(t)
			return nil
		})
	case SetFieldProperty:
		return withField(f, act.ID, func(fl *Field) error {
			return setProperty(fl, act.Key, act.Value)
		})
	case SetUnits:
		return withField(f, act.ID, func(fl *Field) error {
			units := make([]string, 0, len(act.Units))
			seen := make(map[string]struct{}, len(act.Units))
			for _, u := range act.Units {
				if !b.cfg.Catalog.IsUnit(u) {
					return fmt.Errorf("%w: %q", ErrUnknownUnit, u)
				}
				if _, dup := seen[u]; dup {
					continue
				}
				seen[u] = struct{}{}
				units = append(units, u)
			}
			fl.Units = units
			return nil
		})
	case RemoveUnits:
		return withField(f, act.ID, func(fl *Field) error {
			fl.Units = nil
			return nil
		})
	}
	return fmt.Errorf("%w: %T", ErrUnknownAction, a)
}

func (b *Builder) addField(f *Form, act AddField) error {
	position := len(f.Fields) + 1

	if act.Field == nil {
		n := strconv.Itoa(position)
		label := NewTranslation(
			"en", "New Field "+n,
			"es", "Nueva Entrada "+n,
			"ar", "مدخلات جديدة",
		)
		f.Fields = append(f.Fields, Field{
			ID:        b.cfg.NewID(),
			Column:    Resolve(label, DefaultLanguage),
			Label:     label,
			FieldType: FieldText,
			Options:   []FieldOption{},
			Required:  true,
			Visible:   true,
			Position:  position,
		})
		return nil
	}

	fl := act.Field.clone()
	if fl.ID == "" {
		fl.ID = b.cfg.NewID()
	}
	if _, _, exists := f.Field(fl.ID); exists {
		return fmt.Errorf("%w: %s", ErrDuplicateField, fl.ID)
	}
	if fl.FieldType != "" && !fl.FieldType.Valid() {
		return fmt.Errorf("%w: unknown field type %q", ErrInvalidArgument, fl.FieldType)
	}
	if fl.Column == "" {
		fl.Column = Resolve(fl.Label, DefaultLanguage)
	}
	if fl.Options == nil {
		fl.Options = []FieldOption{}
	} else {
		fl.Options = DeduplicateOptions(fl.Options)
	}
	fl.BaseField = false
	fl.Deleted = false
	fl.Position = position
	f.Fields = append(f.Fields, fl)
	return nil
}

func withField(f *Form, id string, fn func(*Field) error) error {
	_, i, ok := f.Field(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrFieldNotFound, id)
	}
	return fn(&f.Fields[i])
}

func withOptions(f *Form, id string, fn func(*Field) error) error {
	return withField(f, id, func(fl *Field) error {
		if !fl.FieldType.HasOptions() {
			return fmt.Errorf("%w: %s is %s", ErrNotSelectable, fl.ID, fl.FieldType)
		}
		return fn(fl)
	})
}

func withOption(f *Form, id string, index int, fn func(*Field) error) error {
	return withOptions(f, id, func(fl *Field) error {
		if index < 0 || index >= len(fl.Options) {
			return fmt.Errorf("%w: %d", ErrOptionNotFound, index)
		}
		return fn(fl)
	})
}

// optionTranslations returns the option as translations, reading a
// label/value option as its English text.
func optionTranslations(o FieldOption) TranslationObject {
	if o.IsTranslated() {
		return o.Translations
	}
	if s := o.Display(DefaultLanguage); s != "" {
		return NewTranslation(DefaultLanguage, s)
	}
	return TranslationObject{}
}

func setLabel(fl *Field, language, text string) {
	fl.Label = fl.Label.With(language, text)
	if language == DefaultLanguage && text != "" {
		fl.Column = text
	}
}

func setFieldType(fl *Field, ft FieldType) error {
	if !ft.Valid() {
		return fmt.Errorf("%w: unknown field type %q", ErrInvalidArgument, ft)
	}
	old := fl.FieldType
	fl.FieldType = ft
	switch {
	case !old.HasOptions() && ft.HasOptions():
		if len(fl.Options) == 0 {
			fl.Options = []FieldOption{TranslatedOption(NewTranslation(DefaultLanguage, ""))}
		}
	case old.HasOptions() && !ft.HasOptions():
		fl.Options = []FieldOption{}
	}
	return nil
}

func setProperty(fl *Field, key string, value any) error {
	boolValue := func() (bool, error) {
		v, ok := value.(bool)
		if !ok {
			return false, fmt.Errorf("%w: %s must be a boolean", ErrInvalidArgument, key)
		}
		return v, nil
	}
	stringValue := func() (string, error) {
		v, ok := value.(string)
		if !ok {
			return "", fmt.Errorf("%w: %s must be a string", ErrInvalidArgument, key)
		}
		return v, nil
	}

	switch key {
	case "required":
		if fl.BaseField {
			return ErrBaseField
		}
		v, err := boolValue()
		if err != nil {
			return err
		}
		fl.Required = v
	case "visible":
		v, err := boolValue()
		if err != nil {
			return err
		}
		fl.Visible = v
	case "multi":
		v, err := boolValue()
		if err != nil {
			return err
		}
		fl.Multi = v
	case "isSearchField":
		v, err := boolValue()
		if err != nil {
			return err
		}
		fl.IsSearchField = v
	case "showsInSummary":
		v, err := boolValue()
		if err != nil {
			return err
		}
		fl.ShowsInSummary = v
	case "name":
		v, err := stringValue()
		if err != nil {
			return err
		}
		fl.Name = v
	case "description":
		v, err := stringValue()
		if err != nil {
			return err
		}
		fl.Description = v
	case "inputType":
		v, err := stringValue()
		if err != nil {
			return err
		}
		it := InputType(v)
		if !it.Valid() {
			return fmt.Errorf("%w: unknown input type %q", ErrInvalidArgument, v)
		}
		fl.InputType = it
		if fl.FieldType == FieldFreeText {
			fl.Length = it.TextLength()
		}
	case "fieldType":
		v, err := stringValue()
		if err != nil {
			return err
		}
		return setFieldType(fl, FieldType(v))
	default:
		return fmt.Errorf("%w: property %q cannot be set", ErrInvalidArgument, key)
	}
	return nil
}

func changePosition(f *Form, id string, position int) error {
	if position < 1 || position > len(f.Fields) {
		return fmt.Errorf("%w: %d", ErrInvalidPosition, position)
	}
	moving, _, ok := f.Field(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrFieldNotFound, id)
	}

	sorted := append([]Field(nil), f.Fields...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Position < sorted[j].Position })

	rest := make([]Field, 0, len(sorted))
	for _, fl := range sorted {
		if fl.ID != id {
			rest = append(rest, fl)
		}
	}
	out := make([]Field, 0, len(sorted))
	out = append(out, rest[:position-1]...)
	out = append(out, moving)
	out = append(out, rest[position-1:]...)
	renumber(out)
	f.Fields = out
	return nil
}

func reorderFields(f *Form, ids []string) error {
	if len(ids) != len(f.Fields) {
		return fmt.Errorf("%w: got %d ids for %d fields", ErrInvalidOrder, len(ids), len(f.Fields))
	}
	out := make([]Field, 0, len(ids))
	used := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := used[id]; dup {
			return fmt.Errorf("%w: %s listed twice", ErrInvalidOrder, id)
		}
		fl, _, ok := f.Field(id)
		if !ok {
			return fmt.Errorf("%w: %s", ErrFieldNotFound, id)
		}
		used[id] = struct{}{}
		out = append(out, fl)
	}
	renumber(out)
	f.Fields = out
	return nil
}

func renumber(fields []Field) {
	for i := range fields {
		fields[i].Position = i + 1
	}
}

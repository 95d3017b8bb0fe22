package formschema

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/clinicadmin/clinicadmin/internal/platform/normalize"
	"github.com/clinicadmin/clinicadmin/pkg/ordered"
)

// DecodeForm reads a form as the records platform stores it. Keys may be
// snake_case or camelCase; fields and metadata may be JSON strings; names,
// columns, labels and options are percent-decoded.
func DecodeForm(obj *ordered.Object, kind FormKind) (Form, error) {
	top := ordered.New()
	for _, k := range obj.Keys() {
		v, _ := obj.Get(k)
		top.Set(normalize.Key(k), v)
	}

	form := Form{
		ID:             stringAt(top, "id"),
		Kind:           kind,
		Name:           normalize.DecodeURI(stringAt(top, "name")),
		Description:    normalize.DecodeURI(stringAt(top, "description")),
		Language:       stringAt(top, "language"),
		IsEditable:     boolAt(top, "isEditable"),
		IsSnapshotForm: boolAt(top, "isSnapshotForm"),
		CreatedAt:      timeAt(top, "createdAt"),
		UpdatedAt:      timeAt(top, "updatedAt"),
	}
	if form.ID == "" {
		return Form{}, fmt.Errorf("%w: form has no id", ErrInvalidArgument)
	}

	metaRaw, _ := top.Get("metadata")
	rawFields, _ := firstPresent(top, "fields", "formFields")

	fields, err := decodeFields(rawFields)
	if err != nil {
		return Form{}, fmt.Errorf("form %s: %w", form.ID, err)
	}
	// event forms saved by the builder carry their fields in metadata
	if kind == KindEvent && len(fields) == 0 {
		if mf, err := decodeFields(metaRaw); err == nil && len(mf) > 0 {
			fields = mf
			metaRaw = nil
		}
	}

	form.Fields = fields
	form.Metadata = decodeMetadata(metaRaw)
	return form, nil
}

// DecodeForms reads every object in a JSON array as a form. Entries that
// fail to decode are returned as errors alongside the forms that succeeded.
func DecodeForms(items []*ordered.Object, kind FormKind) ([]Form, []error) {
	forms := make([]Form, 0, len(items))
	var errs []error
	for _, it := range items {
		f, err := DecodeForm(it, kind)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		forms = append(forms, f)
	}
	return forms, errs
}

func decodeFields(v any) ([]Field, error) {
	var arr []any
	switch t := v.(type) {
	case nil:
		return []Field{}, nil
	case string:
		if t == "" {
			return []Field{}, nil
		}
		parsed, err := ordered.Decode([]byte(t))
		if err != nil {
			return nil, fmt.Errorf("fields: %w", err)
		}
		a, ok := parsed.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: fields must be an array", ErrInvalidArgument)
		}
		arr = a
	case []any:
		arr = t
	default:
		return nil, fmt.Errorf("%w: fields must be an array, got %T", ErrInvalidArgument, v)
	}

	fields := make([]Field, 0, len(arr))
	positioned := false
	for i, el := range arr {
		obj, ok := el.(*ordered.Object)
		if !ok {
			continue
		}
		data, err := json.Marshal(normalize.CamelCaseKeys(obj))
		if err != nil {
			return nil, fmt.Errorf("field %d: %w", i, err)
		}
		var f Field
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("field %d: %w", i, err)
		}
		if f.Position > 0 {
			positioned = true
		}
		fields = append(fields, decodeFieldText(f))
	}
	if !positioned {
		renumber(fields)
	}
	return fields, nil
}

func decodeFieldText(f Field) Field {
	f.Column = normalize.DecodeURI(f.Column)
	f.Name = normalize.DecodeURI(f.Name)
	f.Label = f.Label.MapText(normalize.DecodeURI)
	f.Options = mapOptionText(f.Options, normalize.DecodeURI)
	if f.Options == nil {
		f.Options = []FieldOption{}
	}
	return f
}

func encodeFieldText(f Field) Field {
	f = f.clone()
	f.Column = normalize.EncodeURI(f.Column)
	f.Label = f.Label.MapText(normalize.EncodeURI)
	f.Options = mapOptionText(f.Options, normalize.EncodeURI)
	return f
}

func mapOptionText(opts []FieldOption, fn func(string) string) []FieldOption {
	if opts == nil {
		return nil
	}
	out := make([]FieldOption, len(opts))
	for i, o := range opts {
		if o.IsTranslated() {
			out[i] = TranslatedOption(o.Translations.MapText(fn))
			continue
		}
		o.Label = fn(o.Label)
		if _, ok := o.Key(); ok {
			o.Value = fn(o.Value)
		}
		out[i] = o
	}
	return out
}

func decodeMetadata(v any) map[string]any {
	switch t := v.(type) {
	case nil:
		return map[string]any{}
	case string:
		return normalize.SafeJSONParse[map[string]any](t, map[string]any{})
	case *ordered.Object:
		data, err := json.Marshal(t)
		if err != nil {
			return map[string]any{}
		}
		return normalize.SafeJSONParse[map[string]any](data, map[string]any{})
	}
	return map[string]any{}
}

// EncodeForm returns the body the records platform expects when a form is
// saved. Registration forms carry fields and metadata as JSON strings;
// event forms carry fields under form_fields.
func EncodeForm(form Form) (*ordered.Object, error) {
	fields := make([]Field, len(form.Fields))
	for i, f := range form.Fields {
		fields[i] = encodeFieldText(f)
	}
	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encode fields: %w", err)
	}
	meta := form.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}

	out := ordered.New()
	out.Set("id", form.ID)
	out.Set("name", normalize.EncodeURI(form.Name))
	if form.Kind == KindEvent {
		out.Set("description", normalize.EncodeURI(form.Description))
		out.Set("language", form.Language)
		out.Set("is_editable", form.IsEditable)
		out.Set("is_snapshot_form", form.IsSnapshotForm)
		out.Set("form_fields", string(fieldsJSON))
	} else {
		out.Set("fields", string(fieldsJSON))
	}
	out.Set("metadata", string(metaJSON))
	out.Set("createdAt", form.CreatedAt.UTC().Format(time.RFC3339Nano))
	out.Set("updatedAt", form.UpdatedAt.UTC().Format(time.RFC3339Nano))
	return out, nil
}

func firstPresent(obj *ordered.Object, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := obj.Get(k); ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func stringAt(obj *ordered.Object, key string) string {
	s, _ := obj.String(key)
	return s
}

func boolAt(obj *ordered.Object, key string) bool {
	v, _ := obj.Get(key)
	b, _ := v.(bool)
	return b
}

func timeAt(obj *ordered.Object, key string) time.Time {
	v, _ := obj.Get(key)
	return normalize.TryParseDateOr(v, time.Time{})
}

package formschema

import (
	"sort"
	"time"
)

// FormKind tells registration forms apart from event forms.
type FormKind string

const (
	KindRegistration FormKind = "registration"
	KindEvent        FormKind = "event"
)

// Field is one input of a form. ID never changes once minted. Base fields
// map onto fixed patient columns; they cannot be removed and their required
// flag is fixed. Removal is a soft delete so records captured against the
// field stay readable.
type Field struct {
	ID        string            `json:"id" validate:"required"`
	Column    string            `json:"column"`
	Label     TranslationObject `json:"label"`
	FieldType FieldType         `json:"fieldType" validate:"required,fieldtype"`
	Options   []FieldOption     `json:"options"`
	Required  bool              `json:"required"`
	BaseField bool              `json:"baseField"`
	Visible   bool              `json:"visible"`
	Deleted   bool              `json:"deleted,omitempty"`
	Position  int               `json:"position" validate:"gte=1"`

	// Event form fields.
	Name           string          `json:"name,omitempty"`
	Description    string          `json:"description,omitempty"`
	InputType      InputType       `json:"inputType,omitempty"`
	Units          []string        `json:"units,omitempty"`
	Multi          bool            `json:"multi,omitempty"`
	Length         string          `json:"length,omitempty"`
	IsSearchField  bool            `json:"isSearchField,omitempty"`
	ShowsInSummary bool            `json:"showsInSummary,omitempty"`
	Components     *MedicineFields `json:"fields,omitempty" validate:"-"`
}

// MedicineFields are the sub-inputs of a medicine field.
type MedicineFields struct {
	Name          Field `json:"name"`
	Route         Field `json:"route"`
	Form          Field `json:"form"`
	Dose          Field `json:"dose"`
	DoseUnits     Field `json:"doseUnits"`
	Frequency     Field `json:"frequency"`
	Intervals     Field `json:"intervals"`
	Duration      Field `json:"duration"`
	DurationUnits Field `json:"durationUnits"`
}

// DisplayName returns the field's label in language, or its name for event
// fields without labels.
func (f Field) DisplayName(language string) string {
	if s := Resolve(f.Label, language); s != "" {
		return s
	}
	if f.Name != "" {
		return f.Name
	}
	return f.Column
}

func (f Field) clone() Field {
	out := f
	if f.Options != nil {
		out.Options = append([]FieldOption(nil), f.Options...)
	}
	if f.Units != nil {
		out.Units = append([]string(nil), f.Units...)
	}
	if f.Components != nil {
		c := *f.Components
		out.Components = &c
	}
	return out
}

// Form is a registration or event form. It owns its fields.
type Form struct {
	ID             string         `json:"id" validate:"required"`
	Kind           FormKind       `json:"kind,omitempty"`
	Name           string         `json:"name" validate:"required"`
	Description    string         `json:"description,omitempty"`
	Language       string         `json:"language,omitempty"`
	IsEditable     bool           `json:"isEditable,omitempty"`
	IsSnapshotForm bool           `json:"isSnapshotForm,omitempty"`
	Fields         []Field        `json:"fields" validate:"dive"`
	Metadata       map[string]any `json:"metadata"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// Clone returns a copy that shares no mutable state with f.
func (f Form) Clone() Form {
	out := f
	if f.Fields != nil {
		out.Fields = make([]Field, len(f.Fields))
		for i, fl := range f.Fields {
			out.Fields[i] = fl.clone()
		}
	}
	if f.Metadata != nil {
		out.Metadata = make(map[string]any, len(f.Metadata))
		for k, v := range f.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// Field returns the field with the given id and its index in Fields.
func (f Form) Field(id string) (Field, int, bool) {
	for i, fl := range f.Fields {
		if fl.ID == id {
			return fl, i, true
		}
	}
	return Field{}, -1, false
}

// ActiveFields returns the fields that are not deleted, ordered by position.
func (f Form) ActiveFields() []Field {
	out := make([]Field, 0, len(f.Fields))
	for _, fl := range f.Fields {
		if !fl.Deleted {
			out = append(out, fl)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

// DeletedFieldIDs returns the ids of soft-deleted fields. Projections use
// them as the exclusion set.
func (f Form) DeletedFieldIDs() []string {
	var ids []string
	for _, fl := range f.Fields {
		if fl.Deleted {
			ids = append(ids, fl.ID)
		}
	}
	return ids
}

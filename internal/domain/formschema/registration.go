package formschema

import (
	"time"

	"github.com/clinicadmin/clinicadmin/internal/platform/normalize"
)

// RegistrationFormID identifies the single patient registration form.
const RegistrationFormID = "cc9647e0-7915-11ee-b962-0242ac120002"

type baseFieldDef struct {
	id, column string
	fieldType  FieldType
	label      TranslationObject
	options    []FieldOption
}

var baseFieldDefs = []baseFieldDef{
	{"e3d7615c-6ee6-11ee-b962-0242ac120002", "given_name", FieldText,
		NewTranslation("en", "First Name", "es", "Nombre", "ar", "الاسم المعطى"), nil},
	{"128faebe-6ee7-11ee-b962-0242ac120002", "surname", FieldText,
		NewTranslation("en", "Last Name", "es", "Apellido", "ar", "الكنية"), nil},
	{"417d5df8-6eeb-11ee-b962-0242ac120002", "date_of_birth", FieldDate,
		NewTranslation("en", "Date of Birth", "es", "Fecha de nacimiento", "ar", "تاريخ الولادة"), nil},
	{"4b9190de-6eeb-11ee-b962-0242ac120002", "sex", FieldSelect,
		NewTranslation("en", "Sex", "es", "Sexo", "ar", "جنس"),
		[]FieldOption{
			TranslatedOption(NewTranslation("en", "male", "ar", "ذكر", "es", "masculino")),
			TranslatedOption(NewTranslation("en", "female", "ar", "أنثى", "es", "femenino")),
		}},
	{"33282fe0-6f76-11ee-b962-0242ac120002", "citizenship", FieldText,
		NewTranslation("en", "Citizenship", "es", "Ciudadanía", "ar", "المواطنة"), nil},
	{"06108a10-bc84-11ee-a506-0242ac120002", "hometown", FieldText,
		NewTranslation("en", "Hometown", "es", "Ciudad Natal", "ar", "مسقط رأس"), nil},
	{"fd328808-bc83-11ee-a506-0242ac120002", "phone", FieldText,
		NewTranslation("en", "Phone", "es", "Teléfono", "ar", "هاتف"), nil},
	{"f6024866-bc83-11ee-a506-0242ac120002", "camp", FieldText,
		NewTranslation("en", "Camp", "es", "Campamento", "ar", "مخيم"), nil},
}

// BaseFields returns the fixed patient fields every registration form
// starts with, positioned 1..n.
func BaseFields() []Field {
	out := make([]Field, len(baseFieldDefs))
	for i, d := range baseFieldDefs {
		opts := []FieldOption{}
		if d.options != nil {
			opts = append(opts, d.options...)
		}
		out[i] = Field{
			ID:        d.id,
			Column:    d.column,
			Label:     d.label,
			FieldType: d.fieldType,
			Options:   opts,
			Required:  true,
			BaseField: true,
			Visible:   true,
			Position:  i + 1,
		}
	}
	return out
}

// BaseColumn returns the patient record key a base field id maps to. The
// key does not follow label edits.
func BaseColumn(id string) (string, bool) {
	for _, d := range baseFieldDefs {
		if d.id == id {
			return d.column, true
		}
	}
	return "", false
}

// BaseFieldByColumn returns the base field stored under a patient record key,
// given either in its stored snake_case form or camelCased.
func BaseFieldByColumn(column string) (Field, bool) {
	for _, f := range BaseFields() {
		if f.Column == column || normalize.Key(f.Column) == column {
			return f, true
		}
	}
	return Field{}, false
}

// DefaultRegistrationForm is used when no registration form has been saved.
func DefaultRegistrationForm(now time.Time) Form {
	return Form{
		ID:        RegistrationFormID,
		Kind:      KindRegistration,
		Name:      "Patient Registration Form",
		Fields:    BaseFields(),
		Metadata:  map[string]any{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

package formschema

// FieldType is the closed set of field kinds a form can hold. Registration
// forms use text, number, select and date; event forms use the rest plus
// date.
type FieldType string

const (
	FieldText      FieldType = "text"
	FieldNumber    FieldType = "number"
	FieldSelect    FieldType = "select"
	FieldDate      FieldType = "date"
	FieldBinary    FieldType = "binary"
	FieldFreeText  FieldType = "free-text"
	FieldOptions   FieldType = "options"
	FieldDiagnosis FieldType = "diagnosis"
	FieldMedicine  FieldType = "medicine"
	FieldDosage    FieldType = "dosage"
)

// ValueSlot names the attribute value envelope slot a field type is
// captured into.
type ValueSlot string

const (
	SlotString  ValueSlot = "string_value"
	SlotNumber  ValueSlot = "number_value"
	SlotDate    ValueSlot = "date_value"
	SlotBoolean ValueSlot = "boolean_value"
)

type fieldTypeInfo struct {
	slot       ValueSlot
	hasOptions bool
}

var fieldTypes = map[FieldType]fieldTypeInfo{
	FieldText:      {slot: SlotString},
	FieldNumber:    {slot: SlotNumber},
	FieldSelect:    {slot: SlotString, hasOptions: true},
	FieldDate:      {slot: SlotDate},
	FieldBinary:    {slot: SlotBoolean, hasOptions: true},
	FieldFreeText:  {slot: SlotString},
	FieldOptions:   {slot: SlotString, hasOptions: true},
	FieldDiagnosis: {slot: SlotString, hasOptions: true},
	FieldMedicine:  {slot: SlotString, hasOptions: true},
	FieldDosage:    {slot: SlotString},
}

// RegistrationFieldTypes are the types a registration form field may take.
var RegistrationFieldTypes = []FieldType{FieldNumber, FieldText, FieldSelect, FieldDate}

func (t FieldType) Valid() bool {
	_, ok := fieldTypes[t]
	return ok
}

// Slot returns the value slot the type is captured into. Unknown types read
// as strings.
func (t FieldType) Slot() ValueSlot {
	if info, ok := fieldTypes[t]; ok {
		return info.slot
	}
	return SlotString
}

// HasOptions reports whether fields of this type carry a choice list.
func (t FieldType) HasOptions() bool {
	return fieldTypes[t].hasOptions
}

// ValidForRegistration reports whether t may be used on a registration form.
func (t FieldType) ValidForRegistration() bool {
	for _, rt := range RegistrationFieldTypes {
		if rt == t {
			return true
		}
	}
	return false
}

// InputType is the widget an event form field is rendered with.
type InputType string

const (
	InputText     InputType = "text"
	InputTextarea InputType = "textarea"
	InputNumber   InputType = "number"
	InputEmail    InputType = "email"
	InputPassword InputType = "password"
	InputTel      InputType = "tel"
	InputDate     InputType = "date"
	InputCheckbox InputType = "checkbox"
	InputRadio    InputType = "radio"
	InputSelect   InputType = "select"
	InputDropdown InputType = "dropdown"
	InputGroup    InputType = "input-group"
	InputCustom   InputType = "custom"
)

var inputTypes = map[InputType]struct{}{
	InputText: {}, InputTextarea: {}, InputNumber: {}, InputEmail: {}, InputPassword: {},
	InputTel: {}, InputDate: {}, InputCheckbox: {}, InputRadio: {}, InputSelect: {},
	InputDropdown: {}, InputGroup: {}, InputCustom: {},
}

func (t InputType) Valid() bool {
	_, ok := inputTypes[t]
	return ok
}

// TextLength is "long" for textarea inputs and "short" otherwise.
func (t InputType) TextLength() string {
	if t == InputTextarea {
		return "long"
	}
	return "short"
}

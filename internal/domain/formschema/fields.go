package formschema

import "fmt"

// NewEventField returns a new event form field of the given kind with a
// freshly minted id. Option-bearing kinds start with opts; medicine fields
// get their sub-inputs seeded from the catalog.
func (b *Builder) NewEventField(ft FieldType, it InputType, name, description string, opts []FieldOption) (Field, error) {
	f := Field{
		ID:          b.cfg.NewID(),
		Name:        name,
		Description: description,
		FieldType:   ft,
		InputType:   it,
		Required:    true,
		Visible:     true,
		Options:     []FieldOption{},
	}
	switch ft {
	case FieldFreeText:
		if it == "" {
			f.InputType = InputText
		}
		f.Length = f.InputType.TextLength()
	case FieldBinary:
		if it == "" {
			f.InputType = InputCheckbox
		}
		f.Options = DeduplicateOptions(opts)
	case FieldOptions:
		if it == "" {
			f.InputType = InputDropdown
		}
		f.Multi = f.InputType == InputCheckbox
		f.Options = DeduplicateOptions(opts)
	case FieldDiagnosis:
		if name == "" {
			f.Name = "Diagnosis"
		}
		if it == "" {
			f.InputType = InputDropdown
		}
		f.Options = DeduplicateOptions(opts)
	case FieldDate:
		f.InputType = InputDate
	case FieldMedicine:
		if name == "" {
			f.Name = "Medicine"
		}
		f.InputType = InputGroup
		f.Options = DeduplicateOptions(opts)
		c := b.medicineFields()
		f.Components = &c
	case FieldText, FieldNumber, FieldSelect, FieldDosage:
		return Field{}, fmt.Errorf("%w: %s is not an event field type", ErrInvalidArgument, ft)
	default:
		return Field{}, fmt.Errorf("%w: unknown field type %q", ErrInvalidArgument, ft)
	}
	if !f.InputType.Valid() {
		return Field{}, fmt.Errorf("%w: unknown input type %q", ErrInvalidArgument, f.InputType)
	}
	return f, nil
}

func (b *Builder) medicineFields() MedicineFields {
	text := func(name, desc string) Field {
		return Field{
			ID: b.cfg.NewID(), Name: name, Description: desc,
			FieldType: FieldFreeText, InputType: InputText, Length: "short",
			Required: true, Visible: true,
		}
	}
	choice := func(name, desc string, items []string) Field {
		return Field{
			ID: b.cfg.NewID(), Name: name, Description: desc,
			FieldType: FieldOptions, InputType: InputDropdown,
			Options: ListToFieldOptions(items),
			Required: true, Visible: true,
		}
	}
	cat := b.cfg.Catalog
	return MedicineFields{
		Name:          text("Name", "Name of the medicine"),
		Route:         choice("Route", "Route of the medicine", cat.MedicineRoutes),
		Form:          choice("Form", "Form of the medication", cat.MedicineForms),
		Dose:          text("Dose", "Dose of the medicine"),
		DoseUnits:     choice("Dosage Units", "Units for the dosage", cat.MedicineDoseUnits),
		Frequency:     text("Frequency", "Frequency of the medicine"),
		Intervals:     text("Intervals", "Intervals of the medicine"),
		Duration:      text("Duration", "Duration of the medicine"),
		DurationUnits: choice("Duration Units", "Units for the duration", cat.DurationUnits),
	}
}

package formschema

// Catalog holds the fixed choice lists the form builder offers. It is
// passed to the Builder rather than read from package state.
type Catalog struct {
	MeasurementUnits []string `json:"measurementUnits"`
	DoseUnits        []string `json:"doseUnits"`
	DurationUnits    []string `json:"durationUnits"`
	MedicineRoutes   []string `json:"medicineRoutes"`
	MedicineForms    []string `json:"medicineForms"`

	// Choices offered inside a medicine field.
	MedicineDoseUnits []string `json:"medicineDoseUnits"`
}

// DefaultCatalog returns the lists used by the clinic dashboard.
func DefaultCatalog() Catalog {
	return Catalog{
		MeasurementUnits: []string{
			"cm", "m", "kg", "lb", "in", "ft", "mmHg", "cmH2O", "mmH2O", "°C", "°F",
			"BPM", "P", "mmol/L", "mg/dL", "%", "units",
		},
		DoseUnits:     []string{"mg", "g", "mcg", "mL", "L", "units"},
		DurationUnits: []string{"hours", "days", "weeks", "months", "years"},
		MedicineRoutes: []string{
			"Oral", "Intravenous", "Intramuscular", "Subcutaneous", "Topical",
			"Inhalation", "Rectal", "Ophthalmic", "Otic", "Nasal", "Intranasal",
			"Intradermal", "Intraosseous", "Intraperitoneal", "Intrathecal",
			"Intracardiac", "Intracavernous", "Intracerebral",
		},
		MedicineForms: []string{
			"Tablet", "Capsule", "Liquid", "Powder", "Suppository", "Inhaler", "Patch",
			"Cream", "Gel", "Ointment", "Lotion", "Drops", "Spray", "Syrup",
			"Suspension", "Injection", "Implant", "Implantable pump",
			"Implantable reservoir", "Implantable infusion system",
			"Implantable drug delivery system",
		},
		MedicineDoseUnits: []string{"mg", "g", "ml", "l"},
	}
}

// IsUnit reports whether u is one of the catalog's measurement, dose or
// duration units.
func (c Catalog) IsUnit(u string) bool {
	for _, list := range [][]string{c.MeasurementUnits, c.DoseUnits, c.DurationUnits} {
		for _, x := range list {
			if x == u {
				return true
			}
		}
	}
	return false
}

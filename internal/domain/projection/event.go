package projection

import (
	"fmt"

	"github.com/clinicadmin/clinicadmin/internal/platform/normalize"
	"github.com/clinicadmin/clinicadmin/pkg/ordered"
)

// PatientPrefix namespaces patient columns in event rows.
const PatientPrefix = "Patient "

// FormDataEntry is one answered field of an event.
type FormDataEntry struct {
	FieldID   string
	FieldType string
	InputType string
	Name      string
	Value     any
}

// EventRecord is an event joined with the patient it belongs to.
type EventRecord struct {
	ID        string
	FormID    string
	EventType string
	PatientID string
	VisitID   string
	CreatedAt any
	UpdatedAt any
	FormData  []FormDataEntry
	Patient   Record
}

// EventFromObject reads an event as returned by the data explorer endpoint.
// form data may be an array or a JSON string holding one.
func EventFromObject(obj *ordered.Object) EventRecord {
	ev := EventRecord{
		ID:        stringField(obj, "id"),
		FormID:    stringField(obj, "form_id"),
		EventType: stringField(obj, "event_type"),
		PatientID: stringField(obj, "patient_id"),
		VisitID:   stringField(obj, "visit_id"),
		CreatedAt: field(obj, "created_at"),
		UpdatedAt: field(obj, "updated_at"),
	}
	if p, ok := field(obj, "patient").(*ordered.Object); ok {
		ev.Patient = RecordFromObject(p)
	} else {
		ev.Patient = RecordFromObject(nil)
	}

	data := field(obj, "form_data")
	if s, ok := data.(string); ok {
		data, _ = ordered.Decode([]byte(s))
	}
	entries, _ := data.([]any)
	for _, v := range entries {
		e, ok := v.(*ordered.Object)
		if !ok {
			continue
		}
		ev.FormData = append(ev.FormData, FormDataEntry{
			FieldID:   stringField(e, "field_id"),
			FieldType: stringField(e, "field_type"),
			InputType: stringField(e, "input_type"),
			Name:      stringField(e, "name"),
			Value:     field(e, "value"),
		})
	}
	return ev
}

// EventsFromJSON decodes an array of events. Non-object elements are
// skipped.
func EventsFromJSON(data []byte) ([]EventRecord, error) {
	objs, err := ordered.DecodeArray(data)
	if err != nil {
		return nil, fmt.Errorf("decoding events: %w", err)
	}
	out := make([]EventRecord, len(objs))
	for i, o := range objs {
		out[i] = EventFromObject(o)
	}
	return out, nil
}

// ProjectEvents flattens events into rows. Each row carries the event's own
// timestamps, one column per form data entry, and the patient's base fields
// and attributes under PatientPrefix. Multi-valued entries such as
// diagnoses and medicines are flattened to text.
func ProjectEvents(events []EventRecord, excluded IDSet, opts ...Option) Result {
	cfg := config{}
	for _, o := range opts {
		o(&cfg)
	}
	acc := newAccumulator(cfg.policy)
	for _, ev := range events {
		cells := timestampCells(func(k string) (any, bool) {
			if k == ColumnCreatedAt {
				return ev.CreatedAt, true
			}
			return ev.UpdatedAt, true
		})
		for _, e := range ev.FormData {
			cells = append(cells, cell{
				key:     columnKey{originAttribute, e.FieldID},
				column:  normalize.DecodeURI(e.Name),
				fieldID: e.FieldID,
				value:   FlattenValue(e.Value),
			})
		}
		cells = append(cells, baseCells(ev.Patient.Base, PatientPrefix)...)
		cells = append(cells, attributeCells(ev.Patient.Attributes, excluded, func(name string) string {
			return prefixed(PatientPrefix, name)
		})...)
		acc.add(cells)
	}
	return acc.result()
}

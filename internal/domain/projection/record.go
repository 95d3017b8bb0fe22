// Package projection flattens patient and event records into a uniform set
// of rows keyed by column id, ready for tables and tabular export.
package projection

import (
	"fmt"

	"github.com/clinicadmin/clinicadmin/internal/platform/normalize"
	"github.com/clinicadmin/clinicadmin/pkg/ordered"
)

// AttributeEntry is one value in a record's attribute bag. Only one of the
// value slots is normally populated, but nothing guarantees the populated
// slot matches the field type.
type AttributeEntry struct {
	ID           string
	Attribute    string
	StringValue  any
	NumberValue  any
	DateValue    any
	BooleanValue any
}

// Coalesce returns the first non-null slot in string, number, date, boolean
// order. ok is false when every slot is null.
func (e AttributeEntry) Coalesce() (any, bool) {
	for _, v := range []any{e.StringValue, e.NumberValue, e.DateValue, e.BooleanValue} {
		if v != nil {
			return v, true
		}
	}
	return nil, false
}

// Record is a base record plus its attribute bag, in document order.
type Record struct {
	Base       *ordered.Object
	Attributes []AttributeEntry
}

// Get returns a base field by its snake_case or camelCase key.
func (r Record) Get(key string) (any, bool) {
	if v, ok := r.Base.Get(key); ok {
		return v, true
	}
	if ck := normalize.Key(key); ck != key {
		return r.Base.Get(ck)
	}
	return nil, false
}

var bagKeys = []string{"additional_attributes", "additionalAttributes"}

// RecordFromObject reads a record as returned by the clinic API, before or
// after camelCase normalization. The bag may be an object keyed by
// attribute id or an array of rows carrying attribute_id. Entries that are
// not objects are skipped.
func RecordFromObject(obj *ordered.Object) Record {
	rec := Record{Base: obj}
	if obj == nil {
		rec.Base = ordered.New()
		return rec
	}
	var bag any
	for _, k := range bagKeys {
		if v, ok := obj.Get(k); ok {
			bag = v
			break
		}
	}
	if s, ok := bag.(string); ok {
		bag, _ = ordered.Decode([]byte(s))
	}

	switch b := bag.(type) {
	case *ordered.Object:
		for _, id := range b.Keys() {
			v, _ := b.Get(id)
			if entry, ok := v.(*ordered.Object); ok {
				rec.Attributes = append(rec.Attributes, entryFromObject(id, entry))
			}
		}
	case []any:
		for _, v := range b {
			entry, ok := v.(*ordered.Object)
			if !ok {
				continue
			}
			id := stringField(entry, "attribute_id")
			if id == "" {
				continue
			}
			rec.Attributes = append(rec.Attributes, entryFromObject(id, entry))
		}
	}
	return rec
}

// RecordsFromJSON decodes an array of records. Non-object elements are
// skipped.
func RecordsFromJSON(data []byte) ([]Record, error) {
	objs, err := ordered.DecodeArray(data)
	if err != nil {
		return nil, fmt.Errorf("decoding records: %w", err)
	}
	out := make([]Record, len(objs))
	for i, o := range objs {
		out[i] = RecordFromObject(o)
	}
	return out, nil
}

func entryFromObject(id string, obj *ordered.Object) AttributeEntry {
	return AttributeEntry{
		ID:           id,
		Attribute:    stringField(obj, "attribute"),
		StringValue:  field(obj, "string_value"),
		NumberValue:  field(obj, "number_value"),
		DateValue:    field(obj, "date_value"),
		BooleanValue: field(obj, "boolean_value"),
	}
}

func field(obj *ordered.Object, key string) any {
	if v, ok := obj.Get(key); ok {
		return v
	}
	v, _ := obj.Get(normalize.Key(key))
	return v
}

func stringField(obj *ordered.Object, key string) string {
	switch v := field(obj, key).(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

package records

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinicadmin/clinicadmin/internal/domain/formschema"
	"github.com/clinicadmin/clinicadmin/internal/domain/projection"
	"github.com/clinicadmin/clinicadmin/pkg/ordered"
)

type mockSource struct {
	registration  []formschema.Form
	eventForms    []formschema.Form
	patients      string
	events        string
	prescriptions string
	lastQuery     string
	lastEvents    EventQuery
	err           error
}

func decodeArray(s string) []*ordered.Object {
	if s == "" {
		return []*ordered.Object{}
	}
	objs, err := ordered.DecodeArray([]byte(s))
	if err != nil {
		panic(err)
	}
	return objs
}

func (m *mockSource) RegistrationForms(_ context.Context) ([]formschema.Form, error) {
	return m.registration, m.err
}

func (m *mockSource) SaveRegistrationForm(_ context.Context, _ formschema.Form) error {
	return m.err
}

func (m *mockSource) EventForms(_ context.Context) ([]formschema.Form, error) {
	return m.eventForms, m.err
}

func (m *mockSource) SaveEventForm(_ context.Context, _ formschema.Form) error {
	return m.err
}

func (m *mockSource) Patients(_ context.Context) ([]*ordered.Object, error) {
	return decodeArray(m.patients), m.err
}

func (m *mockSource) SearchPatients(_ context.Context, query string) ([]*ordered.Object, error) {
	m.lastQuery = query
	return decodeArray(m.patients), m.err
}

func (m *mockSource) Events(_ context.Context, q EventQuery) ([]*ordered.Object, error) {
	m.lastEvents = q
	return decodeArray(m.events), m.err
}

func (m *mockSource) Prescriptions(_ context.Context, _ map[string]string) ([]*ordered.Object, error) {
	return decodeArray(m.prescriptions), m.err
}

func (m *mockSource) Appointments(_ context.Context, _ map[string]string) ([]*ordered.Object, error) {
	return []*ordered.Object{}, m.err
}

const (
	eyeColorID = "a7e3c1d2-7c11-11ee-b962-0242ac120002"
	oldFieldID = "b1f0c1d2-7c11-11ee-b962-0242ac120002"
)

func testRegistrationForm() formschema.Form {
	form := formschema.DefaultRegistrationForm(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	form.Fields = append(form.Fields,
		formschema.Field{
			ID: eyeColorID, Column: "Eye Color", FieldType: formschema.FieldText, Visible: true, Position: 9,
			Label: formschema.NewTranslation("en", "Eye Color", "es", "Color de ojos"),
		},
		formschema.Field{
			ID: oldFieldID, Column: "Old", FieldType: formschema.FieldText, Deleted: true, Position: 10,
			Label: formschema.NewTranslation("en", "Old"),
		},
	)
	return form
}

const testPatients = `[
	{
		"id": "p1",
		"given_name": "Amal",
		"surname": "Haddad",
		"sex": "female",
		"created_at": "2024-01-02T10:00:00Z",
		"updated_at": "2024-01-03T10:00:00Z",
		"additional_attributes": {
			"a7e3c1d2-7c11-11ee-b962-0242ac120002": {"attribute": "Eye%20Color", "string_value": "Brown"},
			"b1f0c1d2-7c11-11ee-b962-0242ac120002": {"attribute": "Old", "string_value": "gone"}
		}
	},
	{"id": "p2", "given_name": "Omar", "surname": "Khalil", "sex": "male"}
]`

func newTestRecordsService(src *mockSource, opts Options) *Service {
	forms := formschema.NewService(src, formschema.NewBuilder(formschema.BuilderConfig{}), zerolog.Nop())
	return NewService(src, forms, opts, zerolog.Nop())
}

func TestService_PatientTable(t *testing.T) {
	src := &mockSource{registration: []formschema.Form{testRegistrationForm()}, patients: testPatients}
	svc := newTestRecordsService(src, Options{PatientPriority: []string{"surname", "_", "given_name"}})

	table, err := svc.PatientTable(context.Background(), "", "es")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantCols := []string{"surname", "givenName", "id", "sex", "Eye Color", "created_at", "updated_at"}
	if !reflect.DeepEqual(table.ColumnIDs, wantCols) {
		t.Errorf("expected columns %v, got %v", wantCols, table.ColumnIDs)
	}
	wantHeaders := []string{"Apellido", "Nombre", "id", "Sexo", "Color de ojos", "created_at", "updated_at"}
	if !reflect.DeepEqual(table.Headers, wantHeaders) {
		t.Errorf("expected headers %v, got %v", wantHeaders, table.Headers)
	}
	if len(table.Rows) != 2 || table.Rows[0]["Eye Color"] != "Brown" {
		t.Errorf("unexpected rows %v", table.Rows)
	}
	for _, row := range table.Rows {
		if _, ok := row["Old"]; ok {
			t.Error("expected deleted field to be excluded")
		}
	}

	exp := table.Export()
	if exp.Rows[1][4] != "" || exp.Rows[0][0] != "Haddad" {
		t.Errorf("unexpected export cells %v", exp.Rows)
	}
}

func TestService_PatientTableSearch(t *testing.T) {
	src := &mockSource{patients: testPatients}
	svc := newTestRecordsService(src, Options{})

	if _, err := svc.PatientTable(context.Background(), "amal", "xx-invalid-"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src.lastQuery != "amal" {
		t.Errorf("expected search to be used, got %q", src.lastQuery)
	}
}

const testEvents = `[
	{
		"id": "ev1", "form_id": "vitals", "patient_id": "p1",
		"created_at": "2024-02-01T09:00:00Z",
		"form_data": [
			{"field_id": "w", "name": "Weight", "value": 62},
			{"field_id": "dx", "name": "Diagnosis", "value": [{"code": "1A00", "desc": "Cholera"}]}
		],
		"patient": {
			"id": "p1", "given_name": "Amal",
			"additional_attributes": {
				"a7e3c1d2-7c11-11ee-b962-0242ac120002": {"attribute": "Eye Color", "string_value": "Brown"},
				"b1f0c1d2-7c11-11ee-b962-0242ac120002": {"attribute": "Old", "string_value": "gone"}
			}
		}
	},
	{"id": "ev2", "form_id": "other", "form_data": []}
]`

func TestService_EventTable(t *testing.T) {
	vitals := formschema.Form{ID: "vitals", Name: "Vitals", Fields: []formschema.Field{
		{ID: "w", Name: "Weight (kg)", FieldType: formschema.FieldFreeText, Position: 1},
		{ID: "dx", Name: "Diagnosis", FieldType: formschema.FieldDiagnosis, Position: 2},
	}}
	src := &mockSource{
		registration: []formschema.Form{testRegistrationForm()},
		eventForms:   []formschema.Form{vitals},
		events:       testEvents,
	}
	svc := newTestRecordsService(src, Options{})

	table, err := svc.EventTable(context.Background(), EventQuery{FormID: "vitals", StartDate: "2024-01-01"}, "en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src.lastEvents.StartDate != "2024-01-01" {
		t.Errorf("expected query to reach the source, got %+v", src.lastEvents)
	}
	if len(table.Rows) != 1 {
		t.Fatalf("expected events of other forms to be dropped, got %d rows", len(table.Rows))
	}
	wantCols := []string{"Patient Eye Color", "Patient givenName", "Patient id", "created_at", "Diagnosis", "updated_at", "Weight"}
	if !reflect.DeepEqual(table.ColumnIDs, wantCols) {
		t.Errorf("expected columns %v, got %v", wantCols, table.ColumnIDs)
	}
	wantHeaders := []string{"Patient Eye Color", "Patient First Name", "Patient id", "created_at", "Diagnosis", "updated_at", "Weight (kg)"}
	if !reflect.DeepEqual(table.Headers, wantHeaders) {
		t.Errorf("expected headers %v, got %v", wantHeaders, table.Headers)
	}
	if table.Rows[0]["Diagnosis"] != "Cholera (1A00)" {
		t.Errorf("unexpected diagnosis cell %v", table.Rows[0]["Diagnosis"])
	}
}

func TestService_EventTableErrors(t *testing.T) {
	svc := newTestRecordsService(&mockSource{}, Options{})
	if _, err := svc.EventTable(context.Background(), EventQuery{}, ""); !errors.Is(err, ErrInvalidQuery) {
		t.Errorf("expected ErrInvalidQuery, got %v", err)
	}
	if _, err := svc.EventTable(context.Background(), EventQuery{FormID: "nope"}, ""); !errors.Is(err, formschema.ErrFormNotFound) {
		t.Errorf("expected ErrFormNotFound, got %v", err)
	}
}

func TestService_PrescriptionsCamelCased(t *testing.T) {
	src := &mockSource{prescriptions: `[{"id": "rx1", "patient_id": "p1", "prescribed_at": "2024-01-01"}]`}
	items, err := newTestRecordsService(src, Options{}).Prescriptions(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	obj := items[0].(*ordered.Object)
	if !reflect.DeepEqual(obj.Keys(), []string{"id", "patientId", "prescribedAt"}) {
		t.Errorf("unexpected keys %v", obj.Keys())
	}
}

func TestService_CollisionPolicyOption(t *testing.T) {
	src := &mockSource{patients: `[{"camp": "North", "additional_attributes": {"u": {"attribute": "camp", "string_value": "South"}}}]`}
	svc := newTestRecordsService(src, Options{Policy: projection.BaseWins})
	table, err := svc.PatientTable(context.Background(), "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if table.Rows[0]["camp"] != "North" {
		t.Errorf("expected base value, got %v", table.Rows[0]["camp"])
	}
}

package records

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/clinicadmin/clinicadmin/internal/domain/formschema"
	"github.com/clinicadmin/clinicadmin/internal/platform/export"
	"github.com/clinicadmin/clinicadmin/internal/platform/upstream"
)

func newTestRecordsHandler(src *mockSource) (*Handler, *echo.Echo) {
	h := NewHandler(newTestRecordsService(src, Options{}), "")
	h.now = func() time.Time { return time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC) }
	return h, echo.New()
}

func TestHandler_PatientTable(t *testing.T) {
	h, e := newTestRecordsHandler(&mockSource{registration: []formschema.Form{testRegistrationForm()}, patients: testPatients})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/records/patients?lang=es", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.PatientTable(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	var body struct {
		ColumnIDs []string         `json:"columnIds"`
		Headers   []string         `json:"headers"`
		Rows      []map[string]any `json:"rows"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(body.Rows) != 2 || len(body.Headers) != len(body.ColumnIDs) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
	if body.Headers[1] != "Nombre" {
		t.Errorf("expected Spanish headers, got %v", body.Headers)
	}
}

func TestHandler_ExportPatients_TSV(t *testing.T) {
	h, e := newTestRecordsHandler(&mockSource{registration: []formschema.Form{testRegistrationForm()}, patients: testPatients})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/records/patients/export", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.ExportPatients(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := rec.Header().Get(echo.HeaderContentType); got != export.MIMETSV {
		t.Errorf("expected %s, got %s", export.MIMETSV, got)
	}
	if got := rec.Header().Get(echo.HeaderContentDisposition); got != `attachment; filename="patients-2024-03-05.tsv"` {
		t.Errorf("unexpected disposition %q", got)
	}
	lines := strings.Split(rec.Body.String(), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and two rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], `"id"`+"\t"+`"First Name"`) {
		t.Errorf("unexpected header line %q", lines[0])
	}
}

func TestHandler_ExportPatients_XLSX(t *testing.T) {
	h, e := newTestRecordsHandler(&mockSource{patients: testPatients})

	req := httptest.NewRequest(http.MethodGet, "/?format=xlsx&name=everyone", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.ExportPatients(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := rec.Header().Get(echo.HeaderContentType); got != export.MIMEXLSX {
		t.Errorf("expected %s, got %s", export.MIMEXLSX, got)
	}
	if !strings.Contains(rec.Header().Get(echo.HeaderContentDisposition), `filename="everyone.xlsx"`) {
		t.Errorf("unexpected disposition %q", rec.Header().Get(echo.HeaderContentDisposition))
	}
	if !strings.HasPrefix(rec.Body.String(), "PK") {
		t.Error("expected a zip container")
	}
}

func TestHandler_ExportPatients_BadFormat(t *testing.T) {
	h, e := newTestRecordsHandler(&mockSource{})

	req := httptest.NewRequest(http.MethodGet, "/?format=pdf", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.ExportPatients(c)
	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", he.Code)
	}
}

func TestHandler_EventTable_NotFound(t *testing.T) {
	h, e := newTestRecordsHandler(&mockSource{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("formId")
	c.SetParamValues("missing")

	err := h.EventTable(c)
	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if he.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", he.Code)
	}
}

func TestHandler_ExportEvents(t *testing.T) {
	vitals := formschema.Form{ID: "vitals", Name: "Vitals"}
	src := &mockSource{eventForms: []formschema.Form{vitals}, events: testEvents}
	h, e := newTestRecordsHandler(src)

	req := httptest.NewRequest(http.MethodGet, "/?start_date=2024-01-01&clinic_id=c1", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("formId")
	c.SetParamValues("vitals")

	if err := h.ExportEvents(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src.lastEvents.ClinicID != "c1" || src.lastEvents.FormID != "vitals" {
		t.Errorf("unexpected query %+v", src.lastEvents)
	}
	if got := rec.Header().Get(echo.HeaderContentDisposition); got != `attachment; filename="events-vitals-2024-03-05.tsv"` {
		t.Errorf("unexpected disposition %q", got)
	}
}

func TestHandler_Prescriptions(t *testing.T) {
	src := &mockSource{prescriptions: `[{"id": "rx1", "patient_id": "p1"}]`}
	h, e := newTestRecordsHandler(src)

	req := httptest.NewRequest(http.MethodGet, "/?patient_id=p1", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Prescriptions(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"patientId":"p1"`) {
		t.Errorf("expected camelCased listing, got %s", rec.Body.String())
	}
}

func TestHTTPError(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{fmt.Errorf("%w: x", ErrInvalidQuery), http.StatusBadRequest},
		{fmt.Errorf("%w: x", formschema.ErrFormNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: status 503", upstream.ErrUpstream), http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		he, ok := httpError(tt.err).(*echo.HTTPError)
		if !ok || he.Code != tt.code {
			t.Errorf("httpError(%v) = %v, want %d", tt.err, he, tt.code)
		}
	}
}

func TestHandler_PatientTable_Paged(t *testing.T) {
	h, e := newTestRecordsHandler(&mockSource{patients: testPatients})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/records/patients?limit=1", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.PatientTable(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body struct {
		ColumnIDs []string         `json:"columnIds"`
		Rows      []map[string]any `json:"rows"`
		Total     int              `json:"total"`
		HasMore   bool             `json:"hasMore"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(body.Rows) != 1 || body.Total != 2 || !body.HasMore {
		t.Errorf("unexpected page %s", rec.Body.String())
	}
	if len(body.ColumnIDs) != 8 {
		t.Errorf("expected columns of the whole table, got %v", body.ColumnIDs)
	}
	if !strings.Contains(rec.Header().Get("Link"), `rel="next"`) {
		t.Errorf("expected next link, got %q", rec.Header().Get("Link"))
	}
}

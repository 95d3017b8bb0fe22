package formschema

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func newTestHandler(store *mockFormStore) (*Handler, *echo.Echo) {
	return NewHandler(newTestService(store)), echo.New()
}

func TestHandler_GetRegistrationForm(t *testing.T) {
	h, e := newTestHandler(&mockFormStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/forms/registration", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.GetRegistrationForm(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	var form Form
	if err := json.Unmarshal(rec.Body.Bytes(), &form); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(form.Fields) != 8 || Resolve(form.Fields[3].Label, "es") != "Sexo" {
		t.Errorf("unexpected form %+v", form)
	}
}

func TestHandler_ApplyRegistrationActions(t *testing.T) {
	h, e := newTestHandler(&mockFormStore{})

	body := `{"actions":[{"type":"add-field"},{"type":"update-field-label","payload":{"id":"field-1","translation":"en","label":"Eye Color"}}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/forms/registration/actions", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.ApplyRegistrationActions(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var form Form
	json.Unmarshal(rec.Body.Bytes(), &form)
	if len(form.Fields) != 9 || form.Fields[8].Column != "Eye Color" {
		t.Errorf("unexpected form %+v", form.Fields)
	}
}

func TestHandler_ApplyRegistrationActions_Rejected(t *testing.T) {
	h, e := newTestHandler(&mockFormStore{})

	body := `{"actions":[{"type":"remove-field","payload":{"id":"e3d7615c-6ee6-11ee-b962-0242ac120002"}}]}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.ApplyRegistrationActions(c)
	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if he.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", he.Code)
	}
}

func TestHandler_ApplyRegistrationActions_UnknownAction(t *testing.T) {
	h, e := newTestHandler(&mockFormStore{})

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"actions":[{"type":"nope"}]}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.ApplyRegistrationActions(c)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestHandler_SaveRegistrationForm_ValidationIssues(t *testing.T) {
	store := &mockFormStore{}
	h, e := newTestHandler(store)

	form := registrationForm()
	form.Fields[3].Options = []FieldOption{}
	body, _ := json.Marshal(form)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/forms/registration?force=true", strings.NewReader(string(body)))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.SaveRegistrationForm(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", rec.Code)
	}
	if len(store.saved) != 0 {
		t.Error("expected nothing to be saved")
	}
}

func TestHandler_SaveRegistrationForm(t *testing.T) {
	store := &mockFormStore{}
	h, e := newTestHandler(store)

	body, _ := json.Marshal(registrationForm())
	req := httptest.NewRequest(http.MethodPut, "/api/v1/forms/registration", strings.NewReader(string(body)))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.SaveRegistrationForm(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if len(store.saved) != 1 || len(store.saved[0].Fields[3].Options) != 2 {
		t.Errorf("expected form with options to be saved, got %+v", store.saved)
	}
}

func TestHandler_GetEventForm_NotFound(t *testing.T) {
	h, e := newTestHandler(&mockFormStore{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("missing")

	err := h.GetEventForm(c)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}

func TestHandler_NewEventField_Medicine(t *testing.T) {
	h, e := newTestHandler(&mockFormStore{})

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"fieldType":"medicine"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.NewEventField(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	var f Field
	json.Unmarshal(rec.Body.Bytes(), &f)
	if f.Name != "Medicine" || f.Components == nil {
		t.Fatalf("expected medicine field with components, got %+v", f)
	}
	if f.Components.DoseUnits.Options[0].Value != "mg" || f.Components.Route.Options[0].Value != "oral" {
		t.Errorf("unexpected medicine options %+v", f.Components)
	}
}

func TestHandler_Languages(t *testing.T) {
	h, e := newTestHandler(&mockFormStore{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Languages(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var resp struct {
		Editor []LanguageOption `json:"editor"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if len(resp.Editor) != 3 || resp.Editor[2].Value != "ar" || !resp.Editor[2].RTL {
		t.Errorf("unexpected editor languages %+v", resp.Editor)
	}
}

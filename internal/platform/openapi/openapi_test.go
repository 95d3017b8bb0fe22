package openapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func noop(c echo.Context) error { return nil }

func newTestGenerator() (*Generator, *echo.Echo) {
	e := echo.New()
	api := e.Group("/api/v1")
	api.GET("/records/patients", noop)
	api.GET("/records/events/:formId/export", noop)
	api.PUT("/forms/registration", noop)
	e.GET("/health", noop)

	g := NewGenerator(e.Routes, "/api/v1", "1.0.0")
	g.Document(http.MethodGet, "/api/v1/records/events/:formId/export", Operation{
		Summary:  "Export events",
		Query:    []Param{{Name: "format", Description: "tsv or xlsx"}},
		Download: true,
	})
	g.RegisterRoutes(api)
	return g, e
}

func TestGenerateSpec_Structure(t *testing.T) {
	g, _ := newTestGenerator()
	spec := g.GenerateSpec()

	if spec["openapi"] != "3.0.3" {
		t.Errorf("expected openapi '3.0.3', got %v", spec["openapi"])
	}
	info, ok := spec["info"].(map[string]any)
	if !ok {
		t.Fatal("expected info object")
	}
	if info["version"] != "1.0.0" {
		t.Errorf("expected version '1.0.0', got %v", info["version"])
	}
	servers, ok := spec["servers"].([]map[string]string)
	if !ok || len(servers) != 1 || servers[0]["url"] != "/api/v1" {
		t.Errorf("unexpected servers %v", spec["servers"])
	}
}

func TestGenerateSpec_Paths(t *testing.T) {
	g, _ := newTestGenerator()
	paths := g.GenerateSpec()["paths"].(map[string]any)

	for _, p := range []string{"/records/patients", "/records/events/{formId}/export", "/forms/registration", "/openapi.json", "/docs"} {
		if _, ok := paths[p]; !ok {
			t.Errorf("missing expected path: %s", p)
		}
	}
	if _, ok := paths["/health"]; ok {
		t.Error("expected routes outside the prefix to be left out")
	}
}

func TestGenerateSpec_DocumentedOperation(t *testing.T) {
	g, _ := newTestGenerator()
	paths := g.GenerateSpec()["paths"].(map[string]any)

	get := paths["/records/events/{formId}/export"].(map[string]any)["get"].(map[string]any)
	if get["summary"] != "Export events" {
		t.Errorf("expected documented summary, got %v", get["summary"])
	}
	if get["operationId"] != "getRecordsEventsFormIdExport" {
		t.Errorf("unexpected operationId %v", get["operationId"])
	}
	if tags := get["tags"].([]string); len(tags) != 1 || tags[0] != "records" {
		t.Errorf("expected tags [records], got %v", tags)
	}
	params := get["parameters"].([]map[string]any)
	if len(params) != 2 || params[0]["name"] != "formId" || params[0]["in"] != "path" || params[1]["name"] != "format" {
		t.Errorf("unexpected parameters %v", params)
	}
	ok := get["responses"].(map[string]any)["200"].(map[string]any)
	if _, has := ok["content"].(map[string]any)["text/tab-separated-values"]; !has {
		t.Error("expected download content types")
	}
}

func TestGenerateSpec_UndocumentedOperation(t *testing.T) {
	g, _ := newTestGenerator()
	paths := g.GenerateSpec()["paths"].(map[string]any)

	put := paths["/forms/registration"].(map[string]any)["put"].(map[string]any)
	if put["summary"] != "put /forms/registration" {
		t.Errorf("unexpected summary %v", put["summary"])
	}
}

func TestConvertPath(t *testing.T) {
	got, params := convertPath("/forms/events/:id")
	if got != "/forms/events/{id}" || len(params) != 1 || params[0] != "id" {
		t.Errorf("convertPath() = %q, %v", got, params)
	}
}

func TestRegisterRoutes(t *testing.T) {
	_, e := newTestGenerator()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/openapi.json", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var spec map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &spec); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if spec["openapi"] != "3.0.3" {
		t.Errorf("unexpected spec %v", spec["openapi"])
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/docs", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "swagger-ui") {
		t.Errorf("expected swagger ui page, got %d", rec.Code)
	}
}

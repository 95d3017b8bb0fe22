package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinicadmin/clinicadmin/internal/config"
	"github.com/clinicadmin/clinicadmin/internal/domain/formschema"
	"github.com/clinicadmin/clinicadmin/internal/platform/export"
)

func encodedForm(t *testing.T, form formschema.Form) []byte {
	t.Helper()
	obj, err := formschema.EncodeForm(form)
	if err != nil {
		t.Fatalf("encode form: %v", err)
	}
	data, err := obj.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal form: %v", err)
	}
	return data
}

func TestValidateForm_Valid(t *testing.T) {
	data := encodedForm(t, formschema.DefaultRegistrationForm(time.Now()))

	var out bytes.Buffer
	if err := validateForm(&out, data, formschema.KindRegistration); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "is valid") {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestValidateForm_OptionIssueBlocks(t *testing.T) {
	form := formschema.DefaultRegistrationForm(time.Now())
	for i, f := range form.Fields {
		if f.FieldType == formschema.FieldSelect {
			form.Fields[i].Options = []formschema.FieldOption{}
			break
		}
	}

	var out bytes.Buffer
	err := validateForm(&out, encodedForm(t, form), formschema.KindRegistration)
	if !errors.Is(err, errFormInvalid) {
		t.Fatalf("expected errFormInvalid, got %v", err)
	}
	if !strings.HasPrefix(out.String(), "error\t") {
		t.Errorf("expected option issue reported as error, got %q", out.String())
	}
}

func TestValidateForm_BadInput(t *testing.T) {
	var out bytes.Buffer
	if err := validateForm(&out, []byte(`{"name":`), formschema.KindEvent); err == nil {
		t.Error("expected decode error")
	}
	if err := validateForm(&out, []byte(`{}`), "survey"); err == nil {
		t.Error("expected kind error")
	}
}

func TestWriteTable(t *testing.T) {
	tbl := export.Table{
		Headers: []string{"id", "First Name"},
		Rows:    [][]string{{"p1", "Amal"}},
	}
	dir := t.TempDir()

	tsv := filepath.Join(dir, "nested", "patients.tsv")
	if err := writeTable(tsv, "tsv", "patients", tbl, "\t"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(tsv)
	if err != nil {
		t.Fatalf("read tsv: %v", err)
	}
	if !bytes.Equal(data, export.Delimited(tbl, "\t")) {
		t.Errorf("unexpected tsv %q", data)
	}

	xlsx := filepath.Join(dir, "patients.xlsx")
	if err := writeTable(xlsx, "xlsx", "patients", tbl, "\t"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err = os.ReadFile(xlsx)
	if err != nil {
		t.Fatalf("read xlsx: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("PK")) {
		t.Error("expected a zip container")
	}
}

func TestNewLogger_Level(t *testing.T) {
	logger := newLogger(&config.Config{Env: "production", LogLevel: "warn"})
	if logger.GetLevel() != zerolog.WarnLevel {
		t.Errorf("expected warn level, got %s", logger.GetLevel())
	}

	logger = newLogger(&config.Config{Env: "production", LogLevel: "bogus"})
	if logger.GetLevel() != zerolog.TraceLevel {
		t.Errorf("expected unfiltered logger for unknown level, got %s", logger.GetLevel())
	}
}

// Package records reads patients and events from the records platform and
// serves them as projected tables and exports.
package records

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/clinicadmin/clinicadmin/internal/domain/formschema"
	"github.com/clinicadmin/clinicadmin/pkg/ordered"
)

// Source supplies raw records and the stored forms. Records come back as
// the platform stores them; normalization happens in the service.
type Source interface {
	formschema.FormStore

	Patients(ctx context.Context) ([]*ordered.Object, error)
	SearchPatients(ctx context.Context, query string) ([]*ordered.Object, error)
	Events(ctx context.Context, q EventQuery) ([]*ordered.Object, error)
	Prescriptions(ctx context.Context, filters map[string]string) ([]*ordered.Object, error)
	Appointments(ctx context.Context, filters map[string]string) ([]*ordered.Object, error)
}

// EventQuery narrows the events read for a table. Empty fields match
// everything.
type EventQuery struct {
	FormID    string `json:"form_id,omitempty"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
	ClinicID  string `json:"clinic_id,omitempty"`
}

func decodeForms(objs []*ordered.Object, kind formschema.FormKind, logger zerolog.Logger) []formschema.Form {
	forms, errs := formschema.DecodeForms(objs, kind)
	for _, err := range errs {
		logger.Warn().Err(err).Str("kind", string(kind)).Msg("skipping undecodable form")
	}
	return forms
}

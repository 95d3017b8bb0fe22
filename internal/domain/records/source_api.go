package records

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/clinicadmin/clinicadmin/internal/domain/formschema"
	"github.com/clinicadmin/clinicadmin/internal/platform/upstream"
	"github.com/clinicadmin/clinicadmin/pkg/ordered"
)

// APISource reads from the clinic records API.
type APISource struct {
	client *upstream.Client
	logger zerolog.Logger
}

func NewAPISource(client *upstream.Client, logger zerolog.Logger) *APISource {
	return &APISource{client: client, logger: logger.With().Str("component", "records.api").Logger()}
}

func (s *APISource) RegistrationForms(ctx context.Context) ([]formschema.Form, error) {
	objs, err := s.client.RegistrationForms(ctx)
	if err != nil {
		return nil, err
	}
	return decodeForms(objs, formschema.KindRegistration, s.logger), nil
}

func (s *APISource) SaveRegistrationForm(ctx context.Context, form formschema.Form) error {
	obj, err := formschema.EncodeForm(form)
	if err != nil {
		return fmt.Errorf("encode registration form: %w", err)
	}
	return s.client.SaveRegistrationForm(ctx, obj)
}

func (s *APISource) EventForms(ctx context.Context) ([]formschema.Form, error) {
	objs, err := s.client.EventForms(ctx)
	if err != nil {
		return nil, err
	}
	return decodeForms(objs, formschema.KindEvent, s.logger), nil
}

func (s *APISource) SaveEventForm(ctx context.Context, form formschema.Form) error {
	obj, err := formschema.EncodeForm(form)
	if err != nil {
		return fmt.Errorf("encode event form: %w", err)
	}
	return s.client.SaveEventForm(ctx, obj)
}

func (s *APISource) Patients(ctx context.Context) ([]*ordered.Object, error) {
	return s.client.AllPatients(ctx)
}

func (s *APISource) SearchPatients(ctx context.Context, query string) ([]*ordered.Object, error) {
	return s.client.SearchPatients(ctx, query)
}

// Events runs a data explorer query. The explorer does not filter by form,
// so FormID is applied by the service.
func (s *APISource) Events(ctx context.Context, q EventQuery) ([]*ordered.Object, error) {
	filters := map[string]any{}
	if q.StartDate != "" {
		filters["start_date"] = q.StartDate
	}
	if q.EndDate != "" {
		filters["end_date"] = q.EndDate
	}
	if q.ClinicID != "" {
		filters["clinic_id"] = q.ClinicID
	}
	ex, err := s.client.Explore(ctx, filters)
	if err != nil {
		return nil, err
	}
	return ex.Events, nil
}

func (s *APISource) Prescriptions(ctx context.Context, filters map[string]string) ([]*ordered.Object, error) {
	return s.client.Prescriptions(ctx, filters)
}

func (s *APISource) Appointments(ctx context.Context, filters map[string]string) ([]*ordered.Object, error) {
	return s.client.Appointments(ctx, filters)
}

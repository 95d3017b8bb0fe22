package records

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/text/language"

	"github.com/clinicadmin/clinicadmin/internal/domain/formschema"
	"github.com/clinicadmin/clinicadmin/internal/domain/projection"
	"github.com/clinicadmin/clinicadmin/internal/platform/export"
	"github.com/clinicadmin/clinicadmin/internal/platform/normalize"
	"github.com/clinicadmin/clinicadmin/pkg/ordered"
)

var ErrInvalidQuery = errors.New("invalid query")

type Options struct {
	Language        string
	PatientPriority []string
	Policy          projection.CollisionPolicy
}

// Table is a projected record table with display headers.
type Table struct {
	ColumnIDs []string          `json:"columnIds"`
	Headers   []string          `json:"headers"`
	Rows      []projection.Row  `json:"rows"`
	FieldIDs  map[string]string `json:"fieldIds"`
}

// Export renders the table's cells as text for download.
func (t Table) Export() export.Table {
	return export.Table{
		Headers: t.Headers,
		Rows:    projection.Cells(projection.Result{ColumnIDs: t.ColumnIDs, Rows: t.Rows}),
	}
}

type Service struct {
	source Source
	forms  *formschema.Service
	opts   Options
	logger zerolog.Logger
}

func NewService(source Source, forms *formschema.Service, opts Options, logger zerolog.Logger) *Service {
	if opts.Language == "" {
		opts.Language = formschema.DefaultLanguage
	}
	if opts.PatientPriority == nil {
		opts.PatientPriority = []string{}
	}
	return &Service{
		source: source,
		forms:  forms,
		opts:   opts,
		logger: logger.With().Str("component", "records").Logger(),
	}
}

// resolveLanguage falls back to the configured language for empty or
// unparseable keys.
func (s *Service) resolveLanguage(lang string) string {
	if lang == "" {
		return s.opts.Language
	}
	base, err := formschema.ParseLanguageKey(lang)
	if err != nil {
		return s.opts.Language
	}
	return base
}

// PatientTable projects every patient, or those matching query, against
// the current registration form.
func (s *Service) PatientTable(ctx context.Context, query, lang string) (Table, error) {
	form, err := s.forms.RegistrationForm(ctx)
	if err != nil {
		return Table{}, err
	}

	var objs []*ordered.Object
	if query != "" {
		objs, err = s.source.SearchPatients(ctx, query)
	} else {
		objs, err = s.source.Patients(ctx)
	}
	if err != nil {
		return Table{}, fmt.Errorf("load patients: %w", err)
	}

	res := projection.Project(normalizeRecords(objs), projection.NewIDSet(form.DeletedFieldIDs()...),
		projection.WithCollisionPolicy(s.opts.Policy))

	priority := make([]string, len(s.opts.PatientPriority))
	for i, p := range s.opts.PatientPriority {
		priority[i] = normalize.Key(p)
	}
	res.ColumnIDs = projection.OrderedList(res.ColumnIDs, priority)

	s.logger.Debug().Int("patients", len(res.Rows)).Int("columns", len(res.ColumnIDs)).Msg("patient table projected")
	return s.table(res, s.resolveLanguage(lang), form), nil
}

// EventTable projects the events recorded with one event form, joined
// with their patients. Patient columns come first.
func (s *Service) EventTable(ctx context.Context, q EventQuery, lang string) (Table, error) {
	if q.FormID == "" {
		return Table{}, fmt.Errorf("%w: form id is required", ErrInvalidQuery)
	}
	evForm, err := s.forms.EventForm(ctx, q.FormID)
	if err != nil {
		return Table{}, err
	}
	regForm, err := s.forms.RegistrationForm(ctx)
	if err != nil {
		return Table{}, err
	}

	objs, err := s.source.Events(ctx, q)
	if err != nil {
		return Table{}, fmt.Errorf("load events: %w", err)
	}
	events := make([]projection.EventRecord, 0, len(objs))
	for _, o := range objs {
		ev := projection.EventFromObject(normalizeObject(o))
		if ev.FormID != q.FormID {
			continue
		}
		events = append(events, ev)
	}

	res := projection.ProjectEvents(events, projection.NewIDSet(regForm.DeletedFieldIDs()...),
		projection.WithCollisionPolicy(s.opts.Policy))

	language := s.resolveLanguage(lang)
	res.ColumnIDs = projection.PatientColumnsFirst(res.ColumnIDs, collationTag(language))

	s.logger.Debug().Str("form", q.FormID).Int("events", len(res.Rows)).Msg("event table projected")
	return s.table(res, language, evForm, regForm), nil
}

// Prescriptions returns the listing with camelCase keys.
func (s *Service) Prescriptions(ctx context.Context, filters map[string]string) ([]any, error) {
	objs, err := s.source.Prescriptions(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("load prescriptions: %w", err)
	}
	return normalizeList(objs), nil
}

func (s *Service) Appointments(ctx context.Context, filters map[string]string) ([]any, error) {
	objs, err := s.source.Appointments(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("load appointments: %w", err)
	}
	return normalizeList(objs), nil
}

func (s *Service) table(res projection.Result, language string, forms ...formschema.Form) Table {
	return Table{
		ColumnIDs: res.ColumnIDs,
		Headers:   projection.NewLabeler(language, forms...).Headers(res),
		Rows:      res.Rows,
		FieldIDs:  res.FieldIDs,
	}
}

func collationTag(lang string) language.Tag {
	tag, err := language.Parse(lang)
	if err != nil {
		return language.English
	}
	return tag
}

func normalizeObject(o *ordered.Object) *ordered.Object {
	if n, ok := normalize.CamelCaseKeys(o).(*ordered.Object); ok {
		return n
	}
	return o
}

func normalizeRecords(objs []*ordered.Object) []projection.Record {
	out := make([]projection.Record, len(objs))
	for i, o := range objs {
		out[i] = projection.RecordFromObject(normalizeObject(o))
	}
	return out
}

func normalizeList(objs []*ordered.Object) []any {
	out := make([]any, len(objs))
	for i, o := range objs {
		out[i] = normalizeObject(o)
	}
	return out
}

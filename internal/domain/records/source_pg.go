package records

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"

	"github.com/clinicadmin/clinicadmin/internal/domain/formschema"
	"github.com/clinicadmin/clinicadmin/pkg/ordered"
)

// Querier is the part of a pgx pool the platform source uses.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PGSource reads directly from the records platform database. It never
// writes: form saves return formschema.ErrReadOnly.
type PGSource struct {
	db     Querier
	logger zerolog.Logger
}

func NewPGSource(db Querier, logger zerolog.Logger) *PGSource {
	return &PGSource{db: db, logger: logger.With().Str("component", "records.pg").Logger()}
}

func (s *PGSource) RegistrationForms(ctx context.Context) ([]formschema.Form, error) {
	objs, err := s.query(ctx, `SELECT * FROM patient_registration_forms WHERE NOT is_deleted ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	return decodeForms(objs, formschema.KindRegistration, s.logger), nil
}

func (s *PGSource) SaveRegistrationForm(_ context.Context, _ formschema.Form) error {
	return formschema.ErrReadOnly
}

func (s *PGSource) EventForms(ctx context.Context) ([]formschema.Form, error) {
	objs, err := s.query(ctx, `SELECT * FROM event_forms WHERE NOT is_deleted ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	return decodeForms(objs, formschema.KindEvent, s.logger), nil
}

func (s *PGSource) SaveEventForm(_ context.Context, _ formschema.Form) error {
	return formschema.ErrReadOnly
}

func (s *PGSource) Patients(ctx context.Context) ([]*ordered.Object, error) {
	patients, err := s.query(ctx, `SELECT * FROM patients WHERE NOT is_deleted ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	return patients, s.attachAttributes(ctx, patients)
}

func (s *PGSource) SearchPatients(ctx context.Context, query string) ([]*ordered.Object, error) {
	patients, err := s.query(ctx,
		`SELECT * FROM patients WHERE NOT is_deleted AND (given_name ILIKE $1 OR surname ILIKE $1) ORDER BY created_at`,
		"%"+query+"%")
	if err != nil {
		return nil, err
	}
	return patients, s.attachAttributes(ctx, patients)
}

// Events joins each event with its patient under "patient".
func (s *PGSource) Events(ctx context.Context, q EventQuery) ([]*ordered.Object, error) {
	w := where{}
	w.add("form_id = $%d", q.FormID)
	w.add("created_at >= $%d::date", q.StartDate)
	w.add("created_at < $%d::date + 1", q.EndDate)
	if q.ClinicID != "" {
		w.add("visit_id IN (SELECT id FROM visits WHERE clinic_id = $%d)", q.ClinicID)
	}
	events, err := s.query(ctx, `SELECT * FROM events WHERE NOT is_deleted`+w.sql()+` ORDER BY created_at`, w.args...)
	if err != nil {
		return nil, err
	}

	ids := distinct(events, "patient_id")
	patients, err := s.query(ctx, `SELECT * FROM patients WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	if err := s.attachAttributes(ctx, patients); err != nil {
		return nil, err
	}
	byID := make(map[string]*ordered.Object, len(patients))
	for _, p := range patients {
		id, _ := p.String("id")
		byID[id] = p
	}
	for _, ev := range events {
		pid, _ := ev.String("patient_id")
		if p, ok := byID[pid]; ok {
			ev.Set("patient", p)
		}
	}
	return events, nil
}

var listingFilters = []string{"clinic_id", "patient_id", "provider_id", "status"}

func (s *PGSource) Prescriptions(ctx context.Context, filters map[string]string) ([]*ordered.Object, error) {
	return s.listing(ctx, "prescriptions", "created_at", filters)
}

func (s *PGSource) Appointments(ctx context.Context, filters map[string]string) ([]*ordered.Object, error) {
	return s.listing(ctx, "appointments", "timestamp", filters)
}

func (s *PGSource) listing(ctx context.Context, table, dateColumn string, filters map[string]string) ([]*ordered.Object, error) {
	w := where{}
	for _, col := range listingFilters {
		w.add(col+" = $%d", filters[col])
	}
	w.add(dateColumn+" >= $%d::date", filters["start_date"])
	w.add(dateColumn+" < $%d::date + 1", filters["end_date"])
	return s.query(ctx, `SELECT * FROM `+table+` WHERE NOT is_deleted`+w.sql()+` ORDER BY `+dateColumn+` DESC`, w.args...)
}

// attachAttributes sets each patient's additional_attributes to an object
// keyed by attribute id, in creation order.
func (s *PGSource) attachAttributes(ctx context.Context, patients []*ordered.Object) error {
	if len(patients) == 0 {
		return nil
	}
	ids := distinct(patients, "id")
	attrs, err := s.query(ctx,
		`SELECT * FROM patient_additional_attributes WHERE NOT is_deleted AND patient_id = ANY($1) ORDER BY created_at`, ids)
	if err != nil {
		return err
	}
	bags := make(map[string]*ordered.Object, len(patients))
	for _, a := range attrs {
		pid, _ := a.String("patient_id")
		aid, _ := a.String("attribute_id")
		if pid == "" || aid == "" {
			continue
		}
		bag, ok := bags[pid]
		if !ok {
			bag = ordered.New()
			bags[pid] = bag
		}
		bag.Set(aid, a)
	}
	for _, p := range patients {
		id, _ := p.String("id")
		bag, ok := bags[id]
		if !ok {
			bag = ordered.New()
		}
		p.Set("additional_attributes", bag)
	}
	return nil
}

// query runs sql and returns each row as an ordered object in column order.
func (s *PGSource) query(ctx context.Context, sql string, args ...any) ([]*ordered.Object, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	results := []*ordered.Object{}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		row := ordered.New()
		for i, fd := range fieldDescs {
			row.Set(fd.Name, columnValue(values[i]))
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	return results, nil
}

// columnValue converts a pgx value into what the JSON API would carry:
// timestamps and uuids as strings, numbers as float64, json as ordered
// values.
func columnValue(v any) any {
	switch x := v.(type) {
	case nil, string, bool, float64:
		return x
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case [16]byte:
		return uuid.UUID(x).String()
	case int16:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case int:
		return float64(x)
	case float32:
		return float64(x)
	case []byte:
		return string(x)
	case pgtype.Numeric:
		f, err := x.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case map[string]any, []any:
		data, err := json.Marshal(x)
		if err != nil {
			return nil
		}
		out, err := ordered.Decode(data)
		if err != nil {
			return nil
		}
		return out
	}
	return fmt.Sprint(v)
}

func distinct(objs []*ordered.Object, key string) []string {
	seen := make(map[string]bool, len(objs))
	out := make([]string, 0, len(objs))
	for _, o := range objs {
		id, _ := o.String(key)
		if id != "" && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// where accumulates optional AND conditions with positional arguments.
type where struct {
	conds []string
	args  []any
}

// add appends cond when value is non-empty. cond holds one %d for the
// argument position.
func (w *where) add(cond, value string) {
	if value == "" {
		return
	}
	w.args = append(w.args, value)
	w.conds = append(w.conds, fmt.Sprintf(cond, len(w.args)))
}

func (w *where) sql() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " AND " + strings.Join(w.conds, " AND ")
}

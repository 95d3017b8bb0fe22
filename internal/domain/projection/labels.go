package projection

import (
	"strings"

	"github.com/clinicadmin/clinicadmin/internal/domain/formschema"
	"github.com/clinicadmin/clinicadmin/internal/platform/normalize"
)

// Labeler turns column ids into header text using the current labels of
// the forms that produced them.
type Labeler struct {
	language string
	byID     map[string]formschema.Field
	byColumn map[string]formschema.Field
}

func NewLabeler(language string, forms ...formschema.Form) *Labeler {
	l := &Labeler{
		language: language,
		byID:     make(map[string]formschema.Field),
		byColumn: make(map[string]formschema.Field),
	}
	for _, form := range forms {
		for _, f := range form.Fields {
			l.byID[f.ID] = f
			l.byID[normalize.Key(f.ID)] = f
			if f.Column != "" {
				l.byColumn[f.Column] = f
			}
		}
	}
	return l
}

// Label returns the header for column. fieldIDs is the column to attribute
// id map of the projection result. Columns no form knows about keep their
// id.
func (l *Labeler) Label(column string, fieldIDs map[string]string) string {
	rest, prefix := column, ""
	if strings.HasPrefix(column, PatientPrefix) {
		rest, prefix = strings.TrimPrefix(column, PatientPrefix), PatientPrefix
	}
	if id, ok := fieldIDs[column]; ok {
		if f, ok := l.byID[id]; ok {
			return prefixed(prefix, f.DisplayName(l.language))
		}
	}
	if base, ok := formschema.BaseFieldByColumn(rest); ok {
		if f, ok := l.byID[base.ID]; ok {
			base = f
		}
		return prefixed(prefix, base.DisplayName(l.language))
	}
	if f, ok := l.byColumn[rest]; ok {
		return prefixed(prefix, f.DisplayName(l.language))
	}
	return column
}

// Headers labels every column of res, in order.
func (l *Labeler) Headers(res Result) []string {
	out := make([]string, len(res.ColumnIDs))
	for i, c := range res.ColumnIDs {
		out[i] = l.Label(c, res.FieldIDs)
	}
	return out
}

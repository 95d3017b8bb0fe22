package projection

import (
	"fmt"
	"strings"

	"github.com/clinicadmin/clinicadmin/internal/platform/normalize"
	"github.com/clinicadmin/clinicadmin/pkg/ordered"
)

const (
	ColumnCreatedAt = "created_at"
	ColumnUpdatedAt = "updated_at"
)

// ignoredBaseFields are bookkeeping fields never shown as columns.
var ignoredBaseFields = []string{
	"metadata",
	"deleted_at",
	"additional_attributes",
	"is_deleted",
	"last_modified",
	"photo_url",
	"server_created_at",
	"image_timestamp",
	"additional_data",
	ColumnCreatedAt,
	ColumnUpdatedAt,
}

var ignored = func() map[string]bool {
	m := make(map[string]bool, 2*len(ignoredBaseFields))
	for _, k := range ignoredBaseFields {
		m[k] = true
		m[normalize.Key(k)] = true
	}
	return m
}()

// Row maps column ids to scalar values: string, float64, bool or whatever
// scalar the source carried. Values are never nested.
type Row map[string]any

// Result is a projected row set. ColumnIDs is the union of every row's
// keys in first-seen order, with the timestamp columns always present.
// FieldIDs maps attribute columns back to the attribute id that produced
// them.
type Result struct {
	ColumnIDs []string          `json:"columnIds"`
	Rows      []Row             `json:"rows"`
	FieldIDs  map[string]string `json:"fieldIds"`
}

// IDSet is a set of attribute ids. An id matches when it equals a member
// as given, or when it is the camelCased form of a member, so records
// whose keys went through normalize.CamelCaseKeys still match. Two distinct
// members never merge: "field_a" and "fieldA" stay separate entries.
type IDSet map[string]struct{}

func NewIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s IDSet) Has(id string) bool {
	if _, ok := s[id]; ok {
		return true
	}
	for member := range s {
		if normalize.Key(member) == id {
			return true
		}
	}
	return false
}

// CollisionPolicy decides which value a row keeps when a base field and an
// attribute resolve to the same column id.
type CollisionPolicy int

const (
	AttributeWins CollisionPolicy = iota
	BaseWins
)

// ParseCollisionPolicy accepts "attribute" or "base".
func ParseCollisionPolicy(s string) (CollisionPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "attribute", "attribute_wins":
		return AttributeWins, nil
	case "base", "base_wins":
		return BaseWins, nil
	}
	return AttributeWins, fmt.Errorf("unknown collision policy %q", s)
}

func (p CollisionPolicy) String() string {
	if p == BaseWins {
		return "base"
	}
	return "attribute"
}

type config struct {
	prefix string
	policy CollisionPolicy
}

type Option func(*config)

// WithPrefix prepends prefix to every attribute column id.
func WithPrefix(prefix string) Option {
	return func(c *config) { c.prefix = prefix }
}

func WithCollisionPolicy(p CollisionPolicy) Option {
	return func(c *config) { c.policy = p }
}

type origin int

const (
	originSeed origin = iota
	originBase
	originAttribute
)

type columnKey struct {
	origin origin
	raw    string
}

type cell struct {
	key     columnKey
	column  string
	fieldID string
	value   any
}

// Project flattens records into rows. Attribute entries whose id is in
// excluded are dropped.
func Project(records []Record, excluded IDSet, opts ...Option) Result {
	cfg := config{}
	for _, o := range opts {
		o(&cfg)
	}
	acc := newAccumulator(cfg.policy)
	for _, rec := range records {
		cells := timestampCells(rec.Get)
		cells = append(cells, baseCells(rec.Base, "")...)
		cells = append(cells, attributeCells(rec.Attributes, excluded, func(name string) string {
			return cfg.prefix + name
		})...)
		acc.add(cells)
	}
	return acc.result()
}

func timestampCells(get func(string) (any, bool)) []cell {
	cells := make([]cell, 0, 2)
	for _, k := range []string{ColumnCreatedAt, ColumnUpdatedAt} {
		v, ok := get(k)
		if !ok || v == nil {
			v = ""
		}
		cells = append(cells, cell{key: columnKey{originSeed, k}, column: k, value: v})
	}
	return cells
}

// baseCells emits every scalar base field outside the ignore list. A null
// value shows as an empty cell; nested values are skipped.
func baseCells(base *ordered.Object, prefix string) []cell {
	var cells []cell
	for _, k := range base.Keys() {
		if ignored[k] {
			continue
		}
		v, _ := base.Get(k)
		switch v.(type) {
		case *ordered.Object, []any, map[string]any:
			continue
		case nil:
			v = ""
		}
		cells = append(cells, cell{
			key:    columnKey{originBase, k},
			column: prefixed(prefix, normalize.DecodeURI(k)),
			value:  v,
		})
	}
	return cells
}

func attributeCells(entries []AttributeEntry, excluded IDSet, column func(string) string) []cell {
	var cells []cell
	for _, e := range entries {
		if excluded.Has(e.ID) {
			continue
		}
		v, ok := e.Coalesce()
		if !ok {
			continue
		}
		name := e.Attribute
		if strings.TrimSpace(name) == "" {
			name = e.ID
		}
		cells = append(cells, cell{
			key:     columnKey{originAttribute, e.ID},
			column:  column(normalize.DecodeURI(name)),
			fieldID: e.ID,
			value:   FlattenValue(v),
		})
	}
	return cells
}

// prefixed adds prefix unless the column already starts with it, ignoring
// case.
func prefixed(prefix, col string) string {
	if prefix == "" || strings.HasPrefix(strings.ToLower(col), strings.ToLower(prefix)) {
		return col
	}
	return prefix + col
}

type accumulator struct {
	policy   CollisionPolicy
	columns  []string
	seen     map[string]bool
	rows     []Row
	fieldIDs map[string]string
}

func newAccumulator(p CollisionPolicy) *accumulator {
	return &accumulator{
		policy:   p,
		seen:     make(map[string]bool),
		fieldIDs: make(map[string]string),
	}
}

// add flattens one record's cells into a row. Cells arrive in emission
// order; the owner of each column is resolved from the cell origins.
// Seeded timestamps fill the row but take their column slot at the end.
func (a *accumulator) add(cells []cell) {
	row := make(Row, len(cells))
	owner := make(map[string]origin, len(cells))
	for _, c := range cells {
		if c.key.origin != originSeed && !a.seen[c.column] {
			a.seen[c.column] = true
			a.columns = append(a.columns, c.column)
		}
		if prev, ok := owner[c.column]; ok && !a.wins(c.key.origin, prev) {
			continue
		}
		owner[c.column] = c.key.origin
		row[c.column] = c.value
		if c.fieldID != "" {
			if _, ok := a.fieldIDs[c.column]; !ok {
				a.fieldIDs[c.column] = c.fieldID
			}
		}
	}
	a.rows = append(a.rows, row)
}

func (a *accumulator) wins(next, prev origin) bool {
	if a.policy == BaseWins && prev == originBase && next == originAttribute {
		return false
	}
	return true
}

func (a *accumulator) result() Result {
	for _, k := range []string{ColumnCreatedAt, ColumnUpdatedAt} {
		if !a.seen[k] {
			a.seen[k] = true
			a.columns = append(a.columns, k)
		}
	}
	rows := a.rows
	if rows == nil {
		rows = []Row{}
	}
	return Result{ColumnIDs: a.columns, Rows: rows, FieldIDs: a.fieldIDs}
}

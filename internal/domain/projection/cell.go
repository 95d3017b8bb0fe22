package projection

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/clinicadmin/clinicadmin/pkg/ordered"
)

var medicineParts = []string{
	"name", "route", "form", "dose", "doseUnits", "frequency", "intervals", "duration", "durationUnits",
}

// FlattenValue turns a form data value into a scalar cell. Lists are joined
// with "; ", a diagnosis renders as "desc (code)" and a medicine as its
// parts separated by spaces. Scalars are returned unchanged.
func FlattenValue(v any) any {
	switch x := v.(type) {
	case []any:
		parts := make([]string, 0, len(x))
		for _, el := range x {
			if s := Text(FlattenValue(el)); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "; ")
	case *ordered.Object:
		return flattenObject(x)
	case map[string]any:
		obj := ordered.New()
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			obj.Set(k, x[k])
		}
		return flattenObject(obj)
	}
	return v
}

func flattenObject(obj *ordered.Object) string {
	if obj.Has("code") || obj.Has("desc") {
		desc, code := Text(field(obj, "desc")), Text(field(obj, "code"))
		switch {
		case desc == "":
			return code
		case code == "":
			return desc
		}
		return desc + " (" + code + ")"
	}
	if obj.Has("name") && (obj.Has("dose") || obj.Has("route")) {
		return joinParts(obj, medicineParts)
	}
	return joinParts(obj, obj.Keys())
}

func joinParts(obj *ordered.Object, keys []string) string {
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := field(obj, k)
		if _, nested := v.(*ordered.Object); nested {
			continue
		}
		if s := Text(FlattenValue(v)); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// Text renders a cell value as display text. Null renders as "".
func Text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case time.Time:
		return x.Format(time.RFC3339)
	case []any, *ordered.Object, map[string]any:
		return Text(FlattenValue(x))
	}
	return fmt.Sprint(v)
}

// Cells renders every row of res as text in column order. Columns a row
// does not carry render as "".
func Cells(res Result) [][]string {
	out := make([][]string, len(res.Rows))
	for i, row := range res.Rows {
		line := make([]string, len(res.ColumnIDs))
		for j, c := range res.ColumnIDs {
			line[j] = Text(row[c])
		}
		out[i] = line
	}
	return out
}

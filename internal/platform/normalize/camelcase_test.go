package normalize

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/clinicadmin/clinicadmin/pkg/ordered"
)

func TestKey(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"first_name", "firstName"},
		{"phone_number", "phoneNumber"},
		{"date-of-birth", "dateOfBirth"},
		{"givenName", "givenName"},
		{"123", "123"},
		{"trailing_", "trailing_"},
		{"a__b", "a_B"},
		{"upper_Case", "upper_Case"},
		{"e3d7615c-6ee6-11ee-b962-0242ac120002", "e3d7615c-6ee6-11eeB962-0242ac120002"},
	}
	for _, tt := range tests {
		if got := Key(tt.in); got != tt.want {
			t.Errorf("Key(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCamelCaseKeys_Nested(t *testing.T) {
	in, err := ordered.Decode([]byte(`{"first_name":"John","contact_info":{"phone_number":"123"}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := json.Marshal(CamelCaseKeys(in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `{"firstName":"John","contactInfo":{"phoneNumber":"123"}}`
	if string(out) != want {
		t.Errorf("expected %s, got %s", want, out)
	}
}

func TestCamelCaseKeys_ArraysAndPlainMaps(t *testing.T) {
	in := []any{
		map[string]any{"given_name": "Ana", "visit_list": []any{map[string]any{"visit_id": "v1"}}},
		"plain",
		nil,
	}
	got := CamelCaseKeys(in).([]any)
	first := got[0].(map[string]any)
	if first["givenName"] != "Ana" {
		t.Errorf("expected givenName key, got %v", first)
	}
	visits := first["visitList"].([]any)
	if visits[0].(map[string]any)["visitId"] != "v1" {
		t.Errorf("expected nested visitId key, got %v", visits[0])
	}
	if got[1] != "plain" || got[2] != nil {
		t.Errorf("expected primitives to pass through, got %v", got[1:])
	}
}

func TestCamelCaseKeys_Primitives(t *testing.T) {
	for _, v := range []any{nil, "x", 1.5, true} {
		if got := CamelCaseKeys(v); got != v {
			t.Errorf("expected %v unchanged, got %v", v, got)
		}
	}
}

func TestCamelCaseKeys_Idempotent(t *testing.T) {
	in, _ := ordered.Decode([]byte(`{"a__b":1,"x_y":{"deep_key":[{"k_v":null}]},"Upper_Case":2,"kebab-case":3}`))
	once := CamelCaseKeys(in)
	twice := CamelCaseKeys(once)

	b1, _ := json.Marshal(once)
	b2, _ := json.Marshal(twice)
	if string(b1) != string(b2) {
		t.Errorf("expected idempotent result, got %s then %s", b1, b2)
	}
}

func TestCamelCaseKeys_CyclicObject(t *testing.T) {
	root := ordered.New()
	root.Set("self_ref", root)
	root.Set("child_node", map[string]any{"parent_ref": root})

	out, ok := CamelCaseKeys(root).(*ordered.Object)
	if !ok {
		t.Fatalf("expected *ordered.Object result")
	}
	self, _ := out.Get("selfRef")
	if self != out {
		t.Error("expected the cycle to be preserved in the result")
	}
	child, _ := out.Get("childNode")
	if child.(map[string]any)["parentRef"] != out {
		t.Error("expected nested back reference to point at the converted root")
	}
}

func TestCamelCaseKeys_CyclicMap(t *testing.T) {
	m := map[string]any{"some_key": 1}
	m["loop_back"] = m

	out := CamelCaseKeys(m).(map[string]any)
	loop := out["loopBack"].(map[string]any)
	if reflect.ValueOf(loop).Pointer() != reflect.ValueOf(out).Pointer() {
		t.Error("expected cyclic map to map onto itself")
	}
}

func TestCamelCaseKeys_DoesNotMutateInput(t *testing.T) {
	in := ordered.New()
	in.Set("given_name", "Ana")
	CamelCaseKeys(in)
	if !in.Has("given_name") {
		t.Error("input object was modified")
	}
}

func TestCamelCaseKeys_MapCollisionIsStable(t *testing.T) {
	for i := 0; i < 50; i++ {
		in := map[string]any{"aB": "camel", "a_b": "snake", "c_d": 1}
		out := CamelCaseKeys(in).(map[string]any)
		if out["aB"] != "snake" {
			t.Fatalf("run %d: expected a_b to win, got %v", i, out["aB"])
		}
		if len(out) != 2 || out["cD"] != 1 {
			t.Fatalf("run %d: unexpected result %v", i, out)
		}
	}

	obj := ordered.New()
	obj.Set("a_b", "snake")
	obj.Set("aB", "camel")
	got, _ := CamelCaseKeys(obj).(*ordered.Object).Get("aB")
	if got != "camel" {
		t.Errorf("expected document order to decide for ordered objects, got %v", got)
	}
}

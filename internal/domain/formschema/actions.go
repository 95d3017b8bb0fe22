package formschema

import (
	"encoding/json"
	"fmt"
)

// Action is one edit applied to a form by Builder.Reduce. The set of actions
// is closed.
type Action interface {
	Type() string
	isAction()
}

type (
	// SetFormState replaces the whole form, typically with a freshly fetched one.
	SetFormState struct{ Form Form }

	// AddField appends a field. A nil Field adds a blank registration text field.
	AddField struct{ Field *Field }

	// RemoveField soft-deletes a field.
	RemoveField struct{ ID string }

	// ChangePosition moves one field to a 1-based position.
	ChangePosition struct {
		ID       string
		Position int
	}

	// ReorderFields sets the order of every field at once.
	ReorderFields struct{ IDs []string }

	UpdateFieldLabel struct {
		ID       string
		Language string
		Text     string
	}

	ToggleRequired   struct{ ID string }
	ToggleVisibility struct{ ID string }

	UpdateFieldType struct {
		ID        string
		FieldType FieldType
	}

	// SetOptions replaces a field's option list. Duplicates are dropped.
	SetOptions struct {
		ID      string
		Options []FieldOption
	}

	AddSelectOption    struct{ ID string }
	RemoveSelectOption struct {
		ID    string
		Index int
	}

	AddOptionTranslation struct {
		ID       string
		Index    int
		Language string
	}
	RemoveOptionTranslation struct {
		ID       string
		Index    int
		Language string
	}
	UpdateOptionTranslation struct {
		ID       string
		Index    int
		Language string
		Text     string
	}

	// SetFieldProperty sets one scalar property by its JSON name.
	SetFieldProperty struct {
		ID    string
		Key   string
		Value any
	}

	SetUnits struct {
		ID    string
		Units []string
	}
	RemoveUnits struct{ ID string }
)

func (SetFormState) Type() string            { return "set-form-state" }
func (AddField) Type() string                { return "add-field" }
func (RemoveField) Type() string             { return "remove-field" }
func (ChangePosition) Type() string          { return "change-position" }
func (ReorderFields) Type() string           { return "reorder-fields" }
func (UpdateFieldLabel) Type() string        { return "update-field-label" }
func (ToggleRequired) Type() string          { return "toggle-field-required" }
func (ToggleVisibility) Type() string        { return "toggle-visibility" }
func (UpdateFieldType) Type() string         { return "update-field-type" }
func (SetOptions) Type() string              { return "set-dropdown-options" }
func (AddSelectOption) Type() string         { return "add-select-option" }
func (RemoveSelectOption) Type() string      { return "remove-select-option" }
func (AddOptionTranslation) Type() string    { return "add-select-option-translation" }
func (RemoveOptionTranslation) Type() string { return "remove-select-option-translation" }
func (UpdateOptionTranslation) Type() string { return "update-select-option-translation" }
func (SetFieldProperty) Type() string        { return "set-field-key-value" }
func (SetUnits) Type() string                { return "add-units" }
func (RemoveUnits) Type() string             { return "remove-units" }

func (SetFormState) isAction()            {}
func (AddField) isAction()                {}
func (RemoveField) isAction()             {}
func (ChangePosition) isAction()          {}
func (ReorderFields) isAction()           {}
func (UpdateFieldLabel) isAction()        {}
func (ToggleRequired) isAction()          {}
func (ToggleVisibility) isAction()        {}
func (UpdateFieldType) isAction()         {}
func (SetOptions) isAction()              {}
func (AddSelectOption) isAction()         {}
func (RemoveSelectOption) isAction()      {}
func (AddOptionTranslation) isAction()    {}
func (RemoveOptionTranslation) isAction() {}
func (UpdateOptionTranslation) isAction() {}
func (SetFieldProperty) isAction()        {}
func (SetUnits) isAction()                {}
func (RemoveUnits) isAction()             {}

type actionEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type idPayload struct {
	ID string `json:"id"`
}

type optionIndexPayload struct {
	ID       string `json:"id"`
	Index    int    `json:"index"`
	Language string `json:"language"`
	Value    string `json:"value"`
}

// DecodeAction reads an action from its {"type", "payload"} JSON form.
func DecodeAction(data []byte) (Action, error) {
	var env actionEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode action: %w", err)
	}
	payload := env.Payload
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	unmarshal := func(v any) error {
		if err := json.Unmarshal(payload, v); err != nil {
			return fmt.Errorf("decode %s payload: %w", env.Type, err)
		}
		return nil
	}

	switch env.Type {
	case "set-form-state":
		var p struct {
			Form Form `json:"form"`
		}
		if err := unmarshal(&p); err != nil {
			return nil, err
		}
		return SetFormState{Form: p.Form}, nil
	case "add-field":
		if string(payload) == "{}" || string(payload) == "null" {
			return AddField{}, nil
		}
		var f Field
		if err := unmarshal(&f); err != nil {
			return nil, err
		}
		return AddField{Field: &f}, nil
	case "remove-field":
		var p idPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			// event form builder sends the bare id
			var id string
			if err := unmarshal(&id); err != nil {
				return nil, err
			}
			return RemoveField{ID: id}, nil
		}
		return RemoveField{ID: p.ID}, nil
	case "change-position":
		var p struct {
			ID       string `json:"id"`
			Position int    `json:"position"`
		}
		if err := unmarshal(&p); err != nil {
			return nil, err
		}
		return ChangePosition{ID: p.ID, Position: p.Position}, nil
	case "reorder-fields":
		var p struct {
			IDs []string `json:"ids"`
		}
		if err := unmarshal(&p); err != nil {
			return nil, err
		}
		return ReorderFields{IDs: p.IDs}, nil
	case "update-field-label":
		var p struct {
			ID          string `json:"id"`
			Translation string `json:"translation"`
			Label       string `json:"label"`
		}
		if err := unmarshal(&p); err != nil {
			return nil, err
		}
		return UpdateFieldLabel{ID: p.ID, Language: p.Translation, Text: p.Label}, nil
	case "toggle-field-required":
		var p idPayload
		if err := unmarshal(&p); err != nil {
			return nil, err
		}
		return ToggleRequired{ID: p.ID}, nil
	case "toggle-visibility":
		var p idPayload
		if err := unmarshal(&p); err != nil {
			return nil, err
		}
		return ToggleVisibility{ID: p.ID}, nil
	case "update-field-type":
		var p struct {
			ID   string    `json:"id"`
			Type FieldType `json:"type"`
		}
		if err := unmarshal(&p); err != nil {
			return nil, err
		}
		return UpdateFieldType{ID: p.ID, FieldType: p.Type}, nil
	case "set-dropdown-options":
		var p struct {
			ID    string        `json:"id"`
			Value []FieldOption `json:"value"`
		}
		if err := unmarshal(&p); err != nil {
			return nil, err
		}
		return SetOptions{ID: p.ID, Options: p.Value}, nil
	case "add-select-option":
		var p idPayload
		if err := unmarshal(&p); err != nil {
			return nil, err
		}
		return AddSelectOption{ID: p.ID}, nil
	case "remove-select-option", "add-select-option-translation",
		"remove-select-option-translation", "update-select-option-translation":
		var p optionIndexPayload
		if err := unmarshal(&p); err != nil {
			return nil, err
		}
		switch env.Type {
		case "remove-select-option":
			return RemoveSelectOption{ID: p.ID, Index: p.Index}, nil
		case "add-select-option-translation":
			return AddOptionTranslation{ID: p.ID, Index: p.Index, Language: p.Language}, nil
		case "remove-select-option-translation":
			return RemoveOptionTranslation{ID: p.ID, Index: p.Index, Language: p.Language}, nil
		default:
			return UpdateOptionTranslation{ID: p.ID, Index: p.Index, Language: p.Language, Text: p.Value}, nil
		}
	case "set-field-key-value":
		var p struct {
			ID    string `json:"id"`
			Key   string `json:"key"`
			Value any    `json:"value"`
		}
		if err := unmarshal(&p); err != nil {
			return nil, err
		}
		return SetFieldProperty{ID: p.ID, Key: p.Key, Value: p.Value}, nil
	case "add-units":
		var p struct {
			ID    string   `json:"id"`
			Value []string `json:"value"`
		}
		if err := unmarshal(&p); err != nil {
			return nil, err
		}
		return SetUnits{ID: p.ID, Units: p.Value}, nil
	case "remove-units":
		var p idPayload
		if err := unmarshal(&p); err != nil {
			return nil, err
		}
		return RemoveUnits{ID: p.ID}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAction, env.Type)
}

// DecodeActions reads a JSON array of actions.
func DecodeActions(data []byte) ([]Action, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode actions: %w", err)
	}
	out := make([]Action, 0, len(raw))
	for i, r := range raw {
		a, err := DecodeAction(r)
		if err != nil {
			return nil, fmt.Errorf("action %d: %w", i, err)
		}
		out = append(out, a)
	}
	return out, nil
}

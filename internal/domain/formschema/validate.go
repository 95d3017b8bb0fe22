package formschema

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var ErrInvalidForm = errors.New("invalid form")

// Issue is one problem found in a form. Option issues block saving; the
// rest may be overridden by the caller.
type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
	Option  bool   `json:"option,omitempty"`
}

// ValidationError lists every issue found in a form.
type ValidationError struct {
	Issues []Issue `json:"issues"`
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		msgs = append(msgs, is.Path+": "+is.Message)
	}
	return "invalid form: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrInvalidForm }

// HasOptionIssues reports whether any issue concerns a field's options.
func (e *ValidationError) HasOptionIssues() bool {
	for _, is := range e.Issues {
		if is.Option {
			return true
		}
	}
	return false
}

// Validator checks forms before they are saved.
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("fieldtype", func(fl validator.FieldLevel) bool {
		return FieldType(fl.Field().String()).Valid()
	})
	return &Validator{v: v}
}

// Validate returns a *ValidationError when form has issues.
func (v *Validator) Validate(form Form) error {
	var issues []Issue

	if err := v.v.Struct(form); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validate form: %w", err)
		}
		for _, fe := range verrs {
			issues = append(issues, Issue{
				Path:    strings.TrimPrefix(fe.Namespace(), "Form."),
				Message: tagMessage(fe),
			})
		}
	}

	for i, f := range form.Fields {
		if f.Deleted {
			continue
		}
		path := fmt.Sprintf("fields[%d]", i)
		if form.Kind != KindEvent {
			if f.Column == "" {
				issues = append(issues, Issue{Path: path + ".column", Message: "is required"})
			}
			if f.FieldType.Valid() && !f.FieldType.ValidForRegistration() {
				issues = append(issues, Issue{Path: path + ".fieldType", Message: fmt.Sprintf("%s is not allowed on a registration form", f.FieldType)})
			}
		}
		issues = append(issues, optionIssues(path, f)...)
	}

	if len(issues) == 0 {
		return nil
	}
	return &ValidationError{Issues: issues}
}

func optionIssues(path string, f Field) []Issue {
	var issues []Issue
	switch f.FieldType {
	case FieldSelect, FieldOptions, FieldBinary:
		if len(f.Options) == 0 {
			issues = append(issues, Issue{Path: path + ".options", Message: "must have at least one option", Option: true})
		}
	}
	for j, o := range f.Options {
		opath := fmt.Sprintf("%s.options[%d]", path, j)
		if !o.IsTranslated() {
			if _, ok := o.Key(); !ok {
				issues = append(issues, Issue{Path: opath + ".value", Message: "is required", Option: true})
			}
			continue
		}
		if o.Translations.Len() == 0 {
			issues = append(issues, Issue{Path: opath, Message: "must have a translation", Option: true})
		}
		for _, lang := range o.Translations.Languages() {
			if s, _ := o.Translations.Get(lang); s == "" {
				issues = append(issues, Issue{Path: opath + "." + lang, Message: "must not be empty", Option: true})
			}
		}
	}
	return issues
}

func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte":
		return "must be at least " + fe.Param()
	case "min":
		return "must have length at least " + fe.Param()
	case "fieldtype":
		return fmt.Sprintf("unknown field type %q", fe.Value())
	}
	return "failed " + fe.Tag()
}

package formschema

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

var (
	ErrFormNotFound = errors.New("form not found")
	ErrReadOnly     = errors.New("form store is read-only")
)

// FormStore loads and saves forms on the records platform.
type FormStore interface {
	RegistrationForms(ctx context.Context) ([]Form, error)
	SaveRegistrationForm(ctx context.Context, form Form) error
	EventForms(ctx context.Context) ([]Form, error)
	SaveEventForm(ctx context.Context, form Form) error
}

type Service struct {
	store     FormStore
	builder   *Builder
	validator *Validator
	logger    zerolog.Logger
	now       func() time.Time
}

func NewService(store FormStore, builder *Builder, logger zerolog.Logger) *Service {
	return &Service{
		store:     store,
		builder:   builder,
		validator: NewValidator(),
		logger:    logger.With().Str("component", "formschema").Logger(),
		now:       time.Now,
	}
}

func (s *Service) Builder() *Builder { return s.builder }

// RegistrationForm returns the saved registration form, or the default form
// when none has been saved yet.
func (s *Service) RegistrationForm(ctx context.Context) (Form, error) {
	forms, err := s.store.RegistrationForms(ctx)
	if err != nil {
		return Form{}, fmt.Errorf("load registration forms: %w", err)
	}
	switch {
	case len(forms) == 0:
		s.logger.Warn().Msg("no registration form saved, using default")
		return DefaultRegistrationForm(s.now()), nil
	case len(forms) > 1:
		s.logger.Warn().Int("count", len(forms)).Msg("more than one registration form saved, using the first")
	}
	form := forms[0]
	form.Kind = KindRegistration
	return form, nil
}

// Apply runs actions against form. The result is not saved.
func (s *Service) Apply(form Form, actions []Action) (Form, error) {
	return s.builder.ReduceAll(form, actions)
}

func (s *Service) Validate(form Form) error {
	return s.validator.Validate(form)
}

// SaveRegistrationForm validates and saves form. Option issues always block
// the save; other issues block it unless force is set.
func (s *Service) SaveRegistrationForm(ctx context.Context, form Form, force bool) (Form, error) {
	form.Kind = KindRegistration
	if err := s.checkBeforeSave(form, force); err != nil {
		return form, err
	}
	form.UpdatedAt = s.now()
	if err := s.store.SaveRegistrationForm(ctx, form); err != nil {
		return form, fmt.Errorf("save registration form: %w", err)
	}
	s.logger.Info().Str("form", form.ID).Int("fields", len(form.Fields)).Msg("registration form saved")
	return form, nil
}

func (s *Service) EventForms(ctx context.Context) ([]Form, error) {
	forms, err := s.store.EventForms(ctx)
	if err != nil {
		return nil, fmt.Errorf("load event forms: %w", err)
	}
	for i := range forms {
		forms[i].Kind = KindEvent
	}
	return forms, nil
}

func (s *Service) EventForm(ctx context.Context, id string) (Form, error) {
	forms, err := s.EventForms(ctx)
	if err != nil {
		return Form{}, err
	}
	for _, f := range forms {
		if f.ID == id {
			return f, nil
		}
	}
	return Form{}, fmt.Errorf("%w: %s", ErrFormNotFound, id)
}

// SaveEventForm validates and saves an event form, minting an id for new
// forms.
func (s *Service) SaveEventForm(ctx context.Context, form Form, force bool) (Form, error) {
	form.Kind = KindEvent
	now := s.now()
	if form.ID == "" {
		form.ID = s.builder.cfg.NewID()
		form.CreatedAt = now
	}
	if err := s.checkBeforeSave(form, force); err != nil {
		return form, err
	}
	form.UpdatedAt = now
	if err := s.store.SaveEventForm(ctx, form); err != nil {
		return form, fmt.Errorf("save event form: %w", err)
	}
	s.logger.Info().Str("form", form.ID).Int("fields", len(form.Fields)).Msg("event form saved")
	return form, nil
}

func (s *Service) checkBeforeSave(form Form, force bool) error {
	err := s.validator.Validate(form)
	if err == nil {
		return nil
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		return err
	}
	if verr.HasOptionIssues() || !force {
		return verr
	}
	s.logger.Warn().Str("form", form.ID).Int("issues", len(verr.Issues)).Msg("saving form with validation issues")
	return nil
}

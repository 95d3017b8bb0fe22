package formschema

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/forms")
	g.GET("/registration", h.GetRegistrationForm)
	g.PUT("/registration", h.SaveRegistrationForm)
	g.POST("/registration/actions", h.ApplyRegistrationActions)
	g.POST("/validate", h.ValidateForm)

	g.GET("/events", h.ListEventForms)
	g.GET("/events/:id", h.GetEventForm)
	g.PUT("/events", h.SaveEventForm)
	g.POST("/events/fields", h.NewEventField)

	g.GET("/languages", h.Languages)
	g.GET("/catalog", h.Catalog)
}

func (h *Handler) GetRegistrationForm(c echo.Context) error {
	form, err := h.svc.RegistrationForm(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, form)
}

func (h *Handler) SaveRegistrationForm(c echo.Context) error {
	var form Form
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	saved, err := h.svc.SaveRegistrationForm(c.Request().Context(), form, forceParam(c))
	if err != nil {
		return saveError(c, err)
	}
	return c.JSON(http.StatusOK, saved)
}

type actionsRequest struct {
	Form    *Form             `json:"form"`
	Actions []json.RawMessage `json:"actions"`
}

// ApplyRegistrationActions runs a list of editor actions against the posted
// form, or the saved form when none is posted, and returns the result.
func (h *Handler) ApplyRegistrationActions(c echo.Context) error {
	var req actionsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	actions := make([]Action, 0, len(req.Actions))
	for i, raw := range req.Actions {
		a, err := DecodeAction(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "action "+strconv.Itoa(i)+": "+err.Error())
		}
		actions = append(actions, a)
	}

	var form Form
	if req.Form != nil {
		form = *req.Form
	} else {
		current, err := h.svc.RegistrationForm(c.Request().Context())
		if err != nil {
			return echo.NewHTTPError(http.StatusBadGateway, err.Error())
		}
		form = current
	}

	out, err := h.svc.Apply(form, actions)
	if err != nil {
		return echo.NewHTTPError(actionStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) ValidateForm(c echo.Context) error {
	var form Form
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Validate(form); err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			return c.JSON(http.StatusUnprocessableEntity, verr)
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{"issues": []Issue{}})
}

func (h *Handler) ListEventForms(c echo.Context) error {
	forms, err := h.svc.EventForms(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{"event_forms": forms})
}

func (h *Handler) GetEventForm(c echo.Context) error {
	form, err := h.svc.EventForm(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrFormNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "event form not found")
		}
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, form)
}

func (h *Handler) SaveEventForm(c echo.Context) error {
	var form Form
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	saved, err := h.svc.SaveEventForm(c.Request().Context(), form, forceParam(c))
	if err != nil {
		return saveError(c, err)
	}
	return c.JSON(http.StatusOK, saved)
}

type newFieldRequest struct {
	FieldType   FieldType     `json:"fieldType"`
	InputType   InputType     `json:"inputType"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Options     []FieldOption `json:"options"`
}

func (h *Handler) NewEventField(c echo.Context) error {
	var req newFieldRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	f, err := h.svc.Builder().NewEventField(req.FieldType, req.InputType, req.Name, req.Description, req.Options)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, f)
}

func (h *Handler) Languages(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"editor": LanguageOptions(EditorLanguages),
		"known":  LanguageOptions(KnownLanguages),
	})
}

func (h *Handler) Catalog(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Builder().Catalog())
}

func forceParam(c echo.Context) bool {
	force, _ := strconv.ParseBool(c.QueryParam("force"))
	return force
}

func saveError(c echo.Context, err error) error {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return c.JSON(http.StatusUnprocessableEntity, verr)
	}
	if errors.Is(err, ErrReadOnly) {
		return echo.NewHTTPError(http.StatusMethodNotAllowed, err.Error())
	}
	return echo.NewHTTPError(http.StatusBadGateway, err.Error())
}

func actionStatus(err error) int {
	switch {
	case errors.Is(err, ErrFieldNotFound), errors.Is(err, ErrOptionNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrBaseField):
		return http.StatusConflict
	}
	return http.StatusUnprocessableEntity
}

package records

import (
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/clinicadmin/clinicadmin/internal/domain/formschema"
	"github.com/clinicadmin/clinicadmin/internal/platform/export"
	"github.com/clinicadmin/clinicadmin/internal/platform/upstream"
	"github.com/clinicadmin/clinicadmin/pkg/pagination"
)

type Handler struct {
	svc       *Service
	delimiter string
	now       func() time.Time
}

func NewHandler(svc *Service, delimiter string) *Handler {
	return &Handler{svc: svc, delimiter: delimiter, now: time.Now}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/records")
	g.GET("/patients", h.PatientTable)
	g.GET("/patients/export", h.ExportPatients)
	g.GET("/events/:formId", h.EventTable)
	g.GET("/events/:formId/export", h.ExportEvents)
	g.GET("/prescriptions", h.Prescriptions)
	g.GET("/appointments", h.Appointments)
}

func (h *Handler) PatientTable(c echo.Context) error {
	t, err := h.svc.PatientTable(c.Request().Context(), c.QueryParam("q"), c.QueryParam("lang"))
	if err != nil {
		return httpError(err)
	}
	return page(c, t)
}

func (h *Handler) ExportPatients(c echo.Context) error {
	t, err := h.svc.PatientTable(c.Request().Context(), c.QueryParam("q"), c.QueryParam("lang"))
	if err != nil {
		return httpError(err)
	}
	return h.download(c, "patients", t)
}

type tablePage struct {
	Table
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"hasMore"`
}

// page sends one page of t's rows. Columns and headers always describe the
// whole table.
func page(c echo.Context, t Table) error {
	p := pagination.FromContext(c)
	total := len(t.Rows)
	t.Rows = pagination.Window(t.Rows, p)
	pagination.SetLinkHeader(c, p, total)
	return c.JSON(http.StatusOK, tablePage{
		Table:   t,
		Total:   total,
		Limit:   p.Limit,
		Offset:  p.Offset,
		HasMore: p.HasNext(total),
	})
}

func eventQuery(c echo.Context) EventQuery {
	return EventQuery{
		FormID:    c.Param("formId"),
		StartDate: c.QueryParam("start_date"),
		EndDate:   c.QueryParam("end_date"),
		ClinicID:  c.QueryParam("clinic_id"),
	}
}

func (h *Handler) EventTable(c echo.Context) error {
	t, err := h.svc.EventTable(c.Request().Context(), eventQuery(c), c.QueryParam("lang"))
	if err != nil {
		return httpError(err)
	}
	return page(c, t)
}

func (h *Handler) ExportEvents(c echo.Context) error {
	q := eventQuery(c)
	t, err := h.svc.EventTable(c.Request().Context(), q, c.QueryParam("lang"))
	if err != nil {
		return httpError(err)
	}
	return h.download(c, "events-"+q.FormID, t)
}

// download sends t as TSV, or XLSX when format=xlsx. The file name is the
// base name plus the current date unless name is given.
func (h *Handler) download(c echo.Context, base string, t Table) error {
	name := c.QueryParam("name")
	if name == "" {
		name = base + "-" + h.now().Format("2006-01-02")
	}
	switch c.QueryParam("format") {
	case "", "tsv":
		return export.Attachment(c, name, t.Export(), h.delimiter)
	case "xlsx":
		return export.AttachmentXLSX(c, name, base, t.Export())
	}
	return echo.NewHTTPError(http.StatusBadRequest, "format must be tsv or xlsx")
}

func listingFiltersFrom(c echo.Context) map[string]string {
	filters := map[string]string{}
	for k, v := range c.QueryParams() {
		if slices.Contains(pagination.Keys, k) {
			continue
		}
		if len(v) > 0 && v[0] != "" {
			filters[k] = v[0]
		}
	}
	return filters
}

func (h *Handler) Prescriptions(c echo.Context) error {
	items, err := h.svc.Prescriptions(c.Request().Context(), listingFiltersFrom(c))
	if err != nil {
		return httpError(err)
	}
	return pageList(c, items)
}

func (h *Handler) Appointments(c echo.Context) error {
	items, err := h.svc.Appointments(c.Request().Context(), listingFiltersFrom(c))
	if err != nil {
		return httpError(err)
	}
	return pageList(c, items)
}

func pageList(c echo.Context, items []any) error {
	p := pagination.FromContext(c)
	pagination.SetLinkHeader(c, p, len(items))
	return c.JSON(http.StatusOK, pagination.NewResponse(pagination.Window(items, p), len(items), p))
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidQuery):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, formschema.ErrFormNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, upstream.ErrUpstream):
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

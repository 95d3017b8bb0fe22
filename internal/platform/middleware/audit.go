package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// AuditEntry records one access to patient data or one change to a form.
type AuditEntry struct {
	Resource   string
	Action     string // read, export, save, preview
	FormID     string
	PatientID  string
	Format     string
	IPAddress  string
	UserAgent  string
	Path       string
	Method     string
	Timestamp  time.Time
	RequestID  string
	StatusCode int
}

// AuditRecorder persists audit entries somewhere other than the log.
type AuditRecorder interface {
	RecordAccess(entry AuditEntry) error
}

// AuditRecorderFunc is a function adapter for AuditRecorder.
type AuditRecorderFunc func(entry AuditEntry) error

func (f AuditRecorderFunc) RecordAccess(entry AuditEntry) error {
	return f(entry)
}

// Audit logs every request under /api/v1/records and /api/v1/forms.
// Exports and form saves log at warn so they stand out in the trail.
func Audit(logger zerolog.Logger, recorders ...AuditRecorder) echo.MiddlewareFunc {
	logger = logger.With().Str("component", "audit").Logger()
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			resource := auditResource(req.URL.Path)
			if resource == "" {
				return next(c)
			}

			err := next(c)

			entry := AuditEntry{
				Resource:   resource,
				Action:     auditAction(req.Method, req.URL.Path),
				FormID:     auditFormID(c),
				PatientID:  c.QueryParam("patient_id"),
				Format:     c.QueryParam("format"),
				IPAddress:  c.RealIP(),
				UserAgent:  req.UserAgent(),
				Path:       req.URL.Path,
				Method:     req.Method,
				Timestamp:  time.Now().UTC(),
				StatusCode: c.Response().Status,
			}
			if he, ok := err.(*echo.HTTPError); ok {
				entry.StatusCode = he.Code
			}
			if rid, ok := c.Get("request_id").(string); ok {
				entry.RequestID = rid
			}

			for _, r := range recorders {
				if r == nil {
					continue
				}
				if recErr := r.RecordAccess(entry); recErr != nil {
					logger.Error().Err(recErr).
						Str("request_id", entry.RequestID).
						Msg("failed to record audit entry")
				}
			}

			evt := logger.Info()
			if entry.Action == "export" || entry.Action == "save" {
				evt = logger.Warn()
			}
			evt.
				Str("request_id", entry.RequestID).
				Str("resource", entry.Resource).
				Str("action", entry.Action).
				Str("form_id", entry.FormID).
				Str("patient_id", entry.PatientID).
				Str("format", entry.Format).
				Str("method", entry.Method).
				Str("path", entry.Path).
				Str("remote_ip", entry.IPAddress).
				Int("status", entry.StatusCode).
				Msg("audit")

			return err
		}
	}
}

func auditFormID(c echo.Context) string {
	if id := c.Param("formId"); id != "" {
		return id
	}
	return c.Param("id")
}

// auditResource returns "records" or "forms" for audited paths, "" otherwise.
func auditResource(path string) string {
	rest, ok := strings.CutPrefix(path, "/api/v1/")
	if !ok {
		return ""
	}
	seg, _, _ := strings.Cut(rest, "/")
	switch seg {
	case "records", "forms":
		return seg
	}
	return ""
}

func auditAction(method, path string) string {
	switch {
	case strings.HasSuffix(path, "/export"):
		return "export"
	case strings.HasSuffix(path, "/actions"), strings.HasSuffix(path, "/validate"), strings.HasSuffix(path, "/fields"):
		return "preview"
	case method == http.MethodPut || method == http.MethodPost:
		return "save"
	}
	return "read"
}

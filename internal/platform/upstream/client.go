// Package upstream is the client for the clinic records API. Responses are
// returned as ordered JSON objects, untouched apart from decoding.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/clinicadmin/clinicadmin/pkg/ordered"
)

var ErrUpstream = errors.New("upstream request failed")

const (
	kindRegistration = "registration"
	kindEvent        = "event"
)

type Config struct {
	BaseURL   string
	Timeout   time.Duration
	Retries   int
	Token     string
	SchemaTTL time.Duration
}

type Client struct {
	http    *resty.Client
	token   string
	schemas *SchemaCache
	logger  zerolog.Logger
}

func New(cfg Config, logger zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	rc := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(timeout).
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Accept", "application/json")
	return &Client{
		http:    rc,
		token:   cfg.Token,
		schemas: NewSchemaCache(cfg.SchemaTTL),
		logger:  logger.With().Str("component", "upstream").Logger(),
	}
}

type tokenKey struct{}

// WithToken attaches the caller's API token to ctx. Requests made with ctx
// forward it verbatim in the Authorization header.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

func TokenFromContext(ctx context.Context) string {
	t, _ := ctx.Value(tokenKey{}).(string)
	return t
}

func (c *Client) tokenFor(ctx context.Context) string {
	if t := TokenFromContext(ctx); t != "" {
		return t
	}
	return c.token
}

func (c *Client) request(ctx context.Context) *resty.Request {
	r := c.http.R().SetContext(ctx)
	if t := c.tokenFor(ctx); t != "" {
		r.SetHeader("Authorization", t)
	}
	return r
}

func (c *Client) do(r *resty.Request, method, path string) (*ordered.Object, error) {
	start := time.Now()
	resp, err := r.Execute(method, path)
	if err != nil {
		c.logger.Error().Err(err).Str("method", method).Str("path", path).Msg("upstream call failed")
		return nil, fmt.Errorf("%w: %s %s: %v", ErrUpstream, method, path, err)
	}
	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode()).
		Dur("latency", time.Since(start)).
		Msg("upstream call")
	if resp.IsError() {
		return nil, fmt.Errorf("%w: %s %s: status %d: %s", ErrUpstream, method, path, resp.StatusCode(), errorMessage(resp.Body()))
	}
	if len(resp.Body()) == 0 {
		return ordered.New(), nil
	}
	obj, err := ordered.DecodeObject(resp.Body())
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: decoding response: %v", ErrUpstream, method, path, err)
	}
	return obj, nil
}

func errorMessage(body []byte) string {
	if obj, err := ordered.DecodeObject(body); err == nil {
		for _, k := range []string{"message", "error"} {
			if s, ok := obj.String(k); ok {
				return s
			}
		}
	}
	if len(body) > 200 {
		body = body[:200]
	}
	return strings.TrimSpace(string(body))
}

// list returns the objects in the array under key. Missing keys and
// non-object elements are skipped.
func list(obj *ordered.Object, key string) []*ordered.Object {
	v, _ := obj.Get(key)
	arr, _ := v.([]any)
	out := make([]*ordered.Object, 0, len(arr))
	for _, el := range arr {
		if o, ok := el.(*ordered.Object); ok {
			out = append(out, o)
		}
	}
	return out
}

func (c *Client) cachedForms(ctx context.Context, kind, path, key string) ([]*ordered.Object, error) {
	token := c.tokenFor(ctx)
	if forms, ok := c.schemas.Get(kind, token); ok {
		return forms, nil
	}
	obj, err := c.do(c.request(ctx), resty.MethodGet, path)
	if err != nil {
		return nil, err
	}
	forms := list(obj, key)
	c.schemas.Add(kind, token, forms)
	return forms, nil
}

func (c *Client) RegistrationForms(ctx context.Context) ([]*ordered.Object, error) {
	return c.cachedForms(ctx, kindRegistration, "/admin_api/get_patient_registration_forms", "forms")
}

// SaveRegistrationForm upserts a registration form already in its stored
// shape (percent-encoded text, fields and metadata as JSON strings).
func (c *Client) SaveRegistrationForm(ctx context.Context, form *ordered.Object) error {
	body := ordered.New()
	body.Set("form", form)
	_, err := c.do(c.request(ctx).SetHeader("Content-Type", "application/json").SetBody(body),
		resty.MethodPost, "/admin_api/update_patient_registration_form")
	if err == nil {
		c.schemas.Invalidate()
	}
	return err
}

func (c *Client) EventForms(ctx context.Context) ([]*ordered.Object, error) {
	return c.cachedForms(ctx, kindEvent, "/admin_api/get_event_forms", "event_forms")
}

func (c *Client) SaveEventForm(ctx context.Context, form *ordered.Object) error {
	body := ordered.New()
	body.Set("event_form", form)
	_, err := c.do(c.request(ctx).SetHeader("Content-Type", "application/json").SetBody(body),
		resty.MethodPost, "/admin_api/save_event_form")
	if err == nil {
		c.schemas.Invalidate()
	}
	return err
}

func (c *Client) AllPatients(ctx context.Context) ([]*ordered.Object, error) {
	obj, err := c.do(c.request(ctx), resty.MethodGet, "/admin_api/all_patients")
	if err != nil {
		return nil, err
	}
	return list(obj, "patients"), nil
}

func (c *Client) SearchPatients(ctx context.Context, query string) ([]*ordered.Object, error) {
	obj, err := c.do(c.request(ctx).SetQueryParam("query", query), resty.MethodGet, "/v1/admin/search/patients")
	if err != nil {
		return nil, err
	}
	return list(obj, "patients"), nil
}

// Exploration is the data explorer result set.
type Exploration struct {
	Patients      []*ordered.Object
	Events        []*ordered.Object
	Prescriptions []*ordered.Object
	Appointments  []*ordered.Object
}

// Explore runs a data explorer query. filters are passed through as the
// request body.
func (c *Client) Explore(ctx context.Context, filters map[string]any) (Exploration, error) {
	if filters == nil {
		filters = map[string]any{}
	}
	obj, err := c.do(c.request(ctx).SetHeader("Content-Type", "application/json").SetBody(filters),
		resty.MethodPost, "/v1/admin/data-explorer")
	if err != nil {
		return Exploration{}, err
	}
	v, _ := obj.Get("data")
	data, _ := v.(*ordered.Object)
	return Exploration{
		Patients:      list(data, "patients"),
		Events:        list(data, "events"),
		Prescriptions: list(data, "prescriptions"),
		Appointments:  list(data, "appointments"),
	}, nil
}

func (c *Client) Prescriptions(ctx context.Context, filters map[string]string) ([]*ordered.Object, error) {
	obj, err := c.do(c.request(ctx).SetQueryParams(filters), resty.MethodGet, "/v1/admin/prescriptions/search")
	if err != nil {
		return nil, err
	}
	return list(obj, "prescriptions"), nil
}

func (c *Client) Appointments(ctx context.Context, filters map[string]string) ([]*ordered.Object, error) {
	obj, err := c.do(c.request(ctx).SetQueryParams(filters), resty.MethodGet, "/v1/admin/appointments/search")
	if err != nil {
		return nil, err
	}
	return list(obj, "appointments"), nil
}

// Ping checks that the records API answers at all. Any response below 500
// counts, since the probe carries no credentials.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Head("/")
	if err != nil {
		return fmt.Errorf("%w: ping: %v", ErrUpstream, err)
	}
	if resp.StatusCode() >= 500 {
		return fmt.Errorf("%w: ping: status %d", ErrUpstream, resp.StatusCode())
	}
	return nil
}

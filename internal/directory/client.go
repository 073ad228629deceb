// Package directory is the HTTP client for the medical-directory backend. It
// exposes the four calls the appointments page depends on: list
// appointments, list clinics, list doctors and cancel an appointment.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 4 << 20
	maxErrorBytes  = 4 << 10

	requestIDHeader = "X-Request-ID"
)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client. A client without a
// Timeout of its own is copied and given the client timeout.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithTimeout sets the per-request timeout. It does not override a Timeout
// already set on a client passed to WithHTTPClient.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.timeout = d
		}
	}
}

// WithLogger attaches a logger used for per-call debug output.
func WithLogger(l zerolog.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

// Client talks to the directory backend. It holds no per-call state and is
// safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	logger     zerolog.Logger
}

// New creates a Client for the backend rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		timeout: defaultTimeout,
		logger:  zerolog.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	switch {
	case c.httpClient == nil:
		c.httpClient = &http.Client{Timeout: c.timeout}
	case c.httpClient.Timeout == 0:
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}
	return c
}

type ctxKey struct{}

// WithRequestID returns a context whose outbound calls carry the given
// X-Request-ID header.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// ListAppointments returns appointments in backend order. An empty phone
// lists every appointment.
func (c *Client) ListAppointments(ctx context.Context, phone string) ([]Appointment, error) {
	q := url.Values{}
	if phone != "" {
		q.Set("user_phone", phone)
	}
	var out []Appointment
	if err := c.do(ctx, http.MethodGet, "/appointments", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListClinics(ctx context.Context) ([]Clinic, error) {
	var out []Clinic
	if err := c.do(ctx, http.MethodGet, "/clinics", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListDoctors(ctx context.Context) ([]Doctor, error) {
	var out []Doctor
	if err := c.do(ctx, http.MethodGet, "/doctors", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CancelAppointment deletes the appointment. Any 2xx status is success.
func (c *Client) CancelAppointment(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/appointments/"+strconv.FormatInt(id, 10), nil, nil)
}

// Ping checks that the backend answers a cheap read.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/clinics", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, out interface{}) error {
	op := method + " " + path
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return transportError(op, err)
	}
	req.Header.Set("Accept", "application/json")
	if rid := requestIDFrom(ctx); rid != "" {
		req.Header.Set(requestIDHeader, rid)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("op", op).Dur("latency", time.Since(start)).Msg("directory call failed")
		return transportError(op, err)
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("op", op).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("directory call")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBytes))
		return statusError(op, resp.StatusCode, body)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out); err != nil {
		if err == io.EOF {
			err = fmt.Errorf("empty body")
		}
		return decodeError(op, err)
	}
	return nil
}

// Package backend is the HTTP client for the clinic's internal API. All
// requests carry the internal API key and go through an outbound rate
// limiter so a chatty agent cannot hammer the backend.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/arludent/assistant/pkg/logx"
)

const internalAPIKeyHeader = "X-Internal-API-Key"

// Client talks to the clinic backend's internal API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithRateLimit throttles outbound requests. rps <= 0 disables the
// limiter.
func WithRateLimit(rps float64) ClientOption {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), int(rps)+1)
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a backend client.
func NewClient(baseURL, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}

	for _, opt := range opts {
		opt(c)
	}

	logx.WithField("base_url", baseURL).Info("Backend client initialized")
	return c
}

// do performs a request and returns the envelope's data payload.
func (c *Client) do(ctx context.Context, method, path string, body any, query url.Values) (json.RawMessage, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, ErrRequestFailed(err)
		}
	}

	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, ErrRequestFailed(err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return nil, ErrRequestFailed(err)
	}
	req.Header.Set(internalAPIKeyHeader, c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	logx.WithFields(logx.Fields{
		"method": method,
		"path":   path,
	}).Debug("Backend request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logx.WithError(err).Error("Backend request failed")
		return nil, ErrRequestFailed(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ErrRequestFailed(err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound(path)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logx.WithFields(logx.Fields{
			"status": resp.StatusCode,
			"path":   path,
		}).Error("Backend returned error status")
		return nil, ErrRequestFailed(fmt.Errorf("status %d", resp.StatusCode))
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return nil, ErrInvalidResponse(err)
	}
	if !env.Success {
		return nil, ErrRejected(env.Message)
	}

	return env.Data, nil
}

func decode[T any](data json.RawMessage) (T, error) {
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return out, ErrInvalidResponse(err)
	}
	return out, nil
}

// GetPatient fetches a patient by ID.
func (c *Client) GetPatient(ctx context.Context, patientID int) (*Patient, error) {
	data, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/internal/pacientes/%d", patientID), nil, nil)
	if err != nil {
		return nil, err
	}
	return decode[*Patient](data)
}

// GetPatientByDNI fetches a patient by national ID number.
func (c *Client) GetPatientByDNI(ctx context.Context, dni string) (*Patient, error) {
	data, err := c.do(ctx, http.MethodGet, "/api/internal/pacientes/dni/"+url.PathEscape(dni), nil, nil)
	if err != nil {
		return nil, err
	}
	return decode[*Patient](data)
}

// SearchPatients searches patients by name fragment.
func (c *Client) SearchPatients(ctx context.Context, search string, limit int) ([]Patient, error) {
	query := url.Values{"limit": {strconv.Itoa(limit)}}
	if search != "" {
		query.Set("search", search)
	}

	data, err := c.do(ctx, http.MethodGet, "/api/internal/pacientes", nil, query)
	if err != nil {
		return nil, err
	}
	return decode[[]Patient](data)
}

// GetPatientAppointments lists a patient's appointments, optionally
// filtered by status.
func (c *Client) GetPatientAppointments(ctx context.Context, patientID int, status string) ([]Appointment, error) {
	var query url.Values
	if status != "" {
		query = url.Values{"estado": {status}}
	}

	data, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/internal/pacientes/%d/citas", patientID), nil, query)
	if err != nil {
		return nil, err
	}
	return decode[[]Appointment](data)
}

// GetDoctorAppointments lists a doctor's appointments, optionally on one
// date (YYYY-MM-DD).
func (c *Client) GetDoctorAppointments(ctx context.Context, doctorID int, date string) ([]Appointment, error) {
	var query url.Values
	if date != "" {
		query = url.Values{"fecha": {date}}
	}

	data, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/internal/medicos/%d/citas", doctorID), nil, query)
	if err != nil {
		return nil, err
	}
	return decode[[]Appointment](data)
}

// GetDoctorAvailability returns a doctor's free slots on a date.
func (c *Client) GetDoctorAvailability(ctx context.Context, doctorID int, date string) (*Availability, error) {
	query := url.Values{"fecha": {date}}

	data, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/internal/medicos/%d/disponibilidad", doctorID), nil, query)
	if err != nil {
		return nil, err
	}
	return decode[*Availability](data)
}

// GetHistorySummary returns the condensed clinical history of a patient.
func (c *Client) GetHistorySummary(ctx context.Context, patientID int) (*HistorySummary, error) {
	data, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/internal/pacientes/%d/historial-resumen", patientID), nil, nil)
	if err != nil {
		return nil, err
	}
	return decode[*HistorySummary](data)
}

// GetDoctor fetches a doctor by ID.
func (c *Client) GetDoctor(ctx context.Context, doctorID int) (*Doctor, error) {
	data, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/internal/medicos/%d", doctorID), nil, nil)
	if err != nil {
		return nil, err
	}
	return decode[*Doctor](data)
}

// ListDoctors lists doctors, optionally filtered by specialty.
func (c *Client) ListDoctors(ctx context.Context, specialty string) ([]Doctor, error) {
	var query url.Values
	if specialty != "" {
		query = url.Values{"especialidad": {specialty}}
	}

	data, err := c.do(ctx, http.MethodGet, "/api/internal/medicos", nil, query)
	if err != nil {
		return nil, err
	}
	return decode[[]Doctor](data)
}

// GetUserType reports whether a user is an active patient.
func (c *Client) GetUserType(ctx context.Context, userID int) (*UserType, error) {
	data, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/internal/agendamiento/tipo-usuario/%d", userID), nil, nil)
	if err != nil {
		return nil, err
	}
	return decode[*UserType](data)
}

// SuggestTimeSlots asks for alternative appointment slots.
func (c *Client) SuggestTimeSlots(ctx context.Context, req SuggestSlotsRequest) ([]TimeSlot, error) {
	data, err := c.do(ctx, http.MethodPost, "/api/internal/agendamiento/sugerir-horarios", req, nil)
	if err != nil {
		return nil, err
	}
	return decode[[]TimeSlot](data)
}

// RegisterAppointment creates an appointment in pending state.
func (c *Client) RegisterAppointment(ctx context.Context, req RegisterAppointmentRequest) (*Appointment, error) {
	data, err := c.do(ctx, http.MethodPost, "/api/internal/agendamiento/registrar-cita", req, nil)
	if err != nil {
		return nil, err
	}
	return decode[*Appointment](data)
}

// ConfirmAppointment flips a pending appointment to confirmed.
func (c *Client) ConfirmAppointment(ctx context.Context, appointmentID int) (*Appointment, error) {
	data, err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/api/internal/agendamiento/confirmar-cita/%d", appointmentID), nil, nil)
	if err != nil {
		return nil, err
	}
	return decode[*Appointment](data)
}

// LogInteraction stores an auditable record of an agent interaction.
func (c *Client) LogInteraction(ctx context.Context, record InteractionRecord) (*InteractionResult, error) {
	data, err := c.do(ctx, http.MethodPost, "/api/internal/interacciones", record, nil)
	if err != nil {
		return nil, err
	}
	return decode[*InteractionResult](data)
}

// Health probes the backend's internal health endpoint.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/api/internal/health", nil, nil)
	return err
}

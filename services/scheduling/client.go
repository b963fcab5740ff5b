package scheduling

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mindmate/models"
	"mindmate/utils"

	"go.uber.org/zap"
)

// Client defines the operations this service consumes from the
// scheduling backend. All calls carry the caller's bearer session
// token; the backend owns specialists, slots and appointments. Raw
// backend payloads are normalized into the canonical model shapes
// here, at the boundary, so nothing downstream needs fallback chains.
type Client interface {
	SearchSpecialists(ctx context.Context, token string, q models.SpecialistQuery) (*models.SpecialistPage, error)
	SlotsForDate(ctx context.Context, token, specialistID, date, appointmentType string) ([]models.TimeSlot, error)
	SlotsForRange(ctx context.Context, token, specialistID, startDate, endDate, appointmentType string) ([]models.TimeSlot, error)
	BookAppointment(ctx context.Context, token string, req models.BookingRequest) (*models.BookingResult, error)
}

// APIError is a non-2xx response from the scheduling backend, with the
// server-provided detail preserved verbatim.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("scheduling backend returned %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("scheduling backend returned %d", e.StatusCode)
}

// HTTPClient is the production implementation over net/http.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHTTPClient builds a client for the given backend base URL. The
// timeout bounds every single request; on expiry the operation is a
// generic failure, never assumed to have succeeded server-side.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     utils.GetLogger(),
	}
}

// doJSON performs a JSON request against the backend and decodes the
// response into out (when non-nil). Non-2xx responses become APIError.
func (c *HTTPClient) doJSON(ctx context.Context, token, method, path string, query url.Values, body, out interface{}) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("scheduling backend request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var detail struct {
			Detail string `json:"detail"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&detail); err == nil {
			apiErr.Detail = detail.Detail
		}
		c.logger.Warn("scheduling backend error",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("detail", apiErr.Detail))
		return apiErr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode backend response: %w", err)
		}
	}
	return nil
}

package requester

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// Request describes one call against the backend. Path is relative to the
// configured base URL.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Headers map[string]string
	// Body is encoded as JSON unless RawBody is set.
	Body        any
	RawBody     io.Reader
	ContentType string
}

// Response represents an HTTP response
type Response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Decode unmarshals the JSON body into v. An empty body leaves v untouched.
func (r *Response) Decode(v any) error {
	if len(r.Body) == 0 || v == nil {
		return nil
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	return nil
}

// APIError is a non-2xx answer from the backend.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s, status %d)", e.Message, e.Code, e.StatusCode)
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
}

// errorBody covers the error shapes of the auth, rows and storage services.
type errorBody struct {
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	ErrorCode        string `json:"error_code"`
	Code             any    `json:"code"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// ParseAPIError builds an APIError from a failed response.
func ParseAPIError(resp *Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var body errorBody
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		apiErr.Message = http.StatusText(resp.StatusCode)
		return apiErr
	}

	apiErr.Message = firstNonEmpty(body.ErrorDescription, body.Msg, body.Message, body.Error, http.StatusText(resp.StatusCode))
	apiErr.Code = body.ErrorCode
	if apiErr.Code == "" {
		switch c := body.Code.(type) {
		case string:
			apiErr.Code = c
		}
	}
	if apiErr.Code == "" && body.ErrorDescription != "" {
		apiErr.Code = body.Error
	}
	return apiErr
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

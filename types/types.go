package types

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/cockroachdb/errors"
)

// RequestSpec - Body of a multi-URL GET request
type RequestSpec struct {
	URLs    []string          `json:"urls"`    // Target URLs, dispatched in order
	Headers HeaderValues `json:"headers"` // Applied to every URL
	Cookie  string            `json:"cookie,omitempty"`
}

// HeaderValues is a header map that also accepts numbers and booleans on
// decode. Numbers and true are written as text; false and null become empty
// values, which drop the header.
type HeaderValues map[string]string

func (h *HeaderValues) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.Wrap(err, "headers must be an object")
	}
	if raw == nil {
		*h = nil
		return nil
	}

	m := make(HeaderValues, len(raw))
	for name, value := range raw {
		v, err := headerText(value)
		if err != nil {
			return errors.Wrapf(err, "header %q", name)
		}
		m[name] = v
	}
	*h = m
	return nil
}

func headerText(value json.RawMessage) (string, error) {
	value = bytes.TrimSpace(value)
	switch {
	case len(value) == 0:
		return "", errors.New("empty value")
	case value[0] == '"':
		var s string
		if err := json.Unmarshal(value, &s); err != nil {
			return "", err
		}
		return s, nil
	case string(value) == "null", string(value) == "false":
		return "", nil
	case string(value) == "true":
		return "true", nil
	case value[0] == '-' || (value[0] >= '0' && value[0] <= '9'):
		f, err := strconv.ParseFloat(string(value), 64)
		if err != nil {
			return "", errors.Wrap(err, "invalid number")
		}
		return strconv.FormatFloat(f, 'f', -1, 64), nil
	default:
		return "", errors.New("must be a string, number or boolean")
	}
}

// Status is either a numeric HTTP status code or a label such as "mixed" or "error".
type Status struct {
	Code  int
	Label string
}

var (
	// StatusMixed is the representative status when no request succeeded.
	StatusMixed = Status{Label: "mixed"}
	// StatusError marks a per-URL transport failure.
	StatusError = Status{Label: "error"}
)

// StatusCode - Create a numeric Status
func StatusCode(code int) Status {
	return Status{Code: code}
}

// IsCode reports whether s carries a numeric code.
func (s Status) IsCode() bool {
	return s.Label == ""
}

func (s Status) MarshalJSON() ([]byte, error) {
	if s.Label != "" {
		return json.Marshal(s.Label)
	}
	return json.Marshal(s.Code)
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var code int
	if err := json.Unmarshal(data, &code); err == nil {
		*s = Status{Code: code}
		return nil
	}
	var label string
	if err := json.Unmarshal(data, &label); err != nil {
		return errors.Wrap(err, "status must be a number or a string")
	}
	*s = Status{Label: label}
	return nil
}

// ResponseDetail - Outcome of one URL, in input order
type ResponseDetail struct {
	URL        string `json:"url"`
	Status     Status `json:"status"`
	StatusText string `json:"statusText,omitempty"`
	Error      string `json:"error,omitempty"`
}

// ResponseData - Merged payload of an aggregation
type ResponseData struct {
	Results            []json.RawMessage `json:"results"`
	ResponseDetails    []ResponseDetail  `json:"responseDetails"`
	TotalRequests      int               `json:"totalRequests"`
	SuccessfulRequests int               `json:"successfulRequests"`
}

// ResponseEnvelope - Merged response of all URLs. Top-level status fields come
// from the first successful response in input order.
type ResponseEnvelope struct {
	Status     Status            `json:"status"`
	StatusText string            `json:"statusText"`
	Headers    map[string]string `json:"headers"`
	Data       ResponseData      `json:"data"`
}

// ErrorResponse - Client error body
type ErrorResponse struct {
	Error string `json:"error"`
}

// ErrorDetails - Upstream detail attached to an internal error, when known
type ErrorDetails struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

// InternalErrorResponse - Server error body
type InternalErrorResponse struct {
	Error   string        `json:"error"`
	Details *ErrorDetails `json:"details"`
}

// GetResponse - Outcome of a single GET, as returned by the get tool
type GetResponse struct {
	URL         string            `json:"url"`
	Status      Status            `json:"status"`
	StatusText  string            `json:"statusText,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	ContentType string            `json:"contentType,omitempty"`
	Content     string            `json:"content,omitempty"`
	Error       string            `json:"error,omitempty"`
}

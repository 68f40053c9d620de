// Parsing and validation of wizard request payloads. htmx sends
// form-encoded bodies by default and JSON with the json-enc extension, so
// both are accepted.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"budgetly/internal/core"
	"budgetly/internal/wizard"
)

// maxBodyBytes bounds wizard payloads; the largest is a category name.
const maxBodyBytes = 16 << 10

var errInvalidIndex = errors.New("invalid item index")

// RequestBodyParser handles different content types for request body parsing.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]interface{}
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser reads the body of r once, up to maxBodyBytes.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	if r.Body == nil {
		return p
	}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if p.err == nil && len(p.body) > maxBodyBytes {
		p.err = fmt.Errorf("request body exceeds %d bytes", maxBodyBytes)
	}
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if p.body[0] == '{' {
		p.jsonData = make(map[string]interface{})
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a sanitized, trimmed value for key.
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// Has reports whether key was sent at all, even with an empty value.
func (p *RequestBodyParser) Has(key string) bool {
	if p.jsonData != nil {
		_, ok := p.jsonData[key]
		return ok
	}
	if p.formData != nil {
		return p.formData.Has(key)
	}
	return false
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// ParseBody parses r's body and returns an error response on failure.
func ParseBody(r *http.Request) (*RequestBodyParser, *HTMXResponseBuilder) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		return nil, BadRequestError("Malformed request")
	}
	return p, nil
}

// ParseIndex reads a non-negative item index from the {index} path value.
func ParseIndex(r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.PathValue("index"))
	i, err := strconv.Atoi(raw)
	if err != nil || i < 0 {
		return 0, errInvalidIndex
	}
	return i, nil
}

// ParseFixedCostPatch builds a partial fixed-cost update. Absent fields stay
// nil; an empty amount is treated as absent so a cleared input is a no-op.
func ParseFixedCostPatch(p *RequestBodyParser) (wizard.FixedCostPatch, error) {
	var patch wizard.FixedCostPatch
	if v := p.Get("amount"); v != "" {
		m, err := core.ParseAmount(v)
		if err != nil {
			return patch, err
		}
		patch.Amount = &m
	}
	if p.Has("category_id") {
		id := p.Get("category_id")
		patch.CategoryID = &id
	}
	return patch, nil
}

// currentRoute returns the path of the page that asked for the gate: htmx
// sends the browser URL in HX-Current-URL, plain callers pass ?path=.
func currentRoute(r *http.Request) string {
	if raw := r.Header.Get("HX-Current-URL"); raw != "" {
		if u, err := url.Parse(raw); err == nil {
			if u.Path == "" {
				return "/"
			}
			return u.Path
		}
	}
	return strings.TrimSpace(r.URL.Query().Get("path"))
}

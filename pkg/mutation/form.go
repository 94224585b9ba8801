package mutation

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
)

// Form field names read by the validator.
const (
	FieldDestination       = "destination"
	FieldContinuationToken = "continuation-token"
)

// maxMemory bounds the in-memory part of multipart parsing.
const maxMemory = 1 << 20

// Form is the narrow view of a request payload the validator needs.
//
// Get returns the field value and whether the field was present at all. A
// present field that cannot be represented as a string is reported with an
// empty value and ok set to true.
type Form interface {
	Get(field string) (string, bool)
}

// Values is a Form backed by a plain map.
type Values map[string]string

// Get implements Form.
func (v Values) Get(field string) (string, bool) {
	s, ok := v[field]
	return s, ok
}

// urlValues is a Form backed by parsed url-encoded or multipart fields.
type urlValues map[string][]string

func (v urlValues) Get(field string) (string, bool) {
	vals, ok := v[field]
	if !ok {
		return "", false
	}
	if len(vals) == 0 {
		return "", true
	}
	return vals[0], true
}

// jsonValues is a Form backed by a decoded JSON object.
type jsonValues map[string]any

func (v jsonValues) Get(field string) (string, bool) {
	raw, ok := v[field]
	if !ok {
		return "", false
	}
	s, _ := raw.(string)
	return s, true
}

// HTTPForm extracts a Form from r.
//
// Supported encodings are multipart/form-data,
// application/x-www-form-urlencoded and application/json.
//
// Returns:
//   - Form: nil when the request carries no payload (the no-op signal)
//   - error: ErrMalformedPayload when the body cannot be decoded
func HTTPForm(r *http.Request) (Form, error) {
	if r == nil || r.Body == nil || r.Body == http.NoBody || r.ContentLength == 0 {
		return nil, nil
	}

	mediaType := ""
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil {
			return nil, fmt.Errorf("%w: content type: %v", ErrMalformedPayload, err)
		}
		mediaType = mt
	}

	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxMemory); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		return urlValues(r.MultipartForm.Value), nil

	case "application/json":
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		if body == nil {
			return nil, nil
		}
		return jsonValues(body), nil

	default:
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		return urlValues(r.PostForm), nil
	}
}

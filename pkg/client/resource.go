package client

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

// Resource is the envelope shared by every WaniKani response: single
// resources, collections and reports.
type Resource struct {
	// ID is the resource id. Zero for the user, reports and collections.
	ID int `json:"id,omitempty"`

	// Object is the resource type ("subject" types, "assignment",
	// "collection", "report", "user", ...).
	Object string `json:"object"`

	// URL is the canonical URL of the resource.
	URL string `json:"url"`

	// DataUpdatedAt is when the data last changed. Nil for empty collections.
	DataUpdatedAt *time.Time `json:"data_updated_at"`

	// Data is the payload: an object for resources, an array of resources
	// for collections.
	Data json.RawMessage `json:"data"`

	// Pages is only set on collections.
	Pages *Pages `json:"pages,omitempty"`

	// TotalCount is only set on collections.
	TotalCount int `json:"total_count,omitempty"`
}

// Pages carries the cursor links of a collection.
type Pages struct {
	PerPage     int     `json:"per_page"`
	NextURL     *string `json:"next_url"`
	PreviousURL *string `json:"previous_url"`
}

// IsCollection reports whether the envelope is a paginated collection.
func (r *Resource) IsCollection() bool {
	return r.Object == "collection"
}

// Next returns the next page URL, or "" on the last page.
func (r *Resource) Next() string {
	if r.Pages == nil || r.Pages.NextURL == nil {
		return ""
	}
	return *r.Pages.NextURL
}

// Items splits a collection's data array into its resources.
func (r *Resource) Items() ([]Resource, error) {
	if !r.IsCollection() {
		return nil, &ParseError{URL: r.URL, Err: errors.New("not a collection")}
	}
	var items []Resource
	if len(r.Data) == 0 || string(r.Data) == "null" {
		return items, nil
	}
	if err := json.Unmarshal(r.Data, &items); err != nil {
		return nil, &ParseError{URL: r.URL, Body: r.Data, Err: err}
	}
	return items, nil
}

// ParseResource decodes a response body into its envelope. Bodies that are
// not JSON objects or lack an "object" field are rejected.
func ParseResource(url string, body []byte) (*Resource, error) {
	if !json.Valid(body) {
		return nil, &ParseError{URL: url, Body: body, Err: errors.New("invalid JSON")}
	}
	var res Resource
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, &ParseError{URL: url, Body: body, Err: err}
	}
	if res.Object == "" {
		return nil, &ParseError{URL: url, Body: body, Err: errors.New(`missing "object" field`)}
	}
	return &res, nil
}

// Validator identifies a version of a resource for conditional requests.
type Validator struct {
	// ETag as sent by the server, quotes included.
	ETag string `json:"etag"`

	// LastModified is the raw Last-Modified header value.
	LastModified string `json:"last_modified"`
}

// IsZero reports whether the validator carries nothing to revalidate with.
func (v Validator) IsZero() bool {
	return v.ETag == "" && v.LastModified == ""
}

// ValidatorFromHeader reads ETag and Last-Modified from response headers.
func ValidatorFromHeader(h http.Header) Validator {
	return Validator{
		ETag:         h.Get("ETag"),
		LastModified: h.Get("Last-Modified"),
	}
}

// Apply sets If-None-Match and If-Modified-Since on a request. WaniKani
// honours both, so both are sent when known.
func (v Validator) Apply(req *http.Request) {
	if req == nil {
		return
	}
	if v.ETag != "" {
		req.Header.Set("If-None-Match", v.ETag)
	}
	if v.LastModified != "" {
		req.Header.Set("If-Modified-Since", v.LastModified)
	}
}

// Package dto provides Data Transfer Objects for HTTP request/response handling.
package dto

import (
	"net/url"
	"reflect"

	"github.com/goccy/go-json"

	"github.com/jsamuelsen/go-exceptions-api/internal/exceptions"
)

// ContentType is the media type of every failure response body.
const ContentType = "application/json"

// Problem is a failure response body.
type Problem interface {
	Details() *ProblemDetails
}

// ProblemDetails is the body written for failures without a dataset.
type ProblemDetails struct {
	// Type is the simple type name of the failure, e.g. "NotFoundError".
	Type string `json:"type"`

	// Title is the canonical name of Status, e.g. "NotFound".
	Title string `json:"title"`

	Status int `json:"status"`

	// Detail is the client-safe message.
	Detail string `json:"detail"`

	// Instance is the request path plus query.
	Instance string `json:"instance"`
}

// Details returns p.
func (p *ProblemDetails) Details() *ProblemDetails {
	return p
}

// ValidationProblemDetails is the body written for failures that carry a
// non-empty dataset.
type ValidationProblemDetails struct {
	ProblemDetails

	Errors *ValidationErrors `json:"errors"`
}

// NewProblem builds the response body for a classified failure. A non-empty
// dataset selects the validation shape.
func NewProblem(resp exceptions.Response, failure error, data exceptions.Data, u *url.URL) Problem {
	details := ProblemDetails{
		Type:     FailureTypeName(failure),
		Title:    exceptions.Title(resp.StatusCode),
		Status:   resp.StatusCode,
		Detail:   resp.Message,
		Instance: InstanceOf(u),
	}

	if data.Len() == 0 {
		return &details
	}

	return &ValidationProblemDetails{
		ProblemDetails: details,
		Errors:         ValidationErrorsFrom(data),
	}
}

// MarshalProblem encodes p as JSON.
func MarshalProblem(p Problem) ([]byte, error) {
	return json.Marshal(p)
}

// Instance joins a path and raw query the way they appeared on the request
// line. The "?" is only added for a non-empty query.
func Instance(path, rawQuery string) string {
	if rawQuery == "" {
		return path
	}

	return path + "?" + rawQuery
}

// InstanceOf returns Instance for a request URL.
func InstanceOf(u *url.URL) string {
	if u == nil {
		return ""
	}

	return Instance(u.Path, u.RawQuery)
}

// FailureTypeName returns the simple type name of err: no package path and
// no pointer marker. Unnamed types fall back to their type literal.
func FailureTypeName(err error) string {
	if err == nil {
		return ""
	}

	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if name := t.Name(); name != "" {
		return name
	}

	return t.String()
}

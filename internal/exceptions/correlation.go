package exceptions

import (
	"net/http"

	"github.com/google/uuid"
)

// DefaultCorrelationKey is the header carrying the correlation value when
// no other key is configured.
const DefaultCorrelationKey = "X-Correlation-Id"

// CorrelationValueFunc derives a correlation value from a request. An empty
// result is treated as "no value".
type CorrelationValueFunc func(r *http.Request) string

// Correlation is the correlation header name and value for one request.
type Correlation struct {
	Key   string
	Value string
}

// ResolveCorrelation picks the correlation value for r and writes it to
// respHeader. The first match wins:
//  1. the first value of the request header key
//  2. valueFn(r), when valueFn is set
//  3. a new random UUID
//
// An empty key means DefaultCorrelationKey.
func ResolveCorrelation(r *http.Request, respHeader http.Header, key string, valueFn CorrelationValueFunc) Correlation {
	if key == "" {
		key = DefaultCorrelationKey
	}

	var value string
	if r != nil {
		if values := r.Header.Values(key); len(values) > 0 {
			value = values[0]
		}
	}

	if value == "" && valueFn != nil && r != nil {
		value = valueFn(r)
	}

	if value == "" {
		value = uuid.NewString()
	}

	if respHeader != nil {
		respHeader.Set(key, value)
	}

	return Correlation{Key: key, Value: value}
}

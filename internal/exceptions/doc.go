// Package exceptions turns failures escaping a request handler into a
// client-safe status code and message.
//
// # Registration
//
// Failure types are registered once at startup against a Builder and frozen
// into a Registry:
//
//	b := exceptions.NewBuilder()
//	exceptions.AddStatus[*RandomError](b, http.StatusMultipleChoices)
//	exceptions.AddStatusMessage[*domain.ConflictError](b, http.StatusConflict, "resource conflict")
//	exceptions.AddResolver(b, func(r *http.Request, err *domain.NotFoundError) exceptions.Response {
//	    return exceptions.Response{StatusCode: http.StatusNotFound, Message: err.Error()}
//	})
//
//	registry, err := b.Build()
//
// Lookups match the exact dynamic type of the failure. A failure whose type
// is not registered falls back to Defaults even when a related type is.
//
// # Classification
//
// Failures that expose StatusCode (see StatusCoder) describe themselves and
// bypass the registry. Every other failure is resolved by precedence:
// registered Resolver, registered status and message, registered status with
// the default message, and finally Defaults. The failure's own message is
// never shown to clients on the generic path.
//
// # Correlation
//
// ResolveCorrelation picks the correlation value for a request and stamps it
// on the response headers before the handler chain runs.
package exceptions

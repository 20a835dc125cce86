package logging

import (
	"log/slog"
	"regexp"

	"github.com/m-mizutani/masq"
)

// Failure logs carry request context, so credentials that reach a log
// attribute are masked before any handler sees them.
var (
	redactedFields = []string{
		"password", "secret", "token",
		"apiKey", "apikey", "api_key",
		"accessToken", "access_token", "refreshToken", "refresh_token",
		"credential", "credentials",
		"authorization", "auth", "bearer", "cookie", "session",
		"privateKey", "private_key", "secretKey", "secret_key",
	}

	redactedPrefixes = []string{"secret", "private"}

	redactedValues = []*regexp.Regexp{
		regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`), // JWT
		regexp.MustCompile(`(?i)^bearer\s+.+$`),
		regexp.MustCompile(`(?i)^basic\s+.+$`),
	}
)

// DefaultRedactOptions returns the masq options every handler is built
// with: sensitive field names, field prefixes and credential-shaped values.
func DefaultRedactOptions() []masq.Option {
	opts := make([]masq.Option, 0, len(redactedFields)+len(redactedPrefixes)+len(redactedValues))

	for _, name := range redactedFields {
		opts = append(opts, masq.WithFieldName(name))
	}

	for _, prefix := range redactedPrefixes {
		opts = append(opts, masq.WithFieldPrefix(prefix))
	}

	for _, re := range redactedValues {
		opts = append(opts, masq.WithRegex(re))
	}

	return opts
}

// NewReplaceAttr returns a slog ReplaceAttr that applies the default
// redaction plus opts.
func NewReplaceAttr(opts ...masq.Option) func(groups []string, a slog.Attr) slog.Attr {
	return masq.New(append(DefaultRedactOptions(), opts...)...)
}

package exceptions

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	titles     map[int]string
	titlesOnce sync.Once
)

// Title returns the canonical name of an HTTP status code in PascalCase,
// e.g. "NotFound" for 404 and "InternalServerError" for 500. Acronyms keep
// their case ("OK", "HTTPVersionNotSupported"). Codes without a registered
// name are rendered as their number.
func Title(code int) string {
	titlesOnce.Do(buildTitles)

	if t, ok := titles[code]; ok {
		return t
	}

	return strconv.Itoa(code)
}

// buildTitles precomputes every title once; a cases.Caser must not be
// shared between goroutines.
func buildTitles() {
	caser := cases.Title(language.English, cases.NoLower)
	titles = make(map[int]string)

	for code := 100; code <= 599; code++ {
		text := http.StatusText(code)
		if text == "" {
			continue
		}

		titles[code] = strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return r
			}
			return -1
		}, caser.String(text))
	}
}

package middleware

import (
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

const redacted = "REDACTED"

// RequestLogger writes chi access logs through logrus. Session tokens passed
// in the query string are masked.
func RequestLogger() func(http.Handler) http.Handler {
	return chimw.RequestLogger(redactingFormatter{next: &chimw.DefaultLogFormatter{
		Logger:  logrus.StandardLogger(),
		NoColor: true,
	}})
}

type redactingFormatter struct {
	next chimw.LogFormatter
}

func (f redactingFormatter) NewLogEntry(r *http.Request) chimw.LogEntry {
	query := r.URL.Query()
	if !query.Has(TokenQueryParam) {
		return f.next.NewLogEntry(r)
	}

	query.Set(TokenQueryParam, redacted)
	masked := r.WithContext(r.Context())
	u := *r.URL
	u.RawQuery = query.Encode()
	masked.URL = &u
	masked.RequestURI = u.RequestURI()
	return f.next.NewLogEntry(masked)
}

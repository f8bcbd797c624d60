package middleware

import (
	"net/http"

	"golang.org/x/text/language"

	"github.com/frahmantamala/timetrack/internal"
)

type LanguageResolver interface {
	Resolve(acceptLanguage string) language.Tag
}

// Language stores the negotiated response language in the request context and
// echoes it in Content-Language.
func Language(resolver LanguageResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tag := resolver.Resolve(r.Header.Get("Accept-Language")).String()
			w.Header().Set("Content-Language", tag)
			next.ServeHTTP(w, r.WithContext(internal.ContextWithLanguage(r.Context(), tag)))
		})
	}
}

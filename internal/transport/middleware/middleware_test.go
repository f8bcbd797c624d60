package middleware_test

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	chiMiddleware "github.com/go-chi/chi/middleware"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/timetrack/internal"
	"github.com/frahmantamala/timetrack/internal/locale"
	"github.com/frahmantamala/timetrack/internal/transport/middleware"
)

func TestMiddleware(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Middleware Suite")
}

var quiet = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

var _ = Describe("RequestID", func() {
	It("reuses the caller's id and exposes it to chi", func() {
		var seen string
		h := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = chiMiddleware.GetReqID(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(middleware.RequestIDHeader, "abc")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		Expect(seen).To(Equal("abc"))
		Expect(w.Header().Get(middleware.RequestIDHeader)).To(Equal("abc"))
	})

	It("mints an id when none is sent", func() {
		w := httptest.NewRecorder()
		middleware.RequestID(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})).
			ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		Expect(w.Header().Get(middleware.RequestIDHeader)).To(HaveLen(36))
	})
})

var _ = Describe("RecoveryMiddleware", func() {
	It("answers 500 in the error envelope", func() {
		h := middleware.RecoveryMiddleware(quiet)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("boom")
		}))

		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		Expect(w.Code).To(Equal(http.StatusInternalServerError))
		Expect(w.Body.String()).To(ContainSubstring(string(internal.ErrCodeInternalError)))
	})
})

var _ = Describe("LoggingMiddleware", func() {
	It("passes the response through untouched", func() {
		h := middleware.LoggingMiddleware(quiet)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
			_, _ = w.Write([]byte(`{"password":"x"}`))
		}))

		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"login":"a"}`)))

		Expect(w.Code).To(Equal(http.StatusTeapot))
		Expect(w.Body.String()).To(Equal(`{"password":"x"}`))
	})
})

var _ = Describe("Language", func() {
	It("stores the negotiated language", func() {
		translator, err := locale.NewTranslator("en")
		Expect(err).NotTo(HaveOccurred())

		var lang string
		h := middleware.Language(translator)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lang = internal.LanguageFromContext(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Accept-Language", "ru-RU,ru;q=0.9")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		Expect(lang).To(Equal("ru"))
		Expect(w.Header().Get("Content-Language")).To(Equal("ru"))
	})
})

const spec = `
openapi: 3.0.3
info:
  title: test
  version: "1"
paths:
  /things/{id}:
    parameters:
      - name: id
        in: path
        required: true
        schema:
          type: integer
          minimum: 1
    post:
      requestBody:
        required: true
        content:
          application/json:
            schema:
              type: object
              required: [hours]
              properties:
                hours:
                  type: number
      responses:
        '200':
          description: ok
`

var _ = Describe("RequestValidator", func() {
	var h http.Handler

	BeforeEach(func() {
		v, err := middleware.NewRequestValidator([]byte(spec), quiet)
		Expect(err).NotTo(HaveOccurred())
		h = v.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
	})

	post := func(path, body string) int {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w.Code
	}

	It("lets conforming requests through", func() {
		Expect(post("/things/1", `{"hours": 2}`)).To(Equal(http.StatusOK))
	})

	It("rejects bodies and parameters that break the contract", func() {
		Expect(post("/things/1", `{}`)).To(Equal(http.StatusBadRequest))
		Expect(post("/things/0", `{"hours": 2}`)).To(Equal(http.StatusBadRequest))
	})

	It("ignores undocumented routes", func() {
		Expect(post("/other", `garbage`)).To(Equal(http.StatusOK))
	})
})

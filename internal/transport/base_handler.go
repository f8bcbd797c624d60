package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-playground/form"

	"github.com/frahmantamala/timetrack/internal"
	"github.com/frahmantamala/timetrack/pkg/logger"
)

// MessageTranslator localizes policy denial reasons.
type MessageTranslator interface {
	Message(acceptLanguage, reason, fallback string) string
}

var (
	defaultTranslator MessageTranslator
	queryDecoder      = form.NewDecoder()
)

// UseTranslator installs the translator picked up by every BaseHandler created afterwards.
func UseTranslator(t MessageTranslator) {
	defaultTranslator = t
}

// BaseHandler provides common functionality for HTTP handlers
type BaseHandler struct {
	Logger     *slog.Logger
	Translator MessageTranslator
}

// NewBaseHandler creates a base handler with logger
func NewBaseHandler(lg *slog.Logger) *BaseHandler {
	if lg == nil {
		lg = logger.LoggerWrapper()
		if lg == nil {
			lg = slog.Default()
		}
	}
	return &BaseHandler{Logger: lg, Translator: defaultTranslator}
}

// WriteJSON writes a JSON response
func (h *BaseHandler) WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.Logger.Error("failed to encode JSON response", "error", err)
	}
}

// WriteError writes an error response
func (h *BaseHandler) WriteError(w http.ResponseWriter, status int, message string) {
	h.Logger.Error("http error", "status", status, "message", message)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	errorResp := map[string]interface{}{
		"code":    status,
		"message": message,
	}

	if err := json.NewEncoder(w).Encode(errorResp); err != nil {
		h.Logger.Error("failed to encode error response", "error", err)
	}
}

// WriteAppError renders an AppError, localizing policy denials for the request language.
func (h *BaseHandler) WriteAppError(w http.ResponseWriter, r *http.Request, appErr *internal.AppError) {
	out := *appErr
	if reason := appErr.Reason(); reason != "" && h.Translator != nil {
		out.Message = h.Translator.Message(requestLanguage(r), reason, appErr.Message)
	}

	if out.StatusCode >= http.StatusInternalServerError {
		h.Logger.Error("request failed", "code", out.Code, "error", appErr.Error())
	} else {
		h.Logger.Debug("request rejected", "status", out.StatusCode, "code", out.Code, "reason", appErr.Reason())
	}

	status, body := out.ToHTTPResponse()
	h.WriteJSON(w, status, body)
}

// HandleServiceError maps any error returned by a service to an HTTP response.
func (h *BaseHandler) HandleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if appErr, ok := internal.IsAppError(err); ok {
		h.WriteAppError(w, r, appErr)
		return
	}
	h.WriteAppError(w, r, internal.NewInternalError("internal server error", err))
}

// DecodeJSON decodes the request body into dst, rejecting unknown fields.
func (h *BaseHandler) DecodeJSON(r *http.Request, dst interface{}) *internal.AppError {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return internal.NewValidationError("request body is required", internal.ErrCodeMalformedInput)
		}
		return internal.NewValidationError(fmt.Sprintf("invalid request body: %v", err), internal.ErrCodeMalformedInput)
	}
	return nil
}

// DecodeQuery decodes the URL query string into dst using its `form` tags.
func (h *BaseHandler) DecodeQuery(r *http.Request, dst interface{}) *internal.AppError {
	if err := queryDecoder.Decode(dst, r.URL.Query()); err != nil {
		return internal.NewValidationError(fmt.Sprintf("invalid query parameters: %v", err), internal.ErrCodeMalformedInput)
	}
	return nil
}

// URLParamInt64 reads a positive integer chi URL parameter.
func (h *BaseHandler) URLParamInt64(r *http.Request, name string) (int64, *internal.AppError) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, internal.NewValidationFieldError(name, fmt.Sprintf("%s must be a positive integer", name), internal.ErrCodeMalformedInput)
	}
	return id, nil
}

// ExtractTokenFromHeader extracts Bearer token from Authorization header
func (h *BaseHandler) ExtractTokenFromHeader(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	if len(authHeader) < 7 || authHeader[:7] != "Bearer " {
		return ""
	}

	return authHeader[7:]
}

func requestLanguage(r *http.Request) string {
	if lang := internal.LanguageFromContext(r.Context()); lang != "" {
		return lang
	}
	return r.Header.Get("Accept-Language")
}

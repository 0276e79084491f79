package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"unicode"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5/middleware"
)

// Problem is an RFC 9457/7807 problem+json body with three extensions:
//   - code: stable business code (e.g. ErrInvalidOrExpiredCode)
//   - context: extra payload (e.g. the validation fields map)
//   - requestId: propagated from chi middleware.RequestID
type Problem struct {
	Type     string `json:"type,omitempty"`
	Title    string `json:"title,omitempty"`
	Status   int    `json:"status,omitempty"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`

	Errors []*huma.ErrorDetail `json:"errors,omitempty"`

	Code      string `json:"code,omitempty"`
	Context   any    `json:"context,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

func (p *Problem) Error() string {
	if p.Detail != "" {
		return p.Detail
	}
	if p.Title != "" {
		return p.Title
	}
	return http.StatusText(p.GetStatus())
}

// GetStatus implements huma.StatusError.
func (p *Problem) GetStatus() int {
	if p.Status == 0 {
		return http.StatusInternalServerError
	}
	return p.Status
}

// ContentType implements huma.ContentTypeFilter.
func (p *Problem) ContentType(ct string) string {
	switch ct {
	case "application/json":
		return "application/problem+json"
	case "application/cbor":
		return "application/problem+cbor"
	}
	return ct
}

// DomainProblem is the method set a module error needs to be rendered as a Problem.
// apperror.DomainError and validation.ValidationError both satisfy it.
type DomainProblem interface {
	ProblemCode() string
	ProblemStatus() int
	ProblemTitle() string
	ProblemDetail() string
	ProblemTypeURI() string
	ProblemContext() any
}

// ToProblem converts any error into a Problem. Status errors pass through untouched,
// domain errors are formatted from their metadata, and anything else is logged and
// hidden behind a generic 500.
func ToProblem(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}

	var se huma.StatusError
	if errors.As(err, &se) {
		return se
	}

	var dp DomainProblem
	if errors.As(err, &dp) {
		status := dp.ProblemStatus()
		typeURI := dp.ProblemTypeURI()
		if typeURI == "" {
			typeURI = "urn:problem:" + toKebab(dp.ProblemCode())
		}
		if status >= http.StatusInternalServerError {
			slog.ErrorContext(ctx, "request failed", "code", dp.ProblemCode(), "error", err, "requestId", middleware.GetReqID(ctx))
		}
		return &Problem{
			Type:      typeURI,
			Title:     orDefault(dp.ProblemTitle(), http.StatusText(status)),
			Status:    status,
			Detail:    orDefault(dp.ProblemDetail(), http.StatusText(status)),
			Code:      dp.ProblemCode(),
			Context:   dp.ProblemContext(),
			RequestID: middleware.GetReqID(ctx),
		}
	}

	slog.ErrorContext(ctx, "unhandled error", "error", err, "requestId", middleware.GetReqID(ctx))
	return InternalProblem(ctx, "")
}

// ValidationProblem builds a 400 validation error carrying the fields map.
func ValidationProblem(ctx context.Context, summary string, fields map[string][]string) *Problem {
	return &Problem{
		Type:      "urn:problem:validation-error",
		Title:     "Validation error",
		Status:    http.StatusBadRequest,
		Detail:    orDefault(summary, "Validation error"),
		Code:      "ErrValidation",
		Context:   map[string]any{"fields": fields},
		RequestID: middleware.GetReqID(ctx),
	}
}

// InternalProblem builds a generic 500 with a safe message.
func InternalProblem(ctx context.Context, detail string) *Problem {
	return &Problem{
		Type:      "urn:problem:err-internal",
		Title:     http.StatusText(http.StatusInternalServerError),
		Status:    http.StatusInternalServerError,
		Detail:    orDefault(detail, "Something went wrong. Please try again later."),
		Code:      "ErrInternal",
		RequestID: middleware.GetReqID(ctx),
	}
}

// UseProblems makes huma's own errors (request parsing, schema validation) render as
// Problem bodies too, so clients see a single error shape.
func UseProblems() {
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		details := make([]*huma.ErrorDetail, 0, len(errs))
		for _, e := range errs {
			if e == nil {
				continue
			}
			var d *huma.ErrorDetail
			if errors.As(e, &d) {
				details = append(details, d)
				continue
			}
			details = append(details, &huma.ErrorDetail{Message: e.Error()})
		}
		code := "Err" + strings.ReplaceAll(http.StatusText(status), " ", "")
		if status == http.StatusUnprocessableEntity || status == http.StatusBadRequest && len(details) > 0 {
			code = "ErrValidation"
		}
		return &Problem{
			Type:   "urn:problem:" + toKebab(code),
			Title:  http.StatusText(status),
			Status: status,
			Detail: msg,
			Errors: details,
			Code:   code,
		}
	}
}

func orDefault(s, def string) string {
	if s != "" {
		return s
	}
	return def
}

// toKebab turns codes such as ErrInvalidOrExpiredCode or USER_NOT_FOUND into
// err-invalid-or-expired-code and user-not-found.
func toKebab(s string) string {
	var b strings.Builder
	prevLowerOrDigit := false
	for _, r := range s {
		if r == '_' || r == ' ' || r == '-' {
			if b.Len() > 0 && !strings.HasSuffix(b.String(), "-") {
				b.WriteByte('-')
			}
			prevLowerOrDigit = false
			continue
		}
		if unicode.IsUpper(r) && prevLowerOrDigit {
			b.WriteByte('-')
		}
		b.WriteRune(unicode.ToLower(r))
		prevLowerOrDigit = unicode.IsLower(r) || unicode.IsDigit(r)
	}
	return strings.Trim(b.String(), "-")
}

package jobs

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"scraibe/internal/language"
	"scraibe/internal/services"
)

// Request is a transcription job as submitted by a client.
type Request struct {
	// ID is assigned by the runner when empty.
	ID string `json:"id,omitempty"`
	// Audio lists input files processed in order. A single upload is a one-element list.
	Audio []string `json:"audio" validate:"required,min=1,dive,required"`
	// Receiver is the e-mail address that gets the outcome.
	Receiver string `json:"receiver" validate:"required,email"`
	Task     Task   `json:"task" validate:"required,oneof=auto_transcribe transcribe diarize"`
	// Speakers is a speaker-count hint; zero lets the engine decide.
	Speakers  int    `json:"speakers" validate:"gte=0,lte=32"`
	Translate bool   `json:"translate"`
	Language  string `json:"language,omitempty" validate:"max=64,language"`
	// SuccessOptions and ErrorOptions are passed through to mail templates.
	SuccessOptions map[string]any `json:"success_options,omitempty"`
	ErrorOptions   map[string]any `json:"error_options,omitempty"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func requestValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		_ = validate.RegisterValidation("language", func(fl validator.FieldLevel) bool {
			return language.Supported(fl.Field().String())
		})
	})
	return validate
}

// Validate checks the request shape. Failures carry the services.ErrValidation marker.
func (r *Request) Validate() error {
	if err := requestValidator().Struct(r); err != nil {
		return services.Wrap(services.ErrValidation, "jobs", "validate request", formatValidationErrors(err), nil)
	}
	return nil
}

// Clone returns a deep copy so later mutation by the caller cannot reach a running job.
func (r Request) Clone() Request {
	out := r
	out.Audio = slices.Clone(r.Audio)
	out.SuccessOptions = cloneOptions(r.SuccessOptions)
	out.ErrorOptions = cloneOptions(r.ErrorOptions)
	return out
}

// cloneOptions copies nested maps and slices as decoded from JSON.
func cloneOptions(opts map[string]any) map[string]any {
	if opts == nil {
		return nil
	}
	out := make(map[string]any, len(opts))
	for k, v := range opts {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneOptions(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return slices.Clone(val)
	}
	return v
}

func formatValidationErrors(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err.Error()
	}
	parts := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		if e.Tag() == "language" {
			parts = append(parts, fmt.Sprintf("language %q is not supported", e.Value()))
			continue
		}
		if e.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s failed %s=%s", strings.ToLower(e.Field()), e.Tag(), e.Param()))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s failed %s", strings.ToLower(e.Field()), e.Tag()))
	}
	return strings.Join(parts, "; ")
}

// Package bind decodes request bodies and validates them with struct tags
package bind

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"sync"

	perr "claimguard/internal/platform/errors"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// MaxBody caps how much of a request body ParseJSON reads
const MaxBody int64 = 1 << 20

// Validator pairs the tag validator with its english translator
type Validator struct {
	V     *validator.Validate
	Trans ut.Translator
}

var (
	once sync.Once
	inst *Validator
)

// Get returns the shared validator, building it on first use
func Get() *Validator {
	once.Do(func() { inst = build() })
	return inst
}

func build() *Validator {
	loc := en.New()
	trans, _ := ut.New(loc, loc).GetTranslator("en")

	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonName)
	_ = en_translations.RegisterDefaultTranslations(v, trans)

	_ = v.RegisterValidation("claims_source", claimsSource)

	message(v, trans, "min", "{0} must be at least {1}", true)
	message(v, trans, "max", "{0} must be at most {1}", true)
	message(v, trans, "claims_source", "{0} must be a file path or an http(s) or file url", false)

	return &Validator{V: v, Trans: trans}
}

// jsonName reports fields under their wire name
func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return f.Name
	}
	return name
}

// claimsSource accepts a bare path or a file, http or https url with something after the scheme
func claimsSource(fl validator.FieldLevel) bool {
	s := strings.TrimSpace(fl.Field().String())
	if s == "" {
		return false
	}
	if !strings.Contains(s, "://") {
		return true
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return u.Host != ""
	case "file":
		return u.Path != ""
	}
	return false
}

func message(v *validator.Validate, trans ut.Translator, tag, text string, withParam bool) {
	_ = v.RegisterTranslation(tag, trans,
		func(t ut.Translator) error { return t.Add(tag, text, true) },
		func(t ut.Translator, fe validator.FieldError) string {
			params := []string{fe.Field()}
			if withParam {
				params = append(params, fe.Param())
			}
			msg, _ := t.T(tag, params...)
			return msg
		},
	)
}

// ParseJSON decodes one JSON object into T and validates it.
// Unknown fields, trailing data and an empty body are rejected as ErrorCodeJSON,
// a failing tag becomes ErrorCodeValidation carrying the field name
func ParseJSON[T any](r *http.Request) (T, error) {
	var out T
	defer func() { _ = r.Body.Close() }()

	dec := json.NewDecoder(io.LimitReader(r.Body, MaxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		var zero T
		if errors.Is(err, io.EOF) {
			return zero, perr.JSONErrf("empty body")
		}
		return zero, perr.JSONErrf("invalid JSON: %v", err)
	}
	if dec.More() {
		var zero T
		return zero, perr.JSONErrf("unexpected trailing data")
	}
	if err := Struct(out); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// Struct validates v and maps the first failing field to a validation error
func Struct(v any) error {
	err := Get().V.Struct(v)
	if err == nil {
		return nil
	}
	field, msg := FirstError(err)
	return perr.WithField(perr.Newf(perr.ErrorCodeValidation, "%s", msg), field)
}

// FirstError returns the first failing field and its translated message
func FirstError(err error) (field, message string) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return verrs[0].Field(), verrs[0].Translate(Get().Trans)
	}
	return "", err.Error()
}

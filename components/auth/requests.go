// components/auth/requests.go
//
// Request bodies and their validation rules.  Tags are checked by
// go-playground/validator; field names in error payloads use the JSON
// names.

package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// maxBody caps request bodies; the largest legitimate body is one field.
const maxBody = 4 << 10

type fieldRequest struct {
	Field string `json:"field" validate:"required,oneof=email password confirmPassword"`
	Value string `json:"value" validate:"max=256"`
}

type touchRequest struct {
	Field string `json:"field" validate:"required,oneof=email password confirmPassword"`
}

type visibilityRequest struct {
	Field string `json:"field" validate:"required,oneof=password confirmPassword"`
}

type promptRequest struct {
	Action string `json:"action" validate:"required,max=64"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// requestError is a 400/422 answer with per-field reasons.
type requestError struct {
	status int
	msg    string
	fields map[string]string
}

func (e *requestError) Error() string { return e.msg }

// decode reads a JSON body into dst and validates it.
func (c *Component) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return &requestError{status: http.StatusBadRequest, msg: "malformed request body"}
	}
	if err := c.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		return &requestError{
			status: http.StatusUnprocessableEntity,
			msg:    "invalid request",
			fields: fields,
		}
	}
	return nil
}

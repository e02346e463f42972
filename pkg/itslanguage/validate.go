package itslanguage

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report json names so errors match the wire fields.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateStruct maps the first validation failure onto the package errors.
func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	if fe.Tag() == "required" {
		return &MissingFieldError{Field: fe.Field()}
	}
	return &InvalidArgumentError{
		Name:   fe.Field(),
		Reason: "failed " + fe.Tag() + " validation",
	}
}

// Validate checks the fields required to create the organisation.
func (o *Organisation) Validate() error { return validateStruct(o) }

// Validate checks the fields required to create the basic auth.
func (b *BasicAuth) Validate() error { return validateStruct(b) }

// Validate checks the fields required to create the student.
func (s *Student) Validate() error { return validateStruct(s) }

// Validate checks the fields required to create the speech challenge.
func (c *SpeechChallenge) Validate() error { return validateStruct(c) }

// Validate checks the fields required to create the pronunciation challenge.
func (c *PronunciationChallenge) Validate() error { return validateStruct(c) }

// Validate checks the fields required to create the choice challenge.
func (c *ChoiceChallenge) Validate() error { return validateStruct(c) }

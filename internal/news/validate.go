package news

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"newschain/internal/apperr"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report json names so field errors match the request/response keys
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the declarative constraints on a news document.
// The returned error is a validator.ValidationErrors when a constraint fails.
func Validate(n *News) error {
	return validate.Struct(n)
}

// FieldErrors converts validator failures into client facing field messages.
func FieldErrors(errs validator.ValidationErrors) []apperr.FieldError {
	out := make([]apperr.FieldError, 0, len(errs))
	for _, fe := range errs {
		out = append(out, apperr.FieldError{
			Field:   fieldPath(fe),
			Message: fieldMessage(fe),
		})
	}
	return out
}

// IsValidation reports whether err carries validator failures.
func IsValidation(err error) (validator.ValidationErrors, bool) {
	var vErrs validator.ValidationErrors
	if errors.As(err, &vErrs) {
		return vErrs, true
	}
	return nil, false
}

// fieldPath strips the struct name prefix: "News.files[2]" -> "files[2]".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func fieldMessage(fe validator.FieldError) string {
	path := fieldPath(fe)
	switch fe.Tag() {
	case "required":
		return "Please enter " + path
	case "oneof":
		return fmt.Sprintf("`%v` is not a valid enum value for path `%s`.", fe.Value(), path)
	case "url":
		return fmt.Sprintf("%s must be a valid URL", path)
	case "gte", "lte":
		return fmt.Sprintf("%s must be between 0 and 100", path)
	default:
		return fmt.Sprintf("%s failed %s validation", path, fe.Tag())
	}
}

// documentValidationFailure is the server error code for $jsonSchema rejections.
const documentValidationFailure = 121

// DocumentValidationErrors extracts per-field messages from a write rejected
// by the collection validator. ok is false for any other error.
func DocumentValidationErrors(err error) (fields []apperr.FieldError, ok bool) {
	var we mongo.WriteException
	if !errors.As(err, &we) {
		return nil, false
	}

	for _, wErr := range we.WriteErrors {
		if wErr.Code != documentValidationFailure {
			continue
		}
		ok = true
		fields = append(fields, schemaFieldErrors(wErr.Details)...)
	}
	if ok && len(fields) == 0 {
		fields = []apperr.FieldError{{Field: "", Message: "Document failed validation"}}
	}
	return fields, ok
}

type schemaErrInfo struct {
	Details struct {
		SchemaRulesNotSatisfied []struct {
			OperatorName           string   `bson:"operatorName"`
			MissingProperties      []string `bson:"missingProperties"`
			PropertiesNotSatisfied []struct {
				PropertyName string `bson:"propertyName"`
			} `bson:"propertiesNotSatisfied"`
		} `bson:"schemaRulesNotSatisfied"`
	} `bson:"details"`
}

func schemaFieldErrors(raw bson.Raw) []apperr.FieldError {
	if len(raw) == 0 {
		return nil
	}
	var info schemaErrInfo
	if err := bson.Unmarshal(raw, &info); err != nil {
		return nil
	}

	var out []apperr.FieldError
	for _, rule := range info.Details.SchemaRulesNotSatisfied {
		for _, p := range rule.MissingProperties {
			out = append(out, apperr.FieldError{Field: p, Message: "Please enter " + p})
		}
		for _, p := range rule.PropertiesNotSatisfied {
			out = append(out, apperr.FieldError{Field: p.PropertyName, Message: "Invalid value for " + p.PropertyName})
		}
	}
	return out
}

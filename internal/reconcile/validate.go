// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reconcile

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/pdiddy/bookfeed/pkg/types"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their json names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// normalizeRecord trims the identifier and title. Other fields are kept
// verbatim.
func normalizeRecord(rec types.BookRecord) types.BookRecord {
	rec.DeclaredID = strings.TrimSpace(rec.DeclaredID)
	rec.Title = strings.TrimSpace(rec.Title)
	return rec
}

// ValidateRecord reports whether rec satisfies the caller contract: a
// declared id and a title are required. The error wraps ErrInvalidRecord.
func ValidateRecord(rec types.BookRecord) error {
	return validateRecord(normalizeRecord(rec))
}

func validateRecord(rec types.BookRecord) error {
	err := validate.Struct(rec)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fe.Field()+" "+friendlyMessage(fe))
	}
	sort.Strings(msgs)
	if rec.SourceFile != "" {
		return fmt.Errorf("%w in %s: %s", ErrInvalidRecord, rec.SourceFile, strings.Join(msgs, "; "))
	}
	return fmt.Errorf("%w: %s", ErrInvalidRecord, strings.Join(msgs, "; "))
}

func friendlyMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	default:
		return "is invalid"
	}
}

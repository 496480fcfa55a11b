// Package validate checks create/update payloads before they are sent.
// The API remains authoritative; this only catches mistakes early with
// readable messages.
package validate

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/felixgeelhaar/schoolctl/internal/domain"
	"github.com/felixgeelhaar/schoolctl/internal/errors"
)

const dateLayout = "2006-01-02"

var (
	v          *validator.Validate
	translator ut.Translator

	// custom validation tags
	notBlankTag      = "notblank"
	knownRoleTag     = "known_role"
	endAfterStartTag = "end_after_start"
)

// KnownRoles are the role names accepted when creating accounts
var KnownRoles = []string{
	domain.RoleAdminPrincipal,
	domain.RoleAdminVP,
	domain.RoleAdminDean,
	domain.RoleAdminStaff,
	domain.RoleTeacher,
	domain.RoleParent,
	domain.RoleStudent,
}

func init() {
	v = validator.New()

	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(v, translator)

	// Report JSON field names, which is what users type in flags and files.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation(notBlankTag, notBlank)
	_ = v.RegisterValidation(knownRoleTag, knownRole)
	v.RegisterStructValidation(academicYearDates, domain.AcademicYear{})

	registerCustomTranslations(notBlankTag, knownRoleTag, endAfterStartTag)
}

// registerCustomTranslations installs messages for the custom tags. The
// register func is a noop because the English defaults are already loaded.
func registerCustomTranslations(tags ...string) {
	registerFn := func(ut.Translator) error { return nil }
	for _, tag := range tags {
		_ = v.RegisterTranslation(tag, translator, registerFn, translateCustom)
	}
}

func translateCustom(_ ut.Translator, fe validator.FieldError) string {
	switch fe.Tag() {
	case notBlankTag:
		return fe.Field() + " cannot be blank"
	case knownRoleTag:
		return fmt.Sprintf("%s must be one of %s", fe.Field(), strings.Join(KnownRoles, ", "))
	case endAfterStartTag:
		return "end_date must be after start_date"
	default:
		return fe.Error()
	}
}

func notBlank(fl validator.FieldLevel) bool {
	if s, ok := fl.Field().Interface().(string); ok {
		return strings.TrimSpace(s) != ""
	}
	return false
}

func knownRole(fl validator.FieldLevel) bool {
	s, ok := fl.Field().Interface().(string)
	return ok && slices.Contains(KnownRoles, s)
}

// academicYearDates requires end_date to be strictly after start_date. Parse
// failures are left to the datetime tag.
func academicYearDates(sl validator.StructLevel) {
	y, ok := sl.Current().Interface().(domain.AcademicYear)
	if !ok {
		return
	}
	start, err1 := time.Parse(dateLayout, y.StartDate)
	end, err2 := time.Parse(dateLayout, y.EndDate)
	if err1 != nil || err2 != nil {
		return
	}
	if !end.After(start) {
		sl.ReportError(y.EndDate, "end_date", "EndDate", endAfterStartTag, "")
	}
}

// Struct validates a payload. Failures come back as a VALIDATION-001 error
// whose suggestions list one message per problem, sorted.
func Struct(s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return errors.Wrap(errors.ErrCodeValidationFailed, "invalid input", err)
	}
	return errors.NewValidationError(Messages(verrs))
}

// Var validates a single value against a tag, e.g. Var("email", x, "required,email")
func Var(field string, value any, tag string) error {
	err := v.Var(value, tag)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return errors.Wrap(errors.ErrCodeValidationFailed, "invalid input", err)
	}
	details := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, field+" "+strings.TrimSpace(fe.Translate(translator)))
	}
	return errors.NewValidationError(details)
}

// Messages renders validation errors as sorted English sentences
func Messages(verrs validator.ValidationErrors) []string {
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, fe.Translate(translator))
	}
	sort.Strings(out)
	return out
}

package intent

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	validate.RegisterStructValidation(validateKindFields, Intent{})
}

// ValidationError reports a malformed intent. It is returned before any local
// state is touched.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid intent: " + strings.Join(e.Problems, "; ")
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Validate checks the fields required by the intent's kind.
func (in Intent) Validate() error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &ValidationError{Problems: []string{err.Error()}}
	}
	out := &ValidationError{}
	for _, fe := range verrs {
		out.Problems = append(out.Problems, describe(fe))
	}
	return out
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	case "notblank":
		return fmt.Sprintf("%s must not be blank", fe.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
}

func validateKindFields(sl validator.StructLevel) {
	in := sl.Current().Interface().(Intent)

	require := func(v, name string) {
		if strings.TrimSpace(v) == "" {
			sl.ReportError(v, name, name, "required", "")
		}
	}
	requirePos := func() {
		if in.TargetPosition == nil {
			sl.ReportError(in.TargetPosition, "targetPosition", "TargetPosition", "required", "")
		}
	}
	notBlank := func(p *string, name string) {
		if p == nil {
			sl.ReportError(p, name, name, "required", "")
			return
		}
		if strings.TrimSpace(*p) == "" {
			sl.ReportError(*p, name, name, "notblank", "")
		}
	}
	f := in.Fields
	if f == nil {
		f = &Fields{}
	}

	switch in.Kind {
	case KindMoveTask:
		require(in.TaskID, "taskId")
		requirePos()
	case KindUpdateTask:
		require(in.TaskID, "taskId")
		if f.Title == nil && f.Description == nil && f.AssigneeID == nil {
			sl.ReportError(in.Fields, "fields", "Fields", "required", "")
		}
		if f.Title != nil {
			notBlank(f.Title, "title")
		}
	case KindCreateTask:
		require(in.TargetColumnID, "targetColumnId")
		notBlank(f.Title, "title")
	case KindDeleteTask:
		require(in.TaskID, "taskId")
	case KindMoveColumn:
		require(in.ColumnID, "columnId")
		requirePos()
	case KindRenameColumn:
		require(in.ColumnID, "columnId")
		notBlank(f.Name, "name")
	case KindCreateColumn:
		notBlank(f.Name, "name")
	case KindDeleteColumn:
		require(in.ColumnID, "columnId")
	}
}

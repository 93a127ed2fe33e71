package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	apperrors "github.com/openlms/assignment-service/internal/errors"
	"github.com/openlms/assignment-service/internal/models"
)

// Validator wraps go-playground/validator with the service's custom tags.
type Validator struct {
	validate *validator.Validate
}

// New creates the centralized validator instance. Custom validators are
// registered once here.
func New() *Validator {
	validate := validator.New()
	registerCustomValidators(validate)

	return &Validator{validate: validate}
}

// Validate validates struct tags and converts failures to the shared
// ValidationErrors type so handlers can surface field-level detail.
func (v *Validator) Validate(s interface{}) error {
	if err := v.validate.Struct(s); err != nil {
		if errs := apperrors.ToValidationErrors(err); len(errs) > 0 {
			return errs
		}
		return err
	}
	return nil
}

func registerCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("assignment_kind", validateAssignmentKind)
	validate.RegisterValidation("question_kind", validateQuestionKind)
	validate.RegisterValidation("user_role", validateUserRole)

	// Report json field names in error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

func validateAssignmentKind(fl validator.FieldLevel) bool {
	validKinds := []models.AssignmentKind{
		models.KindMiniProject,
		models.KindMajorProject,
		models.KindQuiz,
		models.KindAssignment,
		models.KindEssay,
	}

	value := fl.Field().String()
	for _, kind := range validKinds {
		if string(kind) == value {
			return true
		}
	}
	return false
}

func validateQuestionKind(fl validator.FieldLevel) bool {
	validKinds := []models.QuestionKind{
		models.QuestionMultipleChoice,
		models.QuestionIdentification,
		models.QuestionEnumeration,
		models.QuestionEssay,
		models.QuestionFileUpload,
	}

	value := fl.Field().String()
	for _, kind := range validKinds {
		if string(kind) == value {
			return true
		}
	}
	return false
}

func validateUserRole(fl validator.FieldLevel) bool {
	validRoles := []models.UserRole{
		models.RoleStudent,
		models.RoleTeacher,
		models.RoleAdmin,
	}

	value := fl.Field().String()
	for _, role := range validRoles {
		if string(role) == value {
			return true
		}
	}
	return false
}

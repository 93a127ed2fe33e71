package errors

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

func TestValidationErrors_Error(t *testing.T) {
	t.Run("empty collection", func(t *testing.T) {
		var ve ValidationErrors
		assert.Equal(t, "validation failed", ve.Error())
	})

	t.Run("single error", func(t *testing.T) {
		ve := ValidationErrors{{Field: "title", Message: "is required"}}
		assert.Equal(t, "validation failed: title is required", ve.Error())
	})

	t.Run("multiple errors", func(t *testing.T) {
		ve := ValidationErrors{
			{Field: "title", Message: "is required"},
			{Field: "kind", Message: "must be a valid assignment kind (mini_project, major_project, quiz, assignment, essay)"},
		}
		assert.Equal(t, "validation failed: 2 field errors", ve.Error())
	})
}

func TestToValidationErrors(t *testing.T) {
	type payload struct {
		Title string `validate:"required"`
		Kind  string `validate:"oneof=quiz essay"`
	}

	v := validator.New()
	err := v.Struct(payload{Kind: "project"})
	assert.Error(t, err)

	errs := ToValidationErrors(err)
	assert.Len(t, errs, 2)
	assert.Equal(t, "Title", errs[0].Field)
	assert.Equal(t, "is required", errs[0].Message)
	assert.Equal(t, "required", errs[0].Rule)
	assert.Equal(t, "must be one of: quiz essay", errs[1].Message)
}

func TestToValidationErrors_NonValidatorError(t *testing.T) {
	errs := ToValidationErrors(assert.AnError)
	assert.Empty(t, errs)
}

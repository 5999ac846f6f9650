package schema

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskflow/server/models"
)

type signup struct {
	Email string   `json:"email" validate:"required,email"`
	Name  string   `json:"name" validate:"required,min=2,max=80"`
	Kind  string   `json:"kind,omitempty" validate:"omitempty,oneof=A B"`
	Tags  []string `json:"tags" validate:"omitempty,dive,even"`
}

func init() {
	RegisterValidation("even", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String())%2 == 0
	})
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(signup{Email: "a@b.co", Name: "Al"}))

	err := Validate(signup{Email: "nope", Name: "A", Kind: "C"})
	var ve *models.ValidationError
	require.True(t, errors.As(err, &ve))
	require.Len(t, ve.Errors, 3)
	assert.Equal(t, models.FieldError{Field: "email", Message: "Invalid email"}, ve.Errors[0])
	assert.Equal(t, "name must be at least 2 characters", ve.Errors[1].Message)
	assert.Equal(t, "kind must be one of: A, B", ve.Errors[2].Message)
	assert.Equal(t, "Invalid email", ve.First())
}

func TestValidateRequired(t *testing.T) {
	err := Validate(&signup{})
	var ve *models.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "email is required", ve.First())
}

func TestValidateCustomTag(t *testing.T) {
	err := Validate(signup{Email: "a@b.co", Name: "Al", Tags: []string{"ab", "abc"}})
	var ve *models.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "tags[1] is invalid", ve.First())
}

func TestValidateNonStruct(t *testing.T) {
	err := Validate(42)
	require.Error(t, err)
	var ve *models.ValidationError
	assert.False(t, errors.As(err, &ve))
}

type column struct {
	Title  string  `json:"title" validate:"required,notblank,max=10"`
	Rename *string `json:"rename" validate:"omitempty,notblank"`
}

func TestValidateNotBlank(t *testing.T) {
	blank := "  \t"
	cases := map[string]column{
		"blank title":  {Title: "   "},
		"blank rename": {Title: "Todo", Rename: &blank},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			var ve *models.ValidationError
			require.ErrorAs(t, Validate(in), &ve)
			require.Len(t, ve.Errors, 1)
		})
	}

	err := Validate(column{Title: "   "})
	var ve *models.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "title is required", ve.First())

	name := "Done"
	require.NoError(t, Validate(column{Title: " Todo ", Rename: &name}))
	require.NoError(t, Validate(column{Title: "Todo"}))
}

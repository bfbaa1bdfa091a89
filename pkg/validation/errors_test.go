package validation

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Title    string  `validate:"required"`
	Email    string  `validate:"omitempty,email"`
	Country  string  `validate:"omitempty,len=2"`
	Quantity int     `validate:"gt=0"`
	Price    float64 `validate:"gte=0"`
	Kind     string  `validate:"oneof=binary five_points"`
	Photo    string  `validate:"omitempty,url"`
}

func validateRecord(t *testing.T, r record) *ValidationError {
	t.Helper()

	err := validator.New().Struct(r)
	require.Error(t, err)

	errs, ok := err.(validator.ValidationErrors)
	require.True(t, ok)
	return NewValidationError(errs)
}

func TestNewValidationError_MessagePerTag(t *testing.T) {
	verr := validateRecord(t, record{
		Email:   "not-an-email",
		Country: "USA",
		Price:   -1,
		Kind:    "thumbs",
		Photo:   "not a url",
	})

	tests := []struct {
		field    string
		expected string
	}{
		{"Title", "Title is required"},
		{"Email", "Email must be a valid email address"},
		{"Country", "Country must be exactly 2 characters long"},
		{"Quantity", "Quantity must be greater than 0"},
		{"Price", "Price must be greater than or equal to 0"},
		{"Kind", "Kind must be one of: binary five_points"},
		{"Photo", "Photo must be a valid URL"},
	}

	for _, tt := range tests {
		msg, found := verr.GetFieldError(tt.field)
		require.True(t, found, "expected an error for %s", tt.field)
		assert.Equal(t, tt.expected, msg)
	}
}

func TestValidationError_ErrorJoinsFields(t *testing.T) {
	verr := &ValidationError{}
	assert.False(t, verr.HasErrors())

	verr.AddError("Title", "Title is required")
	assert.True(t, verr.HasErrors())
	assert.Equal(t, "Title: Title is required", verr.Error())
}

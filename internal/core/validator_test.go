package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riverlog/internal/types"
)

func TestValidSiteNumber(t *testing.T) {
	tests := []struct {
		site string
		want bool
	}{
		{"05331000", true},
		{"123456789012345", true},
		{"1234567", false},          // too short
		{"1234567890123456", false}, // too long
		{"0533100a", false},         // non-digit
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.site, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidSiteNumber(tt.site))
		})
	}
}

func TestValidateStruct_Success(t *testing.T) {
	v := NewValidator(nil)

	req := struct {
		Email string `validate:"required,email"`
		Site  string `validate:"required,usgs_site"`
	}{
		Email: "angler@example.com",
		Site:  "05331000",
	}

	require.NoError(t, v.ValidateStruct(req))
}

func TestValidateStruct_FieldDetails(t *testing.T) {
	v := NewValidator(nil)

	req := struct {
		Email string `validate:"required,email"`
		Site  string `validate:"required,usgs_site"`
	}{
		Email: "not-an-email",
		Site:  "abc",
	}

	err := v.ValidateStruct(req)
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Contains(t, appErr.Details, "email")
	assert.Contains(t, appErr.Details, "site")
	assert.Equal(t, "must be a valid email address", appErr.Details["email"])
}

func TestValidateStruct_RequiredMissing(t *testing.T) {
	v := NewValidator(nil)

	req := struct {
		Name string `validate:"required"`
	}{}

	err := v.ValidateStruct(req)
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "this field is required", appErr.Details["name"])
}

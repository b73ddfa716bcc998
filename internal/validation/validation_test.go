package validation

import (
	"errors"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studyhub/internal/apperr"
)

type signup struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"first_name" validate:"notblank,max=50"`
	Role      string `json:"role" validate:"omitempty,oneof=user admin"`
}

type listQuery struct {
	Limit int `query:"limit" validate:"gte=1,lte=100"`
}

func TestStructValid(t *testing.T) {
	err := Struct(signup{Email: "a@example.com", Password: "password123", FirstName: "Ann"})
	assert.NoError(t, err)
}

func TestStructFieldErrors(t *testing.T) {
	err := Struct(signup{Email: "nope", Password: "short", FirstName: "   ", Role: "root"})
	require.Error(t, err)

	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusUnprocessableEntity, appErr.Status)

	want := []apperr.FieldError{
		{Field: "email", Message: "must be a valid email address"},
		{Field: "password", Message: "must be at least 8 characters long"},
		{Field: "first_name", Message: "is required"},
		{Field: "role", Message: "must be one of: user, admin"},
	}
	if diff := cmp.Diff(want, appErr.Fields); diff != "" {
		t.Errorf("field errors mismatch (-want +got):\n%s", diff)
	}
}

func TestStructQueryTagNames(t *testing.T) {
	err := Struct(listQuery{Limit: 500})
	require.Error(t, err)

	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr))
	require.Len(t, appErr.Fields, 1)
	assert.Equal(t, "limit", appErr.Fields[0].Field)
	assert.Equal(t, "must be less than or equal to 100", appErr.Fields[0].Message)
}

type Paging struct {
	Limit int `query:"limit" validate:"gte=1"`
}

type embeddedQuery struct {
	Paging
	Status string `query:"status" validate:"omitempty,oneof=a b"`
}

func TestStructEmbeddedFieldsUseLeafName(t *testing.T) {
	err := Struct(embeddedQuery{Status: "c"})
	require.Error(t, err)

	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr))
	want := []apperr.FieldError{
		{Field: "limit", Message: "must be greater than or equal to 1"},
		{Field: "status", Message: "must be one of: a, b"},
	}
	if diff := cmp.Diff(want, appErr.Fields); diff != "" {
		t.Errorf("field errors mismatch (-want +got):\n%s", diff)
	}
}

package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Error(t *testing.T) {
	plain := NewDomainError(ErrCodeValidation, "question must not be empty")
	assert.Equal(t, "[VALIDATION_ERROR] question must not be empty", plain.Error())

	caused := NewStoreError("upsert failed", errors.New("connection refused"))
	assert.Equal(t, "[STORE_ERROR] upsert failed: connection refused", caused.Error())
}

func TestDomainError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := NewGatewayError("embedding request failed", cause)

	assert.ErrorIs(t, err, cause)

	var de *DomainError
	assert.True(t, errors.As(err, &de))
	assert.Equal(t, ErrCodeGateway, de.Code)
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"direct domain error", ErrEmptyQuestion, ErrCodeValidation},
		{"wrapped once", fmt.Errorf("answering: %w", ErrSourceNotFound), ErrCodeNotFound},
		{"wrapped twice", fmt.Errorf("outer: %w", fmt.Errorf("inner: %w", NewStoreError("search failed", nil))), ErrCodeStore},
		{"plain error", errors.New("something broke"), ErrCodeInternalError},
		{"plain wrapped", fmt.Errorf("outer: %w", errors.New("inner")), ErrCodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorKind(tt.err))
		})
	}
}

package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorFormatting(t *testing.T) {
	cause := stderrors.New("socket closed")
	err := Messaging("send_result", cause)

	assert.Equal(t, "messaging error (send_result): message delivery failed: socket closed", err.Error())
	assert.ErrorIs(t, err, cause)

	bare := New(ErrorTypeConfig, "load", "bad catalog", nil)
	assert.Equal(t, "config error (load): bad catalog", bare.Error())
}

func TestErrorsAs(t *testing.T) {
	var wrapped error = Page("click", stderrors.New("node not found"))

	var typed *Error
	if assert.True(t, stderrors.As(wrapped, &typed)) {
		assert.Equal(t, ErrorTypePage, typed.Type)
		assert.Equal(t, "click", typed.Op)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		errorType ErrorType
		want      bool
	}{
		{ErrorTypeMessaging, true},
		{ErrorTypePage, true},
		{ErrorTypeStorage, true},
		{ErrorTypeExtraction, false},
		{ErrorTypeConfig, false},
		{ErrorTypeUnknown, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.errorType), func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.errorType))
		})
	}
}

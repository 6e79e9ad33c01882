package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneKeepsIdentity(t *testing.T) {
	cloned := Clone(ErrPINInvalid, "PIN de seguridad incorrecto")
	assert.True(t, stderrors.Is(cloned, ErrPINInvalid))
	assert.False(t, stderrors.Is(cloned, ErrPINRequired))
	assert.Equal(t, "PIN de seguridad incorrecto", cloned.Message)
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	appErr := FromError(fmt.Errorf("boom"))
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)

	wrapped := fmt.Errorf("load: %w", ErrUnreachable)
	assert.Equal(t, ErrUnreachable.Code, FromError(wrapped).Code)
	assert.Nil(t, FromError(nil))
}

func TestWithStatus(t *testing.T) {
	err := WithStatus(ErrRemote, http.StatusNotFound)
	assert.Equal(t, http.StatusNotFound, err.Status)
	assert.Equal(t, http.StatusBadGateway, ErrRemote.Status)
}

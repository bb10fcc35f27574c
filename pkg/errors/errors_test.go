package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorKeepsTypedErrors(t *testing.T) {
	wrapped := fmt.Errorf("remove: %w", ErrLastRow)
	got := FromError(wrapped)
	assert.Equal(t, "LAST_ROW_BLOCKED", got.Code)
	assert.Equal(t, http.StatusConflict, got.Status)
}

func TestFromErrorDefaultsToInternal(t *testing.T) {
	got := FromError(fmt.Errorf("boom"))
	assert.Equal(t, ErrInternal.Code, got.Code)
	assert.Equal(t, "internal server error: boom", got.Error())
}

func TestIsMatchesClonesByCode(t *testing.T) {
	clone := Clone(ErrRowNotFound, "discipline row-9 not found")
	assert.True(t, Is(clone, ErrRowNotFound))
	assert.False(t, Is(clone, ErrSheetNotFound))
	assert.False(t, Is(fmt.Errorf("plain"), ErrRowNotFound))
}

package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSentinelErrors tests that sentinel errors exist and stay distinct
func TestSentinelErrors(t *testing.T) {
	sentinels := []error{
		ErrNotFound,
		ErrInvalidInput,
		ErrIndexInProgress,
		ErrEmbeddingUnavailable,
		ErrVectorBackendUnavailable,
	}

	for i, err := range sentinels {
		require.NotNil(t, err)
		assert.NotEmpty(t, err.Error())
		for j, other := range sentinels {
			if i != j {
				assert.False(t, errors.Is(err, other))
			}
		}
	}
}

// TestQueryParseError_IsInvalidInput tests the sentinel mapping of parse errors
func TestQueryParseError_IsInvalidInput(t *testing.T) {
	err := &QueryParseError{Fragment: `"unterminated`, Pos: 4, Reason: "unterminated phrase"}
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "unterminated")
	assert.Contains(t, err.Error(), "offset 4")
}

// TestStorageError_Unwrap tests the wrapped cause stays reachable
func TestStorageError_Unwrap(t *testing.T) {
	cause := errors.New("database is locked")
	err := &StorageError{Op: "upsert document", Err: cause}

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "upsert document")

	wrapped := fmt.Errorf("index run: %w", err)
	var storageErr *StorageError
	require.ErrorAs(t, wrapped, &storageErr)
	assert.Equal(t, "upsert document", storageErr.Op)
}

// TestDimensionMismatchError_Message tests the reported dimensions
func TestDimensionMismatchError_Message(t *testing.T) {
	err := &DimensionMismatchError{Want: 384, Got: 768}
	assert.Contains(t, err.Error(), "384")
	assert.Contains(t, err.Error(), "768")

	var dimErr *DimensionMismatchError
	wrapped := fmt.Errorf("embed batch: %w", err)
	require.ErrorAs(t, wrapped, &dimErr)
	assert.Equal(t, 384, dimErr.Want)
}

// TestLocatorError_Message tests kind-tagged locator failures
func TestLocatorError_Message(t *testing.T) {
	err := &LocatorError{Kind: LocatorHeading, Reason: "empty heading path"}
	assert.Contains(t, err.Error(), "heading")
	assert.Contains(t, err.Error(), "empty heading path")

	bare := &LocatorError{Reason: "nil locator"}
	assert.Equal(t, "locator: nil locator", bare.Error())
}

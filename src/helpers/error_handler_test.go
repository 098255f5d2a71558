package helpers

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------
// Error types
// -----------------------------------------------------------------------------

func TestErrorWrapping(t *testing.T) {
	cause := fmt.Errorf("http 429")
	err := NewSheetsError("failed to read worksheet plc_data", cause)

	assert.Contains(t, err.Error(), "plc_data")
	assert.Contains(t, err.Error(), "http 429")
	assert.Equal(t, cause, err.Unwrap())
}

// -----------------------------------------------------------------------------

func TestErrorWithoutCause(t *testing.T) {
	err := &TrayMonitorError{Message: "bare message"}
	assert.Equal(t, "bare message", err.Error())
	assert.Nil(t, err.Unwrap())
}

// -----------------------------------------------------------------------------
// Retry
// -----------------------------------------------------------------------------

func TestRetryWithBackoffSucceedsAfterFailures(t *testing.T) {
	attempts := 0
	res, err := RetryWithBackoff("test op", 3, time.Millisecond, func() (interface{}, error) {
		attempts++
		if attempts < 3 {
			return nil, fmt.Errorf("transient")
		}
		return "done", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "done", res)
	assert.Equal(t, 3, attempts)
}

// -----------------------------------------------------------------------------

func TestRetryWithBackoffExhausted(t *testing.T) {
	attempts := 0
	_, err := RetryWithBackoff("test op", 2, time.Millisecond, func() (interface{}, error) {
		attempts++
		return nil, fmt.Errorf("still broken")
	})

	require.Error(t, err)
	assert.Equal(t, 2, attempts)
	assert.Contains(t, err.Error(), "still broken")
}

// -----------------------------------------------------------------------------

func TestRetryWithBackoffFirstTry(t *testing.T) {
	attempts := 0
	res, err := RetryWithBackoff("test op", 5, time.Millisecond, func() (interface{}, error) {
		attempts++
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, res)
	assert.Equal(t, 1, attempts)
}

// -----------------------------------------------------------------------------
// Error log file
// -----------------------------------------------------------------------------

func TestErrorHandlerAppendsWithStack(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "error_log.txt")
	h := NewErrorHandler(logFile)

	h.Handle(fmt.Errorf("boom"), "refresh cycle")
	h.Handle(fmt.Errorf("bang"), "archive")

	assert.Equal(t, 2, h.ErrorCount)

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "refresh cycle: boom")
	assert.Contains(t, content, "archive: bang")
	assert.Contains(t, content, "goroutine", "stack trace expected in log")
}

// -----------------------------------------------------------------------------

func TestErrorHandlerIgnoresNil(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "error_log.txt")
	h := NewErrorHandler(logFile)

	h.Handle(nil, "quiet path")

	assert.Equal(t, 0, h.ErrorCount)
	_, err := os.Stat(logFile)
	assert.True(t, os.IsNotExist(err))
}

// -----------------------------------------------------------------------------

func TestErrorHandlerResetCount(t *testing.T) {
	h := NewErrorHandler(filepath.Join(t.TempDir(), "error_log.txt"))
	h.Handle(fmt.Errorf("x"), "ctx")
	h.ResetErrorCount()
	assert.Equal(t, 0, h.ErrorCount)
}

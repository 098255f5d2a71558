package helpers

import (
	"fmt"
	"os"
	"runtime/debug"
	"sync"
	"time"

	"github.com/kreeztoph/damaged-trays/src/logger"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type TrayMonitorError struct {
	Message string
	Cause   error
}

func (e *TrayMonitorError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *TrayMonitorError) Unwrap() error {
	return e.Cause
}

// Helper to define distinct error types for type assertions if needed
type ConfigurationError struct{ TrayMonitorError }
type SheetsError struct{ TrayMonitorError }
type StorageError struct{ TrayMonitorError }
type ValidationError struct{ TrayMonitorError }

// -----------------------------------------------------------------------------

func NewSheetsError(message string, cause error) *SheetsError {
	return &SheetsError{TrayMonitorError{Message: message, Cause: cause}}
}

func NewStorageError(message string, cause error) *StorageError {
	return &StorageError{TrayMonitorError{Message: message, Cause: cause}}
}

// -----------------------------------------------------------------------------
// Retry Logic
// -----------------------------------------------------------------------------

// RetryWithBackoff attempts to execute the operation up to maxRetries times
// with exponential backoff.
func RetryWithBackoff(operation string, maxRetries int, baseDelay time.Duration, fn func() (interface{}, error)) (interface{}, error) {
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		res, err := fn()
		if err == nil {
			return res, nil
		}

		lastErr = err
		if attempt == maxRetries-1 {
			break
		}

		delay := baseDelay * (1 << attempt)
		fmt.Printf("Warning: Attempt %d/%d failed for %s: %v. Retrying in %v\n", attempt+1, maxRetries, operation, err, delay)
		time.Sleep(delay)
	}

	return nil, lastErr
}

// -----------------------------------------------------------------------------
// Error Handler
// -----------------------------------------------------------------------------

// ErrorHandler logs failures from the fetch/transform path and appends
// each one, with a stack trace, to a local append-only log file.
type ErrorHandler struct {
	Logger  *logger.Logger
	LogFile string

	mu         sync.Mutex
	ErrorCount int
}

const DefaultErrorLogFile = "error_log.txt"

// -----------------------------------------------------------------------------

func NewErrorHandler(logFile string) *ErrorHandler {
	if logFile == "" {
		logFile = DefaultErrorLogFile
	}
	return &ErrorHandler{
		Logger:  logger.NewLogger("", "ErrorHandler"),
		LogFile: logFile,
	}
}

// -----------------------------------------------------------------------------

// Handle logs the error and writes it to the error log file. nil errors
// are ignored so callers can pass results through unconditionally.
func (e *ErrorHandler) Handle(err error, context string) {
	if err == nil {
		return
	}

	e.Logger.Error("Error in %s: %v", context, err)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.ErrorCount++

	f, fileErr := os.OpenFile(e.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if fileErr != nil {
		e.Logger.Error("Cannot open error log %s: %v", e.LogFile, fileErr)
		return
	}
	defer f.Close()

	fmt.Fprintf(f, "\n[%s] %s: %v\n", time.Now().Format("2006-01-02 15:04:05"), context, err)
	f.Write(debug.Stack())
	f.Write([]byte("\n"))
}

// -----------------------------------------------------------------------------

func (e *ErrorHandler) ResetErrorCount() {
	e.mu.Lock()
	e.ErrorCount = 0
	e.mu.Unlock()
}

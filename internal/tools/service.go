package tools

import "fmt"

// InvokeError is the typed failure returned by a tool-execution backend.
// It distinguishes tool-level failures from transport or programming errors.
type InvokeError struct {
	// Tool is the tool that failed.
	Tool string
	// Message describes the failure.
	Message string
}

// Error implements the error interface.
func (e *InvokeError) Error() string {
	return fmt.Sprintf("tool %s: %s", e.Tool, e.Message)
}

// NewInvokeError creates a typed tool failure.
func NewInvokeError(tool, format string, args ...any) *InvokeError {
	return &InvokeError{Tool: tool, Message: fmt.Sprintf(format, args...)}
}

// StringArg extracts a string argument from a tool argument map.
// Numeric and boolean values are not coerced; absent or non-string values
// return the empty string.
func StringArg(args map[string]any, key string) string {
	if args == nil {
		return ""
	}
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

package oracle

import (
	"encoding/json"
	"strings"
)

// ParseStatus tags the outcome of extracting a structured decision from
// oracle response text. Every call site must handle all three variants;
// there is no exception-style fallthrough.
type ParseStatus int

const (
	// ParseOK means a well-formed decision was extracted.
	ParseOK ParseStatus = iota
	// ParseEmpty means the response contained no bracketed structure, or an
	// empty one.
	ParseEmpty
	// ParseMalformed means a bracketed structure was found but could not be
	// decoded into the expected shape.
	ParseMalformed
)

// String returns the status name for logs.
func (s ParseStatus) String() string {
	switch s {
	case ParseOK:
		return "ok"
	case ParseEmpty:
		return "empty"
	case ParseMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// PlannedTask is one subtask of a decomposition decision.
type PlannedTask struct {
	ID          string   `json:"id"`
	Description string   `json:"description"`
	Tools       []string `json:"tools"`
}

// TaskList is the tagged result of parsing a decomposition response.
type TaskList struct {
	Status ParseStatus
	// Raw is the original response text, kept for diagnostics.
	Raw   string
	Tasks []PlannedTask
}

// ParseTaskList extracts the first well-formed JSON array of planned tasks
// from oracle response text.
func ParseTaskList(raw string) TaskList {
	jsonStr, ok := firstBracketed(raw, '[', ']')
	if !ok {
		return TaskList{Status: ParseEmpty, Raw: raw}
	}

	var tasks []PlannedTask
	if err := json.Unmarshal([]byte(jsonStr), &tasks); err != nil {
		return TaskList{Status: ParseMalformed, Raw: raw}
	}
	if len(tasks) == 0 {
		return TaskList{Status: ParseEmpty, Raw: raw}
	}
	for _, t := range tasks {
		if t.ID == "" || t.Description == "" {
			return TaskList{Status: ParseMalformed, Raw: raw}
		}
	}
	return TaskList{Status: ParseOK, Raw: raw, Tasks: tasks}
}

// ToolDecision is the tagged result of parsing a tool-selection response.
type ToolDecision struct {
	Status ParseStatus
	// Raw is the original response text, kept for diagnostics.
	Raw       string
	Tool      string
	Arguments map[string]any
}

// toolDecisionJSON is the JSON structure the oracle returns for a single
// tool selection.
type toolDecisionJSON struct {
	Tool      string         `json:"tool"`
	Arguments map[string]any `json:"arguments"`
}

// ParseToolDecision extracts the first well-formed JSON object holding a
// tool selection from oracle response text.
func ParseToolDecision(raw string) ToolDecision {
	jsonStr, ok := firstBracketed(raw, '{', '}')
	if !ok {
		return ToolDecision{Status: ParseEmpty, Raw: raw}
	}

	var decision toolDecisionJSON
	if err := json.Unmarshal([]byte(jsonStr), &decision); err != nil {
		return ToolDecision{Status: ParseMalformed, Raw: raw}
	}
	if decision.Tool == "" {
		return ToolDecision{Status: ParseMalformed, Raw: raw}
	}
	args := decision.Arguments
	if args == nil {
		args = map[string]any{}
	}
	return ToolDecision{Status: ParseOK, Raw: raw, Tool: decision.Tool, Arguments: args}
}

// firstBracketed returns the substring from the first open bracket to the
// last matching close bracket. The oracle wraps decisions in prose, so the
// widest span is taken and left to the JSON decoder to validate.
func firstBracketed(s string, open, close byte) (string, bool) {
	start := strings.IndexByte(s, open)
	end := strings.LastIndexByte(s, close)
	if start == -1 || end == -1 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

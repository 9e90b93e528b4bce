package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/ShayCichocki/penny/internal/oracle"
	"github.com/ShayCichocki/penny/internal/tools"
	"github.com/ShayCichocki/penny/pkg/models"
)

// decomposeInstruction is the instruction template for plan decomposition.
const decomposeInstruction = `Break the user's financial-analysis request into an ordered list of subtasks. Each subtask should map to one tool call.

Available tools:
%s
Return ONLY a JSON array with this exact structure (no other text):
[
  {
    "id": "task_1",
    "description": "What this subtask does",
    "tools": ["tool_name", "alternative_tool_name"]
  }
]

Guidelines:
- Order subtasks so that prerequisites come first
- List candidate tools in preference order; include alternatives when more than one tool could serve
- Keep the list minimal: one subtask per required tool call`

// fallbackTaskID is the id of the synthetic subtask used when the oracle's
// plan cannot be parsed.
const fallbackTaskID = "task_1"

// Decomposer turns the original request into an ordered subtask plan by
// consulting the oracle once. Parse failure is not fatal: it falls back to a
// single synthetic subtask covering the whole request.
type Decomposer struct {
	oracle  Oracle
	catalog *tools.Catalog
	logger  *DebugLogger
}

// NewDecomposer creates a Decomposer.
func NewDecomposer(o Oracle, catalog *tools.Catalog, logger *DebugLogger) *Decomposer {
	return &Decomposer{oracle: o, catalog: catalog, logger: logger}
}

// Run produces the plan update. It never fails the run: any oracle or parse
// problem degrades to the single-subtask fallback.
func (d *Decomposer) Run(ctx context.Context, s *RunState) Update {
	instruction := fmt.Sprintf(decomposeInstruction, d.catalog.Describe())

	var parsed oracle.TaskList
	response, err := d.oracle.Decide(ctx, instruction, s.OriginalRequest)
	if err != nil {
		d.logger.Log("decompose: oracle call failed: %v", err)
		parsed = oracle.TaskList{Status: oracle.ParseEmpty}
	} else {
		parsed = oracle.ParseTaskList(response)
	}

	var subtasks []*models.Subtask
	if parsed.Status == oracle.ParseOK {
		subtasks = d.buildSubtasks(parsed.Tasks)
	} else {
		d.logger.Log("decompose: plan not parseable (%s), falling back to single subtask", parsed.Status)
		subtasks = []*models.Subtask{{
			ID:             fallbackTaskID,
			Description:    s.OriginalRequest,
			Status:         models.SubtaskPending,
			CandidateTools: append([]string(nil), s.AvailableTools...),
		}}
	}

	needsValidation := false
	for _, t := range subtasks {
		for _, tool := range t.CandidateTools {
			if tool == tools.ToolCalculateHPL {
				needsValidation = true
			}
		}
	}

	descriptions := make([]string, len(subtasks))
	for i, t := range subtasks {
		descriptions[i] = fmt.Sprintf("%s: %s", t.ID, t.Description)
	}
	progress := models.NewProgressRecord(models.StepPlanning,
		fmt.Sprintf("Planned %d subtask(s)", len(subtasks)),
		map[string]any{
			"subtasks":     strings.Join(descriptions, "; "),
			"parse_status": parsed.Status.String(),
			"fallback":     parsed.Status != oracle.ParseOK,
		})

	current := ""
	if len(subtasks) > 0 {
		current = subtasks[0].ID
	}

	return Update{
		Subtasks:        subtasks,
		CurrentTask:     strPtr(current),
		NeedsValidation: boolPtr(needsValidation),
		Replan:          boolPtr(false),
		IterationCount:  intPtr(s.IterationCount + 1),
		Progress:        []models.ProgressRecord{progress},
	}
}

// buildSubtasks converts parsed plan entries into subtasks, repairing ids
// and filling empty candidate lists with every available tool.
func (d *Decomposer) buildSubtasks(planned []oracle.PlannedTask) []*models.Subtask {
	subtasks := make([]*models.Subtask, len(planned))
	seen := make(map[string]bool, len(planned))
	for i, p := range planned {
		id := p.ID
		for n := i + 1; id == "" || seen[id]; n++ {
			id = fmt.Sprintf("task_%d", n)
		}
		seen[id] = true

		candidates := make([]string, 0, len(p.Tools))
		for _, name := range p.Tools {
			if d.catalog.Has(name) {
				candidates = append(candidates, name)
			}
		}
		if len(candidates) == 0 {
			candidates = d.catalog.Names()
		}

		subtasks[i] = &models.Subtask{
			ID:             id,
			Description:    p.Description,
			Status:         models.SubtaskPending,
			CandidateTools: candidates,
		}
	}
	return subtasks
}

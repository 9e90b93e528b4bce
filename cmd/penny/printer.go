package main

import (
	"fmt"

	"github.com/fatih/color"

	"github.com/ShayCichocki/penny/internal/orchestrator"
	"github.com/ShayCichocki/penny/pkg/models"
)

var (
	planColor     = color.New(color.FgMagenta)
	toolColor     = color.New(color.FgCyan)
	validateColor = color.New(color.FgYellow)
	errColor      = color.New(color.FgRed)
	okColor       = color.New(color.FgGreen)
	dimColor      = color.New(color.Faint)
	answerColor   = color.New(color.FgGreen, color.Bold)
)

// printEvents renders the engine event stream as plain colored lines.
// It returns when the stream closes.
func printEvents(events <-chan orchestrator.Event) {
	for ev := range events {
		switch ev.Type {
		case orchestrator.EventReasoning:
			printReasoning(ev)
		case orchestrator.EventToolExecution:
			printToolExecution(ev)
		case orchestrator.EventSubtaskUpdate:
			printSubtasks(ev)
		case orchestrator.EventFinalAnswer:
			answer, _ := ev.Data.(string)
			fmt.Println()
			answerColor.Println("Answer")
			fmt.Println(answer)
		case orchestrator.EventDone:
			printDone(ev)
		case orchestrator.EventError:
			msg, _ := ev.Data.(string)
			errColor.Printf("✗ %s\n", msg)
		}
	}
}

func printReasoning(ev orchestrator.Event) {
	rec, ok := ev.Data.(models.ProgressRecord)
	if !ok {
		return
	}
	switch rec.Kind {
	case models.StepPlanning:
		planColor.Printf("◆ %s\n", rec.Content)
	case models.StepValidation:
		validateColor.Printf("? %s\n", rec.Content)
	case models.StepError:
		errColor.Printf("! %s\n", rec.Content)
	case models.StepSummary:
		dimColor.Printf("· %s\n", rec.Content)
	default:
		dimColor.Printf("· %s\n", rec.Content)
	}
}

func printToolExecution(ev orchestrator.Event) {
	exec, ok := ev.Data.(models.ToolExecution)
	if !ok {
		return
	}
	toolColor.Printf("→ %s", exec.Tool)
	if exec.SubtaskID != "" {
		dimColor.Printf(" (%s)", exec.SubtaskID)
	}
	if exec.Error != "" {
		errColor.Printf(" failed: %s\n", exec.Error)
		return
	}
	okColor.Println(" ok")
}

func printSubtasks(ev orchestrator.Event) {
	rows, ok := ev.Data.([]map[string]any)
	if !ok {
		return
	}
	dimColor.Printf("plan: %d subtask(s)\n", len(rows))
	for _, row := range rows {
		id, _ := row["id"].(string)
		desc, _ := row["description"].(string)
		status, _ := row["status"].(string)
		dimColor.Printf("  [%s] %s: %s\n", status, id, desc)
	}
}

func printDone(ev orchestrator.Event) {
	data, ok := ev.Data.(map[string]any)
	if !ok {
		return
	}
	label, _ := data["completion"].(string)
	runID, _ := data["run_id"].(string)
	line := fmt.Sprintf("done (%s)", label)
	if ev.Snapshot != nil {
		line = fmt.Sprintf("done (%s): %d/%d subtasks, %d iterations",
			label, ev.Snapshot.CompletedCount, ev.Snapshot.TotalSubtasks, ev.Snapshot.IterationCount)
	}
	if label == orchestrator.CompletionClean {
		okColor.Println(line)
	} else {
		validateColor.Println(line)
	}
	dimColor.Printf("run id: %s\n", runID)
}

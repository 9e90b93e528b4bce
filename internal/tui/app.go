// Package tui provides the terminal user interface for a live run.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ShayCichocki/penny/internal/orchestrator"
	"github.com/ShayCichocki/penny/pkg/models"
)

// maxVisibleLogs bounds the activity log shown on screen.
const maxVisibleLogs = 15

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	answerStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// EngineEventMsg wraps one engine event for the bubbletea loop.
type EngineEventMsg struct {
	Event orchestrator.Event
}

// StreamClosedMsg signals that the event channel is exhausted.
type StreamClosedMsg struct{}

// subtaskRow is one line of the plan view.
type subtaskRow struct {
	id          string
	description string
	status      string
}

// logEntry is one line of the activity log.
type logEntry struct {
	timestamp time.Time
	text      string
}

// App is the bubbletea model showing a live run.
type App struct {
	request     string
	events      <-chan orchestrator.Event
	spin        spinner.Model
	subtasks    []subtaskRow
	logs        []logEntry
	snapshot    orchestrator.StateSnapshot
	finalAnswer string
	done        bool
	quitting    bool
	width       int
}

// New creates an App consuming the given event channel.
func New(request string, events <-chan orchestrator.Event) *App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	return &App{
		request: request,
		events:  events,
		spin:    sp,
	}
}

// waitForEvent returns a command that blocks on the next engine event.
func (a *App) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-a.events
		if !ok {
			return StreamClosedMsg{}
		}
		return EngineEventMsg{Event: ev}
	}
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.spin.Tick, a.waitForEvent())
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			a.quitting = true
			return a, tea.Quit
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spin, cmd = a.spin.Update(msg)
		return a, cmd

	case EngineEventMsg:
		a.handleEvent(msg.Event)
		return a, a.waitForEvent()

	case StreamClosedMsg:
		a.done = true
		return a, nil
	}

	return a, nil
}

// handleEvent folds one engine event into the view state.
func (a *App) handleEvent(ev orchestrator.Event) {
	if ev.Snapshot != nil {
		a.snapshot = *ev.Snapshot
	}

	switch ev.Type {
	case orchestrator.EventReasoning:
		if rec, ok := ev.Data.(models.ProgressRecord); ok {
			a.appendLog(ev.Timestamp, rec.Content)
		}

	case orchestrator.EventToolExecution:
		if exec, ok := ev.Data.(models.ToolExecution); ok {
			a.appendLog(ev.Timestamp, fmt.Sprintf("%s -> %s", exec.Tool, firstLine(exec.Result)))
		}

	case orchestrator.EventSubtaskUpdate:
		if rows, ok := ev.Data.([]map[string]any); ok {
			a.subtasks = a.subtasks[:0]
			for _, r := range rows {
				a.subtasks = append(a.subtasks, subtaskRow{
					id:          str(r["id"]),
					description: str(r["description"]),
					status:      str(r["status"]),
				})
			}
		}

	case orchestrator.EventFinalAnswer:
		if answer, ok := ev.Data.(string); ok {
			a.finalAnswer = answer
		}

	case orchestrator.EventDone:
		a.done = true

	case orchestrator.EventError:
		a.appendLog(ev.Timestamp, fmt.Sprintf("engine error: %v", ev.Data))
	}
}

func (a *App) appendLog(ts time.Time, text string) {
	a.logs = append(a.logs, logEntry{timestamp: ts, text: text})
	if len(a.logs) > maxVisibleLogs {
		a.logs = a.logs[len(a.logs)-maxVisibleLogs:]
	}
}

// View implements tea.Model.
func (a *App) View() string {
	if a.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("penny"))
	b.WriteString(statusStyle.Render(fmt.Sprintf("  %s", a.request)))
	b.WriteString("\n\n")

	if len(a.subtasks) > 0 {
		for _, t := range a.subtasks {
			b.WriteString(fmt.Sprintf("  %s %s %s\n", statusIcon(t.status), t.id, t.description))
		}
		b.WriteString("\n")
	}

	for _, entry := range a.logs {
		b.WriteString(statusStyle.Render(fmt.Sprintf("  %s %s\n", entry.timestamp.Format("15:04:05"), entry.text)))
	}

	if a.finalAnswer != "" {
		b.WriteString("\n")
		b.WriteString(answerStyle.Render(a.finalAnswer))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if a.done {
		b.WriteString(doneStyle.Render(fmt.Sprintf("Done (%d/%d subtasks, %d iterations)",
			a.snapshot.CompletedCount, a.snapshot.TotalSubtasks, a.snapshot.IterationCount)))
		b.WriteString(statusStyle.Render("  Press q to exit"))
	} else {
		b.WriteString(fmt.Sprintf("%s working (iteration %d)", a.spin.View(), a.snapshot.IterationCount))
		b.WriteString(statusStyle.Render("  q to quit"))
	}
	b.WriteString("\n")

	return b.String()
}

// statusIcon maps a subtask status to its glyph.
func statusIcon(status string) string {
	switch status {
	case string(models.SubtaskCompleted):
		return doneStyle.Render("✓")
	case string(models.SubtaskFailed):
		return failedStyle.Render("✗")
	case string(models.SubtaskInProgress):
		return "•"
	default:
		return pendingStyle.Render("·")
	}
}

// firstLine trims a tool result to its first line for the log view.
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

// Run drives the TUI until the run finishes and the user exits.
func Run(request string, events <-chan orchestrator.Event) error {
	p := tea.NewProgram(New(request, events), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

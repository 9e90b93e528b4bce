package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/ShayCichocki/penny/internal/tools"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// scriptedOracle returns canned responses in order.
type scriptedOracle struct {
	responses []string
	idx       int
}

func (s *scriptedOracle) Decide(ctx context.Context, instruction, contextInfo string) (string, error) {
	if len(s.responses) == 0 {
		return "", nil
	}
	r := s.responses[min(s.idx, len(s.responses)-1)]
	s.idx++
	return r, nil
}

// staticInvoker returns one result per tool name.
type staticInvoker struct {
	results map[string]string
}

func (s *staticInvoker) Invoke(ctx context.Context, name string, args map[string]any) (string, error) {
	r, ok := s.results[name]
	if !ok {
		return "", fmt.Errorf("unknown tool %s", name)
	}
	return r, nil
}

func testServer(t *testing.T, oracle *scriptedOracle) *Server {
	t.Helper()
	srv, err := New(Config{
		Oracle:  oracle,
		Invoker: &staticInvoker{results: map[string]string{"get_all_accounts": "ACCT-001, ACCT-002"}},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return srv
}

// closeNotifyRecorder wraps ResponseRecorder with the http.CloseNotifier
// implementation gin's Context.Stream requires of its writer.
type closeNotifyRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func newCloseNotifyRecorder() *closeNotifyRecorder {
	return &closeNotifyRecorder{httptest.NewRecorder(), make(chan bool, 1)}
}

func (r *closeNotifyRecorder) CloseNotify() <-chan bool { return r.closed }

func TestHandleTools(t *testing.T) {
	srv := testServer(t, &scriptedOracle{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/tools", nil)
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var body struct {
		Tools []struct {
			Name        string `json:"name"`
			Signature   string `json:"signature"`
			Description string `json:"description"`
		} `json:"tools"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(body.Tools) != len(tools.DefaultCatalog().Tools) {
		t.Errorf("tools = %d, want the full catalog", len(body.Tools))
	}
	for _, tool := range body.Tools {
		if tool.Name == "" || tool.Signature == "" {
			t.Errorf("tool entry incomplete: %+v", tool)
		}
	}
}

func TestHandleQuery_StreamsEvents(t *testing.T) {
	srv := testServer(t, &scriptedOracle{responses: []string{
		`[{"id": "task_1", "description": "List accounts", "tools": ["get_all_accounts"]}]`,
		`{"tool": "get_all_accounts", "arguments": {}}`,
		"Two accounts exist: ACCT-001 and ACCT-002.",
	}})

	w := newCloseNotifyRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/query",
		strings.NewReader(`{"query": "list all accounts"}`))
	req.Header.Set("Content-Type", "application/json")
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Errorf("content type = %q, want text/event-stream", ct)
	}

	body := w.Body.String()
	for _, want := range []string{`"event_type":"reasoning"`, `"event_type":"tool_execution"`, `"event_type":"final_answer"`, `"event_type":"done"`, `"state_snapshot"`} {
		if !strings.Contains(body, want) {
			t.Errorf("stream missing %s:\n%s", want, body)
		}
	}
	// done is terminal and unique.
	if n := strings.Count(body, `"event_type":"done"`); n != 1 {
		t.Errorf("done events = %d, want 1", n)
	}
}

func TestHandleQuery_RejectsMissingQuery(t *testing.T) {
	srv := testServer(t, &scriptedOracle{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestNew_RequiresCollaborators(t *testing.T) {
	if _, err := New(Config{Invoker: &staticInvoker{}}); err == nil {
		t.Error("New() without an oracle must fail")
	}
	if _, err := New(Config{Oracle: &scriptedOracle{}}); err == nil {
		t.Error("New() without an invoker must fail")
	}
}

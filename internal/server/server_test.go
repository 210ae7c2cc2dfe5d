package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/stageflow/internal/metrics"
	"github.com/matzehuels/stageflow/pkg/cache"
	"github.com/matzehuels/stageflow/pkg/catalog"
	"github.com/matzehuels/stageflow/pkg/dispatch"
	"github.com/matzehuels/stageflow/pkg/errors"
	"github.com/matzehuels/stageflow/pkg/graph"
	"github.com/matzehuels/stageflow/pkg/pipeline"
	"github.com/matzehuels/stageflow/pkg/workflow"
)

func newTestServer(t *testing.T, opts ...Option) *httptest.Server {
	t.Helper()
	p, err := catalog.Builtin()
	require.NoError(t, err)

	logger := log.New(io.Discard)
	runner := pipeline.NewRunner(p, cache.NewNullCache(), nil, logger)
	ids := dispatch.WithIDGenerator(func() string { return "1" })

	all := append([]Option{WithLogger(logger), WithDispatcher(dispatch.New(ids))}, opts...)
	ts := httptest.NewServer(New(runner, all...).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, r)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	resp := do(t, http.MethodGet, ts.URL+"/healthz", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[healthResponse](t, resp)
	assert.Equal(t, "ok", body.Status)
	assert.NotEmpty(t, body.Build.GoVersion)
}

func TestWorkflows(t *testing.T) {
	ts := newTestServer(t)

	resp := do(t, http.MethodGet, ts.URL+"/workflows", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[[]workflow.Summary](t, resp)
	require.Len(t, list, 3)
	assert.Equal(t, "onboarding", list[0].ID)

	resp = do(t, http.MethodGet, ts.URL+"/workflows/returns", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := decode[workflow.Data](t, resp)
	assert.Equal(t, "returns", data.Workflow.ID)

	resp = do(t, http.MethodGet, ts.URL+"/workflows/nope", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	e := decode[errorBody](t, resp)
	assert.Equal(t, errors.ErrCodeWorkflowNotFound, e.Code)
}

func TestGraph(t *testing.T) {
	ts := newTestServer(t)
	url := ts.URL + "/workflows/order-fulfilment/graph"

	resp := do(t, http.MethodPost, url, graphRequest{})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	g := decode[graph.Graph](t, resp)
	assert.Equal(t, "order-fulfilment", g.WorkflowID)
	assert.Len(t, g.Nodes, 8)
	assert.Len(t, g.Edges, 5)

	custom := graph.Edge{ID: "custom-x", Source: "checkout", Target: "ship", Kind: graph.EdgeCustom}
	resp = do(t, http.MethodPost, url, map[string]any{
		"state":  map[string]any{"workflowId": "order-fulfilment", "expanded": true},
		"edges":  []graph.Edge{custom},
		"layout": map[string]any{"stageWidth": 200},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	g = decode[graph.Graph](t, resp)
	assert.Len(t, g.Nodes, 12)
	require.Len(t, g.Edges, 6)
	assert.Equal(t, custom, g.Edges[5])

	n, ok := g.Node("checkout")
	require.True(t, ok)
	assert.Equal(t, 200.0, n.Width)
}

func TestGraphRejectsBadInput(t *testing.T) {
	ts := newTestServer(t)
	url := ts.URL + "/workflows/order-fulfilment/graph"

	tests := []struct {
		name string
		body string
		code errors.Code
	}{
		{"malformed", `{"state":`, errors.ErrCodeInvalidInput},
		{"unknown field", `{"zoom": 2}`, errors.ErrCodeInvalidInput},
		{"invalid layout", `{"layout": {"stageWidth": -5}}`, errors.ErrCodeInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, http.MethodPost, url, tt.body)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, tt.code, decode[errorBody](t, resp).Code)
		})
	}
}

func TestRender(t *testing.T) {
	ts := newTestServer(t)

	resp := do(t, http.MethodGet, ts.URL+"/workflows/returns/render?expanded=true&theme=dark", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/svg+xml", resp.Header.Get("Content-Type"))
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, []byte("<svg")))

	resp = do(t, http.MethodGet, ts.URL+"/workflows/returns/render?format=mermaid", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, err = io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "flowchart LR")

	resp = do(t, http.MethodGet, ts.URL+"/workflows/returns/render?format=gif", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, errors.ErrCodeInvalidFormat, decode[errorBody](t, resp).Code)

	resp = do(t, http.MethodGet, ts.URL+"/workflows/returns/render?expanded=maybe", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "expanded", decode[errorBody](t, resp).Field)
}

func TestSessionLifecycle(t *testing.T) {
	ts := newTestServer(t)

	resp := do(t, http.MethodPost, ts.URL+"/sessions", createSessionRequest{WorkflowID: "order-fulfilment"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	sess := decode[sessionResponse](t, resp)
	require.NotEmpty(t, sess.ID)
	assert.False(t, sess.View.Expanded)
	assert.Len(t, sess.Graph.Nodes, 8)

	events := ts.URL + "/sessions/" + sess.ID + "/events"

	resp = do(t, http.MethodPost, events, dispatch.Event{Type: dispatch.EventClick, NodeID: graph.EntitiesGroupID})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sess = decode[sessionResponse](t, resp)
	assert.True(t, sess.View.Expanded)
	assert.Len(t, sess.Graph.Nodes, 12)

	resp = do(t, http.MethodPost, events, dispatch.Event{Type: dispatch.EventClick, NodeID: "pick"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sess = decode[sessionResponse](t, resp)
	assert.Equal(t, "pick", sess.View.Selected)
	n, _ := sess.Graph.Node("pick")
	assert.True(t, n.Selected)

	resp = do(t, http.MethodPost, events, dispatch.Event{Type: dispatch.EventConnect, Source: "checkout", Target: "ship"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sess = decode[sessionResponse](t, resp)
	require.Len(t, sess.View.Edges, 1)
	e, ok := sess.Graph.Edge("custom-1")
	require.True(t, ok)
	assert.Equal(t, graph.EdgeCustom, e.Kind)

	// State survives a plain read.
	resp = do(t, http.MethodGet, ts.URL+"/sessions/"+sess.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	again := decode[sessionResponse](t, resp)
	assert.Equal(t, sess.View, again.View)
	assert.Len(t, again.Graph.Edges, 6)

	resp = do(t, http.MethodPost, events, dispatch.Event{Type: dispatch.EventDisconnect, EdgeID: "checkout-to-paid"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, errors.ErrCodeInvalidEvent, decode[errorBody](t, resp).Code)

	resp = do(t, http.MethodPost, events, dispatch.Event{Type: dispatch.EventSelectWorkflow, WorkflowID: "returns"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sess = decode[sessionResponse](t, resp)
	assert.Equal(t, "returns", sess.View.WorkflowID)
	assert.Empty(t, sess.View.Edges)
	assert.False(t, sess.View.Expanded)

	resp = do(t, http.MethodDelete, ts.URL+"/sessions/"+sess.ID, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = do(t, http.MethodGet, ts.URL+"/sessions/"+sess.ID, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestConcurrentSessionEventsAllApply(t *testing.T) {
	var n atomic.Int64
	ids := dispatch.WithIDGenerator(func() string { return strconv.FormatInt(n.Add(1), 10) })
	ts := newTestServer(t, WithDispatcher(dispatch.New(ids)))

	resp := do(t, http.MethodPost, ts.URL+"/sessions", createSessionRequest{WorkflowID: "order-fulfilment"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	sess := decode[sessionResponse](t, resp)
	events := ts.URL + "/sessions/" + sess.ID + "/events"

	body, err := json.Marshal(dispatch.Event{Type: dispatch.EventConnect, Source: "checkout", Target: "ship"})
	require.NoError(t, err)

	const workers = 16
	statuses := make(chan int, workers)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := http.Post(events, "application/json", bytes.NewReader(body))
			if err != nil {
				statuses <- 0
				return
			}
			r.Body.Close()
			statuses <- r.StatusCode
		}()
	}
	wg.Wait()
	close(statuses)
	for code := range statuses {
		assert.Equal(t, http.StatusOK, code)
	}

	resp = do(t, http.MethodGet, ts.URL+"/sessions/"+sess.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	final := decode[sessionResponse](t, resp)
	assert.Len(t, final.View.Edges, workers, "no event may be lost")
}

func (k *keyedMutex) held() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}

func TestKeyedMutex(t *testing.T) {
	var k keyedMutex
	unlockA := k.lock("a")
	unlockB := k.lock("b")
	assert.Equal(t, 2, k.held())

	acquired := make(chan struct{})
	go func() {
		unlock := k.lock("a")
		close(acquired)
		unlock()
	}()

	select {
	case <-acquired:
		t.Fatal("second lock on the same key should block")
	case <-time.After(50 * time.Millisecond):
	}

	unlockA()
	select {
	case <-acquired:
	case <-time.After(5 * time.Second):
		t.Fatal("lock was not released")
	}
	unlockB()
	assert.Eventually(t, func() bool { return k.held() == 0 }, time.Second, 10*time.Millisecond)
}

func TestSessionEventFailuresLeaveStateUntouched(t *testing.T) {
	ts := newTestServer(t)

	resp := do(t, http.MethodPost, ts.URL+"/sessions", createSessionRequest{WorkflowID: "returns"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	sess := decode[sessionResponse](t, resp)
	events := ts.URL + "/sessions/" + sess.ID + "/events"

	tests := []struct {
		name   string
		event  dispatch.Event
		status int
		code   errors.Code
	}{
		{"unknown type", dispatch.Event{Type: "hover"}, http.StatusBadRequest, errors.ErrCodeInvalidEvent},
		{"unknown node", dispatch.Event{Type: dispatch.EventClick, NodeID: "ghost"}, http.StatusNotFound, errors.ErrCodeNotFound},
		{"unknown workflow", dispatch.Event{Type: dispatch.EventSelectWorkflow, WorkflowID: "ghost"}, http.StatusNotFound, errors.ErrCodeWorkflowNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, http.MethodPost, events, tt.event)
			require.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.code, decode[errorBody](t, resp).Code)
		})
	}

	resp = do(t, http.MethodGet, ts.URL+"/sessions/"+sess.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "returns", decode[sessionResponse](t, resp).View.WorkflowID)
}

func TestCreateSessionErrors(t *testing.T) {
	ts := newTestServer(t)

	resp := do(t, http.MethodPost, ts.URL+"/sessions", createSessionRequest{})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "workflowId", decode[errorBody](t, resp).Field)

	resp = do(t, http.MethodPost, ts.URL+"/sessions", createSessionRequest{WorkflowID: "ghost"})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, http.MethodGet, ts.URL+"/sessions/missing", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	ts := newTestServer(t)
	resp := do(t, http.MethodGet, ts.URL+"/metrics", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "metrics are off unless mounted")

	ts = newTestServer(t, WithMetrics(m.Handler()))
	m.SetWorkflows(3)
	resp = do(t, http.MethodGet, ts.URL+"/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "stageflow_catalog_workflows 3")
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(errors.ErrCodeInvalidFormat))
	assert.Equal(t, http.StatusNotFound, statusFor(errors.ErrCodeFileNotFound))
	assert.Equal(t, http.StatusNotImplemented, statusFor(errors.ErrCodeUnsupported))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.ErrCodeInternal))
	assert.Equal(t, http.StatusInternalServerError, statusFor("SOMETHING_ELSE"))
}

func TestOverlay(t *testing.T) {
	base := workflow.DefaultLayoutConfig()
	got := overlay(base, workflow.LayoutConfig{ChipGap: 4, Padding: 12})
	assert.Equal(t, 4.0, got.ChipGap)
	assert.Equal(t, 12.0, got.Padding)
	assert.Equal(t, base.StageWidth, got.StageWidth)
}

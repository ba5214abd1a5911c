package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadscout/internal/service"
	"leadscout/pkg/model"
	"leadscout/pkg/pipeline"
	"leadscout/pkg/storage"
)

type fakeController struct {
	triggerErr error
	triggered  [][]string
	status     service.Status
	leads      map[string]*model.DedupRecord
}

func (f *fakeController) Trigger(niches []string) error {
	if f.triggerErr != nil {
		return f.triggerErr
	}
	f.triggered = append(f.triggered, niches)
	return nil
}

func (f *fakeController) RunNow(ctx context.Context, niches []string) (*pipeline.RunResult, error) {
	return nil, nil
}

func (f *fakeController) Status() service.Status { return f.status }

func (f *fakeController) Lead(ctx context.Context, id string) (*model.DedupRecord, error) {
	rec, ok := f.leads[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return rec, nil
}

func (f *fakeController) UpdateLeadStatus(ctx context.Context, id, status string) error {
	if !model.ValidStatus(status) {
		return service.ErrInvalidStatus
	}
	rec, ok := f.leads[id]
	if !ok {
		return storage.ErrNotFound
	}
	rec.Status = status
	return nil
}

func newTestApp(f *fakeController) *fakeApp {
	return &fakeApp{ctrl: f}
}

type fakeApp struct {
	ctrl *fakeController
}

func (a *fakeApp) do(t *testing.T, method, path, body string) (int, map[string]interface{}) {
	t.Helper()
	app := NewApp(NewController(a.ctrl))

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]interface{}{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func errorCode(body map[string]interface{}) string {
	e, _ := body["error"].(map[string]interface{})
	code, _ := e["code"].(string)
	return code
}

func TestHealth(t *testing.T) {
	code, body := newTestApp(&fakeController{}).do(t, "GET", "/health", "")
	assert.Equal(t, 200, code)
	assert.Equal(t, "ok", body["status"])
}

func TestGetStatus(t *testing.T) {
	f := &fakeController{status: service.Status{Running: true, State: pipeline.StateAnalyzing, QuotaUsed: 300}}
	code, body := newTestApp(f).do(t, "GET", "/api/v1/status", "")
	assert.Equal(t, 200, code)
	assert.Equal(t, "running", body["status"])

	run := body["run"].(map[string]interface{})
	assert.Equal(t, "ANALYZING", run["state"])
	assert.EqualValues(t, 300, run["quota_used"])
}

func TestTriggerRun(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		triggerErr error
		wantCode   int
		wantErr    string
		wantNiches []string
	}{
		{name: "no body", wantCode: 202, wantNiches: []string{}},
		{name: "explicit niches", body: `{"niches":[" video essays ",""]}`, wantCode: 202, wantNiches: []string{"video essays"}},
		{name: "malformed", body: `{"niches":`, wantCode: 400, wantErr: "INVALID_BODY"},
		{name: "already running", triggerErr: service.ErrRunInProgress, wantCode: 409, wantErr: "RUN_IN_PROGRESS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeController{triggerErr: tt.triggerErr}
			code, body := newTestApp(f).do(t, "POST", "/api/v1/runs", tt.body)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantErr, errorCode(body))
			if tt.wantNiches != nil {
				require.Len(t, f.triggered, 1)
				assert.Equal(t, tt.wantNiches, f.triggered[0])
			}
		})
	}
}

func TestUpdateChannelStatus(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		body     string
		wantCode int
		wantErr  string
	}{
		{"valid", "/api/v1/channels/UC1/status", `{"status":"contacted"}`, 200, ""},
		{"unknown status", "/api/v1/channels/UC1/status", `{"status":"archived"}`, 400, "INVALID_FIELD"},
		{"unknown channel", "/api/v1/channels/UC9/status", `{"status":"replied"}`, 404, "NOT_FOUND"},
		{"no body", "/api/v1/channels/UC1/status", "", 400, "INVALID_BODY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeController{leads: map[string]*model.DedupRecord{"UC1": {ChannelID: "UC1", Status: model.StatusNew}}}
			code, body := newTestApp(f).do(t, "PATCH", tt.path, tt.body)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantErr, errorCode(body))
			if tt.wantCode == 200 {
				assert.Equal(t, model.StatusContacted, f.leads["UC1"].Status)
			}
		})
	}
}

func TestGetChannel(t *testing.T) {
	f := &fakeController{leads: map[string]*model.DedupRecord{
		"UC1": {ChannelID: "UC1", Status: model.StatusNew, Snapshot: []byte(`{"subscriber_count":1200}`)},
	}}
	app := newTestApp(f)

	code, body := app.do(t, "GET", "/api/v1/channels/UC1", "")
	assert.Equal(t, 200, code)
	assert.Equal(t, "new", body["status"])
	assert.Equal(t, float64(1200), body["data"].(map[string]interface{})["subscriber_count"])

	code, body = app.do(t, "GET", "/api/v1/channels/UC2", "")
	assert.Equal(t, 404, code)
	assert.Equal(t, "NOT_FOUND", errorCode(body))
}

func TestUnknownRoute(t *testing.T) {
	code, body := newTestApp(&fakeController{}).do(t, "GET", "/nope", "")
	assert.Equal(t, 404, code)
	assert.Equal(t, "HTTP_ERROR", errorCode(body))
}

package project

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	synthesisModel "ambience/internal/model/synthesis"
	"ambience/internal/service/synthesis"
)

type fakeService struct {
	projects map[string]*synthesisModel.Project
	startErr error
	started  *synthesis.SynthesisOptions
}

func newFakeService() *fakeService {
	return &fakeService{projects: map[string]*synthesisModel.Project{
		"p1": {ID: "p1", Name: "夜雨", UserID: "u1", Status: synthesisModel.ProjectStatusPending},
	}}
}

func (f *fakeService) CreateProject(_ context.Context, name, userID string) (*synthesisModel.Project, error) {
	p := &synthesisModel.Project{ID: "p2", Name: name, UserID: userID, Status: synthesisModel.ProjectStatusPending}
	f.projects[p.ID] = p
	return p, nil
}

func (f *fakeService) GetProject(_ context.Context, projectID string) (*synthesisModel.Project, error) {
	p, ok := f.projects[projectID]
	if !ok {
		return nil, synthesis.ErrProjectNotFound
	}
	return p, nil
}

func (f *fakeService) ListProjects(_ context.Context, userID string) ([]*synthesisModel.Project, error) {
	out := []*synthesisModel.Project{}
	for _, p := range f.projects {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeService) DeleteProject(ctx context.Context, projectID string) error {
	if _, err := f.GetProject(ctx, projectID); err != nil {
		return err
	}
	delete(f.projects, projectID)
	return nil
}

func (f *fakeService) ListEnvironmentSounds(ctx context.Context, projectID string) ([]*synthesisModel.EnvironmentSound, error) {
	if _, err := f.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	return []*synthesisModel.EnvironmentSound{{ID: "s1", ProjectID: projectID, Name: "environment_001_forest"}}, nil
}

func (f *fakeService) StartSynthesis(ctx context.Context, projectID string, opts synthesis.SynthesisOptions) error {
	if _, err := f.GetProject(ctx, projectID); err != nil {
		return err
	}
	if f.startErr != nil {
		return f.startErr
	}
	f.started = &opts
	return nil
}

func (f *fakeService) DefaultEnvironmentVolume() float64 { return 0.3 }

func (f *fakeService) Wait(context.Context) error { return nil }

type fakeStreamer struct{ key string }

func (s *fakeStreamer) ServeWS(w http.ResponseWriter, _ *http.Request, key string) {
	s.key = key
	w.WriteHeader(http.StatusNoContent)
}

func newRouter(svc synthesis.Service, streamer ProgressStreamer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(svc, streamer)
	r := gin.New()
	r.POST("/projects", h.CreateProject)
	r.GET("/projects", h.ListProjects)
	r.GET("/projects/:project_id", h.GetProject)
	r.DELETE("/projects/:project_id", h.DeleteProject)
	r.POST("/projects/:project_id/synthesis", h.StartSynthesis)
	r.GET("/projects/:project_id/environment-sounds", h.ListEnvironmentSounds)
	r.GET("/projects/:project_id/progress/ws", h.ProgressWS)
	return r
}

func do(t *testing.T, r http.Handler, method, url string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w.Code, out
}

func TestProjectCRUD(t *testing.T) {
	svc := newFakeService()
	r := newRouter(svc, &fakeStreamer{})

	code, body := do(t, r, http.MethodPost, "/projects", CreateProjectRequest{Name: "山路", UserID: "u1"})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "p2", body["data"].(map[string]any)["id"])

	code, _ = do(t, r, http.MethodPost, "/projects", map[string]string{"user_id": "u1"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = do(t, r, http.MethodGet, "/projects/p1", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "pending", body["data"].(map[string]any)["status"])

	code, body = do(t, r, http.MethodGet, "/projects?user_id=u1", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 2, body["data"].(map[string]any)["total"])

	code, body = do(t, r, http.MethodGet, "/projects/p1/environment-sounds", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, body["data"].(map[string]any)["sounds"], 1)

	code, _ = do(t, r, http.MethodDelete, "/projects/p1", nil)
	assert.Equal(t, http.StatusOK, code)

	code, body = do(t, r, http.MethodGet, "/projects/p1", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.EqualValues(t, 40401, body["code"])
}

func TestStartSynthesis(t *testing.T) {
	plan := map[string]any{"paragraphs": []map[string]any{{"text": "他们来到森林"}}}

	t.Run("accepted with defaults", func(t *testing.T) {
		svc := newFakeService()
		r := newRouter(svc, &fakeStreamer{})

		code, body := do(t, r, http.MethodPost, "/projects/p1/synthesis", plan)
		assert.Equal(t, http.StatusAccepted, code)
		require.NotNil(t, svc.started)
		assert.True(t, svc.started.EnableEnvironment)
		assert.InDelta(t, 0.3, svc.started.EnvironmentVolume, 1e-9)
		assert.Equal(t, "/api/v1/projects/p1/progress/ws", body["data"].(map[string]any)["progress_ws"])
	})

	t.Run("explicit options", func(t *testing.T) {
		svc := newFakeService()
		r := newRouter(svc, &fakeStreamer{})

		code, _ := do(t, r, http.MethodPost, "/projects/p1/synthesis", map[string]any{
			"paragraphs":         []map[string]any{{"text": "a"}, {"text": "b"}},
			"enable_environment": false,
			"environment_volume": 0,
		})
		assert.Equal(t, http.StatusAccepted, code)
		assert.False(t, svc.started.EnableEnvironment)
		assert.Zero(t, svc.started.EnvironmentVolume)
		assert.Len(t, svc.started.SynthesisData.Paragraphs, 2)
	})

	t.Run("errors", func(t *testing.T) {
		cases := []struct {
			name     string
			project  string
			body     any
			startErr error
			status   int
			code     int
		}{
			{"unknown project", "missing", plan, nil, http.StatusNotFound, 40401},
			{"busy", "p1", plan, synthesis.ErrProjectBusy, http.StatusConflict, 40901},
			{"internal", "p1", plan, errors.New("mongo down"), http.StatusInternalServerError, 50001},
			{"no paragraphs", "p1", map[string]any{"paragraphs": []any{}}, nil, http.StatusBadRequest, 40001},
			{"blank text", "p1", map[string]any{"paragraphs": []map[string]any{{"text": "  "}}}, nil, http.StatusBadRequest, 40001},
			{"volume out of range", "p1", map[string]any{"paragraphs": []map[string]any{{"text": "a"}}, "environment_volume": 1.5}, nil, http.StatusBadRequest, 40001},
		}
		for _, tc := range cases {
			svc := newFakeService()
			svc.startErr = tc.startErr
			r := newRouter(svc, &fakeStreamer{})

			code, body := do(t, r, http.MethodPost, "/projects/"+tc.project+"/synthesis", tc.body)
			assert.Equal(t, tc.status, code, tc.name)
			assert.EqualValues(t, tc.code, body["code"], tc.name)
		}
	})
}

func TestProgressWS(t *testing.T) {
	streamer := &fakeStreamer{}
	r := newRouter(newFakeService(), streamer)

	code, _ := do(t, r, http.MethodGet, "/projects/p1/progress/ws", nil)
	assert.Equal(t, http.StatusNoContent, code)
	assert.Equal(t, "p1", streamer.key)

	streamer.key = ""
	code, _ = do(t, r, http.MethodGet, "/projects/missing/progress/ws", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Empty(t, streamer.key)
}

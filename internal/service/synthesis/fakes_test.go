package synthesis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	synthesisModel "ambience/internal/model/synthesis"
	"ambience/internal/pkg/mixer"
	"ambience/internal/pkg/timeline"
	"ambience/internal/pkg/tts"
	synthesisRepo "ambience/internal/repository/synthesis"
	"ambience/internal/service/environment"
)

type fakeProjects struct {
	mu        sync.Mutex
	projects  map[string]*synthesisModel.Project
	statuses  []synthesisModel.ProjectStatus
	result    *synthesisRepo.ProjectResult
	resultErr error
}

func newFakeProjects(ids ...string) *fakeProjects {
	f := &fakeProjects{projects: map[string]*synthesisModel.Project{}}
	for _, id := range ids {
		f.projects[id] = &synthesisModel.Project{ID: id, Name: id, Status: synthesisModel.ProjectStatusPending}
	}
	return f
}

func (f *fakeProjects) Create(_ context.Context, p *synthesisModel.Project) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *p
	f.projects[p.ID] = &cp
	return nil
}

func (f *fakeProjects) FindByID(_ context.Context, id string) (*synthesisModel.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.projects[id]
	if !ok || p.DeletedAt != nil {
		return nil, mongo.ErrNoDocuments
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProjects) FindByUserID(_ context.Context, userID string) ([]*synthesisModel.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*synthesisModel.Project
	for _, p := range f.projects {
		if p.UserID == userID && p.DeletedAt == nil {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeProjects) UpdateStatus(_ context.Context, id string, status synthesisModel.ProjectStatus, errMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, status)
	if p, ok := f.projects[id]; ok {
		p.Status = status
		p.ErrorMessage = errMsg
	}
	return nil
}

func (f *fakeProjects) UpdateResult(_ context.Context, id string, r synthesisRepo.ProjectResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.resultErr != nil {
		return f.resultErr
	}
	f.result = &r
	if p, ok := f.projects[id]; ok {
		p.Status = synthesisModel.ProjectStatusCompleted
		p.FinalAudioPath = r.FinalAudioPath
		p.FinalAudioURL = r.FinalAudioURL
		p.TotalDuration = r.TotalDuration
	}
	return nil
}

func (f *fakeProjects) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.projects[id]; ok {
		now := time.Now()
		p.DeletedAt = &now
	}
	return nil
}

func (f *fakeProjects) get(id string) synthesisModel.Project {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.projects[id]
}

type fakeAudioFiles struct {
	mu    sync.Mutex
	files []*synthesisModel.AudioFile
}

func (f *fakeAudioFiles) Create(_ context.Context, a *synthesisModel.AudioFile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *a
	f.files = append(f.files, &cp)
	return nil
}

func (f *fakeAudioFiles) FindSegmentsByProjectID(_ context.Context, projectID string) ([]*synthesisModel.AudioFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*synthesisModel.AudioFile
	for _, a := range f.files {
		if a.ProjectID == projectID && a.Status == synthesisModel.AudioFileStatusActive {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ParagraphIndex < out[j].ParagraphIndex })
	return out, nil
}

func (f *fakeAudioFiles) DeactivateByProjectID(_ context.Context, projectID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.files {
		if a.ProjectID == projectID {
			a.Status = synthesisModel.AudioFileStatusInactive
		}
	}
	return nil
}

type fakeSounds struct {
	mu     sync.Mutex
	sounds []*synthesisModel.EnvironmentSound
}

func (f *fakeSounds) Create(_ context.Context, e *synthesisModel.EnvironmentSound) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sounds = append(f.sounds, e)
	return nil
}

func (f *fakeSounds) FindByProjectID(_ context.Context, projectID string) ([]*synthesisModel.EnvironmentSound, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*synthesisModel.EnvironmentSound
	for _, e := range f.sounds {
		if e.ProjectID == projectID {
			out = append(out, e)
		}
	}
	return out, nil
}

// fakeDialogue 直接写入对白记录，文件路径与时长来自 segments
type fakeDialogue struct {
	repo     *fakeAudioFiles
	segments []synthesisModel.AudioFile
	err      error
	calls    int
}

func (d *fakeDialogue) Synthesize(ctx context.Context, projectID string, _ SynthesisData, _ int) error {
	d.calls++
	if d.err != nil {
		return d.err
	}
	for _, s := range d.segments {
		s.ProjectID = projectID
		s.Status = synthesisModel.AudioFileStatusActive
		if err := d.repo.Create(ctx, &s); err != nil {
			return err
		}
	}
	return nil
}

type fakeEnvironment struct {
	mu        sync.Mutex
	reqs      []environment.Request
	unhealthy bool
	failAt    map[int]bool
}

func (e *fakeEnvironment) BatchGenerate(_ context.Context, reqs []environment.Request, _ int) []*environment.GenerationTask {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reqs = append(e.reqs, reqs...)
	if e.unhealthy {
		return []*environment.GenerationTask{}
	}
	out := make([]*environment.GenerationTask, len(reqs))
	for i, r := range reqs {
		t := &environment.GenerationTask{
			TaskID:    fmt.Sprintf("task-%d", i),
			Keyword:   r.Keyword,
			Prompt:    r.Prompt,
			Duration:  r.Duration,
			Intensity: r.Intensity,
			Status:    environment.TaskCompleted,
		}
		if e.failAt[i] {
			t.Status = environment.TaskFailed
			t.ErrorMessage = "API调用失败: boom"
		} else {
			t.ResultPath = fmt.Sprintf("/env/%s.wav", r.Keyword)
		}
		out[i] = t
	}
	return out
}

type fakeMixer struct {
	calls      int
	dialogue   []string
	placements []mixer.Placement
	volume     float64
	output     string
	err        error
}

func (m *fakeMixer) MixToFile(_ context.Context, dialogue []string, placements []mixer.Placement, volume float64, outputPath, _ string) error {
	m.calls++
	m.dialogue = dialogue
	m.placements = placements
	m.volume = volume
	m.output = outputPath
	if m.err != nil {
		return m.err
	}
	return os.WriteFile(outputPath, []byte("RIFFmixed"), 0o644)
}

type fakeProbe map[string]float64

func (p fakeProbe) Duration(_ context.Context, path string) (float64, error) {
	if d, ok := p[path]; ok {
		return d, nil
	}
	return 0, errors.New("not found")
}

type fakeSpeech struct {
	mu       sync.Mutex
	texts    []string
	failText string
}

func (s *fakeSpeech) Synthesize(_ context.Context, r tts.Request) (*tts.Result, error) {
	s.mu.Lock()
	s.texts = append(s.texts, r.Text)
	s.mu.Unlock()
	if r.Text == s.failText {
		return nil, errors.New("tts unavailable")
	}
	return &tts.Result{AudioData: []byte("RIFF" + r.Text)}, nil
}

func (s *fakeSpeech) Encoding() string { return "wav" }

type progressLog struct {
	mu     sync.Mutex
	events []Progress
}

func (l *progressLog) record(_ context.Context, p Progress) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, p)
}

func (l *progressLog) percents() []float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]float64, len(l.events))
	for i, e := range l.events {
		out[i] = e.Percent
	}
	return out
}

func (l *progressLog) last() Progress {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.events[len(l.events)-1]
}

var _ timeline.DurationProbe = fakeProbe(nil)

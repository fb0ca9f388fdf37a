package environment

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"ambience/internal/pkg/tangoflux"
)

type fakeBackend struct {
	healthErr error

	mu       sync.Mutex
	requests []tangoflux.GenerateRequest

	active    int32
	maxActive int32
	generate  func(req tangoflux.GenerateRequest) ([]byte, error)
}

func (b *fakeBackend) Health(context.Context) error {
	return b.healthErr
}

func (b *fakeBackend) Generate(_ context.Context, req tangoflux.GenerateRequest) ([]byte, error) {
	n := atomic.AddInt32(&b.active, 1)
	defer atomic.AddInt32(&b.active, -1)
	for {
		cur := atomic.LoadInt32(&b.maxActive)
		if n <= cur || atomic.CompareAndSwapInt32(&b.maxActive, cur, n) {
			break
		}
	}

	b.mu.Lock()
	b.requests = append(b.requests, req)
	b.mu.Unlock()

	if b.generate != nil {
		return b.generate(req)
	}
	return []byte("RIFF"), nil
}

func TestBuildPrompt(t *testing.T) {
	Convey("BuildPrompt 构建生成提示词", t, func() {
		Convey("已知关键词使用基础模板", func() {
			p := BuildPrompt("雨声", "", IntensityLow)
			So(p, ShouldStartWith, "Heavy rain falling on leaves and ground")
			So(p, ShouldEndWith, "，声音轻柔、安静、舒缓")
		})

		Convey("未知关键词使用通用模板并追加描述", func() {
			p := BuildPrompt("钟声", "古寺清晨", "")
			So(p, ShouldEqual, "Natural ambient sound of 钟声, environmental audio, 古寺清晨，声音清晰、自然、平衡")
		})

		Convey("高强度", func() {
			So(BuildPrompt("风声", " ", IntensityHigh), ShouldEndWith, "，声音强烈、突出、有力")
		})
	})
}

func TestClampDuration(t *testing.T) {
	Convey("ClampDuration 限制时长", t, func() {
		So(ClampDuration(0, 60), ShouldEqual, 30.0)
		So(ClampDuration(0.2, 60), ShouldEqual, 1.0)
		So(ClampDuration(120, 60), ShouldEqual, 60.0)
		So(ClampDuration(12.5, 60), ShouldEqual, 12.5)
	})
}

func TestGenerator_GenerateSingle(t *testing.T) {
	Convey("GenerateSingle 生成单个环境音", t, func() {
		dir := t.TempDir()
		backend := &fakeBackend{}
		gen := NewGenerator(backend, nil, Options{OutputDir: dir})
		ctx := context.Background()

		Convey("成功时写出文件并完成任务", func() {
			task := gen.GenerateSingle(ctx, Request{Keyword: "雨声", Duration: 10, Intensity: IntensityLow, Subdir: "p1"})

			So(task.Status, ShouldEqual, TaskCompleted)
			So(task.Progress, ShouldEqual, 1.0)
			So(task.StartTime, ShouldNotBeNil)
			So(task.EndTime, ShouldNotBeNil)
			So(filepath.Dir(task.ResultPath), ShouldEqual, filepath.Join(dir, "p1"))
			So(filepath.Base(task.ResultPath), ShouldEqual, "雨声_"+task.TaskID+".wav")

			data, err := os.ReadFile(task.ResultPath)
			So(err, ShouldBeNil)
			So(string(data), ShouldEqual, "RIFF")

			So(len(backend.requests), ShouldEqual, 1)
			So(backend.requests[0].GuidanceScale, ShouldEqual, 3.0)
			So(backend.requests[0].Duration, ShouldEqual, 10.0)

			stored, ok := gen.GetTask(ctx, task.TaskID)
			So(ok, ShouldBeTrue)
			So(stored.Status, ShouldEqual, TaskCompleted)
		})

		Convey("提示词覆盖", func() {
			task := gen.GenerateSingle(ctx, Request{Keyword: "x", Prompt: "custom prompt", Duration: 5})
			So(task.Prompt, ShouldEqual, "custom prompt")
			So(backend.requests[0].Prompt, ShouldEqual, "custom prompt")
			So(task.Intensity, ShouldEqual, IntensityMedium)
		})

		Convey("服务报错时任务失败", func() {
			backend.generate = func(tangoflux.GenerateRequest) ([]byte, error) {
				return nil, errors.New("boom")
			}
			task := gen.GenerateSingle(ctx, Request{Keyword: "风声", Duration: 5})

			So(task.Status, ShouldEqual, TaskFailed)
			So(task.ErrorMessage, ShouldContainSubstring, "boom")
			So(task.ResultPath, ShouldBeEmpty)
			So(task.EndTime, ShouldNotBeNil)
		})
	})
}

func TestGenerator_BatchGenerate(t *testing.T) {
	Convey("BatchGenerate 批量生成", t, func() {
		ctx := context.Background()

		Convey("结果按下标对应，成功数加失败数等于请求数", func() {
			backend := &fakeBackend{generate: func(req tangoflux.GenerateRequest) ([]byte, error) {
				time.Sleep(10 * time.Millisecond)
				if strings.Contains(req.Prompt, "bad") {
					return nil, errors.New("rejected")
				}
				return []byte("RIFF"), nil
			}}
			gen := NewGenerator(backend, nil, Options{OutputDir: t.TempDir()})

			reqs := []Request{
				{Keyword: "a", Duration: 3},
				{Keyword: "bad", Duration: 3},
				{Keyword: "c", Duration: 3},
				{Keyword: "d", Duration: 3},
				{Keyword: "bad2", Duration: 3},
				{Keyword: "f", Duration: 3},
			}
			results := gen.BatchGenerate(ctx, reqs, 2)

			So(len(results), ShouldEqual, len(reqs))
			completed, failed := 0, 0
			for i, r := range results {
				So(r.Keyword, ShouldEqual, reqs[i].Keyword)
				switch r.Status {
				case TaskCompleted:
					completed++
				case TaskFailed:
					failed++
				}
			}
			So(completed, ShouldEqual, 4)
			So(failed, ShouldEqual, 2)
			So(completed+failed, ShouldEqual, len(reqs))
			So(atomic.LoadInt32(&backend.maxActive), ShouldBeLessThanOrEqualTo, 2)
			So(len(gen.ListTasks(ctx)), ShouldEqual, len(reqs))
		})

		Convey("服务不可用时返回空列表", func() {
			gen := NewGenerator(&fakeBackend{healthErr: errors.New("down")}, nil, Options{OutputDir: t.TempDir()})
			results := gen.BatchGenerate(ctx, []Request{{Keyword: "a"}}, 3)
			So(results, ShouldNotBeNil)
			So(results, ShouldBeEmpty)
		})

		Convey("任务异常转为失败任务", func() {
			backend := &fakeBackend{generate: func(req tangoflux.GenerateRequest) ([]byte, error) {
				if strings.Contains(req.Prompt, "panic") {
					panic("worker crashed")
				}
				return []byte("RIFF"), nil
			}}
			gen := NewGenerator(backend, nil, Options{OutputDir: t.TempDir()})
			results := gen.BatchGenerate(ctx, []Request{{Keyword: "ok"}, {Keyword: "panic"}}, 2)

			So(len(results), ShouldEqual, 2)
			So(results[0].Status, ShouldEqual, TaskCompleted)
			So(results[1].Status, ShouldEqual, TaskFailed)
			So(results[1].ErrorMessage, ShouldContainSubstring, "worker crashed")
		})

		Convey("上下文取消时剩余请求记为失败", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			gen := NewGenerator(&fakeBackend{}, nil, Options{OutputDir: t.TempDir()})
			results := gen.BatchGenerate(cctx, []Request{{Keyword: "a"}, {Keyword: "b"}}, 1)

			So(len(results), ShouldEqual, 2)
			for _, r := range results {
				So(r.Status, ShouldEqual, TaskFailed)
			}
		})
	})
}

func TestGenerator_CleanupCompleted(t *testing.T) {
	Convey("CleanupCompleted 清理过期任务", t, func() {
		ctx := context.Background()
		store := NewMemoryTaskStore()
		gen := NewGenerator(&fakeBackend{}, store, Options{OutputDir: t.TempDir()})

		old := time.Now().Add(-48 * time.Hour)
		recent := time.Now().Add(-time.Minute)
		So(store.Save(ctx, &GenerationTask{TaskID: "old", Status: TaskCompleted, EndTime: &old}), ShouldBeNil)
		So(store.Save(ctx, &GenerationTask{TaskID: "recent", Status: TaskFailed, EndTime: &recent}), ShouldBeNil)
		So(store.Save(ctx, &GenerationTask{TaskID: "running", Status: TaskGenerating}), ShouldBeNil)

		So(gen.CleanupCompleted(ctx, 24*time.Hour), ShouldEqual, 1)
		_, ok := gen.GetTask(ctx, "old")
		So(ok, ShouldBeFalse)
		_, ok = gen.GetTask(ctx, "recent")
		So(ok, ShouldBeTrue)
		So(len(gen.ListTasks(ctx)), ShouldEqual, 2)
	})
}

func TestMemoryTaskStore_Snapshot(t *testing.T) {
	Convey("保存的是快照", t, func() {
		ctx := context.Background()
		store := NewMemoryTaskStore()
		task := &GenerationTask{TaskID: "t1", Status: TaskPending}
		So(store.Save(ctx, task), ShouldBeNil)

		task.Status = TaskCompleted
		got, ok := store.Get(ctx, "t1")
		So(ok, ShouldBeTrue)
		So(got.Status, ShouldEqual, TaskPending)
		So(TaskCompleted.Finished(), ShouldBeTrue)
		So(TaskGenerating.Finished(), ShouldBeFalse)
	})
}

func TestGenerator_Submit(t *testing.T) {
	Convey("Submit 后台生成", t, func() {
		ctx := context.Background()

		Convey("立即返回待处理任务，完成后可按ID查询", func() {
			gen := NewGenerator(&fakeBackend{}, nil, Options{OutputDir: t.TempDir()})
			pending := gen.Submit(ctx, []Request{{Keyword: "雨声", Duration: 200}, {Keyword: "风声"}}, 2)

			So(len(pending), ShouldEqual, 2)
			So(pending[0].TaskID, ShouldNotBeEmpty)
			So(pending[0].Status, ShouldEqual, TaskPending)
			So(pending[0].Duration, ShouldEqual, DefaultMaxDuration)
			So(pending[1].Intensity, ShouldEqual, IntensityMedium)

			So(waitFinished(gen, pending[0].TaskID), ShouldEqual, TaskCompleted)
			So(waitFinished(gen, pending[1].TaskID), ShouldEqual, TaskCompleted)
			So(len(gen.ListTasks(ctx)), ShouldEqual, 2)
		})

		Convey("服务不可用时任务标记失败", func() {
			gen := NewGenerator(&fakeBackend{healthErr: errors.New("down")}, nil, Options{OutputDir: t.TempDir()})
			pending := gen.Submit(ctx, []Request{{Keyword: "雨声"}}, 1)

			So(waitFinished(gen, pending[0].TaskID), ShouldEqual, TaskFailed)
			task, _ := gen.GetTask(ctx, pending[0].TaskID)
			So(task.ErrorMessage, ShouldEqual, "环境音生成服务不可用")
		})
	})
}

func waitFinished(gen *Generator, taskID string) TaskStatus {
	for i := 0; i < 200; i++ {
		if task, ok := gen.GetTask(context.Background(), taskID); ok && task.Status.Finished() {
			return task.Status
		}
		time.Sleep(10 * time.Millisecond)
	}
	return ""
}

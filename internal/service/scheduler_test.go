package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/brightsite/internal/store"
)

// fakeGenerator 是确定性的生成器替身，可注入失败并统计并发度。
type fakeGenerator struct {
	mu        sync.Mutex
	calls     int
	err       error
	block     chan struct{}
	active    int
	maxActive int
}

func (f *fakeGenerator) GenerateArticle(ctx context.Context, req ArticleRequest) (store.Post, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	f.active++
	if f.active > f.maxActive {
		f.maxActive = f.active
	}
	block := f.block
	err := f.err
	f.mu.Unlock()

	if block != nil {
		<-block
	}

	f.mu.Lock()
	f.active--
	f.mu.Unlock()

	if err != nil {
		return store.Post{}, err
	}
	return store.Post{
		Title:   fmt.Sprintf("自动文章 %d", n),
		Content: "自动生成的正文内容。",
		Status:  store.PostStatusPublished,
	}, nil
}

func (f *fakeGenerator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type schedulerFixture struct {
	scheduler *Scheduler
	schedule  *store.ScheduleStore
	posts     *PostService
	generator *fakeGenerator
}

func newSchedulerFixture(t *testing.T, cfg store.ScheduleSettings) *schedulerFixture {
	t.Helper()

	dir := t.TempDir()
	schedule := store.NewScheduleStore(filepath.Join(dir, "schedule.json"))
	if _, err := schedule.Put(cfg); err != nil {
		t.Fatalf("failed to seed schedule settings: %v", err)
	}

	posts := NewPostService(store.NewPostRepository(filepath.Join(dir, "posts.json")))
	generator := &fakeGenerator{}

	scheduler, err := NewScheduler(schedule, posts, generator, "@every 1m")
	if err != nil {
		t.Fatalf("failed to construct scheduler: %v", err)
	}

	return &schedulerFixture{
		scheduler: scheduler,
		schedule:  schedule,
		posts:     posts,
		generator: generator,
	}
}

// localTime 基于真实的"今天"构造本地时间，保证与调度器启动时重建的
// 当日计数落在同一天。
func localTime(t *testing.T, dayOffset, hour, minute int) time.Time {
	t.Helper()
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day()+dayOffset, hour, minute, 0, 0, time.Local)
}

func (f *schedulerFixture) tickAt(t *testing.T, at time.Time) {
	t.Helper()
	f.scheduler.setNow(func() time.Time { return at })
	f.scheduler.Tick()
}

func TestTickEmptyHoursNeverFires(t *testing.T) {
	f := newSchedulerFixture(t, store.ScheduleSettings{
		Enabled:        true,
		ArticlesPerDay: 5,
	})

	for hour := 0; hour < 24; hour++ {
		f.tickAt(t, localTime(t, 0, hour, 5))
	}

	if got := f.generator.callCount(); got != 0 {
		t.Fatalf("expected no generation with empty hours, got %d calls", got)
	}
}

func TestTickDisabledIsNoop(t *testing.T) {
	f := newSchedulerFixture(t, store.ScheduleSettings{
		Enabled:         false,
		ArticlesPerDay:  5,
		GenerationHours: []int{9},
	})

	f.tickAt(t, localTime(t, 0, 9, 5))

	if got := f.generator.callCount(); got != 0 {
		t.Fatalf("expected no generation when disabled, got %d calls", got)
	}
}

func TestTickGeneratesOncePerEligibleHour(t *testing.T) {
	f := newSchedulerFixture(t, store.ScheduleSettings{
		Enabled:         true,
		ArticlesPerDay:  1,
		GenerationHours: []int{9},
	})

	f.tickAt(t, localTime(t, 0, 9, 5))

	posts, err := f.posts.ListPosts(true)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(posts) != 1 {
		t.Fatalf("expected 1 generated post, got %d", len(posts))
	}
	if status := f.scheduler.Status(); status.TodayGenerated != 1 {
		t.Fatalf("expected todayGenerated 1, got %d", status.TodayGenerated)
	}

	// 同一小时内的第二次 tick 不应重复生成
	f.tickAt(t, localTime(t, 0, 9, 10))

	posts, err = f.posts.ListPosts(true)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(posts) != 1 {
		t.Fatalf("expected still 1 post after second tick, got %d", len(posts))
	}
}

func TestTickHourBucketBlocksRepeatsEvenUnderQuota(t *testing.T) {
	f := newSchedulerFixture(t, store.ScheduleSettings{
		Enabled:         true,
		ArticlesPerDay:  3,
		GenerationHours: []int{9},
	})

	f.tickAt(t, localTime(t, 0, 9, 5))
	f.tickAt(t, localTime(t, 0, 9, 20))
	f.tickAt(t, localTime(t, 0, 9, 40))

	if got := f.generator.callCount(); got != 1 {
		t.Fatalf("expected a single run within the hour, got %d", got)
	}
}

func TestDailyQuotaAcrossEligibleHours(t *testing.T) {
	f := newSchedulerFixture(t, store.ScheduleSettings{
		Enabled:         true,
		ArticlesPerDay:  3,
		GenerationHours: []int{9, 11, 13, 15},
	})

	for _, hour := range []int{9, 11, 13, 15} {
		f.tickAt(t, localTime(t, 0, hour, 5))
	}

	posts, err := f.posts.ListPosts(true)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(posts) != 3 {
		t.Fatalf("expected exactly 3 posts for quota 3, got %d", len(posts))
	}
}

func TestProviderFailureLeavesStateUnchangedAndRetries(t *testing.T) {
	f := newSchedulerFixture(t, store.ScheduleSettings{
		Enabled:         true,
		ArticlesPerDay:  2,
		GenerationHours: []int{9},
	})

	f.generator.mu.Lock()
	f.generator.err = fmt.Errorf("%w: 接口超时", ErrAIProviderFailure)
	f.generator.mu.Unlock()

	f.tickAt(t, localTime(t, 0, 9, 5))

	status := f.scheduler.Status()
	if status.TodayGenerated != 0 {
		t.Fatalf("expected counter unchanged after failure, got %d", status.TodayGenerated)
	}
	if status.LastGenerationAt != nil {
		t.Fatalf("expected lastGenerationAt unchanged after failure, got %v", status.LastGenerationAt)
	}
	posts, err := f.posts.ListPosts(true)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(posts) != 0 {
		t.Fatalf("expected repository untouched after failure, got %d posts", len(posts))
	}

	// 失败不推进时间戳，同一小时内的下一次 tick 以自然节奏重试
	f.generator.mu.Lock()
	f.generator.err = nil
	f.generator.mu.Unlock()

	f.tickAt(t, localTime(t, 0, 9, 10))

	if got := f.generator.callCount(); got != 2 {
		t.Fatalf("expected retry on next tick, got %d calls", got)
	}
	if status := f.scheduler.Status(); status.TodayGenerated != 1 {
		t.Fatalf("expected one success after retry, got %d", status.TodayGenerated)
	}
}

func TestStopStartKeepsTodayCount(t *testing.T) {
	f := newSchedulerFixture(t, store.ScheduleSettings{
		Enabled:         true,
		ArticlesPerDay:  5,
		GenerationHours: []int{9},
	})

	f.tickAt(t, localTime(t, 0, 9, 5))
	if status := f.scheduler.Status(); status.TodayGenerated != 1 {
		t.Fatalf("expected 1 generated before pause, got %d", status.TodayGenerated)
	}

	f.scheduler.Stop()
	if f.scheduler.Status().IsRunning {
		t.Fatalf("expected scheduler stopped")
	}

	if err := f.scheduler.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer f.scheduler.Stop()

	status := f.scheduler.Status()
	if !status.IsRunning {
		t.Fatalf("expected scheduler running after restart")
	}
	if status.TodayGenerated != 1 {
		t.Fatalf("expected todayGenerated preserved across stop/start, got %d", status.TodayGenerated)
	}
}

func TestStartStopIdempotent(t *testing.T) {
	f := newSchedulerFixture(t, store.ScheduleSettings{ArticlesPerDay: 1})

	if err := f.scheduler.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := f.scheduler.Start(); err != nil {
		t.Fatalf("second start failed: %v", err)
	}

	f.scheduler.Stop()
	f.scheduler.Stop()

	if f.scheduler.Status().IsRunning {
		t.Fatalf("expected scheduler stopped")
	}
}

func TestGenerateNowQuotaAndForce(t *testing.T) {
	f := newSchedulerFixture(t, store.ScheduleSettings{
		Enabled:         false,
		ArticlesPerDay:  1,
		GenerationHours: []int{},
	})

	// 手动触发绕过启用与时段判定
	if _, err := f.scheduler.GenerateNow(false); err != nil {
		t.Fatalf("manual generation failed: %v", err)
	}

	if _, err := f.scheduler.GenerateNow(false); !errors.Is(err, ErrQuotaReached) {
		t.Fatalf("expected ErrQuotaReached, got %v", err)
	}

	// force 显式放行后允许超出配额
	if _, err := f.scheduler.GenerateNow(true); err != nil {
		t.Fatalf("forced generation failed: %v", err)
	}

	posts, err := f.posts.ListPosts(true)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("expected 2 posts, got %d", len(posts))
	}
}

func TestGenerateNowCountsAgainstQuota(t *testing.T) {
	f := newSchedulerFixture(t, store.ScheduleSettings{
		Enabled:         true,
		ArticlesPerDay:  1,
		GenerationHours: []int{9},
	})

	f.scheduler.setNow(func() time.Time { return localTime(t, 0, 8, 0) })
	if _, err := f.scheduler.GenerateNow(false); err != nil {
		t.Fatalf("manual generation failed: %v", err)
	}

	// 手动生成已占满配额，9 点的自动 tick 不再触发
	f.tickAt(t, localTime(t, 0, 9, 5))

	if got := f.generator.callCount(); got != 1 {
		t.Fatalf("expected automatic run to be blocked by quota, got %d calls", got)
	}
}

func TestSingleGenerationInFlight(t *testing.T) {
	f := newSchedulerFixture(t, store.ScheduleSettings{
		Enabled:         true,
		ArticlesPerDay:  10,
		GenerationHours: []int{9},
	})

	block := make(chan struct{})
	f.generator.mu.Lock()
	f.generator.block = block
	f.generator.mu.Unlock()

	f.scheduler.setNow(func() time.Time { return localTime(t, 0, 9, 5) })

	done := make(chan error, 1)
	go func() {
		_, err := f.scheduler.GenerateNow(false)
		done <- err
	}()

	// 等待第一次生成进入在途状态
	for i := 0; i < 100; i++ {
		if f.generator.callCount() == 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if f.generator.callCount() != 1 {
		t.Fatalf("expected first generation to start")
	}

	// 在途期间：tick 不触发新的生成，手动触发被拒绝
	f.scheduler.Tick()
	if _, err := f.scheduler.GenerateNow(false); !errors.Is(err, ErrSchedulerBusy) {
		t.Fatalf("expected ErrSchedulerBusy, got %v", err)
	}

	close(block)
	if err := <-done; err != nil {
		t.Fatalf("first generation failed: %v", err)
	}

	f.generator.mu.Lock()
	maxActive := f.generator.maxActive
	calls := f.generator.calls
	f.generator.mu.Unlock()

	if maxActive != 1 {
		t.Fatalf("expected at most one generation in flight, got %d", maxActive)
	}
	if calls != 1 {
		t.Fatalf("expected exactly one generation, got %d", calls)
	}
}

func TestDayRolloverResetsCount(t *testing.T) {
	f := newSchedulerFixture(t, store.ScheduleSettings{
		Enabled:         true,
		ArticlesPerDay:  1,
		GenerationHours: []int{9},
	})

	f.tickAt(t, localTime(t, 0, 9, 5))
	if status := f.scheduler.Status(); status.TodayGenerated != 1 {
		t.Fatalf("expected 1 generated on day one, got %d", status.TodayGenerated)
	}

	// 次日同一时段：计数清零，小时桶也落在不同一天，允许再次生成
	f.tickAt(t, localTime(t, 1, 9, 5))

	if got := f.generator.callCount(); got != 2 {
		t.Fatalf("expected generation on next day, got %d calls", got)
	}
	if status := f.scheduler.Status(); status.TodayGenerated != 1 {
		t.Fatalf("expected counter reset to 1 on new day, got %d", status.TodayGenerated)
	}
}

func TestSchedulerRebuildsTodayCountAtStartup(t *testing.T) {
	dir := t.TempDir()
	schedule := store.NewScheduleStore(filepath.Join(dir, "schedule.json"))
	if _, err := schedule.Put(store.ScheduleSettings{
		Enabled:         true,
		ArticlesPerDay:  2,
		GenerationHours: []int{9},
	}); err != nil {
		t.Fatalf("failed to seed schedule settings: %v", err)
	}

	posts := NewPostService(store.NewPostRepository(filepath.Join(dir, "posts.json")))
	for i := 0; i < 2; i++ {
		if _, err := posts.CreatePost(PostInput{Title: fmt.Sprintf("已有文章 %d", i), Content: "正文"}); err != nil {
			t.Fatalf("failed to seed post: %v", err)
		}
	}

	generator := &fakeGenerator{}
	scheduler, err := NewScheduler(schedule, posts, generator, "@every 1m")
	if err != nil {
		t.Fatalf("failed to construct scheduler: %v", err)
	}

	if status := scheduler.Status(); status.TodayGenerated != 2 {
		t.Fatalf("expected rebuilt count 2, got %d", status.TodayGenerated)
	}

	// 当日配额已被既有文章占满
	scheduler.setNow(func() time.Time { return localTime(t, 0, 9, 5) })
	scheduler.Tick()

	if got := generator.callCount(); got != 0 {
		t.Fatalf("expected no generation when quota already met, got %d calls", got)
	}
}

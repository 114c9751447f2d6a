package service

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/brightsite/internal/store"
	"github.com/robfig/cron/v3"
)

// ErrSchedulerBusy 表示已有一次生成正在进行，调用被拒绝。
var ErrSchedulerBusy = errors.New("generation already in flight")

// ErrQuotaReached 表示当日配额已用完。
var ErrQuotaReached = errors.New("daily quota reached")

// generationTimeout 约束单次生成调用的最长阻塞时间，超时按服务商失败处理。
const generationTimeout = 5 * time.Minute

const dayLayout = "2006-01-02"

// SchedulerStatus 是调度器对外暴露的状态快照。
type SchedulerStatus struct {
	IsRunning        bool                   `json:"isRunning"`
	InFlight         bool                   `json:"inFlight"`
	LastTickAt       *time.Time             `json:"lastTickAt,omitempty"`
	LastGenerationAt *time.Time             `json:"lastGenerationAt,omitempty"`
	TodayGenerated   int                    `json:"todayGenerated"`
	Config           store.ScheduleSettings `json:"config"`
}

// Scheduler 负责按计划触发内容生成。
// Running/Stopped 控制定时器是否在走表；inFlight 是独立的在途守卫，
// 保证任意时刻（含手动触发）最多只有一次生成在执行。
// 单次 tick 内的任何失败都被吞在 tick 里，调度器只会因显式 Stop 停下。
type Scheduler struct {
	schedule  *store.ScheduleStore
	posts     *PostService
	generator ArticleGenerator
	tickSpec  string

	mu         sync.Mutex
	cron       *cron.Cron
	running    bool
	inFlight   bool
	todayCount int
	countDay   string
	lastTickAt time.Time
	now        func() time.Time
}

// NewScheduler 构造调度器，并扫描内容仓库重建当日已生成计数。
func NewScheduler(schedule *store.ScheduleStore, posts *PostService, generator ArticleGenerator, tickSpec string) (*Scheduler, error) {
	s := &Scheduler{
		schedule:  schedule,
		posts:     posts,
		generator: generator,
		tickSpec:  tickSpec,
		now:       time.Now,
	}

	today := s.now()
	count, err := posts.CountCreatedOn(today)
	if err != nil {
		return nil, err
	}
	s.todayCount = count
	s.countDay = today.Format(dayLayout)

	return s, nil
}

// Start 启动 tick 定时器。已在运行时为幂等空操作。
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(s.tickSpec, s.Tick); err != nil {
		return err
	}
	c.Start()

	s.cron = c
	s.running = true
	log.Printf("[SCHEDULER] 已启动，节奏 %s", s.tickSpec)
	return nil
}

// Stop 停止 tick 定时器。在途的生成允许跑完，但不再调度新的运行。
// 已停止时为幂等空操作。
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.cron.Stop()
	s.cron = nil
	s.running = false
	log.Printf("[SCHEDULER] 已停止")
}

// Status 返回当前状态快照，在任一状态下都可查询。
func (s *Scheduler) Status() SchedulerStatus {
	cfg := s.schedule.Get()

	s.mu.Lock()
	defer s.mu.Unlock()

	status := SchedulerStatus{
		IsRunning:        s.running,
		InFlight:         s.inFlight,
		LastGenerationAt: cfg.LastGenerationAt,
		TodayGenerated:   s.todayCount,
		Config:           cfg,
	}
	if !s.lastTickAt.IsZero() {
		t := s.lastTickAt
		status.LastTickAt = &t
	}
	return status
}

// Tick 执行一次资格判定，必要时触发生成。由定时器按固定节奏调用，
// 测试可直接调用以推进虚拟时间。
func (s *Scheduler) Tick() {
	now := s.currentTime()

	s.mu.Lock()
	s.lastTickAt = now
	s.rolloverLocked(now)
	if s.inFlight {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	cfg := s.schedule.Get()
	if !cfg.Enabled {
		return
	}
	if !containsHour(cfg.GenerationHours, now.Hour()) {
		return
	}

	s.mu.Lock()
	eligible := !s.inFlight &&
		s.todayCount < cfg.ArticlesPerDay &&
		!(cfg.LastGenerationAt != nil && sameHourBucket(*cfg.LastGenerationAt, now))
	if !eligible {
		s.mu.Unlock()
		return
	}
	s.inFlight = true
	s.mu.Unlock()

	if _, err := s.runGeneration(ArticleRequest{}); err != nil {
		log.Printf("[SCHEDULER] 本次 tick 生成失败，等待下次重试: %v", err)
	}
}

// GenerateNow 手动触发一次生成：绕过启用/时段判定，仍受在途守卫约束；
// 配额已满时除非 force 显式放行，否则拒绝。成功后照常计入配额。
func (s *Scheduler) GenerateNow(force bool) (store.Post, error) {
	now := s.currentTime()

	s.mu.Lock()
	s.rolloverLocked(now)
	if s.inFlight {
		s.mu.Unlock()
		return store.Post{}, ErrSchedulerBusy
	}
	if !force {
		cfg := s.schedule.Get()
		if s.todayCount >= cfg.ArticlesPerDay {
			s.mu.Unlock()
			return store.Post{}, ErrQuotaReached
		}
	}
	s.inFlight = true
	s.mu.Unlock()

	return s.runGeneration(ArticleRequest{})
}

// runGeneration 执行一次生成并在成功后推进计数与时间戳。
// 进入时在途守卫已置位，退出时负责清除。生成期间不持有任何锁。
func (s *Scheduler) runGeneration(req ArticleRequest) (store.Post, error) {
	defer func() {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), generationTimeout)
	defer cancel()

	generated, err := s.generator.GenerateArticle(ctx, req)
	if err != nil {
		return store.Post{}, err
	}

	saved, err := s.posts.SaveGenerated(generated)
	if err != nil {
		return store.Post{}, err
	}

	finished := s.currentTime()
	if err := s.schedule.SetLastGeneration(finished); err != nil {
		// 时间戳没落盘只影响同一小时内的去重，文章本身已持久化。
		log.Printf("[SCHEDULER] 记录生成时间失败: %v", err)
	}

	s.mu.Lock()
	s.rolloverLocked(finished)
	s.todayCount++
	count := s.todayCount
	s.mu.Unlock()

	log.Printf("[SCHEDULER] 已生成文章 #%d《%s》，今日第 %d 篇", saved.ID, saved.Title, count)
	return saved, nil
}

// rolloverLocked 在跨过本地日界时清零当日计数。调用方必须持有 s.mu。
func (s *Scheduler) rolloverLocked(now time.Time) {
	day := now.Format(dayLayout)
	if s.countDay != day {
		s.countDay = day
		s.todayCount = 0
	}
}

func (s *Scheduler) currentTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now()
}

// setNow 替换时钟来源，仅用于测试。
func (s *Scheduler) setNow(fn func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = fn
}

func containsHour(hours []int, hour int) bool {
	for _, h := range hours {
		if h == hour {
			return true
		}
	}
	return false
}

// sameHourBucket 判断两个时间是否落在同一个本地小时桶内，
// 用于防止 tick 间隔小于一小时导致同一时段重复生成。
func sameHourBucket(a, b time.Time) bool {
	a, b = a.Local(), b.Local()
	return a.Year() == b.Year() && a.YearDay() == b.YearDay() && a.Hour() == b.Hour()
}

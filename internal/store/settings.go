package store

import (
	"log"
	"sort"
	"time"
)

const (
	minArticlesPerDay = 1
	maxArticlesPerDay = 10
)

// ScheduleSettings 描述自动生成文章的调度配置。
type ScheduleSettings struct {
	Enabled          bool       `json:"enabled"`
	ArticlesPerDay   int        `json:"articlesPerDay"`
	GenerationHours  []int      `json:"generationHours"`
	LastGenerationAt *time.Time `json:"lastGenerationAt,omitempty"`
}

// DefaultScheduleSettings 返回安全的默认配置：关闭、配额 1、无可用时段。
func DefaultScheduleSettings() ScheduleSettings {
	return ScheduleSettings{
		Enabled:         false,
		ArticlesPerDay:  minArticlesPerDay,
		GenerationHours: []int{},
	}
}

// SanitizeScheduleSettings 在持久化前约束配置字段：
// 配额收敛到 [1,10]，时段过滤到 [0,23] 并去重升序排列。
func SanitizeScheduleSettings(s ScheduleSettings) ScheduleSettings {
	if s.ArticlesPerDay < minArticlesPerDay {
		s.ArticlesPerDay = minArticlesPerDay
	}
	if s.ArticlesPerDay > maxArticlesPerDay {
		s.ArticlesPerDay = maxArticlesPerDay
	}

	seen := make(map[int]bool, len(s.GenerationHours))
	hours := make([]int, 0, len(s.GenerationHours))
	for _, h := range s.GenerationHours {
		if h < 0 || h > 23 || seen[h] {
			continue
		}
		seen[h] = true
		hours = append(hours, h)
	}
	sort.Ints(hours)
	s.GenerationHours = hours

	return s
}

// ScheduleStore 持久化调度配置。
type ScheduleStore struct {
	doc *Document[ScheduleSettings]
}

// NewScheduleStore 构造指向 path 的调度配置存储。
func NewScheduleStore(path string) *ScheduleStore {
	return &ScheduleStore{doc: NewDocument[ScheduleSettings](path)}
}

// Get 读取调度配置。文件缺失或损坏时回退默认值，调度器不会因此崩溃。
func (s *ScheduleStore) Get() ScheduleSettings {
	settings, err := s.doc.Load()
	if err != nil {
		if !isNotExist(err) {
			log.Printf("[SETTINGS] 调度配置读取失败，回退默认值: %v", err)
		}
		return DefaultScheduleSettings()
	}
	return SanitizeScheduleSettings(settings)
}

// Put 校验并整体覆盖调度配置，返回实际落盘的值。
func (s *ScheduleStore) Put(settings ScheduleSettings) (ScheduleSettings, error) {
	sanitized := SanitizeScheduleSettings(settings)
	if err := s.doc.Save(sanitized); err != nil {
		return ScheduleSettings{}, err
	}
	return sanitized, nil
}

// SetLastGeneration 仅推进最近一次成功生成的时间戳，保留其余字段。
func (s *ScheduleStore) SetLastGeneration(at time.Time) error {
	return s.doc.Update(func(settings *ScheduleSettings) error {
		*settings = SanitizeScheduleSettings(*settings)
		if settings.GenerationHours == nil {
			settings.GenerationHours = []int{}
		}
		if settings.ArticlesPerDay == 0 {
			settings.ArticlesPerDay = minArticlesPerDay
		}
		t := at
		settings.LastGenerationAt = &t
		return nil
	})
}

const (
	// AIProviderOpenAI 表示使用 OpenAI 能力。
	AIProviderOpenAI = "openai"
	// AIProviderDeepSeek 表示使用 DeepSeek 能力。
	AIProviderDeepSeek = "deepseek"
)

// AISettings 描述内容生成服务商的凭证与参数。
type AISettings struct {
	Provider    string     `json:"provider"`
	APIKey      string     `json:"apiKey"`
	Model       string     `json:"model"`
	MaxTokens   int        `json:"maxTokens"`
	Temperature float64    `json:"temperature"`
	Enabled     bool       `json:"enabled"`
	LastUpdate  *time.Time `json:"lastUpdate,omitempty"`
}

// DefaultAISettings 返回首次读取时的默认参数。
func DefaultAISettings() AISettings {
	return AISettings{
		Provider:    AIProviderOpenAI,
		Model:       "gpt-4o-mini",
		MaxTokens:   2048,
		Temperature: 0.7,
		Enabled:     false,
	}
}

// AIStore 持久化生成服务商配置。
type AIStore struct {
	doc *Document[AISettings]
}

// NewAIStore 构造指向 path 的服务商配置存储。
func NewAIStore(path string) *AIStore {
	return &AIStore{doc: NewDocument[AISettings](path)}
}

// Get 读取服务商配置，缺失或损坏时回退默认值。
func (s *AIStore) Get() AISettings {
	settings, err := s.doc.Load()
	if err != nil {
		if !isNotExist(err) {
			log.Printf("[SETTINGS] AI 配置读取失败，回退默认值: %v", err)
		}
		return DefaultAISettings()
	}
	return sanitizeAISettings(settings)
}

// Put 整体覆盖服务商配置并刷新 lastUpdate。
func (s *AIStore) Put(settings AISettings) (AISettings, error) {
	sanitized := sanitizeAISettings(settings)
	now := time.Now()
	sanitized.LastUpdate = &now
	if err := s.doc.Save(sanitized); err != nil {
		return AISettings{}, err
	}
	return sanitized, nil
}

func sanitizeAISettings(s AISettings) AISettings {
	if s.Provider != AIProviderOpenAI && s.Provider != AIProviderDeepSeek {
		s.Provider = AIProviderOpenAI
	}
	if s.Model == "" {
		s.Model = DefaultAISettings().Model
	}
	if s.MaxTokens <= 0 {
		s.MaxTokens = DefaultAISettings().MaxTokens
	}
	if s.Temperature < 0 || s.Temperature > 2 {
		s.Temperature = DefaultAISettings().Temperature
	}
	return s
}

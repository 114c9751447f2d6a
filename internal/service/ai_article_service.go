package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"sync"

	"github.com/brightsite/internal/store"
	"gopkg.in/yaml.v3"
)

// ErrAINotConfigured 表示未提供生成服务商的 API Key。
var ErrAINotConfigured = errors.New("api key is required")

// ErrAIProviderFailure 表示生成服务商传输或响应解析失败。
var ErrAIProviderFailure = errors.New("ai provider failure")

// ErrAIEmptyResult 表示服务商返回了无法使用的空内容。
var ErrAIEmptyResult = errors.New("ai returned empty result")

// ArticleRequest 描述一次内容生成请求。未指定 Topic 时从题库随机选题。
type ArticleRequest struct {
	Topic        string
	ContentType  string
	TargetLength string
	Locale       string
}

// ArticleGenerator 定义内容生成能力，便于在调度器中注入确定性的测试实现。
type ArticleGenerator interface {
	GenerateArticle(ctx context.Context, req ArticleRequest) (store.Post, error)
}

const (
	defaultArticleAuthor      = "编辑部"
	defaultArticleCategory    = "行业资讯"
	defaultArticleLocale      = "zh-CN"
	defaultArticleLength      = "medium"
	defaultArticleSystemPrompt = "你是一名企业官网的内容编辑，负责撰写专业、可信、面向客户的博客文章。" +
		"输出必须是一个 JSON 对象，包含字段 title、content、excerpt、category、keywords（字符串数组）。" +
		"content 使用 Markdown 编写，不要输出 JSON 以外的任何内容。"
)

var defaultTopicPool = []string{
	"行业趋势解读",
	"客户案例分享",
	"产品使用技巧",
	"团队幕后故事",
	"常见问题答疑",
	"市场洞察报告",
}

// topicsFile 是可选的题库配置文件结构。
type topicsFile struct {
	Topics       []string `yaml:"topics"`
	SystemPrompt string   `yaml:"systemPrompt"`
}

// AIArticleService 基于大模型接口生成完整博客文章。
// 适配器本身不做重试，重试节奏由调度器的 tick 周期决定。
type AIArticleService struct {
	settings *store.AIStore
	client   *aiChatClient

	mu           sync.Mutex
	topics       []string
	systemPrompt string
	pickTopic    func(n int) int
}

// NewAIArticleService 构造默认的 AIArticleService，并尝试从 topicsPath 加载题库。
func NewAIArticleService(settings *store.AIStore, topicsPath string) *AIArticleService {
	s := &AIArticleService{
		settings:     settings,
		client:       newAIChatClient(),
		topics:       defaultTopicPool,
		systemPrompt: defaultArticleSystemPrompt,
		pickTopic:    rand.Intn,
	}
	s.loadTopics(topicsPath)
	return s
}

// SetHTTPClient 覆盖默认 HTTP 客户端，主要用于测试。
func (s *AIArticleService) SetHTTPClient(client httpDoer) {
	s.client.SetHTTPClient(client)
}

// SetOpenAIBaseURL 覆盖默认的 OpenAI API 地址。
func (s *AIArticleService) SetOpenAIBaseURL(base string) {
	s.client.SetOpenAIBaseURL(base)
}

// SetDeepSeekBaseURL 覆盖默认的 DeepSeek API 地址。
func (s *AIArticleService) SetDeepSeekBaseURL(base string) {
	s.client.SetDeepSeekBaseURL(base)
}

// Topics 返回当前题库的副本。
func (s *AIArticleService) Topics() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.topics))
	copy(out, s.topics)
	return out
}

// loadTopics 从 YAML 文件加载题库与系统提示词，缺失时沿用内置默认值。
func (s *AIArticleService) loadTopics(path string) {
	if strings.TrimSpace(path) == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logAIExchange("ARTICLE", "topics", fmt.Sprintf("题库文件读取失败: %v", err))
		}
		return
	}

	var file topicsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		logAIExchange("ARTICLE", "topics", fmt.Sprintf("题库文件解析失败: %v", err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	topics := make([]string, 0, len(file.Topics))
	for _, topic := range file.Topics {
		if trimmed := strings.TrimSpace(topic); trimmed != "" {
			topics = append(topics, trimmed)
		}
	}
	if len(topics) > 0 {
		s.topics = topics
	}
	if prompt := strings.TrimSpace(file.SystemPrompt); prompt != "" {
		s.systemPrompt = prompt
	}
}

// articlePayload 是要求模型输出的 JSON 结构。
type articlePayload struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Excerpt  string   `json:"excerpt"`
	Category string   `json:"category"`
	Keywords []string `json:"keywords"`
}

// GenerateArticle 调用当前配置的 AI 平台生成一篇文章。
// 未配置 API Key 时返回 ErrAINotConfigured，传输/解析失败返回 ErrAIProviderFailure，
// 内容为空返回 ErrAIEmptyResult。
func (s *AIArticleService) GenerateArticle(ctx context.Context, req ArticleRequest) (store.Post, error) {
	settings := s.settings.Get()
	if !settings.Enabled || strings.TrimSpace(settings.APIKey) == "" {
		return store.Post{}, ErrAINotConfigured
	}

	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		topic = s.randomTopic()
	}

	userPrompt := buildArticlePrompt(topic, req)
	logAIExchange("ARTICLE", "prompt", userPrompt)

	s.mu.Lock()
	systemPrompt := s.systemPrompt
	s.mu.Unlock()

	result, err := s.client.callWithSettings(ctx, settings, aiChatRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt,
		MaxTokens:    settings.MaxTokens,
		Temperature:  settings.Temperature,
	})
	if err != nil {
		return store.Post{}, err
	}

	logAIExchange("ARTICLE", "response", result.Content)

	payload, err := parseArticlePayload(result.Content)
	if err != nil {
		return store.Post{}, err
	}

	if strings.TrimSpace(payload.Title) == "" || strings.TrimSpace(payload.Content) == "" {
		return store.Post{}, ErrAIEmptyResult
	}

	category := strings.TrimSpace(payload.Category)
	if category == "" {
		category = defaultArticleCategory
	}

	tags := make([]string, 0, len(payload.Keywords))
	for _, keyword := range payload.Keywords {
		if trimmed := strings.TrimSpace(keyword); trimmed != "" {
			tags = append(tags, trimmed)
		}
	}

	return store.Post{
		Title:    strings.TrimSpace(payload.Title),
		Content:  strings.TrimSpace(payload.Content),
		Excerpt:  strings.TrimSpace(payload.Excerpt),
		Author:   defaultArticleAuthor,
		Category: category,
		Tags:     tags,
		Status:   store.PostStatusPublished,
	}, nil
}

// TestConnection 验证指定服务商 API Key 的有效性，供后台设置页探测使用。
func (s *AIArticleService) TestConnection(ctx context.Context, provider, apiKey string) error {
	return s.client.testConnection(ctx, provider, apiKey)
}

func (s *AIArticleService) randomTopic() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.topics) == 0 {
		return defaultTopicPool[0]
	}
	return s.topics[s.pickTopic(len(s.topics))]
}

func buildArticlePrompt(topic string, req ArticleRequest) string {
	length := strings.TrimSpace(req.TargetLength)
	if length == "" {
		length = defaultArticleLength
	}
	locale := strings.TrimSpace(req.Locale)
	if locale == "" {
		locale = defaultArticleLocale
	}

	lengthHint := map[string]string{
		"short":  "600 字左右",
		"medium": "1000 字左右",
		"long":   "1800 字左右",
	}[length]
	if lengthHint == "" {
		lengthHint = "1000 字左右"
	}

	var builder strings.Builder
	builder.WriteString("主题：")
	builder.WriteString(topic)
	builder.WriteString("\n篇幅：")
	builder.WriteString(lengthHint)
	builder.WriteString("\n语言：")
	builder.WriteString(locale)
	builder.WriteString("\n请围绕该主题撰写一篇适合发布在企业官网博客的文章。")
	return builder.String()
}

// parseArticlePayload 解析模型输出的 JSON，容忍 ```json 代码块包裹。
func parseArticlePayload(content string) (articlePayload, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return articlePayload{}, ErrAIEmptyResult
	}

	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
			trimmed = trimmed[:idx]
		}
		trimmed = strings.TrimSpace(trimmed)
	}

	// 模型偶尔会在 JSON 前后夹带说明文字，截取首尾花括号之间的部分。
	if !strings.HasPrefix(trimmed, "{") {
		start := strings.Index(trimmed, "{")
		end := strings.LastIndex(trimmed, "}")
		if start < 0 || end <= start {
			return articlePayload{}, fmt.Errorf("%w: 响应中找不到 JSON 对象", ErrAIProviderFailure)
		}
		trimmed = trimmed[start : end+1]
	}

	var payload articlePayload
	if err := json.Unmarshal([]byte(trimmed), &payload); err != nil {
		return articlePayload{}, fmt.Errorf("%w: 解析文章 JSON 失败: %v", ErrAIProviderFailure, err)
	}
	return payload, nil
}

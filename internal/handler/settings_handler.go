package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/brightsite/internal/store"
	"github.com/gin-gonic/gin"
)

// GetScheduleSettings 返回当前调度配置
func (a *API) GetScheduleSettings(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"settings": a.store.Schedule.Get()})
}

// UpdateScheduleSettings 校验并整体覆盖调度配置
func (a *API) UpdateScheduleSettings(c *gin.Context) {
	var input struct {
		Enabled         bool  `json:"enabled"`
		ArticlesPerDay  int   `json:"articlesPerDay"`
		GenerationHours []int `json:"generationHours"`
	}
	if !bindJSON(c, &input, "请求数据格式错误") {
		return
	}

	if msgs := validateScheduleInput(input.ArticlesPerDay, input.GenerationHours); len(msgs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "配置校验失败", "errors": msgs})
		return
	}

	current := a.store.Schedule.Get()
	saved, err := a.store.Schedule.Put(store.ScheduleSettings{
		Enabled:          input.Enabled,
		ArticlesPerDay:   input.ArticlesPerDay,
		GenerationHours:  input.GenerationHours,
		LastGenerationAt: current.LastGenerationAt,
	})
	if err != nil {
		respondError(c, http.StatusInternalServerError, "保存调度配置失败")
		return
	}

	respondOK(c, "调度配置已保存", gin.H{"settings": saved})
}

func validateScheduleInput(articlesPerDay int, hours []int) []string {
	var msgs []string
	if articlesPerDay < 1 || articlesPerDay > 10 {
		msgs = append(msgs, "articlesPerDay 必须在 1 到 10 之间")
	}
	for _, h := range hours {
		if h < 0 || h > 23 {
			msgs = append(msgs, "generationHours 中的小时必须在 0 到 23 之间")
			break
		}
	}
	return msgs
}

// maskAPIKey 返回密钥的截断展示形式，完整密钥绝不回显。
func maskAPIKey(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "****" + key[len(key)-2:]
}

type aiSettingsView struct {
	Provider    string     `json:"provider"`
	APIKey      string     `json:"apiKey"`
	Model       string     `json:"model"`
	MaxTokens   int        `json:"maxTokens"`
	Temperature float64    `json:"temperature"`
	Enabled     bool       `json:"enabled"`
	LastUpdate  *time.Time `json:"lastUpdate,omitempty"`
}

// GetAISettings 返回生成服务商配置，密钥做截断处理
func (a *API) GetAISettings(c *gin.Context) {
	settings := a.store.AI.Get()
	c.JSON(http.StatusOK, gin.H{"settings": aiSettingsView{
		Provider:    settings.Provider,
		APIKey:      maskAPIKey(settings.APIKey),
		Model:       settings.Model,
		MaxTokens:   settings.MaxTokens,
		Temperature: settings.Temperature,
		Enabled:     settings.Enabled,
		LastUpdate:  settings.LastUpdate,
	}})
}

// UpdateAISettings 整体覆盖生成服务商配置。
// 请求未携带新密钥（空或掩码形式）时保留原密钥。
func (a *API) UpdateAISettings(c *gin.Context) {
	var input struct {
		Provider    string  `json:"provider"`
		APIKey      string  `json:"apiKey"`
		Model       string  `json:"model"`
		MaxTokens   int     `json:"maxTokens"`
		Temperature float64 `json:"temperature"`
		Enabled     bool    `json:"enabled"`
	}
	if !bindJSON(c, &input, "请求数据格式错误") {
		return
	}

	current := a.store.AI.Get()
	apiKey := strings.TrimSpace(input.APIKey)
	if apiKey == "" || apiKey == maskAPIKey(current.APIKey) {
		apiKey = current.APIKey
	}

	saved, err := a.store.AI.Put(store.AISettings{
		Provider:    input.Provider,
		APIKey:      apiKey,
		Model:       input.Model,
		MaxTokens:   input.MaxTokens,
		Temperature: input.Temperature,
		Enabled:     input.Enabled,
	})
	if err != nil {
		respondError(c, http.StatusInternalServerError, "保存 AI 配置失败")
		return
	}

	respondOK(c, "AI 配置已保存", gin.H{"settings": aiSettingsView{
		Provider:    saved.Provider,
		APIKey:      maskAPIKey(saved.APIKey),
		Model:       saved.Model,
		MaxTokens:   saved.MaxTokens,
		Temperature: saved.Temperature,
		Enabled:     saved.Enabled,
		LastUpdate:  saved.LastUpdate,
	}})
}

// TestAIConnection 探测服务商接口验证密钥有效性
func (a *API) TestAIConnection(c *gin.Context) {
	var input struct {
		Provider string `json:"provider"`
		APIKey   string `json:"apiKey"`
	}
	if !bindJSON(c, &input, "请求数据格式错误") {
		return
	}

	apiKey := strings.TrimSpace(input.APIKey)
	current := a.store.AI.Get()
	if apiKey == "" || apiKey == maskAPIKey(current.APIKey) {
		apiKey = current.APIKey
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	if err := a.articles.TestConnection(ctx, input.Provider, apiKey); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	respondOK(c, "连接成功", nil)
}

package service

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/brightsite/internal/store"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	// 原始 HTML 交给 goldmark 透传，由 newContentPolicy 统一净化。
	markdownEngine = goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Linkify, extension.Table),
		goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML(), html.WithUnsafe()),
	)
	htmlSanitizer = newContentPolicy()
	textStripper  = bluemonday.StrictPolicy()
)

const maxExcerptRunes = 160

// ErrPostNotFound 表示目标文章不存在。
var ErrPostNotFound = errors.New("post not found")

// PostInput 描述创建文章所需的字段。
type PostInput struct {
	Title    string
	Content  string
	Excerpt  string
	Author   string
	Category string
	Tags     []string
	Image    string
	Status   string
}

// PostService 封装文章的业务规则：ID 与摘要的派生、默认值、浏览计数。
type PostService struct {
	repo *store.PostRepository
}

// NewPostService 构造 PostService。
func NewPostService(repo *store.PostRepository) *PostService {
	return &PostService{repo: repo}
}

// Repository 暴露底层仓库，供调度器启动时重建配额计数。
func (s *PostService) Repository() *store.PostRepository {
	return s.repo
}

// ListPosts 返回文章列表（最新在前），includeDrafts 为 false 时过滤草稿。
func (s *PostService) ListPosts(includeDrafts bool) ([]store.Post, error) {
	posts, err := s.repo.ListAll()
	if err != nil {
		return nil, err
	}
	if includeDrafts {
		return posts, nil
	}

	published := make([]store.Post, 0, len(posts))
	for _, post := range posts {
		if post.Status == store.PostStatusPublished {
			published = append(published, post)
		}
	}
	return published, nil
}

// GetPost 按 ID 查找文章。
func (s *PostService) GetPost(id int64) (store.Post, error) {
	post, found, err := s.repo.GetByID(id)
	if err != nil {
		return store.Post{}, err
	}
	if !found {
		return store.Post{}, ErrPostNotFound
	}
	return post, nil
}

// CreatePost 规整输入并写入仓库。摘要为空时从正文派生，保证摘要恒非空。
func (s *PostService) CreatePost(input PostInput) (store.Post, error) {
	title := strings.TrimSpace(input.Title)
	content := strings.TrimSpace(input.Content)
	if title == "" {
		return store.Post{}, errors.New("标题不能为空")
	}
	if content == "" {
		return store.Post{}, errors.New("正文不能为空")
	}

	excerpt := strings.TrimSpace(input.Excerpt)
	if excerpt == "" {
		excerpt = DeriveExcerpt(content)
	}

	author := strings.TrimSpace(input.Author)
	if author == "" {
		author = defaultArticleAuthor
	}
	category := strings.TrimSpace(input.Category)
	if category == "" {
		category = defaultArticleCategory
	}
	status := strings.TrimSpace(input.Status)
	if status != store.PostStatusPublished {
		status = store.PostStatusDraft
	}

	tags := make([]string, 0, len(input.Tags))
	for _, tag := range input.Tags {
		if trimmed := strings.TrimSpace(tag); trimmed != "" {
			tags = append(tags, trimmed)
		}
	}

	now := time.Now()
	return s.repo.Append(store.Post{
		Title:     title,
		Content:   content,
		Excerpt:   excerpt,
		Author:    author,
		Category:  category,
		Tags:      tags,
		Image:     strings.TrimSpace(input.Image),
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

// SaveGenerated 持久化一篇由生成服务产出的文章，走与手工创建相同的规整路径。
func (s *PostService) SaveGenerated(post store.Post) (store.Post, error) {
	return s.CreatePost(PostInput{
		Title:    post.Title,
		Content:  post.Content,
		Excerpt:  post.Excerpt,
		Author:   post.Author,
		Category: post.Category,
		Tags:     post.Tags,
		Image:    post.Image,
		Status:   post.Status,
	})
}

// UpdatePost 合并补丁并刷新 updatedAt。补丁清空摘要时重新从正文派生。
func (s *PostService) UpdatePost(id int64, patch store.PostPatch) (store.Post, error) {
	if patch.Excerpt != nil && strings.TrimSpace(*patch.Excerpt) == "" {
		content := ""
		if patch.Content != nil {
			content = *patch.Content
		} else {
			existing, found, err := s.repo.GetByID(id)
			if err != nil {
				return store.Post{}, err
			}
			if !found {
				return store.Post{}, ErrPostNotFound
			}
			content = existing.Content
		}
		derived := DeriveExcerpt(content)
		patch.Excerpt = &derived
	}

	post, found, err := s.repo.UpdateByID(id, patch)
	if err != nil {
		return store.Post{}, err
	}
	if !found {
		return store.Post{}, ErrPostNotFound
	}
	return post, nil
}

// DeletePost 删除文章。
func (s *PostService) DeletePost(id int64) error {
	found, err := s.repo.DeleteByID(id)
	if err != nil {
		return err
	}
	if !found {
		return ErrPostNotFound
	}
	return nil
}

// IncrementViews 浏览计数加一并返回最新文章。
func (s *PostService) IncrementViews(id int64) (store.Post, error) {
	post, found, err := s.repo.IncrementViews(id)
	if err != nil {
		return store.Post{}, err
	}
	if !found {
		return store.Post{}, ErrPostNotFound
	}
	return post, nil
}

// CountCreatedOn 统计指定本地日期创建的文章数。
func (s *PostService) CountCreatedOn(day time.Time) (int, error) {
	return s.repo.CountOnDate(day)
}

// RenderContent 将 Markdown 正文渲染为净化后的 HTML，供公开接口返回。
// 渲染前先把独占一行的视频链接转成嵌入块。
func RenderContent(content string) (template.HTML, error) {
	content = embedVideoLinks(content)

	var buf bytes.Buffer
	if err := markdownEngine.Convert([]byte(content), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return template.HTML(htmlSanitizer.SanitizeBytes(buf.Bytes())), nil
}

// DeriveExcerpt 从 Markdown 正文派生纯文本摘要：
// 先渲染为 HTML 再剥离全部标签，压缩空白后截取前若干字符。
func DeriveExcerpt(content string) string {
	var buf bytes.Buffer
	if err := markdownEngine.Convert([]byte(content), &buf); err != nil {
		// 渲染失败时直接退回原文前缀，摘要不允许为空。
		return truncateRunes(strings.TrimSpace(content), maxExcerptRunes)
	}

	plain := textStripper.Sanitize(buf.String())
	plain = strings.Join(strings.Fields(plain), " ")
	if plain == "" {
		plain = strings.TrimSpace(content)
	}
	return truncateRunes(plain, maxExcerptRunes)
}

func truncateRunes(input string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(input)
	if len(runes) <= limit {
		return input
	}
	return string(runes[:limit]) + "…"
}

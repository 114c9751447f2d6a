package service

import (
	"fmt"
	htmlstd "html"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// 独占一行的视频链接在渲染前会被替换为响应式的 iframe 嵌入块，
// 支持 YouTube 与 B 站两个平台。
var (
	videoLinePattern = regexp.MustCompile(`^\s*<?((?:https?://)?[^\s]+)>?\s*$`)
	videoSrcPattern  = regexp.MustCompile(
		`^https://(?:www\.)?(?:youtube\.com/embed/|youtube-nocookie\.com/embed/|player\.bilibili\.com/player\.html(?:\?|$))`,
	)
	youtubeTimePattern = regexp.MustCompile(`(?i)(\d+)(h|m|s)`)
	orderedListPattern = regexp.MustCompile(`^\d+\.\s+`)
)

// newContentPolicy 在 UGC 策略之上放行视频嵌入所需的 iframe 与容器属性，
// src 仅允许匹配白名单平台的播放器地址。
func newContentPolicy() *bluemonday.Policy {
	policy := bluemonday.UGCPolicy()
	policy.AllowElements("iframe")
	policy.AllowAttrs("class", "data-video-platform", "data-video-source").OnElements("div")
	policy.AllowAttrs("src").Matching(videoSrcPattern).OnElements("iframe")
	policy.AllowAttrs("title", "allow", "allowfullscreen", "frameborder", "loading", "referrerpolicy", "sandbox").OnElements("iframe")
	return policy
}

type videoEmbed struct {
	platform string
	source   string
	embedURL string
}

// embedVideoLinks 扫描 Markdown 文本，把独占一行的视频链接替换为嵌入块。
// 代码块、引用、列表内的链接保持原样。
func embedVideoLinks(markdown string) string {
	if strings.TrimSpace(markdown) == "" {
		return markdown
	}

	lines := strings.Split(markdown, "\n")
	inFence := false

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
			continue
		}
		if inFence || skipVideoLine(line, trimmed) {
			continue
		}

		match := videoLinePattern.FindStringSubmatch(trimmed)
		if match == nil {
			continue
		}

		embed, ok := parseVideoLink(strings.TrimSpace(match[1]))
		if !ok {
			continue
		}
		lines[i] = renderVideoEmbed(embed)
	}

	return strings.Join(lines, "\n")
}

func skipVideoLine(raw, trimmed string) bool {
	if trimmed == "" {
		return true
	}
	// 缩进代码块
	if strings.HasPrefix(raw, "    ") || strings.HasPrefix(raw, "\t") {
		return true
	}
	if strings.HasPrefix(trimmed, ">") {
		return true
	}
	if strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* ") || strings.HasPrefix(trimmed, "+ ") {
		return true
	}
	return orderedListPattern.MatchString(trimmed)
}

func parseVideoLink(raw string) (videoEmbed, bool) {
	trimmed := strings.TrimPrefix(raw, "<")
	trimmed = strings.TrimSuffix(trimmed, ">")
	if !strings.Contains(strings.ToLower(trimmed), "://") {
		if hasKnownVideoHost(trimmed) {
			trimmed = "https://" + trimmed
		}
	}

	parsed, err := url.Parse(trimmed)
	if err != nil || parsed == nil {
		return videoEmbed{}, false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return videoEmbed{}, false
	}

	if embed, ok := parseYouTubeLink(parsed, trimmed); ok {
		return embed, true
	}
	if embed, ok := parseBilibiliLink(parsed, trimmed); ok {
		return embed, true
	}
	return videoEmbed{}, false
}

func hasKnownVideoHost(raw string) bool {
	lower := strings.ToLower(raw)
	for _, prefix := range []string{
		"youtube.com/", "www.youtube.com/", "youtu.be/",
		"bilibili.com/", "www.bilibili.com/",
	} {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

func parseYouTubeLink(u *url.URL, source string) (videoEmbed, bool) {
	host := strings.ToLower(u.Hostname())
	var videoID string

	switch {
	case host == "youtu.be":
		videoID = firstPathSegment(u.Path)
	case hostMatches(host, "youtube.com"):
		path := strings.Trim(u.Path, "/")
		switch {
		case path == "watch":
			videoID = u.Query().Get("v")
		case strings.HasPrefix(path, "shorts/"):
			videoID = firstPathSegment(strings.TrimPrefix(path, "shorts/"))
		case strings.HasPrefix(path, "embed/"):
			videoID = firstPathSegment(strings.TrimPrefix(path, "embed/"))
		case strings.HasPrefix(path, "live/"):
			videoID = firstPathSegment(strings.TrimPrefix(path, "live/"))
		}
	default:
		return videoEmbed{}, false
	}

	if videoID == "" {
		return videoEmbed{}, false
	}

	values := url.Values{}
	values.Set("rel", "0")
	values.Set("modestbranding", "1")
	values.Set("playsinline", "1")
	if start := youtubeStartSeconds(u); start > 0 {
		values.Set("start", strconv.Itoa(start))
	}

	return videoEmbed{
		platform: "youtube",
		source:   source,
		embedURL: fmt.Sprintf("https://www.youtube.com/embed/%s?%s", videoID, values.Encode()),
	}, true
}

// youtubeStartSeconds 解析 start/t 参数，t 支持 1h2m3s 形式。
func youtubeStartSeconds(u *url.URL) int {
	value := u.Query().Get("start")
	if value == "" {
		value = u.Query().Get("t")
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds > 0 {
			return seconds
		}
		return 0
	}

	total := 0
	for _, match := range youtubeTimePattern.FindAllStringSubmatch(value, -1) {
		n, err := strconv.Atoi(match[1])
		if err != nil || n <= 0 {
			continue
		}
		switch strings.ToLower(match[2]) {
		case "h":
			total += n * 3600
		case "m":
			total += n * 60
		case "s":
			total += n
		}
	}
	return total
}

func parseBilibiliLink(u *url.URL, source string) (videoEmbed, bool) {
	if !hostMatches(strings.ToLower(u.Hostname()), "bilibili.com") {
		return videoEmbed{}, false
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) < 2 || segments[0] != "video" || segments[1] == "" {
		return videoEmbed{}, false
	}
	rawID := segments[1]

	values := url.Values{}
	switch lower := strings.ToLower(rawID); {
	case strings.HasPrefix(lower, "bv"):
		values.Set("bvid", rawID)
	case strings.HasPrefix(lower, "av"):
		values.Set("aid", strings.TrimPrefix(lower, "av"))
	default:
		return videoEmbed{}, false
	}
	if page := u.Query().Get("p"); page != "" {
		if n, err := strconv.Atoi(page); err == nil && n > 1 {
			values.Set("page", strconv.Itoa(n))
		}
	}
	values.Set("high_quality", "1")
	values.Set("danmaku", "0")
	values.Set("autoplay", "0")

	return videoEmbed{
		platform: "bilibili",
		source:   source,
		embedURL: "https://player.bilibili.com/player.html?" + values.Encode(),
	}, true
}

func renderVideoEmbed(embed videoEmbed) string {
	sandbox := ""
	if embed.platform == "bilibili" {
		sandbox = ` sandbox="allow-scripts allow-same-origin allow-presentation"`
	}
	title := "视频播放器"
	switch embed.platform {
	case "youtube":
		title = "YouTube 视频播放器"
	case "bilibili":
		title = "B 站视频播放器"
	}

	return fmt.Sprintf(
		`<div class="video-embed" data-video-platform="%s" data-video-source="%s">`+
			`<iframe src="%s" title="%s" loading="lazy" allow="encrypted-media; picture-in-picture; web-share" allowfullscreen frameborder="0" referrerpolicy="strict-origin-when-cross-origin"%s></iframe>`+
			`</div>`,
		htmlstd.EscapeString(embed.platform),
		htmlstd.EscapeString(embed.source),
		htmlstd.EscapeString(embed.embedURL),
		title,
		sandbox,
	)
}

func firstPathSegment(path string) string {
	trimmed := strings.Trim(path, "/")
	if idx := strings.IndexByte(trimmed, '/'); idx >= 0 {
		return trimmed[:idx]
	}
	return trimmed
}

func hostMatches(host, domain string) bool {
	return host == domain || strings.HasSuffix(host, "."+domain)
}

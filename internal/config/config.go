package config

import (
	"fmt"
	"os"
	"strings"
)

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	ListenAddr        string
	Port              string
	DataDir           string
	AdminAPIToken     string
	GinMode           string
	UploadDir         string
	UploadURLPath     string
	SchedulerTickSpec string
	TopicsPath        string
}

// Load 从环境变量读取应用配置，并为缺失项提供安全的默认值。
func Load() AppConfig {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	listenAddr := strings.TrimSpace(os.Getenv("LISTEN_ADDR"))
	if listenAddr == "" {
		listenAddr = fmt.Sprintf(":%s", port)
	}

	dataDir := strings.TrimSpace(os.Getenv("DATA_DIR"))
	if dataDir == "" {
		dataDir = "data"
	}

	ginMode := strings.TrimSpace(os.Getenv("GIN_MODE"))
	if ginMode == "" {
		ginMode = "release"
	}

	uploadDir := strings.TrimSpace(os.Getenv("UPLOAD_DIR"))
	if uploadDir == "" {
		uploadDir = "web/static/uploads"
	}

	uploadURLPath := strings.TrimSpace(os.Getenv("UPLOAD_URL_PATH"))
	if uploadURLPath == "" {
		uploadURLPath = "/static/uploads"
	}

	tickSpec := strings.TrimSpace(os.Getenv("SCHEDULER_TICK_SPEC"))
	if tickSpec == "" {
		tickSpec = "@every 1m"
	}

	topicsPath := strings.TrimSpace(os.Getenv("TOPICS_PATH"))
	if topicsPath == "" {
		topicsPath = "topics.yaml"
	}

	adminAPIToken := strings.TrimSpace(os.Getenv("ADMIN_API_TOKEN"))

	return AppConfig{
		ListenAddr:        listenAddr,
		Port:              port,
		DataDir:           dataDir,
		AdminAPIToken:     adminAPIToken,
		GinMode:           ginMode,
		UploadDir:         uploadDir,
		UploadURLPath:     uploadURLPath,
		SchedulerTickSpec: tickSpec,
		TopicsPath:        topicsPath,
	}
}

package app

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string

	// MongoURI may be empty, in which case download history is disabled.
	MongoURI      string
	MongoDatabase string

	YtDlpPath   string
	FFMPEGPath  string
	FFProbePath string

	// MaxFileSizeMB caps the fetched source file in normal mode.
	MaxFileSizeMB int64
	// FallbackFileSizeMB caps it in fallback mode. Defaults to 5x normal.
	FallbackFileSizeMB int64
	// UploadLimitMB is the hard ceiling the final artifact must fit.
	UploadLimitMB int64

	// MinFreeDiskMB pauses admission of new tasks when free space on the
	// workspace filesystem drops below it.
	MinFreeDiskMB int64

	// Allowlist is a comma-separated list of permitted sites.
	Allowlist string

	RateLimitRPS   float64
	RateLimitBurst int
}

func LoadConfig() Config {
	maxSize := getEnvInt64("MAX_FILESIZE_MB", 200)
	return Config{
		HTTPAddr:           getEnv("HTTP_ADDR", ":8080"),
		LogLevel:           strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:          strings.ToLower(getEnv("LOG_FORMAT", "text")),
		MongoURI:           getEnv("MONGO_URI", ""),
		MongoDatabase:      getEnv("MONGO_DB", "clipstream"),
		YtDlpPath:          getEnv("YTDLP_PATH", "yt-dlp"),
		FFMPEGPath:         getEnv("FFMPEG_PATH", "ffmpeg"),
		FFProbePath:        getEnv("FFPROBE_PATH", "ffprobe"),
		MaxFileSizeMB:      maxSize,
		FallbackFileSizeMB: getEnvInt64("FALLBACK_FILESIZE_MB", maxSize*5),
		UploadLimitMB:      getEnvInt64("UPLOAD_LIMIT_MB", 50),
		MinFreeDiskMB:      getEnvInt64("MIN_FREE_DISK_MB", 1024),
		Allowlist:          getEnv("ALLOWLIST", ""),
		RateLimitRPS:       getEnvFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst:     int(getEnvInt64("RATE_LIMIT_BURST", 20)),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	if parsed < 0 {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}

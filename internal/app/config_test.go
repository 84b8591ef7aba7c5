package app

import "testing"

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()

	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "text" {
		t.Errorf("log defaults = %q/%q, want info/text", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.MongoURI != "" {
		t.Errorf("MongoURI = %q, want empty (history disabled)", cfg.MongoURI)
	}
	if cfg.MaxFileSizeMB != 200 {
		t.Errorf("MaxFileSizeMB = %d, want 200", cfg.MaxFileSizeMB)
	}
	if cfg.FallbackFileSizeMB != 1000 {
		t.Errorf("FallbackFileSizeMB = %d, want 5x the normal cap (1000)", cfg.FallbackFileSizeMB)
	}
	if cfg.UploadLimitMB != 50 {
		t.Errorf("UploadLimitMB = %d, want 50", cfg.UploadLimitMB)
	}
	if cfg.YtDlpPath != "yt-dlp" || cfg.FFMPEGPath != "ffmpeg" || cfg.FFProbePath != "ffprobe" {
		t.Errorf("tool paths = %q/%q/%q, want binaries resolved from PATH",
			cfg.YtDlpPath, cfg.FFMPEGPath, cfg.FFProbePath)
	}
	if cfg.RateLimitRPS != 10 || cfg.RateLimitBurst != 20 {
		t.Errorf("rate limit = %v/%d, want 10/20", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("MAX_FILESIZE_MB", "100")
	t.Setenv("UPLOAD_LIMIT_MB", "25")
	t.Setenv("ALLOWLIST", "youtube.com,tiktok.com")

	cfg := LoadConfig()

	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q, want :9090", cfg.HTTPAddr)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug (lowercased)", cfg.LogLevel)
	}
	if cfg.MaxFileSizeMB != 100 {
		t.Errorf("MaxFileSizeMB = %d, want 100", cfg.MaxFileSizeMB)
	}
	if cfg.FallbackFileSizeMB != 500 {
		t.Errorf("FallbackFileSizeMB = %d, want 500 (follows the overridden cap)", cfg.FallbackFileSizeMB)
	}
	if cfg.UploadLimitMB != 25 {
		t.Errorf("UploadLimitMB = %d, want 25", cfg.UploadLimitMB)
	}
	if cfg.Allowlist != "youtube.com,tiktok.com" {
		t.Errorf("Allowlist = %q", cfg.Allowlist)
	}
}

func TestLoadConfigRejectsInvalidNumbers(t *testing.T) {
	t.Setenv("MAX_FILESIZE_MB", "not-a-number")
	t.Setenv("UPLOAD_LIMIT_MB", "-5")
	t.Setenv("RATE_LIMIT_RPS", "-1")

	cfg := LoadConfig()

	if cfg.MaxFileSizeMB != 200 {
		t.Errorf("MaxFileSizeMB = %d, want the 200 fallback", cfg.MaxFileSizeMB)
	}
	if cfg.UploadLimitMB != 50 {
		t.Errorf("UploadLimitMB = %d, want the 50 fallback", cfg.UploadLimitMB)
	}
	if cfg.RateLimitRPS != 10 {
		t.Errorf("RateLimitRPS = %v, want the 10 fallback", cfg.RateLimitRPS)
	}
}

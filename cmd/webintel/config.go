package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fwojciec/webintel"
	"github.com/fwojciec/webintel/crawl"
)

// Config holds settings shared by all commands. Every field can be set with
// a flag or a WEB_INTEL_* environment variable, including from a .env file.
type Config struct {
	LLMBackend  string  `name:"llm-backend" env:"WEB_INTEL_LLM_BACKEND" enum:"ollama,openai,gemini" default:"ollama" help:"Language model backend (ollama, openai, gemini)"`
	LLMHost     string  `name:"llm-host" env:"WEB_INTEL_LLM_HOST,WEB_INTEL_OLLAMA_HOST" help:"LLM server URL (default depends on the backend)"`
	LLMModel    string  `name:"llm-model" env:"WEB_INTEL_LLM_MODEL,WEB_INTEL_OLLAMA_MODEL" help:"Model name (default depends on the backend)"`
	LLMAPIKey   string  `name:"llm-api-key" env:"WEB_INTEL_LLM_API_KEY,GEMINI_API_KEY,OPENAI_API_KEY" help:"API key for hosted backends"`
	Temperature float64 `name:"temperature" env:"WEB_INTEL_AGENT_TEMPERATURE" default:"0.7" help:"Sampling temperature (0-2)"`

	CrawlerBackend     string        `name:"crawler-backend" env:"WEB_INTEL_CRAWLER_TYPE" enum:"http,rod" default:"http" help:"Page fetcher (http, or rod for JavaScript-rendered sites)"`
	CrawlerTimeout     time.Duration `name:"crawler-timeout" env:"WEB_INTEL_CRAWLER_TIMEOUT" default:"30s" help:"Timeout for each page fetch"`
	CrawlerMaxDepth    int           `name:"crawler-max-depth" env:"WEB_INTEL_CRAWLER_MAX_DEPTH" default:"5" help:"Largest depth a crawl may request (0-10)"`
	CrawlerConcurrency int           `name:"crawler-concurrency" env:"WEB_INTEL_CRAWLER_CONCURRENCY" default:"5" help:"Concurrent fetches per depth level"`
	CrawlerRateLimit   float64       `name:"crawler-rate-limit" env:"WEB_INTEL_CRAWLER_RATE_LIMIT" default:"2" help:"Requests per second per host (0 disables)"`
	CrawlerRetries     int           `name:"crawler-retries" env:"WEB_INTEL_CRAWLER_RETRIES" default:"2" help:"Retries for failed fetches"`
	Extractor          string        `name:"extractor" env:"WEB_INTEL_EXTRACTOR" enum:"trafilatura,readability" default:"trafilatura" help:"Main content extractor"`
	ChromePath         string        `name:"chrome-path" env:"WEB_INTEL_CHROME_PATH" help:"Chrome binary for the rod backend (default: found or downloaded by go-rod)"`

	StorageBackend string `name:"storage-backend" env:"WEB_INTEL_STORAGE_TYPE" enum:"file,sqlite" default:"file" help:"Where sessions are stored (file, sqlite)"`
	StoragePath    string `name:"storage-path" env:"WEB_INTEL_STORAGE_PATH" default:"./data" help:"Root directory for crawl results and sessions"`

	MaxContextTokens int     `name:"max-context-tokens" env:"WEB_INTEL_MAX_CONTEXT_LENGTH" default:"4000" help:"Token budget for each prompt"`
	SourceFraction   float64 `name:"source-fraction" env:"WEB_INTEL_SOURCE_FRACTION" default:"0.6" help:"Share of the budget reserved for source content"`
	Tokenizer        string  `name:"tokenizer" env:"WEB_INTEL_TOKENIZER" enum:"chars,tiktoken,gemini" default:"chars" help:"Token estimator (chars, tiktoken, gemini)"`

	LogLevel string `name:"log-level" env:"WEB_INTEL_LOG_LEVEL" enum:"debug,info,warn,error" default:"warn" help:"Log level (debug, info, warn, error)"`
}

// Validate checks ranges that flag parsing cannot express.
func (c *Config) Validate() error {
	if c.Temperature < 0 || c.Temperature > 2 {
		return webintel.Errorf(webintel.EINVALID, "temperature must be between 0 and 2, got %g", c.Temperature)
	}
	if c.CrawlerTimeout <= 0 {
		return webintel.Errorf(webintel.EINVALID, "crawler timeout must be positive, got %s", c.CrawlerTimeout)
	}
	if c.CrawlerMaxDepth < 0 || c.CrawlerMaxDepth > 10 {
		return webintel.Errorf(webintel.EINVALID, "crawler max depth must be between 0 and 10, got %d", c.CrawlerMaxDepth)
	}
	if c.CrawlerConcurrency < 1 {
		return webintel.Errorf(webintel.EINVALID, "crawler concurrency must be at least 1, got %d", c.CrawlerConcurrency)
	}
	if c.CrawlerRateLimit < 0 {
		return webintel.Errorf(webintel.EINVALID, "crawler rate limit must not be negative, got %g", c.CrawlerRateLimit)
	}
	if c.CrawlerRetries < 0 {
		return webintel.Errorf(webintel.EINVALID, "crawler retries must not be negative, got %d", c.CrawlerRetries)
	}
	if c.MaxContextTokens < 100 {
		return webintel.Errorf(webintel.EINVALID, "max context tokens must be at least 100, got %d", c.MaxContextTokens)
	}
	if c.SourceFraction <= 0 || c.SourceFraction > 1 {
		return webintel.Errorf(webintel.EINVALID, "source fraction must be in (0, 1], got %g", c.SourceFraction)
	}
	if c.StoragePath == "" {
		return webintel.Errorf(webintel.EINVALID, "storage path required")
	}
	return nil
}

// Level returns the slog level named by LogLevel.
func (c *Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	}
	return slog.LevelWarn
}

// RetryDelays returns exponential backoff delays for CrawlerRetries retries.
func (c *Config) RetryDelays() []time.Duration {
	return crawl.RetryDelays(c.CrawlerRetries)
}

// StorageRoot returns StoragePath as an absolute path, creating it if needed.
func (c *Config) StorageRoot() (string, error) {
	root, err := filepath.Abs(c.StoragePath)
	if err != nil {
		return "", webintel.Errorf(webintel.EINVALID, "invalid storage path %q: %v", c.StoragePath, err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", webintel.Errorf(webintel.ESTORAGE, "cannot create storage directory %s: %v", root, err)
	}
	return root, nil
}

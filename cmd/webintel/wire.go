package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fwojciec/webintel"
	"github.com/fwojciec/webintel/chat"
	"github.com/fwojciec/webintel/crawl"
	"github.com/fwojciec/webintel/fs"
	"github.com/fwojciec/webintel/gemini"
	"github.com/fwojciec/webintel/goquery"
	"github.com/fwojciec/webintel/htmltomarkdown"
	webhttp "github.com/fwojciec/webintel/http"
	"github.com/fwojciec/webintel/ollama"
	"github.com/fwojciec/webintel/openai"
	"github.com/fwojciec/webintel/readability"
	"github.com/fwojciec/webintel/rod"
	wslog "github.com/fwojciec/webintel/slog"
	"github.com/fwojciec/webintel/sqlite"
	"github.com/fwojciec/webintel/tiktoken"
	"github.com/fwojciec/webintel/trafilatura"
)

// sqliteFile is the database file name under the storage root.
const sqliteFile = "webintel.db"

// wire constructs the services the named command needs.
func (m *Main) wire(ctx context.Context, command string, cfg *Config, deps *Dependencies) error {
	switch command {
	case "version":
		return nil
	}

	root, err := cfg.StorageRoot()
	if err != nil {
		return err
	}
	deps.Reports = fs.NewReportStore(root)

	switch command {
	case "crawl":
		crawler, err := m.newCrawler(cfg, deps)
		if err != nil {
			return err
		}
		deps.Crawler = crawler

	case "sessions":
		sessions, err := m.newSessionStore(cfg, root, deps)
		if err != nil {
			return err
		}
		deps.Sessions = sessions

	case "ask", "chat":
		sessions, err := m.newSessionStore(cfg, root, deps)
		if err != nil {
			return err
		}
		completer, err := newCompleter(ctx, cfg)
		if err != nil {
			return err
		}
		counter, err := newTokenCounter(cfg)
		if err != nil {
			return err
		}
		deps.Sessions = sessions
		deps.Completer = wslog.NewLoggingCompleter(completer, deps.Logger)
		deps.Asker = &chat.Conversation{
			Reports:     deps.Reports,
			Sessions:    deps.Sessions,
			Completer:   deps.Completer,
			Window:      chat.NewWindow(counter, cfg.SourceFraction),
			Model:       cfg.LLMModel,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxContextTokens,
		}
	}
	return nil
}

func (m *Main) newCrawler(cfg *Config, deps *Dependencies) (*crawl.Crawler, error) {
	fetcher, err := newFetcher(cfg)
	if err != nil {
		return nil, err
	}
	m.closers = append(m.closers, fetcher)

	parser := goquery.NewParser()
	pipeline := &crawl.Pipeline{
		Fetcher:   wslog.NewLoggingFetcher(fetcher, deps.Logger),
		Links:     parser,
		Extractor: newExtractor(cfg),
		Fallback:  parser,
		Converter: htmltomarkdown.NewConverter(),
	}

	crawler := &crawl.Crawler{
		Pages:        wslog.NewLoggingPageFetcher(pipeline, deps.Logger),
		Concurrency:  cfg.CrawlerConcurrency,
		FetchTimeout: cfg.CrawlerTimeout,
		RetryDelays:  cfg.RetryDelays(),
		Logger: func(format string, args ...any) {
			deps.Logger.Info(fmt.Sprintf(format, args...))
		},
	}
	if cfg.CrawlerRateLimit > 0 {
		crawler.RateLimiter = crawl.NewDomainLimiter(cfg.CrawlerRateLimit)
	}
	return crawler, nil
}

func newFetcher(cfg *Config) (webintel.Fetcher, error) {
	if cfg.CrawlerBackend == "rod" {
		return rod.NewFetcher(rod.WithFetchTimeout(cfg.CrawlerTimeout), rod.WithBrowserBin(cfg.ChromePath))
	}
	return webhttp.NewFetcher(webhttp.WithTimeout(cfg.CrawlerTimeout)), nil
}

func newExtractor(cfg *Config) webintel.Extractor {
	if cfg.Extractor == "readability" {
		return readability.NewExtractor()
	}
	return trafilatura.NewExtractor()
}

func (m *Main) newSessionStore(cfg *Config, root string, deps *Dependencies) (webintel.SessionStore, error) {
	var store webintel.SessionStore
	if cfg.StorageBackend == "sqlite" {
		db := sqlite.NewDB(filepath.Join(root, sqliteFile))
		if err := db.Open(); err != nil {
			return nil, webintel.Errorf(webintel.ESTORAGE, "cannot open session database in %s: %v", root, err)
		}
		m.closers = append(m.closers, db)
		store = sqlite.NewSessionStore(db)
	} else {
		store = fs.NewSessionStore(root)
	}
	return wslog.NewLoggingSessionStore(store, deps.Logger), nil
}

func newCompleter(ctx context.Context, cfg *Config) (webintel.Completer, error) {
	switch cfg.LLMBackend {
	case "openai":
		return openai.NewCompleter(cfg.LLMHost, cfg.LLMAPIKey, cfg.LLMModel), nil
	case "gemini":
		client, err := gemini.NewClient(ctx, cfg.LLMAPIKey)
		if err != nil {
			return nil, err
		}
		return gemini.NewCompleter(client), nil
	}
	return ollama.NewCompleter(cfg.LLMHost), nil
}

func newTokenCounter(cfg *Config) (webintel.TokenCounter, error) {
	switch cfg.Tokenizer {
	case "tiktoken":
		return tiktoken.NewTokenCounter(tiktoken.DefaultEncoding)
	case "gemini":
		model := cfg.LLMModel
		if cfg.LLMBackend != "gemini" {
			model = gemini.DefaultModel
		}
		return gemini.NewTokenCounter(model)
	}
	return webintel.CharCounter{}, nil
}

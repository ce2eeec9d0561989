package main

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/fwojciec/webintel"
	"github.com/fwojciec/webintel/crawl"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx    context.Context
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Config *Config
	Logger *slog.Logger

	Crawler   *crawl.Crawler
	Reports   webintel.ReportStore
	Sessions  webintel.SessionStore
	Completer webintel.Completer
	Asker     webintel.Asker

	// Terminal is true when stderr is a terminal; enables the spinner.
	Terminal bool

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

func (d *Dependencies) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Config `embed:""`

	Crawl    CrawlCmd    `cmd:"" help:"Crawl a website and save the result"`
	Ask      AskCmd      `cmd:"" help:"Ask a question about crawled content"`
	Chat     ChatCmd     `cmd:"" help:"Start an interactive conversation about crawled content"`
	Sessions SessionsCmd `cmd:"" help:"List stored conversation sessions"`
	Show     ShowCmd     `cmd:"" help:"Show a summary of a crawl result"`
	Version  VersionCmd  `cmd:"" help:"Print version information"`
}

// CrawlCmd is the "crawl" subcommand.
type CrawlCmd struct {
	URL         string   `arg:"" help:"URL to start crawling from"`
	Depth       int      `short:"d" default:"1" help:"Link depth to follow from the start page"`
	Output      string   `short:"o" type:"path" help:"Output file (default: generated under the storage root)"`
	Format      string   `short:"f" enum:"markdown,json" default:"markdown" help:"Output format (markdown, json)"`
	SameOrigin  bool     `name:"same-origin" help:"Only follow links on the start URL's host"`
	Include     []string `short:"i" help:"Only follow URLs matching this regex (repeatable)"`
	Exclude     []string `short:"x" help:"Skip URLs matching this regex (repeatable)"`
	Concurrency int      `short:"c" help:"Concurrent fetches per level (default: --crawler-concurrency)"`
	MaxPages    int      `name:"max-pages" default:"1000" help:"Stop after this many pages"`
}

// AskCmd is the "ask" subcommand.
type AskCmd struct {
	Question string `arg:"" help:"Question to ask about the content"`
	Source   string `short:"s" required:"" type:"path" help:"Crawl result or text file to ask about"`
	Session  string `help:"Session ID; continues the conversation and records this exchange"`
	Model    string `short:"m" help:"Model to use instead of the configured one"`
	Stream   bool   `help:"Print the answer as it is generated"`
}

// ChatCmd is the "chat" subcommand.
type ChatCmd struct {
	Source  string `short:"s" required:"" type:"path" help:"Crawl result or text file to ask about"`
	Session string `help:"Session ID (default: session_<timestamp>)"`
	Model   string `short:"m" help:"Model to use instead of the configured one"`
}

// SessionsCmd is the "sessions" subcommand.
type SessionsCmd struct{}

// ShowCmd is the "show" subcommand.
type ShowCmd struct {
	Source  string `arg:"" type:"path" help:"Crawl result file"`
	Full    bool   `help:"Print the content of every page"`
	Outline int    `help:"Print each page's headings down to this level (1-6)"`
}

// VersionCmd is the "version" subcommand.
type VersionCmd struct{}

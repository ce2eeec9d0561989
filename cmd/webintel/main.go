package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	charmlog "github.com/charmbracelet/log"
	"github.com/fwojciec/webintel"
	"github.com/mattn/go-isatty"
	"github.com/subosito/gotenv"
)

// Build information, set with -ldflags.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Variables already set in the environment win over .env entries.
	_ = gotenv.Load()

	m := NewMain()
	m.Terminal = isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())

	err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	m.Close()
	if err != nil {
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// Stdin is read by the interactive chat command.
	Stdin io.Reader

	// Terminal enables the spinner while waiting for answers.
	Terminal bool

	closers []io.Closer
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{Stdin: os.Stdin}
}

// Close releases resources opened by Run, most recent first.
func (m *Main) Close() error {
	var errs []error
	for i := len(m.closers) - 1; i >= 0; i-- {
		errs = append(errs, m.closers[i].Close())
	}
	m.closers = nil
	return errors.Join(errs...)
}

// Run executes the CLI with the given arguments. Errors are reported on
// stderr before they are returned.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	deps := &Dependencies{
		Ctx:      ctx,
		Stdin:    m.Stdin,
		Stdout:   stdout,
		Stderr:   stderr,
		Terminal: m.Terminal,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("webintel"),
		kong.Description("Crawl websites and ask questions about them with a language model."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}), // Don't exit on help
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		err := fmt.Errorf("no command specified. Run 'webintel --help' to see available commands")
		fmt.Fprintf(stderr, "error: %v\n", err)
		return err
	}
	if args[0] == "help" || args[0] == "--help" || args[0] == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return err
	}

	cfg := &cli.Config
	if err := cfg.Validate(); err != nil {
		return reportError(deps, err, "check the flag or WEB_INTEL_* variable named above")
	}
	deps.Config = cfg
	deps.Logger = newLogger(stderr, cfg.Level())

	command := strings.Fields(kongCtx.Command())[0]
	if err := m.wire(ctx, command, cfg, deps); err != nil {
		return reportError(deps, err, hintFor(err, cfg))
	}

	return kongCtx.Run(deps)
}

// newLogger returns a slog.Logger writing human-readable lines to w.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	handler := charmlog.NewWithOptions(w, charmlog.Options{
		Level:           charmlog.Level(level),
		ReportTimestamp: true,
		Prefix:          "webintel",
	})
	return slog.New(handler)
}

// reportError prints err with an optional hint and returns it.
func reportError(deps *Dependencies, err error, hint string) error {
	fmt.Fprintf(deps.Stderr, "error: %s\n", webintel.ErrorMessage(err))
	if hint != "" {
		fmt.Fprintf(deps.Stderr, "hint: %s\n", hint)
	}
	return err
}

// hintFor suggests the next step for common failures.
func hintFor(err error, cfg *Config) string {
	switch webintel.ErrorCode(err) {
	case webintel.EUNAVAILABLE:
		if cfg != nil && cfg.LLMBackend == "ollama" {
			return "start the LLM backend with `ollama serve`, or set --llm-host"
		}
		return "start the LLM backend or check --llm-host and --llm-api-key"
	case webintel.ENOTFOUND:
		return "check the path, or run `webintel crawl <url>` first"
	case webintel.ENOMODEL:
		if cfg != nil && cfg.LLMBackend == "ollama" {
			return "download the model with `ollama pull <model>`, or pick another with -m"
		}
		return "check the model name given with -m or --llm-model"
	case webintel.ECONFLICT:
		return "use a new --session id for a different source"
	case webintel.ECRAWLFAILED:
		return "check the URL in a browser; for JavaScript-heavy sites try --crawler-backend rod"
	case webintel.ESTORAGE:
		return "check permissions on --storage-path"
	case webintel.ETIMEOUT:
		return "increase --crawler-timeout or try again later"
	}
	return ""
}

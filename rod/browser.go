package rod

import (
	"fmt"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
)

// DefaultRecycleAfter is the number of rendered pages after which the
// Chrome process is replaced. Chrome's resident memory grows with every page
// and never returns to its starting level.
const DefaultRecycleAfter = 75

// chromeFlags keep pages in background tabs rendering at full speed and
// avoid /dev/shm exhaustion in containers.
var chromeFlags = []flags.Flag{
	"disable-background-timer-throttling",
	"disable-backgrounding-occluded-windows",
	"disable-renderer-backgrounding",
	"disable-dev-shm-usage",
	"disable-hang-monitor",
}

// browser owns one headless Chrome process at a time and swaps it for a
// fresh one once it has rendered its quota of pages. Safe for concurrent use.
type browser struct {
	bin   string
	quota int64

	mu       sync.Mutex
	current  *rod.Browser
	launcher *launcher.Launcher
	rendered int64
	recycles int
	closed   bool
}

func startBrowser(bin string, quota int64) (*browser, error) {
	if quota <= 0 {
		quota = DefaultRecycleAfter
	}
	b := &browser{bin: bin, quota: quota}
	current, l, err := b.launch()
	if err != nil {
		return nil, err
	}
	b.current, b.launcher = current, l
	return b, nil
}

// acquire returns the running browser, replacing it first when it has used
// up its quota. A failed replacement keeps the old process serving.
func (b *browser) acquire() (*rod.Browser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed || b.current == nil {
		return nil, fmt.Errorf("browser is not running")
	}
	if b.rendered < b.quota {
		return b.current, nil
	}

	next, l, err := b.launch()
	if err != nil {
		return b.current, nil
	}
	_ = b.current.Close()
	b.launcher.Kill()
	b.current, b.launcher = next, l
	b.rendered = 0
	b.recycles++
	return b.current, nil
}

// done counts one rendered page toward the quota.
func (b *browser) done() {
	b.mu.Lock()
	b.rendered++
	b.mu.Unlock()
}

func (b *browser) launch() (*rod.Browser, *launcher.Launcher, error) {
	l := launcher.New().Leakless(true).Headless(true)
	for _, f := range chromeFlags {
		l = l.Set(f)
	}
	if b.bin != "" {
		l = l.Bin(b.bin)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, nil, fmt.Errorf("launching chrome: %w", err)
	}
	current := rod.New().ControlURL(controlURL)
	if err := current.Connect(); err != nil {
		l.Kill()
		return nil, nil, fmt.Errorf("connecting to chrome: %w", err)
	}
	return current, l, nil
}

func (b *browser) pid() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.launcher == nil {
		return 0
	}
	return b.launcher.PID()
}

func (b *browser) recycled() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.recycles
}

// close stops Chrome. Later calls are no-ops.
func (b *browser) close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	var err error
	if b.current != nil {
		err = b.current.Close()
		b.current = nil
	}
	if b.launcher != nil {
		b.launcher.Kill()
		b.launcher = nil
	}
	return err
}

package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Houeta/offerhunt/internal/models"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// scrollSettle is how long lazy-loaded cards get after the final scroll.
const scrollSettle = 500 * time.Millisecond

// RodRenderer launches a fresh headless browser for every render.
type RodRenderer struct {
	log       *slog.Logger
	bin       string
	userAgent string

	// launched, when set, receives the pid of every browser process started.
	launched func(pid int)
}

// NewRodRenderer creates a renderer. An empty bin lets the launcher locate or download a browser.
func NewRodRenderer(log *slog.Logger, bin, userAgent string) *RodRenderer {
	return &RodRenderer{log: log, bin: bin, userAgent: userAgent}
}

// Render loads target and returns the document HTML. The page, the connection and the
// browser process are released on every return path.
func (r *RodRenderer) Render(ctx context.Context, target models.FetchTarget) ([]byte, error) {
	const op = "fetcher.RodRenderer.Render"
	log := r.log.With("op", op, "url", target.URL)

	l := launcher.New().Context(ctx).Headless(true).NoSandbox(true)
	if r.bin != "" {
		l = l.Bin(r.bin)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to launch browser: %w", op, err)
	}
	if r.launched != nil {
		r.launched(l.PID())
	}
	// Close may fail once ctx is done, so the process is killed unconditionally.
	defer func() {
		l.Kill()
		l.Cleanup()
	}()

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err = browser.Connect(); err != nil {
		return nil, fmt.Errorf("%s: failed to connect to browser: %w", op, err)
	}
	defer browser.Close() //nolint:errcheck

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("%s: failed to open page: %w", op, err)
	}
	defer page.Close() //nolint:errcheck

	if r.userAgent != "" {
		if err = page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: r.userAgent}); err != nil {
			return nil, fmt.Errorf("%s: failed to set user agent: %w", op, err)
		}
	}

	if err = page.Navigate(target.URL); err != nil {
		return nil, fmt.Errorf("%s: failed to navigate: %w", op, err)
	}
	if err = page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("%s: failed to wait for load: %w", op, err)
	}

	switch {
	case target.WaitSelector != "":
		if _, err = page.Element(target.WaitSelector); err != nil {
			return nil, fmt.Errorf("%s: wait selector %q: %w", op, target.WaitSelector, err)
		}
	case target.SettleDelay > 0:
		if err = sleep(ctx, target.SettleDelay); err != nil {
			return nil, fmt.Errorf("%s: settle delay: %w", op, err)
		}
	}

	if target.Scroll {
		if _, err = page.Eval(`() => window.scrollTo(0, document.body.scrollHeight)`); err != nil {
			return nil, fmt.Errorf("%s: failed to scroll: %w", op, err)
		}
		if err = sleep(ctx, scrollSettle); err != nil {
			return nil, fmt.Errorf("%s: scroll settle: %w", op, err)
		}
	}

	html, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read document: %w", op, err)
	}

	log.DebugContext(ctx, "Page rendered", "bytes", len(html))

	return []byte(html), nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

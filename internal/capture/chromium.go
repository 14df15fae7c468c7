package capture

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"dayschedule/internal/config"
)

// Defaults fit a portrait kiosk display.
const (
	DefaultWidth   = 1080
	DefaultHeight  = 1920
	DefaultTimeout = 30 * time.Second

	// readySelector matches the page root once the schedule is rendered.
	readySelector = `[data-ready="true"]`
)

// Options defines one screenshot of the schedule page.
type Options struct {
	// URL of the page, e.g. "http://127.0.0.1:8080/".
	URL string

	// OutputPath is where the PNG is written.
	OutputPath string

	// Width and Height are the viewport size; zero means the defaults.
	Width  int
	Height int

	// Anchor, if set, scrolls to "#<Anchor>" (e.g. "date-2024-06-21")
	// before the screenshot.
	Anchor string

	// Username and Password are sent as HTTP Basic Auth on every request
	// when Username is set.
	Username string
	Password string

	Timeout time.Duration
}

// OptionsFromConfig fills Options from the capture section, defaulting the
// URL to the local server root. Configured basic auth credentials are
// carried over so the page does not answer 401.
func OptionsFromConfig(cfg *config.Config) Options {
	url := cfg.Capture.URL
	if url == "" {
		url = "http://" + cfg.Listen + "/"
	}
	opts := Options{
		URL:        url,
		OutputPath: cfg.Capture.OutputPath,
		Width:      cfg.Capture.Width,
		Height:     cfg.Capture.Height,
	}
	if cfg.BasicAuth != nil && cfg.BasicAuth.Username != "" && cfg.BasicAuth.Password != "" {
		opts.Username = cfg.BasicAuth.Username
		opts.Password = cfg.BasicAuth.Password
	}
	return opts
}

func (o *Options) normalize() error {
	if o.URL == "" {
		return fmt.Errorf("capture: URL is required")
	}
	if o.OutputPath == "" {
		return fmt.Errorf("capture: OutputPath is required")
	}
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return nil
}

// target returns the URL to navigate to, including the anchor fragment.
func (o Options) target() string {
	if o.Anchor == "" {
		return o.URL
	}
	return o.URL + "#" + o.Anchor
}

// headers returns the extra request headers, nil without credentials.
func (o Options) headers() network.Headers {
	if o.Username == "" {
		return nil
	}
	token := base64.StdEncoding.EncodeToString([]byte(o.Username + ":" + o.Password))
	return network.Headers{"Authorization": "Basic " + token}
}

// CapturePagePNG opens the schedule page in headless Chromium, waits for the
// page root to report data-ready and writes a viewport screenshot.
func CapturePagePNG(parent context.Context, opts Options) error {
	if err := opts.normalize(); err != nil {
		return err
	}

	ctx, cancel := chromedp.NewContext(parent)
	defer cancel()
	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var png []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
	}
	if h := opts.headers(); h != nil {
		tasks = append(tasks, network.Enable(), network.SetExtraHTTPHeaders(h))
	}
	tasks = append(tasks,
		chromedp.Navigate(opts.target()),
		chromedp.WaitVisible(readySelector, chromedp.ByQuery),
		// Let the sticky headings settle after the anchor jump.
		chromedp.Sleep(300 * time.Millisecond),
		chromedp.CaptureScreenshot(&png),
	)
	if err := chromedp.Run(ctx, tasks); err != nil {
		return fmt.Errorf("capture: chromedp run failed: %w", err)
	}

	if err := os.WriteFile(opts.OutputPath, png, 0o644); err != nil {
		return fmt.Errorf("capture: failed to write PNG: %w", err)
	}
	return nil
}

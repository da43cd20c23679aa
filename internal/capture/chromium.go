package capture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	appLog "rxremind/internal/log"
)

const (
	DefaultTimeoutSec = 30

	// A4 in inches, as expected by Page.printToPDF.
	paperWidthIn  = 8.27
	paperHeightIn = 11.69
)

// PrintOptions defines a single Chromium print-to-PDF job.
type PrintOptions struct {
	// URL of the printable page, e.g.
	// "http://127.0.0.1:8080/print/prescriptions/<id>".
	URL string

	// OutputPath is where the PDF is written.
	OutputPath string

	// Timeout bounds the whole job. Zero means DefaultTimeoutSec.
	Timeout time.Duration
}

// Validate fills defaults and reports missing required fields.
func (o *PrintOptions) Validate() error {
	if o.URL == "" {
		return fmt.Errorf("capture: URL is required")
	}
	if o.OutputPath == "" {
		return fmt.Errorf("capture: OutputPath is required")
	}
	if o.Timeout <= 0 {
		o.Timeout = time.Duration(DefaultTimeoutSec) * time.Second
	}
	return nil
}

// PrintPDF loads opts.URL in headless Chromium, waits until the page marks
// itself ready with data-ready="true" and prints it to an A4 PDF.
func PrintPDF(parentCtx context.Context, opts PrintOptions) error {
	if err := opts.Validate(); err != nil {
		return err
	}

	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var pdf []byte
	tasks := chromedp.Tasks{
		chromedp.Navigate(opts.URL),
		chromedp.WaitVisible(`[data-ready="true"]`, chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(paperWidthIn).
				WithPaperHeight(paperHeightIn).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = buf
			return nil
		}),
	}

	if err := chromedp.Run(ctx, tasks); err != nil {
		return fmt.Errorf("capture: chromedp run failed: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(opts.OutputPath), 0o700); err != nil {
		return fmt.Errorf("capture: failed to create output dir: %w", err)
	}
	if err := os.WriteFile(opts.OutputPath, pdf, 0o600); err != nil {
		return fmt.Errorf("capture: failed to write PDF: %w", err)
	}

	appLog.Info("prescription printed", "path", opts.OutputPath, "bytes", len(pdf))
	return nil
}

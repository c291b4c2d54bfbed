package render

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"cv-tailor/internal/shared/chrome"
)

const chromeRenderTimeout = 60 * time.Second

// ChromedpEngine prints HTML to A4 PDF with headless Chrome.
type ChromedpEngine struct {
	ExecPath string
	Timeout  time.Duration
}

func NewChromedpEngine(execPath string) *ChromedpEngine {
	return &ChromedpEngine{ExecPath: execPath, Timeout: chromeRenderTimeout}
}

// PrintPDF writes html to a temp file, loads it and prints it with backgrounds.
func (e *ChromedpEngine) PrintPDF(ctx context.Context, html string) ([]byte, error) {
	cctx, cancel := chrome.NewContext(ctx, e.ExecPath)
	defer cancel()

	timeout := e.Timeout
	if timeout <= 0 {
		timeout = chromeRenderTimeout
	}
	runCtx, cancelRun := context.WithTimeout(cctx, timeout)
	defer cancelRun()

	tmpDir, err := os.MkdirTemp("", "cv-render-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tmpDir)

	htmlPath := filepath.Join(tmpDir, "index.html")
	if err := os.WriteFile(htmlPath, []byte(html), 0o644); err != nil {
		return nil, err
	}

	var pdf []byte
	err = chromedp.Run(runCtx,
		chromedp.Navigate("file://"+htmlPath),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			// A4: 210mm x 297mm -> 8.27in x 11.69in
			pdf, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(8.27).
				WithPaperHeight(11.69).
				WithPreferCSSPageSize(true).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, err
	}
	return pdf, nil
}

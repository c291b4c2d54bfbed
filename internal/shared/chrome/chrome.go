// Package chrome holds the headless Chrome allocator settings shared by the
// page fetcher and the PDF renderer.
package chrome

import (
	"context"
	"os"

	"github.com/chromedp/chromedp"
)

// AllocatorOptions returns exec-allocator flags for a container-friendly
// headless Chrome. execPath overrides the binary; when empty CHROME_PATH is used.
func AllocatorOptions(execPath string) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if execPath == "" {
		execPath = os.Getenv("CHROME_PATH")
	}
	if execPath != "" {
		opts = append(opts, chromedp.ExecPath(execPath))
	}
	return opts
}

// NewContext starts a browser context. The returned cancel releases the tab and the allocator.
func NewContext(ctx context.Context, execPath string) (context.Context, context.CancelFunc) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, AllocatorOptions(execPath)...)
	cctx, cancelCtx := chromedp.NewContext(allocCtx)
	return cctx, func() {
		cancelCtx()
		cancelAlloc()
	}
}

// Package pdf compiles HTML sources into a PDF document using a headless
// Chromium instance. Sources of any other layout type are passed through
// as a plain text download, since Chromium's print pipeline only makes
// sense for HTML.
package pdf

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"calingen/internal/plugin"
	"calingen/plugins/compilers/download"
)

// DefaultTimeoutSec bounds the whole Chromium print sequence.
const DefaultTimeoutSec = 60

type compiler struct{}

// Compiler is the registered provider.
var Compiler = compiler{}

func (compiler) ID() string    { return "compiler.pdf" }
func (compiler) Title() string { return "PDF Compiler" }

func (compiler) GetResponse(source string, layoutType string) (*plugin.Artifact, error) {
	if layoutType != "html" {
		return download.Build(source, layoutType), nil
	}

	pdf, err := printToPDF(context.Background(), source)
	if err != nil {
		return nil, err
	}
	return &plugin.Artifact{
		ContentType: "application/pdf",
		Filename:    "calingen.pdf",
		Body:        pdf,
	}, nil
}

// printToPDF loads the HTML document into a fresh headless Chromium tab
// and runs the browser's print pipeline on it.
func printToPDF(parentCtx context.Context, source string) ([]byte, error) {
	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, DefaultTimeoutSec*time.Second)
	defer timeoutCancel()

	var pdf []byte
	tasks := chromedp.Tasks{
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, source).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdf, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				Do(ctx)
			return err
		}),
	}

	if err := chromedp.Run(ctx, tasks); err != nil {
		return nil, fmt.Errorf("pdf: chromedp run failed: %w", err)
	}
	return pdf, nil
}

func init() {
	plugin.Compilers.MustRegister(Compiler)
}

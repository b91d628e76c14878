package browser

import (
	"context"

	"github.com/ansel1/merry"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"hdexport/pkg/printer"
)

// capture is a second DevTools client attached to a print view's target
type capture struct {
	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
}

// attachCapture connects chromedp to the browser at controlURL and attaches
// to the target with the given id
func attachCapture(ctx context.Context, controlURL, targetID string) (*capture, error) {
	allocCtx, cancelAlloc := chromedp.NewRemoteAllocator(ctx, controlURL)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithTargetID(target.ID(targetID)))

	if err := chromedp.Run(tabCtx); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, merry.Prependf(err, "browser: attach to %s", targetID)
	}
	return &capture{ctx: tabCtx, cancelTab: cancelTab, cancelAlloc: cancelAlloc}, nil
}

func (c *capture) EnablePage(ctx context.Context) error {
	if err := chromedp.Run(c.ctx, page.Enable()); err != nil {
		return merry.Prependf(err, "browser: Page.enable")
	}
	return nil
}

func (c *capture) PrintToPDF(ctx context.Context, paper printer.Paper) ([]byte, error) {
	var buf []byte
	err := chromedp.Run(c.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		buf, _, err = page.PrintToPDF().
			WithPaperWidth(paper.Width).
			WithPaperHeight(paper.Height).
			WithMarginTop(paper.MarginTop).
			WithMarginBottom(paper.MarginBottom).
			WithMarginLeft(paper.MarginLeft).
			WithMarginRight(paper.MarginRight).
			WithPrintBackground(paper.PrintBackground).
			Do(ctx)
		return err
	}))
	if err != nil {
		return nil, merry.Prependf(err, "browser: Page.printToPDF")
	}
	if len(buf) == 0 {
		return nil, merry.New("browser: no PDF data returned")
	}
	return buf, nil
}

// Detach drops the DevTools connection; the view itself stays open
func (c *capture) Detach() error {
	c.cancelTab()
	c.cancelAlloc()
	return nil
}

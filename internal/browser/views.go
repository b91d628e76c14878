package browser

import (
	"context"

	"github.com/ansel1/merry"
	"github.com/go-rod/rod"
	"hdexport/pkg/printer"
)

// ViewHost opens print views as tabs of the session
type ViewHost struct {
	session *Session
}

// NewViewHost creates a ViewHost on s
func NewViewHost(s *Session) *ViewHost {
	return &ViewHost{session: s}
}

// Spawn implements printer.ViewHost
func (h *ViewHost) Spawn(ctx context.Context, background bool) (printer.View, error) {
	page, err := h.session.NewPage(background, false)
	if err != nil {
		return nil, err
	}
	return &view{page: page, session: h.session}, nil
}

type view struct {
	page    *rod.Page
	session *Session
}

func (v *view) ID() string {
	return string(v.page.TargetID)
}

func (v *view) Navigate(ctx context.Context, url string) error {
	if err := v.page.Context(ctx).Navigate(url); err != nil {
		return merry.Prependf(err, "browser: navigate print view")
	}
	return nil
}

func (v *view) WaitLoad(ctx context.Context) error {
	if err := v.page.Context(ctx).WaitLoad(); err != nil {
		return merry.Wrap(err)
	}
	return nil
}

func (v *view) Attach(ctx context.Context) (printer.Capture, error) {
	return attachCapture(ctx, v.session.ControlURL(), v.ID())
}

func (v *view) Close() error {
	if err := v.page.Close(); err != nil {
		return merry.Prependf(err, "browser: close print view")
	}
	return nil
}

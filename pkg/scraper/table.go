package scraper

import (
	"context"
	"slices"

	"hdexport/pkg/invoice"
)

// Selectors for the portal's invoice table
const (
	RowSelector           = ".ant-table-tbody tr[data-row-key]"
	RowKeyAttribute       = "data-row-key"
	NextSelector          = ".ant-pagination-next"
	SpinnerSelector       = ".ant-spin-spinning"
	NestedSpinnerSelector = ".ant-spin-nested-loading > div > .ant-spin"
	DisabledClass         = "ant-pagination-disabled"
)

// LoadingSelectors match any visible loading indicator
var LoadingSelectors = []string{SpinnerSelector, NestedSpinnerSelector}

// NextControl describes the pagination "next" control
type NextControl struct {
	Present      bool
	AriaDisabled string
	Classes      []string
}

// Enabled reports whether clicking the control would load another page
func (n NextControl) Enabled() bool {
	if !n.Present {
		return false
	}
	return n.AriaDisabled != "true" && !slices.Contains(n.Classes, DisabledClass)
}

// Table is the invoice list as seen through the browser
type Table interface {
	// RowKeys returns the data-row-key of every row on the current page
	RowKeys(ctx context.Context) ([]string, error)
	NextControl(ctx context.Context) (NextControl, error)
	ClickNext(ctx context.Context) error
	// Loading reports whether any loading indicator is present
	Loading(ctx context.Context) (bool, error)
}

// BatchSink receives the invoices found on one page
type BatchSink interface {
	HandleBatch(ctx context.Context, ids []invoice.Identifier) error
}

// BatchSinkFunc adapts a function to BatchSink
type BatchSinkFunc func(ctx context.Context, ids []invoice.Identifier) error

// HandleBatch calls f
func (f BatchSinkFunc) HandleBatch(ctx context.Context, ids []invoice.Identifier) error {
	return f(ctx, ids)
}

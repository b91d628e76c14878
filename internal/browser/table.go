package browser

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/ansel1/merry"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"hdexport/pkg/scraper"
)

const rowKeysJS = `(sel, attr) => JSON.stringify(
	Array.from(document.querySelectorAll(sel))
		.map((row) => row.getAttribute(attr))
		.filter((key) => !!key)
)`

const storageTokenJS = `(keys) => {
	try {
		for (const key of keys) {
			const v = localStorage.getItem(key);
			if (v) return v;
		}
		for (const key of keys) {
			const v = sessionStorage.getItem(key);
			if (v) return v;
		}
	} catch (e) {}
	return "";
}`

// TablePage is the portal's invoice list open in a tab
type TablePage struct {
	page *rod.Page
}

// NewTablePage wraps an open list page
func NewTablePage(page *rod.Page) *TablePage {
	return &TablePage{page: page}
}

// Page returns the underlying tab
func (t *TablePage) Page() *rod.Page {
	return t.page
}

// WaitRows blocks until the table shows at least one row, which happens
// once the user is signed in and the search has run
func (t *TablePage) WaitRows(ctx context.Context) error {
	if _, err := t.page.Context(ctx).Element(scraper.RowSelector); err != nil {
		return merry.Prependf(err, "browser: wait for invoice rows")
	}
	return nil
}

// RowKeys implements scraper.Table
func (t *TablePage) RowKeys(ctx context.Context) ([]string, error) {
	res, err := t.page.Context(ctx).Eval(rowKeysJS, scraper.RowSelector, scraper.RowKeyAttribute)
	if err != nil {
		return nil, merry.Prependf(err, "browser: read row keys")
	}
	var keys []string
	if err := json.Unmarshal([]byte(res.Value.Str()), &keys); err != nil {
		return nil, merry.Prependf(err, "browser: decode row keys")
	}
	return keys, nil
}

// NextControl implements scraper.Table
func (t *TablePage) NextControl(ctx context.Context) (scraper.NextControl, error) {
	has, el, err := t.page.Context(ctx).Has(scraper.NextSelector)
	if err != nil {
		return scraper.NextControl{}, merry.Prependf(err, "browser: find next control")
	}
	if !has {
		return scraper.NextControl{}, nil
	}

	ctl := scraper.NextControl{Present: true}
	if v, err := el.Attribute("aria-disabled"); err != nil {
		return ctl, merry.Wrap(err)
	} else if v != nil {
		ctl.AriaDisabled = *v
	}
	if v, err := el.Attribute("class"); err != nil {
		return ctl, merry.Wrap(err)
	} else if v != nil {
		ctl.Classes = strings.Fields(*v)
	}
	return ctl, nil
}

// ClickNext implements scraper.Table
func (t *TablePage) ClickNext(ctx context.Context) error {
	el, err := t.page.Context(ctx).Element(scraper.NextSelector)
	if err != nil {
		return merry.Prependf(err, "browser: find next control")
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return merry.Prependf(err, "browser: click next control")
	}
	return nil
}

// Loading implements scraper.Table
func (t *TablePage) Loading(ctx context.Context) (bool, error) {
	p := t.page.Context(ctx)
	for _, sel := range scraper.LoadingSelectors {
		has, _, err := p.Has(sel)
		if err != nil {
			return false, merry.Prependf(err, "browser: probe %s", sel)
		}
		if has {
			return true, nil
		}
	}
	return false, nil
}

// StorageToken implements auth.StorageReader by probing the page's
// localStorage, then sessionStorage, for the first non-empty key
func (t *TablePage) StorageToken(ctx context.Context, keys []string) (string, bool, error) {
	res, err := t.page.Context(ctx).Eval(storageTokenJS, keys)
	if err != nil {
		return "", false, merry.Prependf(err, "browser: probe storage")
	}
	token := res.Value.Str()
	return token, token != "", nil
}

package printer

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Validator checks captured bytes and returns the page count
type Validator func(data []byte) (int, error)

var disableConfigDir sync.Once

// ValidatePDF parses data with pdfcpu and returns its page count
func ValidatePDF(data []byte) (int, error) {
	if len(data) == 0 {
		return 0, fmt.Errorf("validate pdf: empty capture")
	}
	disableConfigDir.Do(api.DisableConfigDir)

	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		return 0, fmt.Errorf("validate pdf: %w", err)
	}
	if ctx.PageCount == 0 {
		return 0, fmt.Errorf("validate pdf: no pages")
	}
	return ctx.PageCount, nil
}

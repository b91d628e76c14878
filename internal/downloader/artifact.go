package downloader

import (
	"bytes"
	"context"
	"fmt"

	"github.com/beevik/etree"
	"hdexport/pkg/invoice"
)

// saveArtifact writes the detail in the first form it carries: inline XML,
// then the remote PDF, then the payload itself as indented JSON.
func (d *Downloader) saveArtifact(ctx context.Context, id invoice.Identifier, detail *invoice.Detail) (string, invoice.Kind, error) {
	kind := detail.Kind()
	name := id.Filename(kind.Extension())

	var (
		data []byte
		err  error
	)
	switch kind {
	case invoice.KindXML:
		data, err = detail.XMLContent()
		if err != nil {
			return "", kind, err
		}
		if err := checkXML(data); err != nil {
			d.logger.WarnWithFields("Inline XML is not well formed, saving as received", map[string]interface{}{
				"invoice": id.String(),
				"error":   err.Error(),
			})
		}
	case invoice.KindRemotePDF:
		data, err = d.client.Download(ctx, detail.PDFURL)
		if err != nil {
			return "", kind, fmt.Errorf("fetch pdf: %w", err)
		}
	default:
		data, err = detail.PrettyJSON()
		if err != nil {
			return "", kind, fmt.Errorf("encode json: %w", err)
		}
	}

	path, err := d.store.Save(name, bytes.NewReader(data))
	if err != nil {
		return "", kind, err
	}
	return path, kind, nil
}

func checkXML(data []byte) error {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return err
	}
	if doc.Root() == nil {
		return fmt.Errorf("document has no root element")
	}
	return nil
}

package extract

import (
	"fmt"

	"github.com/ledongthuc/pdf"
)

// pdfReader extracts page text with ledongthuc/pdf. The library panics on
// some malformed files, so the whole read is fenced with a recover that
// converts the panic into a corrupt-file error.
type pdfReader struct{}

func (pdfReader) Read(path string, budget *Budget) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parse panic: %v", r)
		}
	}()

	file, reader, err := pdf.Open(path)
	if err != nil {
		return fmt.Errorf("open pdf: %w", err)
	}
	defer file.Close()

	total := reader.NumPage()
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Pages with broken font maps are skipped, not fatal.
			continue
		}
		if budget.Add(text) {
			return nil
		}
	}
	return nil
}

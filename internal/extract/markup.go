package extract

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"golang.org/x/net/html"
)

// markupReader handles XML-ish book formats (.fb2, .opf) and standalone HTML
// by collecting character data and skipping tags.
type markupReader struct{}

func (markupReader) Read(filePath string, budget *Budget) error {
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	ext := strings.ToLower(path.Ext(filePath))
	if ext == ".html" || ext == ".htm" || ext == ".xhtml" {
		return htmlText(file, budget)
	}
	return xmlText(file, budget)
}

func xmlText(r io.Reader, budget *Budget) error {
	decoder := xml.NewDecoder(r)
	decoder.Strict = false
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			// Tolerate trailing garbage once some text was collected.
			if budget.Snippet().Words > 0 {
				return nil
			}
			return err
		}
		if data, ok := token.(xml.CharData); ok {
			if budget.Add(string(data)) {
				return nil
			}
		}
	}
}

// htmlText tokenizes HTML and folds text nodes into the budget, skipping
// script and style bodies.
func htmlText(r io.Reader, budget *Budget) error {
	tokenizer := html.NewTokenizer(r)
	skipDepth := 0
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			if errors.Is(tokenizer.Err(), io.EOF) {
				return nil
			}
			if budget.Snippet().Words > 0 {
				return nil
			}
			return tokenizer.Err()
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			if tag := string(name); tag == "script" || tag == "style" {
				skipDepth++
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if tag := string(name); (tag == "script" || tag == "style") && skipDepth > 0 {
				skipDepth--
			}
		case html.TextToken:
			if skipDepth > 0 {
				continue
			}
			if budget.Add(string(tokenizer.Text())) {
				return nil
			}
		}
	}
}

// epubReader walks an EPUB container in spine order where possible, falling
// back to alphabetical document entries for archives with a damaged OPF.
type epubReader struct{}

func (epubReader) Read(filePath string, budget *Budget) error {
	archive, err := zip.OpenReader(filePath)
	if err != nil {
		return fmt.Errorf("open epub: %w", err)
	}
	defer archive.Close()

	docs := spineDocuments(&archive.Reader)
	if len(docs) == 0 {
		docs = fallbackDocuments(&archive.Reader)
	}
	if len(docs) == 0 {
		return errors.New("epub has no document items")
	}

	for _, file := range docs {
		if err := readArchiveHTML(file, budget); err != nil {
			// A single unreadable chapter does not fail the book.
			continue
		}
		if budget.Full() {
			return nil
		}
	}
	return nil
}

type containerXML struct {
	Rootfiles []struct {
		FullPath string `xml:"full-path,attr"`
	} `xml:"rootfiles>rootfile"`
}

type opfPackage struct {
	Manifest []struct {
		ID   string `xml:"id,attr"`
		Href string `xml:"href,attr"`
	} `xml:"manifest>item"`
	Spine []struct {
		IDRef string `xml:"idref,attr"`
	} `xml:"spine>itemref"`
}

// spineDocuments resolves META-INF/container.xml -> OPF -> spine order.
func spineDocuments(archive *zip.Reader) []*zip.File {
	byName := make(map[string]*zip.File, len(archive.File))
	for _, file := range archive.File {
		byName[file.Name] = file
	}

	container, ok := byName["META-INF/container.xml"]
	if !ok {
		return nil
	}
	var parsedContainer containerXML
	if err := decodeArchiveXML(container, &parsedContainer); err != nil || len(parsedContainer.Rootfiles) == 0 {
		return nil
	}

	opfPath := parsedContainer.Rootfiles[0].FullPath
	opfFile, ok := byName[opfPath]
	if !ok {
		return nil
	}
	var pkg opfPackage
	if err := decodeArchiveXML(opfFile, &pkg); err != nil {
		return nil
	}

	hrefs := make(map[string]string, len(pkg.Manifest))
	for _, item := range pkg.Manifest {
		hrefs[item.ID] = item.Href
	}

	baseDir := path.Dir(opfPath)
	var docs []*zip.File
	for _, ref := range pkg.Spine {
		href, ok := hrefs[ref.IDRef]
		if !ok {
			continue
		}
		name := href
		if baseDir != "." {
			name = path.Join(baseDir, href)
		}
		if file, ok := byName[name]; ok {
			docs = append(docs, file)
		}
	}
	return docs
}

func fallbackDocuments(archive *zip.Reader) []*zip.File {
	var docs []*zip.File
	for _, file := range archive.File {
		switch strings.ToLower(path.Ext(file.Name)) {
		case ".xhtml", ".html", ".htm":
			docs = append(docs, file)
		}
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })
	return docs
}

func decodeArchiveXML(file *zip.File, target any) error {
	rc, err := file.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	decoder := xml.NewDecoder(rc)
	decoder.Strict = false
	return decoder.Decode(target)
}

func readArchiveHTML(file *zip.File, budget *Budget) error {
	rc, err := file.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	return htmlText(rc, budget)
}

// docxReader pulls text runs out of word/document.xml.
type docxReader struct{}

func (docxReader) Read(filePath string, budget *Budget) error {
	archive, err := zip.OpenReader(filePath)
	if err != nil {
		return fmt.Errorf("open docx: %w", err)
	}
	defer archive.Close()

	for _, file := range archive.File {
		if file.Name != "word/document.xml" {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return err
		}
		defer rc.Close()
		return xmlText(rc, budget)
	}
	return errors.New("docx missing word/document.xml")
}

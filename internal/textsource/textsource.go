// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package textsource reads the raw recognized text of an archive from the
// files the recognition step left behind: plain text dumps or PDFs with a
// text layer.
package textsource

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ErrUnsupported is returned for files that are neither text nor PDF.
var ErrUnsupported = errors.New("unsupported text source")

// Kind of a text source file.
type Kind string

const (
	KindText Kind = "text"
	KindPDF  Kind = "pdf"
)

// Encodings reported in Document.Encoding.
const (
	EncodingUTF8    = "utf-8"
	EncodingGB18030 = "gb18030"
)

// Patterns, in priority order, that Find uses to pick the text source of a
// folder.
var sourcePatterns = []string{"*.{txt,md}", "*.pdf"}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Document is the text of one source file.
type Document struct {
	Path     string
	Kind     Kind
	Encoding string
	Text     string
	Pages    int
}

// KindOf classifies path by extension.
func KindOf(path string) (Kind, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
		return KindText, true
	case ".pdf":
		return KindPDF, true
	default:
		return "", false
	}
}

// Read extracts the text of path. The text is NFKC-normalized so full-width
// digits and letters compare equal to their ASCII forms.
func Read(path string) (*Document, error) {
	kind, ok := KindOf(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Base(path))
	}
	var (
		doc *Document
		err error
	)
	switch kind {
	case KindPDF:
		doc, err = ReadPDF(path)
	default:
		doc, err = ReadText(path)
	}
	if err != nil {
		return nil, err
	}
	doc.Text = norm.NFKC.String(doc.Text)
	return doc, nil
}

// ReadText reads a plain text file. UTF-8 is assumed when the content is
// valid UTF-8, GB18030 otherwise.
func ReadText(path string) (*Document, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("error reading text file: %w", err)
	}
	text, encoding, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("error decoding %s: %w", filepath.Base(path), err)
	}
	return &Document{Path: path, Kind: KindText, Encoding: encoding, Text: text, Pages: 1}, nil
}

// Decode converts raw bytes to a string and names the encoding it used.
func Decode(data []byte) (string, string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data), EncodingUTF8, nil
	}
	out, _, err := transform.Bytes(simplifiedchinese.GB18030.NewDecoder(), data)
	if err != nil {
		return "", "", err
	}
	return string(out), EncodingGB18030, nil
}

// ReadPDF extracts the text layer of a PDF, page by page in order.
func ReadPDF(path string) (*Document, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening PDF: %w", err)
	}
	defer f.Close()

	doc := &Document{Path: path, Kind: KindPDF, Encoding: EncodingUTF8, Pages: r.NumPage()}
	pages := make([]string, 0, doc.Pages)
	for i := 1; i <= doc.Pages; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("error reading PDF page %d: %w", i, err)
		}
		if text = strings.TrimSpace(text); text != "" {
			pages = append(pages, text)
		}
	}
	doc.Text = strings.Join(pages, "\n")
	return doc, nil
}

// PageCount returns the number of pages of a PDF file.
func PageCount(path string) (int, error) {
	n, err := api.PageCountFile(path)
	if err != nil {
		return 0, fmt.Errorf("error counting PDF pages: %w", err)
	}
	return n, nil
}

// Find returns the text source of dir: the first text file in name order,
// else the first PDF. ok is false when the folder has neither.
func Find(dir string) (path string, ok bool, err error) {
	fsys := os.DirFS(dir)
	for _, pattern := range sourcePatterns {
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return "", false, fmt.Errorf("error listing %s: %w", dir, err)
		}
		if len(matches) == 0 {
			continue
		}
		sort.Strings(matches)
		return filepath.Join(dir, filepath.FromSlash(matches[0])), true, nil
	}
	return "", false, nil
}

// ReadDir reads the text source of dir. A folder without one yields an
// empty text and no error.
func ReadDir(dir string) (*Document, error) {
	path, ok, err := Find(dir)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &Document{}, nil
	}
	return Read(path)
}

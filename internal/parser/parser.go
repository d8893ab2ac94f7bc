// Package parser extracts plain text from course documents.
package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// MinTextLength is the shortest cleaned text accepted as a parse result.
const MinTextLength = 10

// ErrNoText is returned when a document yields no usable text, typically
// because it only contains images.
var ErrNoText = errors.New("No readable text found in file. Please ensure the file is not just images.")

// Service parses documents in-process.
type Service struct{}

// New returns an in-process parser.
func New() *Service {
	return &Service{}
}

// Parse extracts and cleans the text of a document. The format is chosen
// from the file name: .pdf, .pptx, or UTF-8 text for anything else.
func (s *Service) Parse(_ context.Context, fileName string, data []byte) (string, error) {
	var (
		raw string
		err error
	)
	switch strings.ToLower(filepath.Ext(strings.TrimSpace(fileName))) {
	case ".pdf":
		raw, err = pdfText(data)
		if err != nil {
			return "", fmt.Errorf("PDF parsing failed: %w", err)
		}
	case ".pptx":
		raw, err = pptxText(data)
		if err != nil {
			return "", fmt.Errorf("PPTX parsing failed: %w", err)
		}
	default:
		raw = strings.ToValidUTF8(string(data), "")
	}

	text := Clean(raw)
	if utf8.RuneCountInString(text) < MinTextLength {
		return "", ErrNoText
	}
	return text, nil
}

func pdfText(data []byte) (text string, err error) {
	// The PDF reader panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

var (
	pdfMarkerRe = regexp.MustCompile(`endstream|endobj|\d+ \d+ obj|<<|>>|stream`)
	spaceRe     = regexp.MustCompile(`\s+`)
)

// Clean removes leaked PDF structure markers and non-printable characters,
// then collapses all whitespace runs to single spaces.
func Clean(text string) string {
	if text == "" {
		return ""
	}
	text = pdfMarkerRe.ReplaceAllString(text, "")
	text = strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || r == '\n' || r == '\t' || r == '\r' {
			return r
		}
		return -1
	}, text)
	return strings.TrimSpace(spaceRe.ReplaceAllString(text, " "))
}

package parser

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"markers", "12 0 obj << /Length 5 >> stream Hello endstream endobj", "/Length 5 Hello"},
		{"whitespace", "  a\n\n\tb   c\r\n", "a b c"},
		{"control chars", "a\x00b\x07c", "abc"},
		{"unicode kept", "Привет,  мир", "Привет, мир"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean(tt.in))
		})
	}
}

func TestParsePlainText(t *testing.T) {
	s := New()

	text, err := s.Parse(context.Background(), "notes.txt", []byte("Photosynthesis converts\n\nlight energy.\xff"))
	require.NoError(t, err)
	assert.Equal(t, "Photosynthesis converts light energy.", text)

	_, err = s.Parse(context.Background(), "short.txt", []byte("  tiny \n"))
	assert.ErrorIs(t, err, ErrNoText)
}

func buildPPTX(t *testing.T, slides map[int][]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for n, paras := range slides {
		w, err := zw.Create(fmt.Sprintf("ppt/slides/slide%d.xml", n))
		require.NoError(t, err)
		body := ""
		for _, p := range paras {
			body += `<a:p><a:r><a:t>` + p + `</a:t></a:r></a:p>`
		}
		_, err = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?>`+
			`<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" `+
			`xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">`+
			`<p:cSld><p:spTree><p:sp><p:txBody>`+body+`</p:txBody></p:sp></p:spTree></p:cSld></p:sld>`)
		require.NoError(t, err)
	}
	// A non-slide part that must be ignored.
	w, err := zw.Create("ppt/presentation.xml")
	require.NoError(t, err)
	_, _ = io.WriteString(w, `<p:presentation/>`)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestParsePPTX(t *testing.T) {
	data := buildPPTX(t, map[int][]string{
		10: {"Last slide"},
		2:  {"Second slide", "with two paragraphs"},
		1:  {"Cell Biology"},
	})

	text, err := New().Parse(context.Background(), "Lecture.PPTX", data)
	require.NoError(t, err)
	assert.Equal(t, "Cell Biology Second slide with two paragraphs Last slide", text)
}

func TestParseBrokenDocuments(t *testing.T) {
	s := New()

	_, err := s.Parse(context.Background(), "broken.pptx", []byte("not a zip"))
	assert.ErrorContains(t, err, "PPTX parsing failed")

	_, err = s.Parse(context.Background(), "broken.pdf", []byte("%PDF-1.4 garbage"))
	assert.ErrorContains(t, err, "PDF parsing failed")
}

func TestClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.WriteHeader(http.StatusOK)
		case "/api/parse-file":
			f, hdr, err := r.FormFile("file")
			if err != nil {
				w.WriteHeader(http.StatusBadRequest)
				_ = json.NewEncoder(w).Encode(Result{Error: "No file uploaded"})
				return
			}
			data, _ := io.ReadAll(f)
			if hdr.Filename == "empty.pdf" {
				w.WriteHeader(http.StatusBadRequest)
				_ = json.NewEncoder(w).Encode(Result{Error: ErrNoText.Error()})
				return
			}
			_ = json.NewEncoder(w).Encode(Result{Success: true, Text: string(data), Filename: hdr.Filename, Length: len(data)})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", 0)
	ctx := context.Background()

	require.NoError(t, c.Ping(ctx))

	text, err := c.Parse(ctx, "a.pdf", []byte("extracted words"))
	require.NoError(t, err)
	assert.Equal(t, "extracted words", text)

	_, err = c.Parse(ctx, "empty.pdf", []byte("x"))
	assert.ErrorContains(t, err, "No readable text")
}

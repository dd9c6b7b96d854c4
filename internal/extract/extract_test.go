package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func buildDOCX(t *testing.T, paragraphs ...string) []byte {
	t.Helper()
	var body strings.Builder
	body.WriteString(`<?xml version="1.0" encoding="UTF-8"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, p := range paragraphs {
		body.WriteString(`<w:p><w:r><w:t>` + p + `</w:t></w:r></w:p>`)
	}
	body.WriteString(`</w:body></w:document>`)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}
	if _, err := w.Write([]byte(body.String())); err != nil {
		t.Fatalf("write entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func TestTextDOCX(t *testing.T) {
	data := buildDOCX(t, "Sara Khalid", "sara@mail.com", "", "Skills: Go, SQL")
	text, err := Text(context.Background(), data, "cv.docx")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if text != "Sara Khalid\nsara@mail.com\n\nSkills: Go, SQL" {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestTextSniffsDOCXWithoutExtension(t *testing.T) {
	data := buildDOCX(t, "Hello")
	text, err := Text(context.Background(), data, "upload")
	if err != nil || text != "Hello" {
		t.Fatalf("expected sniffed docx, got %q %v", text, err)
	}
}

func TestTextRejectsPlainZipAndLegacyDoc(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, _ := zw.Create("notes.txt")
	_, _ = w.Write([]byte("hello"))
	_ = zw.Close()

	if _, err := Text(context.Background(), buf.Bytes(), "notes.zip"); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported for zip, got %v", err)
	}
	if _, err := Text(context.Background(), []byte{0xD0, 0xCF, 0x11, 0xE0}, "old.doc"); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported for .doc, got %v", err)
	}
}

func TestTextMalformedPDFReturnsError(t *testing.T) {
	if _, err := Text(context.Background(), []byte("%PDF-1.4 garbage"), "cv.pdf"); err == nil {
		t.Fatalf("expected error for malformed pdf")
	}
}

func TestSupported(t *testing.T) {
	for name, want := range map[string]bool{"a.PDF": true, "b.docx": true, "c.txt": true, "d.doc": false, "e.png": false} {
		if Supported(name) != want {
			t.Fatalf("Supported(%q) != %v", name, want)
		}
	}
}

func TestTextRejectsOversizedInput(t *testing.T) {
	data := bytes.Repeat([]byte("a"), MaxBytes+1)
	if _, err := Text(context.Background(), data, "big.txt"); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
}

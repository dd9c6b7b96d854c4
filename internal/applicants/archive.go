package applicants

import (
	"archive/zip"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/klauspost/compress/flate"
)

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]`)

// ResumeEntryName builds "{sanitized-name}_{email}{ext}" where every
// non-alphanumeric character of the name becomes "_".
func ResumeEntryName(name, email, originalFile string) string {
	return nonAlnum.ReplaceAllString(name, "_") + "_" + email + filepath.Ext(originalFile)
}

type archiveEntry struct {
	name string
	body io.ReadCloser
}

// ResumeArchive is a set of opened résumé files ready to be zipped.
// Callers must Close it whether or not WriteTo is called.
type ResumeArchive struct {
	entries []archiveEntry
}

// Len is the number of files in the archive.
func (a *ResumeArchive) Len() int { return len(a.entries) }

// Names lists entry names in archive order.
func (a *ResumeArchive) Names() []string {
	out := make([]string, len(a.entries))
	for i, e := range a.entries {
		out[i] = e.name
	}
	return out
}

func (a *ResumeArchive) add(name string, body io.ReadCloser) {
	unique := name
	for n := 2; a.has(unique); n++ {
		ext := filepath.Ext(name)
		unique = fmt.Sprintf("%s_%d%s", strings.TrimSuffix(name, ext), n, ext)
	}
	a.entries = append(a.entries, archiveEntry{name: unique, body: body})
}

func (a *ResumeArchive) has(name string) bool {
	for _, e := range a.entries {
		if e.name == name {
			return true
		}
	}
	return false
}

// WriteTo streams a deflate ZIP at best compression.
func (a *ResumeArchive) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	zw := zip.NewWriter(cw)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})
	for _, e := range a.entries {
		fw, err := zw.CreateHeader(&zip.FileHeader{Name: e.name, Method: zip.Deflate})
		if err != nil {
			return cw.n, fmt.Errorf("zip entry %s: %w", e.name, err)
		}
		if _, err := io.Copy(fw, e.body); err != nil {
			return cw.n, fmt.Errorf("zip copy %s: %w", e.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return cw.n, fmt.Errorf("zip close: %w", err)
	}
	return cw.n, nil
}

// Close releases every opened file.
func (a *ResumeArchive) Close() error {
	var first error
	for _, e := range a.entries {
		if err := e.body.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

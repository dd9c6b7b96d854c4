package cvimport

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"golang.org/x/sync/errgroup"

	"anoud-backend/internal/extract"
)

const (
	MaxEntries    = 200
	MaxEntryBytes = 10 << 20
	parseWorkers  = 4
)

var (
	ErrInvalidArchive = errors.New("file is not a valid zip archive")
	ErrTooManyEntries = fmt.Errorf("archive has more than %d files", MaxEntries)
	ErrEmptyArchive   = errors.New("archive contains no files")
)

// FileResult is the outcome for one archive entry.
type FileResult struct {
	FileName string   `json:"fileName"`
	Success  bool     `json:"success"`
	Profile  *Profile `json:"profile,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// Manifest lists the outcome of every file in an archive, in archive order.
type Manifest struct {
	Files     []FileResult `json:"files"`
	Total     int          `json:"total"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
}

// Parse extracts and parses every file of a ZIP of CVs. Per-file failures
// are reported in the manifest; only an unreadable or oversized archive
// fails the call.
func Parse(ctx context.Context, data []byte) (Manifest, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Manifest{}, fmt.Errorf("%w: %w", ErrInvalidArchive, err)
	}

	var files []*zip.File
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || skipEntry(f.Name) {
			continue
		}
		files = append(files, f)
	}
	if len(files) == 0 {
		return Manifest{}, ErrEmptyArchive
	}
	if len(files) > MaxEntries {
		return Manifest{}, ErrTooManyEntries
	}

	results := make([]FileResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parseWorkers)
	for i, f := range files {
		g.Go(func() error {
			results[i] = parseEntry(gctx, f)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return Manifest{}, err
	}

	m := Manifest{Files: results, Total: len(results)}
	for _, r := range results {
		if r.Success {
			m.Succeeded++
		} else {
			m.Failed++
		}
	}
	return m, nil
}

func parseEntry(ctx context.Context, f *zip.File) FileResult {
	name := path.Base(f.Name)
	res := FileResult{FileName: name}
	if !extract.Supported(name) {
		res.Error = "unsupported file type (use .pdf, .docx or .txt)"
		return res
	}
	if f.UncompressedSize64 > MaxEntryBytes {
		res.Error = "file exceeds 10MB"
		return res
	}
	rc, err := f.Open()
	if err != nil {
		res.Error = "could not open file: " + err.Error()
		return res
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, MaxEntryBytes+1))
	if err != nil {
		res.Error = "could not read file: " + err.Error()
		return res
	}
	if len(data) > MaxEntryBytes {
		res.Error = "file exceeds 10MB"
		return res
	}

	text, err := extract.Text(ctx, data, name)
	if err != nil {
		res.Error = "text extraction failed: " + err.Error()
		return res
	}
	if strings.TrimSpace(text) == "" {
		res.Error = "no text could be extracted"
		return res
	}
	profile := ParseProfile(text, name)
	res.Success = true
	res.Profile = &profile
	return res
}

// skipEntry drops archive metadata such as macOS resource forks.
func skipEntry(name string) bool {
	return strings.HasPrefix(name, "__MACOSX/") || strings.HasPrefix(path.Base(name), ".")
}

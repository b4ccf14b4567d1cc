package collaborators

import (
	"context"
	"fmt"
	"image"
	"path/filepath"
	"sort"

	"github.com/phillipod/sister-sto/internal/catalogmodel"
	"github.com/phillipod/sister-sto/internal/imageio"
	"github.com/phillipod/sister-sto/internal/pdf"
)

// ScreenshotSource loads one named screenshot from outside the pipeline
// core, so batch/server callers can hand the orchestrator either a plain
// image file or a page of a PDF export without the pipeline itself
// needing to know which.
type ScreenshotSource interface {
	LoadScreenshots(ctx context.Context, path string) ([]catalogmodel.Screenshot, error)
}

// FileScreenshotSource decodes a single PNG/JPEG screenshot file, or, if
// the path is a PDF, flattens every page to a screenshot via pdfcpu.
// PDF ingestion exists because STO players frequently export their
// character sheet to PDF (print-to-file) rather than taking a screen
// capture directly; page extraction itself is out of scope, so this
// collaborator treats pdfcpu purely as a "get me PNG pages" step and
// hands the results to the pipeline as ordinary screenshots.
type FileScreenshotSource struct {
	// MaxWidth/MaxHeight, if non-zero, bound the decoded screenshot per
	// §6's resize-to-1920x1080 policy. Zero disables resizing.
	MaxWidth, MaxHeight int

	// PDFPassword is tried as both the user and owner password against
	// password-protected PDF exports before giving up; STO's own
	// print-to-PDF character sheet export can be saved with a password by
	// the OS print dialog, not by the game itself. Empty means "try no
	// password", which still succeeds against unencrypted PDFs.
	PDFPassword string

	// PDFPageRange restricts PDF page extraction to the given pdfcpu page
	// range (e.g. "1" or "2-4"), for multi-page print-to-PDF exports where
	// only some pages are character sheet screens (inventory/skill tree
	// pages mixed into the same print job). Empty means every page.
	PDFPageRange string
}

func (s *FileScreenshotSource) LoadScreenshots(_ context.Context, path string) ([]catalogmodel.Screenshot, error) {
	if isPDF(path) {
		return s.loadPDF(path)
	}

	img, err := imageio.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load screenshot %s: %w", path, err)
	}
	return []catalogmodel.Screenshot{{
		Name:  filepath.Base(path),
		Image: s.resize(img),
	}}, nil
}

func (s *FileScreenshotSource) loadPDF(path string) ([]catalogmodel.Screenshot, error) {
	readPath, cleanup, err := s.decryptIfNeeded(path)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	pages, err := pdf.ExtractImages(readPath, s.PDFPageRange)
	if err != nil {
		return nil, fmt.Errorf("extract PDF pages from %s: %w", path, err)
	}

	pageNumbers := make([]int, 0, len(pages))
	for n := range pages {
		pageNumbers = append(pageNumbers, n)
	}
	sort.Ints(pageNumbers)

	base := filepath.Base(path)
	var screenshots []catalogmodel.Screenshot
	for _, n := range pageNumbers {
		for i, img := range pages[n] {
			name := fmt.Sprintf("%s#page%d-%d", base, n, i+1)
			screenshots = append(screenshots, catalogmodel.Screenshot{
				Name:  name,
				Image: s.resize(img),
			})
		}
	}
	if len(screenshots) == 0 {
		return nil, fmt.Errorf("no images extracted from PDF %s", path)
	}
	return screenshots, nil
}

// decryptIfNeeded returns a readable path for path, decrypting it first
// to a temp file if pdfcpu reports it as password-protected. The returned
// cleanup func always runs; it only removes the temp file when one was
// actually created.
func (s *FileScreenshotSource) decryptIfNeeded(path string) (string, func(), error) {
	handler := pdf.NewPasswordHandler(false)

	encrypted, err := handler.IsEncrypted(path)
	if err != nil {
		return "", func() {}, fmt.Errorf("check PDF encryption for %s: %w", path, err)
	}
	if !encrypted {
		return path, func() {}, nil
	}

	creds := &pdf.PasswordCredentials{UserPassword: s.PDFPassword, OwnerPassword: s.PDFPassword}
	decryptedPath, err := handler.DecryptPDF(path, creds)
	if err != nil {
		return "", func() {}, fmt.Errorf("decrypt PDF %s: %w", path, err)
	}

	return decryptedPath, func() { _ = handler.CleanupTempFile(decryptedPath) }, nil
}

func (s *FileScreenshotSource) resize(img image.Image) image.Image {
	if s.MaxWidth <= 0 || s.MaxHeight <= 0 {
		return img
	}
	return imageio.ResizeToBounds(img, s.MaxWidth, s.MaxHeight)
}

func isPDF(path string) bool {
	return filepath.Ext(path) == ".pdf"
}

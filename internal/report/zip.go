package report

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteArchive bundles the given screenshot files into a ZIP at path. Files
// that no longer exist are skipped; an empty list still produces a valid
// archive.
func WriteArchive(files []string, path string) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	for _, file := range files {
		if err := addFile(zw, file); err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize archive: %w", err)
	}
	return nil
}

func addFile(zw *zip.Writer, file string) error {
	in, err := os.Open(file)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open %s: %w", file, err)
	}
	defer in.Close()

	w, err := zw.Create(filepath.Base(file))
	if err != nil {
		return fmt.Errorf("add %s: %w", file, err)
	}
	if _, err := io.Copy(w, in); err != nil {
		return fmt.Errorf("copy %s: %w", file, err)
	}
	return nil
}

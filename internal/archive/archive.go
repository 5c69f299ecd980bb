package archive

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	kerrors "github.com/PolarWolf314/crypthru/internal/errors"
	"github.com/klauspost/compress/zip"
)

// Ext is the extension of bundles.
const Ext = ".zip"

// BundleName returns name with the zip extension appended when missing,
// placed inside dir.
func BundleName(dir, name string) string {
	if !strings.HasSuffix(name, Ext) {
		name += Ext
	}
	return filepath.Join(dir, name)
}

// Bundle writes files into a new zip archive at zipPath. Entries are named by
// the base name of each file. report is called once per file before it is
// added.
func Bundle(zipPath string, files []string, report func(file string)) (err error) {
	out, err := os.Create(zipPath)
	if err != nil {
		return fmt.Errorf("%w: creating %s: %v", kerrors.ErrIO, zipPath, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: closing %s: %v", kerrors.ErrIO, zipPath, cerr)
		}
		if err != nil {
			os.Remove(zipPath)
		}
	}()

	zw := zip.NewWriter(out)
	for _, file := range files {
		if report != nil {
			report(file)
		}
		if err := addFile(zw, file); err != nil {
			zw.Close()
			return fmt.Errorf("%w: zipping %s into %s: %v", kerrors.ErrIO, file, zipPath, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("%w: finishing %s: %v", kerrors.ErrIO, zipPath, err)
	}
	return nil
}

func addFile(zw *zip.Writer, file string) error {
	in, err := os.Open(file)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = filepath.Base(file)
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, in)
	return err
}

// Extract unpacks zipPath into dir and returns the extracted file paths.
// An entry resolving outside dir fails with ErrZipSlip before anything is
// written for it.
func Extract(zipPath, dir string) ([]string, error) {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", kerrors.ErrIO, zipPath, err)
	}
	defer zr.Close()

	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: resolving %s: %v", kerrors.ErrIO, dir, err)
	}

	var extracted []string
	for _, entry := range zr.File {
		target, err := entryPath(root, entry.Name)
		if err != nil {
			return extracted, err
		}
		if entry.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return extracted, fmt.Errorf("%w: creating directory %s: %v", kerrors.ErrIO, target, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return extracted, fmt.Errorf("%w: creating directory %s: %v", kerrors.ErrIO, filepath.Dir(target), err)
		}
		if err := extractFile(entry, target); err != nil {
			return extracted, fmt.Errorf("%w: extracting %s from %s: %v", kerrors.ErrIO, target, zipPath, err)
		}
		extracted = append(extracted, target)
	}
	return extracted, nil
}

// entryPath resolves name under root, rejecting anything that escapes it.
func entryPath(root, name string) (string, error) {
	target := filepath.Join(root, filepath.FromSlash(name))
	if !strings.HasPrefix(target, root+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %s", kerrors.ErrZipSlip, name)
	}
	return target, nil
}

func extractFile(entry *zip.File, target string) error {
	r, err := entry.Open()
	if err != nil {
		return err
	}
	defer r.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, entry.Mode().Perm()|0200)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

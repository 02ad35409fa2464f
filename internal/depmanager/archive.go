package depmanager

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"
)

// download fetches url into a temporary file inside destDir and returns its path.
func (m *Manager) download(ctx context.Context, url, destDir string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	tmpFile, err := os.CreateTemp(destDir, "download-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	if _, err := io.Copy(tmpFile, resp.Body); err != nil {
		tmpFile.Close()
		os.Remove(tmpFile.Name())

		return "", fmt.Errorf("write file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpFile.Name())

		return "", fmt.Errorf("close temp file: %w", err)
	}

	return tmpFile.Name(), nil
}

// install downloads url and places the binaries of name into destDir. Plain binaries are
// renamed into place, archives are unpacked. Returns the installed paths.
func (m *Manager) install(ctx context.Context, url string, name BinaryName, destDir string) ([]string, error) {
	tmpPath, err := m.download(ctx, url, destDir)
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmpPath)

	if !isArchive(url) {
		binPath := filepath.Join(destDir, m.platform.exe(string(name)))

		if err := os.Rename(tmpPath, binPath); err != nil {
			return nil, fmt.Errorf("rename: %w", err)
		}

		return []string{binPath}, nil
	}

	targets := m.archiveTargets(name)

	if err := extract(tmpPath, destDir, url, targets); err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}

	installed := make([]string, 0, len(targets))
	for target := range targets {
		installed = append(installed, filepath.Join(destDir, target))
	}

	return installed, nil
}

// archiveTargets returns the file names to pull out of the archive of name.
func (m *Manager) archiveTargets(name BinaryName) map[string]struct{} {
	switch name {
	case BinaryFFmpeg, BinaryFFprobe:
		return map[string]struct{}{
			m.platform.exe(string(BinaryFFmpeg)):  {},
			m.platform.exe(string(BinaryFFprobe)): {},
		}
	default:
		return map[string]struct{}{m.platform.exe(string(name)): {}}
	}
}

func isArchive(url string) bool {
	return strings.HasSuffix(url, ".zip") ||
		strings.HasSuffix(url, ".tar.xz") ||
		strings.HasSuffix(url, ".tar.gz")
}

func extract(archivePath, destDir, url string, targets map[string]struct{}) error {
	switch {
	case strings.HasSuffix(url, ".zip"):
		return extractZip(archivePath, destDir, targets)
	case strings.HasSuffix(url, ".tar.xz"):
		return extractTarXZ(archivePath, destDir, targets)
	case strings.HasSuffix(url, ".tar.gz"):
		return extractTarGZ(archivePath, destDir, targets)
	default:
		return errors.New("unsupported archive format")
	}
}

func extractZip(zipPath, destDir string, targets map[string]struct{}) error {
	reader, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}
	defer reader.Close()

	extracted := 0

	for _, file := range reader.File {
		if file.FileInfo().IsDir() {
			continue
		}

		filename := file.FileInfo().Name()
		if _, ok := targets[filename]; !ok {
			continue
		}

		fileReader, err := file.Open()
		if err != nil {
			return fmt.Errorf("open file in zip: %w", err)
		}

		err = writeAtomic(filepath.Join(destDir, filename), fileReader)
		fileReader.Close()

		if err != nil {
			return err
		}

		extracted++
		if extracted == len(targets) {
			return nil
		}
	}

	if extracted == 0 {
		return errors.New("no target files found in zip archive")
	}

	return nil
}

func extractTarXZ(tarXZPath, destDir string, targets map[string]struct{}) error {
	file, err := os.Open(tarXZPath)
	if err != nil {
		return fmt.Errorf("open tar.xz: %w", err)
	}
	defer file.Close()

	xzReader, err := xz.NewReader(file)
	if err != nil {
		return fmt.Errorf("create xz reader: %w", err)
	}

	return extractTar(xzReader, destDir, targets)
}

func extractTarGZ(tarGZPath, destDir string, targets map[string]struct{}) error {
	file, err := os.Open(tarGZPath)
	if err != nil {
		return fmt.Errorf("open tar.gz: %w", err)
	}
	defer file.Close()

	gzReader, err := gzip.NewReader(file)
	if err != nil {
		return fmt.Errorf("create gzip reader: %w", err)
	}
	defer gzReader.Close()

	return extractTar(gzReader, destDir, targets)
}

func extractTar(reader io.Reader, destDir string, targets map[string]struct{}) error {
	tarReader := tar.NewReader(reader)
	extracted := 0

	for {
		header, err := tarReader.Next()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return fmt.Errorf("read tar header: %w", err)
		}

		if header.Typeflag != tar.TypeReg {
			continue
		}

		filename := filepath.Base(header.Name)
		if _, ok := targets[filename]; !ok {
			continue
		}

		if err := writeAtomic(filepath.Join(destDir, filename), tarReader); err != nil {
			return err
		}

		extracted++
		if extracted == len(targets) {
			return nil
		}
	}

	if extracted == 0 {
		return errors.New("no target files found in tar archive")
	}

	return nil
}

// writeAtomic writes r to a sibling temp file and renames it over destPath, so a binary
// that is currently executing is replaced rather than truncated.
func writeAtomic(destPath string, r io.Reader) error {
	tmp, err := os.CreateTemp(filepath.Dir(destPath), ".extract-*")
	if err != nil {
		return fmt.Errorf("create dest file: %w", err)
	}

	_, err = io.Copy(tmp, r)
	closeErr := tmp.Close()

	if err == nil {
		err = closeErr
	}

	if err == nil {
		err = os.Chmod(tmp.Name(), filePermExecutable)
	}

	if err == nil {
		err = os.Rename(tmp.Name(), destPath)
	}

	if err != nil {
		os.Remove(tmp.Name())

		return fmt.Errorf("extract file: %w", err)
	}

	return nil
}

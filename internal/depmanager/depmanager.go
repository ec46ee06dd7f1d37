// Package depmanager provisions the external ffmpeg binary. It prefers a
// configured path, then a system install, and otherwise downloads a static
// build, verifies its checksum and extracts the binary from the tar.xz
// archive.
package depmanager

import (
	"archive/tar"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/ulikunitz/xz"

	"retreivr/internal/config"
	"retreivr/internal/errs"
)

const (
	binaryName = "ffmpeg"

	// downloadTimeout is the HTTP client timeout for downloading builds.
	downloadTimeout = 10 * time.Minute
	// filePermExecutable is the file permission for executable binaries.
	filePermExecutable = 0o755
	// sha256SumsFieldCount is the expected field count in SHA256SUMS lines.
	sha256SumsFieldCount = 2
)

// Manager resolves and installs the ffmpeg binary.
type Manager struct {
	log    *slog.Logger
	cfg    *config.Config
	client *http.Client
}

// New creates a dependency manager.
func New(log *slog.Logger, cfg *config.Config) *Manager {
	return &Manager{
		log:    log.With(slog.String("package", "depmanager")),
		cfg:    cfg,
		client: &http.Client{Timeout: downloadTimeout},
	}
}

// EnsureFFmpeg returns the path of a usable ffmpeg binary, installing one
// when necessary.
func (m *Manager) EnsureFFmpeg(ctx context.Context) (string, error) {
	if bin := m.cfg.DepManager.FFmpegBin; bin != "" {
		return bin, nil
	}

	if m.cfg.DepManager.UseSystemBinaries {
		if path, err := exec.LookPath(binaryName); err == nil {
			return path, nil
		}

		m.log.InfoContext(ctx, "no system ffmpeg found, falling back to download")
	}

	installed := filepath.Join(m.cfg.Dir.Bins, binaryName)
	if info, err := os.Stat(installed); err == nil && info.Size() > 0 {
		return installed, nil
	}

	if err := m.downloadAndInstall(ctx); err != nil {
		return "", fmt.Errorf("%w: %s: %w", errs.ErrBinaryNotFound, binaryName, err)
	}

	return installed, nil
}

func (m *Manager) downloadAndInstall(ctx context.Context) error {
	url, err := m.buildURL()
	if err != nil {
		return err
	}

	m.log.InfoContext(ctx, "downloading ffmpeg build", slog.String("url", url))

	if err := os.MkdirAll(m.cfg.Dir.Bins, filePermExecutable); err != nil {
		return fmt.Errorf("create bins dir: %w", err)
	}

	tmpFile, err := os.CreateTemp(m.cfg.Dir.Bins, "download-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	tmpPath := tmpFile.Name()
	defer func() {
		tmpFile.Close()
		os.Remove(tmpPath)
	}()

	if err := m.fetch(ctx, url, tmpFile); err != nil {
		return err
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := m.verifyChecksum(ctx, tmpPath, filepath.Base(url)); err != nil {
		return err
	}

	if err := ExtractFromTarXZ(tmpPath, m.cfg.Dir.Bins, binaryName); err != nil {
		return fmt.Errorf("extract: %w", err)
	}

	m.log.InfoContext(ctx, "ffmpeg installed",
		slog.String("path", filepath.Join(m.cfg.Dir.Bins, binaryName)))

	return nil
}

func (m *Manager) buildURL() (string, error) {
	if runtime.GOOS != "linux" {
		return "", fmt.Errorf("%w: %s/%s", errs.ErrUnsupportedPlatform, runtime.GOOS, runtime.GOARCH)
	}

	switch runtime.GOARCH {
	case "arm64":
		return m.cfg.DepManager.FFmpegLinuxARM64, nil
	case "amd64":
		return m.cfg.DepManager.FFmpegLinuxAMD64, nil
	default:
		return "", fmt.Errorf("%w: %s/%s", errs.ErrUnsupportedPlatform, runtime.GOOS, runtime.GOARCH)
	}
}

func (m *Manager) fetch(ctx context.Context, url string, dst io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download: unexpected status %d", resp.StatusCode)
	}

	if _, err := io.Copy(dst, resp.Body); err != nil {
		return fmt.Errorf("write file: %w", err)
	}

	return nil
}

// verifyChecksum compares the downloaded archive against the published
// SHA-256 sums. A missing entry for the filename is tolerated (the sums file
// covers many builds); a mismatching entry is not.
func (m *Manager) verifyChecksum(ctx context.Context, path, filename string) error {
	var sumsBody strings.Builder
	if err := m.fetch(ctx, m.cfg.DepManager.FFmpegSHA256SumsURL, &sumsBody); err != nil {
		return fmt.Errorf("fetch checksums: %w", err)
	}

	want, ok := ParseSHASums(sumsBody.String())[filename]
	if !ok {
		m.log.Warn("no published checksum for download", slog.String("filename", filename))

		return nil
	}

	got, err := fileSHA256(path)
	if err != nil {
		return err
	}

	if !strings.EqualFold(got, want) {
		return fmt.Errorf("%w: %s: got %s want %s", errs.ErrChecksumMismatch, filename, got, want)
	}

	return nil
}

// ParseSHASums parses "hash  filename" lines into a filename-to-hash map.
func ParseSHASums(content string) map[string]string {
	sums := make(map[string]string)

	for line := range strings.Lines(content) {
		fields := strings.Fields(line)
		if len(fields) != sha256SumsFieldCount {
			continue
		}

		// Some sums files prefix binary-mode filenames with '*'.
		name := strings.TrimPrefix(filepath.Base(fields[1]), "*")
		sums[name] = fields[0]
	}

	return sums
}

func fileSHA256(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open for checksum: %w", err)
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", fmt.Errorf("hash file: %w", err)
	}

	return hex.EncodeToString(hash.Sum(nil)), nil
}

// ExtractFromTarXZ pulls the named regular file out of a tar.xz archive into
// destDir, matching on base name anywhere in the tree.
func ExtractFromTarXZ(archivePath, destDir, target string) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open tar.xz: %w", err)
	}
	defer file.Close()

	xzReader, err := xz.NewReader(file)
	if err != nil {
		return fmt.Errorf("create xz reader: %w", err)
	}

	tarReader := tar.NewReader(xzReader)

	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}

		if err != nil {
			return fmt.Errorf("read tar header: %w", err)
		}

		if header.Typeflag != tar.TypeReg || filepath.Base(header.Name) != target {
			continue
		}

		destPath := filepath.Join(destDir, target)

		outFile, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePermExecutable)
		if err != nil {
			return fmt.Errorf("create dest file: %w", err)
		}

		if _, err := io.Copy(outFile, tarReader); err != nil {
			outFile.Close()

			return fmt.Errorf("extract file: %w", err)
		}

		return outFile.Close()
	}

	return fmt.Errorf("%s not found in tar archive", target)
}

package dictionary

import (
	"bufio"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// maxVocabularySize bounds downloaded vocabulary files.
const maxVocabularySize = 50 * 1024 * 1024

// EnsureVocabulary makes sure a vocabulary file exists at path. When it is
// missing and rawURL is set, the file is downloaded; gzip payloads are
// decompressed transparently.
func EnsureVocabulary(ctx context.Context, path, rawURL string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}
	if rawURL == "" {
		return fmt.Errorf("vocabulary %s not found and no download URL configured", path)
	}

	slog.Info("vocabulary not found, downloading", "path", path, "url", rawURL)
	return download(ctx, rawURL, path)
}

func download(ctx context.Context, rawURL, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "qisas-cli")

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed: %s", resp.Status)
	}

	br := bufio.NewReader(io.LimitReader(resp.Body, maxVocabularySize))
	var body io.Reader = br
	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		gzReader, err := gzip.NewReader(br)
		if err != nil {
			return fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gzReader.Close()
		body = io.LimitReader(gzReader, maxVocabularySize)
	}

	// Write next to the destination and rename so a failed download never
	// leaves a truncated vocabulary behind.
	tmp, err := os.CreateTemp(filepath.Dir(destPath), ".vocab-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write vocabulary: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := validateFile(tmp.Name(), formatOf(destPath)); err != nil {
		return fmt.Errorf("downloaded vocabulary is invalid: %w", err)
	}
	return os.Rename(tmp.Name(), destPath)
}

func validateFile(path, format string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = DecodeVocabulary(f, format)
	return err
}

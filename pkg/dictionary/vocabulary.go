package dictionary

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/japaniel/qisas/pkg/gloss"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// LoadVocabulary reads a surface→translation mapping from a .json, .yaml or
// .yml file, optionally with a .gz suffix. Gzip content is recognised by its
// header, so a downloaded file stored already decompressed loads too.
func LoadVocabulary(path string) (gloss.Dictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	br := bufio.NewReader(f)
	var r io.Reader = br
	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("load vocabulary %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}

	dict, err := DecodeVocabulary(r, formatOf(path))
	if err != nil {
		return nil, fmt.Errorf("load vocabulary %s: %w", path, err)
	}
	return dict, nil
}

// DecodeVocabulary decodes a flat mapping in the given format ("json" or
// "yaml"). Empty and whitespace-only keys are skipped.
func DecodeVocabulary(r io.Reader, format string) (gloss.Dictionary, error) {
	raw := map[string]string{}
	switch format {
	case "json":
		if err := json.NewDecoder(r).Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
	case "yaml":
		if err := yaml.NewDecoder(r).Decode(&raw); err != nil && err != io.EOF {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported vocabulary format %q", format)
	}

	dict := make(gloss.Dictionary, len(raw))
	for k, v := range raw {
		if gloss.IsDegenerateKey(k) {
			slog.Warn("skipping empty vocabulary key", "translation", v)
			continue
		}
		dict[k] = v
	}
	return dict, nil
}

// LoadVocabularies loads several files concurrently and merges them in
// argument order, later files overriding earlier ones.
func LoadVocabularies(ctx context.Context, paths ...string) (gloss.Dictionary, error) {
	dicts := make([]gloss.Dictionary, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	for i, p := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			d, err := LoadVocabulary(p)
			if err != nil {
				return err
			}
			dicts[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := gloss.Dictionary{}
	for _, d := range dicts {
		merged = gloss.Merge(merged, d)
	}
	return merged, nil
}

func formatOf(path string) string {
	p := strings.TrimSuffix(strings.ToLower(path), ".gz")
	switch filepath.Ext(p) {
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "json"
	}
}

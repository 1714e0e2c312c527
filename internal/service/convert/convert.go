package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/sandevgo/docqa/internal/core"
	"github.com/sandevgo/docqa/pkg/log"
)

// ExtractFunc turns PDF bytes into plain text.
type ExtractFunc func(data []byte) (string, error)

// Converter writes a markdown file for every PDF in a directory.
type Converter struct {
	extract ExtractFunc
}

func NewConverter(extract ExtractFunc) *Converter {
	if extract == nil {
		extract = ExtractText
	}
	return &Converter{extract: extract}
}

// ExtractText reads the text layer of a PDF document.
func ExtractText(data []byte) (text string, err error) {
	if !bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\r\n "), []byte("%PDF")) {
		return "", core.ErrNotAPDF
	}

	// The pdf reader panics on some malformed xref tables.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to extract text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("failed to read text: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

type Result struct {
	Converted []string
	Skipped   []string
	Failed    map[string]error
}

// ConvertDir converts every *.pdf in src into <stem>.md under dst.
// Other files are skipped, failures are collected and do not stop the run.
func (c *Converter) ConvertDir(ctx context.Context, src, dst string) (Result, error) {
	logger := log.FromCtx(ctx)
	res := Result{Failed: make(map[string]error)}

	entries, err := os.ReadDir(src)
	if err != nil {
		return res, fmt.Errorf("failed to read %s: %w", src, err)
	}
	if err := os.MkdirAll(dst, 0755); err != nil {
		return res, fmt.Errorf("failed to create %s: %w", dst, err)
	}

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if e.IsDir() {
			continue
		}

		name := e.Name()
		if !strings.EqualFold(filepath.Ext(name), ".pdf") {
			res.Skipped = append(res.Skipped, name)
			continue
		}

		out, err := c.convertFile(filepath.Join(src, name), dst)
		if err != nil {
			event := logger.Warn()
			if errors.Is(err, core.ErrNotAPDF) {
				event = logger.Info()
			}
			event.Err(err).Str("file", name).Msg("conversion failed")
			res.Failed[name] = err
			continue
		}

		logger.Debug().Str("file", name).Str("out", out).Msg("converted")
		res.Converted = append(res.Converted, out)
	}

	logger.Info().
		Int("converted", len(res.Converted)).
		Int("failed", len(res.Failed)).
		Str("dir", dst).
		Msg("conversion complete")
	return res, nil
}

func (c *Converter) convertFile(path, dst string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}

	text, err := c.extract(data)
	if err != nil {
		return "", err
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	out := filepath.Join(dst, stem+".md")
	if err := os.WriteFile(out, []byte(text+"\n"), 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", out, err)
	}
	return out, nil
}

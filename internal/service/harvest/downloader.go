package harvest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/sandevgo/docqa/internal/config"
	"github.com/sandevgo/docqa/internal/core"
	"github.com/sandevgo/docqa/pkg/log"
	"github.com/sandevgo/docqa/pkg/retry"
)

const (
	pdfMagic       = "%PDF"
	pdfMagicWindow = 10
	maxPDFSize     = 200 << 20
)

var errTooLarge = errors.New("document too large")

// Downloader fetches PDFs into a directory, verifying the payload really is a PDF.
type Downloader struct {
	client    *http.Client
	userAgent string
	dir       string
	maxSize   int64
	retrier   *retry.Retrier
}

func NewDownloader(cfg *config.HarvestConfig, dir string, retrier *retry.Retrier) *Downloader {
	if retrier == nil {
		retrier = retry.NewDefaultRetrier()
	}
	return &Downloader{
		client:    &http.Client{Timeout: cfg.Timeout},
		userAgent: cfg.UserAgent,
		dir:       dir,
		maxSize:   maxPDFSize,
		retrier:   retrier,
	}
}

// Download saves the PDF at rawURL and returns its path. Payloads that are
// not PDFs fail with core.ErrNotAPDF and are not retried.
func (d *Downloader) Download(ctx context.Context, rawURL string) (string, error) {
	var data []byte
	err := d.retrier.Do(ctx, func(ctx context.Context) error {
		var err error
		data, err = d.fetch(ctx, rawURL)
		return err
	})
	if err != nil {
		return "", err
	}

	name, err := fileName(rawURL)
	if err != nil {
		return "", err
	}
	return d.save(name, data)
}

func (d *Downloader) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("fetch %s: http %d", rawURL, resp.StatusCode)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, retry.Permanent(err)
		}
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, d.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if int64(len(data)) > d.maxSize {
		return nil, retry.Permanent(fmt.Errorf("%w: %s is larger than %d bytes", errTooLarge, rawURL, d.maxSize))
	}

	if !isPDF(data) {
		return nil, retry.Permanent(fmt.Errorf("%w: %s (content-type %q, %d bytes)",
			core.ErrNotAPDF, rawURL, resp.Header.Get("Content-Type"), len(data)))
	}
	return data, nil
}

func isPDF(data []byte) bool {
	return bytes.Contains(data[:min(len(data), pdfMagicWindow)], []byte(pdfMagic))
}

// fileName derives a file name from the URL path, dropping the query.
func fileName(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}

	name := path.Base(u.Path)
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}
	name = filepath.Base(filepath.Clean("/" + name))
	if name == "" || name == "/" || name == "." {
		name = "document"
	}
	if !strings.HasSuffix(strings.ToLower(name), ".pdf") {
		name += ".pdf"
	}
	return name, nil
}

// save writes data under name, picking name_1.pdf, name_2.pdf... on collision.
// The payload is written to a temp file and linked into place once complete.
func (d *Downloader) save(name string, data []byte) (string, error) {
	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create download dir: %w", err)
	}

	tmp, err := os.CreateTemp(d.dir, ".download-*.part")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", tmp.Name(), err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return "", err
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	for i := 0; ; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s_%d%s", stem, i, ext)
		}
		p := filepath.Join(d.dir, candidate)

		// Link fails on an existing name, unlike Rename.
		err := os.Link(tmp.Name(), p)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to create %s: %w", p, err)
		}
		return p, nil
	}
}

// Failure is a link that could not be downloaded.
type Failure struct {
	Link Link
	Err  error
}

type Report struct {
	Total      int
	Downloaded []core.DownloadRecord
	Failed     []Failure
}

// DownloadAll downloads every link, continuing past individual failures.
func (d *Downloader) DownloadAll(ctx context.Context, links []Link) Report {
	logger := log.FromCtx(ctx)
	report := Report{Total: len(links)}

	for _, l := range links {
		if ctx.Err() != nil {
			report.Failed = append(report.Failed, Failure{Link: l, Err: ctx.Err()})
			continue
		}

		p, err := d.Download(ctx, l.URL)
		if err != nil {
			event := logger.Warn()
			if errors.Is(err, core.ErrNotAPDF) || errors.Is(err, errTooLarge) {
				event = logger.Info()
			}
			event.Err(err).Str("title", l.Title).Str("url", l.URL).Msg("skipped")
			report.Failed = append(report.Failed, Failure{Link: l, Err: err})
			continue
		}

		report.Downloaded = append(report.Downloaded, core.DownloadRecord{Title: l.Title, URL: l.URL, Path: p})
		logger.Debug().Str("path", p).Msg("downloaded")
	}

	logger.Info().
		Int("downloaded", len(report.Downloaded)).
		Int("total", report.Total).
		Str("dir", d.dir).
		Msg("download complete")
	return report
}

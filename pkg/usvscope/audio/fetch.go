package audio

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"github.com/mousetube/usvscope/pkg/utils"
)

// Download is one remote recording saved to local disk.
type Download struct {
	URL   string
	Path  string
	Bytes int64
}

// Fetch streams a single remote recording into dir. It makes exactly one GET
// request; callers own link filtering, pacing and any retry policy.
func Fetch(ctx context.Context, client *http.Client, rawURL, dir string) (*Download, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: %q", utils.ErrUnsupportedScheme, rawURL)
	}
	if client == nil {
		client = http.DefaultClient
	}
	if err := utils.MakeDir(dir); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", u.Redacted(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("GET %s: unexpected status %s", u.Redacted(), resp.Status)
	}

	tmp, err := os.CreateTemp(dir, "fetch-*.part")
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", u.Redacted(), err)
	}

	dst := filepath.Join(dir, downloadName(u))
	if err := utils.MoveFile(tmp.Name(), dst); err != nil {
		return nil, err
	}
	return &Download{URL: rawURL, Path: dst, Bytes: n}, nil
}

// downloadName keeps the extension of the remote file so the loader can tell
// WAV from other containers.
func downloadName(u *url.URL) string {
	ext := path.Ext(u.Path)
	if ext == "" {
		ext = ".bin"
	}
	return utils.StemFromURL(u) + ext
}

package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
)

// Source opens a raw image reference: an http(s) URL, a file:// URL or a
// local path.
type Source interface {
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
}

var (
	ErrTooLarge    = errors.New("image exceeds size cap")
	ErrTooSmall    = errors.New("image below minimum dimensions")
	ErrNoContent   = errors.New("image has no detectable content")
	ErrBadResponse = errors.New("unexpected response status")
)

// AssetFetchError wraps any failure to turn one reference into a frame.
type AssetFetchError struct {
	URL string
	Err error
}

func (e *AssetFetchError) Error() string {
	return fmt.Sprintf("asset %s: %v", e.URL, e.Err)
}

func (e *AssetFetchError) Unwrap() error { return e.Err }

type Opener struct {
	Client    *http.Client
	UserAgent string
}

func NewOpener(client *http.Client) *Opener {
	if client == nil {
		client = http.DefaultClient
	}
	return &Opener{
		Client:    client,
		UserAgent: "Mozilla/5.0 (compatible; adreel/1.0)",
	}
}

func (o *Opener) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	u, err := url.Parse(ref)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// bare path, or a Windows drive letter
		return os.Open(ref)
	}

	switch strings.ToLower(u.Scheme) {
	case "file":
		return os.Open(u.Path)
	case "http", "https":
	default:
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", o.UserAgent)
	req.Header.Set("Accept", "image/*")

	resp, err := o.Client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s", ErrBadResponse, resp.Status)
	}
	return resp.Body, nil
}

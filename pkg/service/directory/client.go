package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/plaza-hq/rostersync/pkg/domain/interfaces"
	"github.com/plaza-hq/rostersync/pkg/domain/model"
	"github.com/plaza-hq/rostersync/pkg/utils/logging"
	"github.com/plaza-hq/rostersync/pkg/utils/safe"
	"golang.org/x/net/http/httpguts"
)

const (
	headerAuthToken = "x-auth-token"
	headerAccept    = "accept"
	mimeJSON        = "application/json"
)

// Client downloads the employee roster from the directory API
type Client struct {
	url        string
	token      string
	httpClient *http.Client
	timeout    time.Duration
}

var _ interfaces.Directory = &Client{}

type Option func(*Client)

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(c *http.Client) Option {
	return func(x *Client) {
		x.httpClient = c
	}
}

// WithTimeout bounds a whole FetchRoster call. Zero means no bound.
func WithTimeout(d time.Duration) Option {
	return func(x *Client) {
		x.timeout = d
	}
}

// New creates a directory client for the roster endpoint at url
func New(url, token string, opts ...Option) (*Client, error) {
	if url == "" {
		return nil, goerr.Wrap(ErrMissingBaseURL, "failed to create directory client")
	}

	c := &Client{
		url:        url,
		token:      token,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// FetchRoster performs one authenticated GET and returns the normalized roster.
// A single malformed entry fails the whole call.
func (c *Client) FetchRoster(ctx context.Context) ([]model.RosterRecord, error) {
	if !httpguts.ValidHeaderFieldValue(c.token) {
		return nil, goerr.Wrap(ErrInvalidHeader, "failed to build directory request",
			goerr.V("header", headerAuthToken))
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, goerr.Wrap(ErrRequestFailed, "failed to build directory request",
			goerr.V("url", c.url),
			goerr.V("cause", err.Error()))
	}
	req.Header.Set(headerAuthToken, c.token)
	req.Header.Set(headerAccept, mimeJSON)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, goerr.Wrap(ErrRequestFailed, "failed to send directory request",
			goerr.V("url", c.url),
			goerr.V("cause", err.Error()))
	}
	defer safe.Close(ctx, resp.Body)

	body, readErr := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, goerr.Wrap(&StatusError{StatusCode: resp.StatusCode, Body: string(body)},
			"directory returned non-200 status",
			goerr.V("url", c.url),
			goerr.V("status", resp.StatusCode))
	}

	if readErr != nil {
		return nil, goerr.Wrap(ErrReadBody, "failed to read directory response",
			goerr.V("url", c.url),
			goerr.V("cause", readErr.Error()))
	}

	roster, err := decodeRoster(body)
	if err != nil {
		return nil, err
	}

	logging.From(ctx).Debug("directory roster downloaded",
		"url", c.url,
		"count", len(roster),
		"bytes", len(body))
	return roster, nil
}

func decodeRoster(body []byte) ([]model.RosterRecord, error) {
	var raws []rawRecord
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(&raws); err != nil {
		return nil, goerr.Wrap(ErrDecodeBody, "failed to decode directory response",
			goerr.V("cause", err.Error()))
	}

	roster := make([]model.RosterRecord, 0, len(raws))
	for i := range raws {
		rec, err := raws[i].normalize()
		if err != nil {
			return nil, goerr.Wrap(err, "malformed directory record", goerr.V("index", i))
		}
		roster = append(roster, rec)
	}
	return roster, nil
}

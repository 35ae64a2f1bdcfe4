package clients

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

// Transport sends single HTTP attempts to a board and classifies the outcome
type Transport struct {
	client *resty.Client
}

// NewTransport creates a new board transport
func NewTransport() *Transport {
	client := resty.New()
	client.SetDisableWarn(true)
	// the board speaks plain HTTP/1.0-ish and never redirects
	client.SetRedirectPolicy(resty.NoRedirectPolicy())
	client.SetPreRequestHook(forceContentLength)

	return &Transport{
		client: client,
	}
}

// forceContentLength restores the body length on streamed bodies, the
// board web server does not understand chunked transfer encoding.
func forceContentLength(_ *resty.Client, req *http.Request) error {
	v := req.Header.Get("Content-Length")
	if v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid content length %q: %w", v, err)
	}
	req.ContentLength = n
	return nil
}

// Execute sends req once. It returns a *Response on success, or one of
// ErrAborted (ctx cancelled), *TimeoutError (req.Timeout elapsed) and
// *NetworkError (anything else, including a status req does not accept).
func (t *Transport) Execute(ctx context.Context, req *Request) (*Response, error) {
	if ctx.Err() != nil {
		return nil, fmt.Errorf("%w: %s", ErrAborted, req.URL)
	}

	var (
		attemptCtx context.Context
		cancel     context.CancelFunc
	)
	if req.Timeout > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, req.Timeout)
	} else {
		attemptCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	notify := newNotifier(req.OnProgress)
	defer notify.close()

	r := t.client.R().
		SetContext(attemptCtx).
		SetDoNotParseResponse(true).
		SetHeaders(req.Headers)

	if req.Body != nil {
		r.SetHeader("Content-Length", strconv.Itoa(len(req.Body)))
		r.SetBody(&progressReader{
			r:         bytes.NewReader(req.Body),
			direction: Upload,
			total:     int64(len(req.Body)),
			notify:    notify,
		})
	}

	start := time.Now()
	resp, err := r.Execute(req.Method, req.URL)
	if err != nil {
		if resp != nil && resp.RawBody() != nil {
			resp.RawBody().Close()
		}
		return nil, classify(ctx, attemptCtx, req, err)
	}

	body := resp.RawBody()
	defer body.Close()

	var total int64
	if resp.RawResponse != nil {
		total = resp.RawResponse.ContentLength
	}
	text, err := io.ReadAll(&progressReader{
		r:         body,
		direction: Download,
		total:     total,
		notify:    notify,
	})
	if err != nil {
		return nil, classify(ctx, attemptCtx, req, err)
	}

	if !req.accepts(resp.StatusCode()) {
		return nil, &NetworkError{
			URL:        req.URL,
			StatusCode: resp.StatusCode(),
			Status:     resp.Status(),
			Text:       string(text),
		}
	}

	return &Response{
		StatusCode: resp.StatusCode(),
		Text:       string(text),
		Elapsed:    time.Since(start),
	}, nil
}

// classify maps a failed attempt to the transport error taxonomy.
// Caller cancellation wins over the attempt deadline.
func classify(parent, attempt context.Context, req *Request, err error) error {
	switch {
	case parent.Err() != nil:
		return fmt.Errorf("%w: %s", ErrAborted, req.URL)
	case errors.Is(attempt.Err(), context.DeadlineExceeded):
		return &TimeoutError{URL: req.URL, Timeout: req.Timeout}
	default:
		return &NetworkError{URL: req.URL, Err: err}
	}
}

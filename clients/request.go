package clients

import (
	"net/http"
	"strings"
	"time"
)

const (
	// CommandPath is the board endpoint accepting one command line per request
	CommandPath = "/command"

	// UploadPath is the board endpoint writing the request body to the SD card
	UploadPath = "/upload"

	// FilenameHeader carries the upload target, relative to the SD card root
	FilenameHeader = "X-Filename"
)

// Request describes one HTTP attempt. It must not be reused across attempts.
type Request struct {
	Method  string
	URL     string
	Body    []byte
	Headers map[string]string
	Timeout time.Duration

	// Accept decides which status codes count as success, 200 only when nil
	Accept func(status int) bool

	// OnProgress receives best-effort upload and download progress
	OnProgress ProgressFunc
}

func (r *Request) accepts(status int) bool {
	if r.Accept == nil {
		return status == http.StatusOK
	}
	return r.Accept(status)
}

// Response is a successful attempt
type Response struct {
	StatusCode int
	Text       string
	Elapsed    time.Duration
}

// BaseURL returns the board root URL for a normalized address
func BaseURL(address string) string {
	return "http://" + address
}

// CommandRequest builds the request sending line to the board at address
func CommandRequest(address, line string, timeout time.Duration) *Request {
	return &Request{
		Method:  http.MethodPost,
		URL:     BaseURL(address) + CommandPath,
		Body:    []byte(line + "\n"),
		Headers: map[string]string{"Content-Type": "text/plain"},
		Timeout: timeout,
	}
}

// UploadRequest builds the request writing data to filename on the board SD card
func UploadRequest(address, filename string, data []byte, timeout time.Duration) *Request {
	return &Request{
		Method: http.MethodPost,
		URL:    BaseURL(address) + UploadPath,
		Body:   data,
		Headers: map[string]string{
			"Content-Type": "application/octet-stream",
			FilenameHeader: strings.TrimPrefix(filename, "/"),
		},
		Timeout: timeout,
	}
}

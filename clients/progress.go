package clients

import (
	"io"
	"sync"
)

// Direction tells upload and download progress apart
type Direction int

const (
	Upload Direction = iota
	Download
)

func (d Direction) String() string {
	if d == Upload {
		return "upload"
	}
	return "download"
}

// Progress reports transferred bytes for one direction of an attempt
type Progress struct {
	Direction Direction
	Loaded    int64
	Total     int64
	Percent   float64
}

// ProgressFunc receives progress reports
type ProgressFunc func(Progress)

// notifier delivers progress on its own goroutine so a slow listener
// never holds up the transfer. Reports are dropped when it falls behind.
type notifier struct {
	mu     sync.Mutex
	ch     chan Progress
	closed bool
}

func newNotifier(fn ProgressFunc) *notifier {
	if fn == nil {
		return nil
	}
	n := &notifier{ch: make(chan Progress, 16)}
	go func() {
		for p := range n.ch {
			fn(p)
		}
	}()
	return n
}

func (n *notifier) send(p Progress) {
	if n == nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	select {
	case n.ch <- p:
	default:
	}
}

func (n *notifier) close() {
	if n == nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.closed {
		n.closed = true
		close(n.ch)
	}
}

// progressReader counts bytes flowing through r
type progressReader struct {
	r         io.Reader
	direction Direction
	loaded    int64
	total     int64
	notify    *notifier
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.loaded += int64(n)
		// length not computable, nothing meaningful to report
		if p.total > 0 {
			p.notify.send(Progress{
				Direction: p.direction,
				Loaded:    p.loaded,
				Total:     p.total,
				Percent:   float64(p.loaded) / float64(p.total) * 100,
			})
		}
	}
	return n, err
}

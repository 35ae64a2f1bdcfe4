package decoders

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// PlayStart is the decoded reply of the play command
type PlayStart struct {
	File string `json:"file"`
	Size int64  `json:"size"` // -1 when the board could not compute it
}

// Play decodes "play path":
//
//	Playing /sd/file.gcode
//	Total file size is 8600 bytes
func Play(text string, args []string) (any, error) {
	text = strings.TrimSpace(text)
	file := pathArg(args, 0)

	switch {
	case strings.HasPrefix(text, "File not found"):
		return nil, fmt.Errorf("file %q: %w", file, ErrNotFound)
	case strings.HasPrefix(text, "Currently printing"):
		return nil, ErrBusy
	case !strings.HasPrefix(text, "Playing"):
		return nil, unknown(text)
	}

	start := PlayStart{File: file, Size: -1}
	lines := strings.Split(text, "\n")
	if len(lines) > 1 {
		fields := strings.Fields(lines[1])
		for i := len(fields) - 1; i >= 0; i-- {
			if n, err := strconv.ParseInt(fields[i], 10, 64); err == nil {
				start.Size = n
				break
			}
		}
	}
	return start, nil
}

// Progress is the decoded reply of the progress command
type Progress struct {
	Paused    bool          `json:"paused"`
	File      string        `json:"file,omitempty"`
	Complete  int           `json:"complete"` // percent
	Elapsed   time.Duration `json:"elapsed"`
	Estimated time.Duration `json:"estimated"` // zero while the board has no estimate
	Played    int64         `json:"played,omitempty"`
	Total     int64         `json:"total,omitempty"`
}

var (
	pausedPattern   = regexp.MustCompile(`SD print is paused at ([0-9]+)/([0-9]+)`)
	progressPattern = regexp.MustCompile(`file: ([^,]+), ([0-9]+) % complete, elapsed time: ([0-9:]+)( s)?(?:, est time: ([0-9:]+)(?: s)?)?`)
)

// PlayProgress decodes the progress command. Older firmwares report
// times in seconds, newer ones as hh:mm:ss:
//
//	file: /sd/skate.gcode, 27 % complete, elapsed time: 13 s, est time: 33 s
//	file: /sd/tag.gcode, 6 % complete, elapsed time: 00:01:42, est time: 00:25:23
func PlayProgress(text string, _ []string) (any, error) {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "Not currently playing") {
		return nil, ErrNotPlaying
	}

	if strings.HasPrefix(text, "SD print is paused at") {
		m := pausedPattern.FindStringSubmatch(text)
		if m == nil {
			return nil, unknown(text)
		}
		played, _ := strconv.ParseInt(m[1], 10, 64)
		total, _ := strconv.ParseInt(m[2], 10, 64)
		return Progress{Paused: true, Played: played, Total: total}, nil
	}

	m := progressPattern.FindStringSubmatch(text)
	if m == nil {
		return nil, unknown(text)
	}

	complete, _ := strconv.Atoi(m[2])
	elapsed, err := parseClock(m[3])
	if err != nil {
		return nil, err
	}
	var estimated time.Duration
	if m[5] != "" {
		if estimated, err = parseClock(m[5]); err != nil {
			return nil, err
		}
	}

	return Progress{
		File:      strings.TrimSpace(m[1]),
		Complete:  complete,
		Elapsed:   elapsed,
		Estimated: estimated,
	}, nil
}

// parseClock reads "42" as seconds and "hh:mm:ss" as a clock
func parseClock(s string) (time.Duration, error) {
	var total int64
	for _, part := range strings.Split(s, ":") {
		n, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid time %q: %w", s, err)
		}
		total = total*60 + n
	}
	return time.Duration(total) * time.Second, nil
}

// Abort decodes the abort command.
func Abort(text string, _ []string) (any, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "Not currently playing") {
		return nil, ErrNotPlaying
	}
	if !strings.HasPrefix(text, "Aborted playing or paused file") {
		return nil, unknown(text)
	}
	return text, nil
}

// Suspend decodes the suspend command.
func Suspend(text string, _ []string) (any, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "Already suspended") {
		return nil, fmt.Errorf("already suspended")
	}
	if !strings.HasPrefix(text, "Suspending print") {
		return nil, unknown(text)
	}
	return text, nil
}

// Resume decodes the resume command and returns the board messages
// following the first line.
func Resume(text string, _ []string) (any, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "Not suspended") {
		return nil, fmt.Errorf("not suspended")
	}
	if !strings.HasPrefix(text, "resuming print...") {
		return nil, unknown(text)
	}
	if strings.Contains(text, "Resume aborted by kill") {
		return nil, fmt.Errorf("resume aborted by kill")
	}

	lines := strings.Split(text, "\n")
	messages := make([]string, 0, len(lines)-1)
	for _, line := range lines[1:] {
		if line = strings.TrimSpace(line); line != "" {
			messages = append(messages, line)
		}
	}
	return messages, nil
}

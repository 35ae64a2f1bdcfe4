package decoders

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// BoardVersion is the decoded reply of the version command
type BoardVersion struct {
	Branch string `json:"branch"`
	Hash   string `json:"hash"`
	Date   string `json:"date"`
	MCU    string `json:"mcu"`
	Clock  string `json:"clock"`
}

var versionPattern = regexp.MustCompile(`Build version: (.*), Build date: (.*), MCU: (.*), System Clock: (.*)`)

// Version decodes "Build version: edge-5829d90, Build date: Mar  3 2019 14:54:42, MCU: LPC1769, System Clock: 120MHz".
func Version(text string, _ []string) (any, error) {
	m := versionPattern.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return nil, unknown(text)
	}

	branch, hash, _ := strings.Cut(m[1], "-")
	return BoardVersion{
		Branch: strings.TrimSpace(branch),
		Hash:   strings.TrimSpace(hash),
		Date:   strings.TrimSpace(m[2]),
		MCU:    strings.TrimSpace(m[3]),
		Clock:  strings.TrimSpace(m[4]),
	}, nil
}

// OK expects a bare "ok".
func OK(text string, _ []string) (any, error) {
	if strings.TrimSpace(text) != "ok" {
		return nil, fmt.Errorf("ko: %q", strings.TrimSpace(text))
	}
	return "ok", nil
}

// ClearState decodes M999. The board says a plain "ok" when it was not
// halted, so the result is true only when a halt state was cleared.
func ClearState(text string, _ []string) (any, error) {
	return strings.TrimSpace(text) != "ok", nil
}

// DebugBanner is printed by the board when it enters its debug monitor.
const DebugBanner = "Entering MRI debug mode..."

// Break decodes the rare case where the board answers the break command.
func Break(text string, _ []string) (any, error) {
	text = strings.TrimSpace(text)
	if text != DebugBanner {
		return nil, unknown(text)
	}
	return text, nil
}

// NetworkInfo is the decoded reply of the net command
type NetworkInfo struct {
	IP      string `json:"ip"`
	Gateway string `json:"gateway"`
	Mask    string `json:"mask"`
	MAC     string `json:"mac"`
}

var networkPattern = regexp.MustCompile(`IP Addr:([^\n]+)\nIP GW:([^\n]+)\nIP mask:([^\n]+)\nMAC Address:([^\n]+)`)

// Network decodes the net command.
func Network(text string, _ []string) (any, error) {
	text = strings.ReplaceAll(strings.TrimSpace(text), "\r\n", "\n")
	m := networkPattern.FindStringSubmatch(text)
	if m == nil {
		return nil, unknown(text)
	}
	return NetworkInfo{
		IP:      strings.TrimSpace(m[1]),
		Gateway: strings.TrimSpace(m[2]),
		Mask:    strings.TrimSpace(m[3]),
		MAC:     strings.TrimSpace(m[4]),
	}, nil
}

// Memory decodes the non verbose mem command into byte counts keyed by
// upper-cased, underscore separated labels:
//
//	Unused Heap: 8344 bytes
//	Allocated: 14348, Free: 2572
//
// gives UNUSED_HEAP=8344, ALLOCATED=14348, FREE=2572.
func Memory(text string, _ []string) (any, error) {
	memory := make(map[string]int64)

	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		for _, part := range strings.Split(line, ", ") {
			key, value, ok := strings.Cut(part, ":")
			if !ok {
				continue
			}
			value = strings.TrimSuffix(strings.TrimSpace(value), " bytes")
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				continue
			}
			key = strings.ToUpper(strings.Join(strings.Fields(key), "_"))
			memory[key] = n
		}
	}

	if len(memory) == 0 {
		return nil, unknown(text)
	}
	return memory, nil
}

package decoders

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Temperature is one heater reading. Current is nil when the sensor
// reports inf, which means it is disconnected or damaged.
type Temperature struct {
	Designator string   `json:"designator"`
	ID         int      `json:"id,omitempty"`
	Current    *float64 `json:"current"`
	Target     *float64 `json:"target"`
	PWM        int      `json:"pwm"`
}

var (
	heaterPattern = regexp.MustCompile(`^(\S+) \(([0-9]+)\) temp: (inf|[0-9.]+)/(inf|[0-9.]+) @([0-9]+)`)
	devicePattern = regexp.MustCompile(`^([a-z]+) temp: (inf|[0-9.]+)/(inf|[0-9.]+) @([0-9]+)`)
)

func reading(s string) *float64 {
	if s == "inf" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// Temperatures decodes "get temp [device]". Without a device every
// heater is listed and a []Temperature is returned:
//
//	T (57988) temp: inf/0.000000 @0
//	B (22060) temp: 21.5/60.000000 @128
//
// With a device a single Temperature is returned.
func Temperatures(text string, args []string) (any, error) {
	text = strings.TrimSpace(text)
	device := strings.ToLower(arg(args, 0))

	if strings.HasPrefix(text, "no heaters found") {
		return nil, fmt.Errorf("heaters: %w", ErrNotFound)
	}
	if strings.HasSuffix(text, "is not a known temperature device") {
		return nil, fmt.Errorf("temperature device %q: %w", device, ErrNotFound)
	}

	if device == "" {
		var heaters []Temperature
		for _, line := range strings.Split(text, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			m := heaterPattern.FindStringSubmatch(line)
			if m == nil {
				return nil, unknown(line)
			}
			id, _ := strconv.Atoi(m[2])
			pwm, _ := strconv.Atoi(m[5])
			heaters = append(heaters, Temperature{
				Designator: m[1],
				ID:         id,
				Current:    reading(m[3]),
				Target:     reading(m[4]),
				PWM:        pwm,
			})
		}
		if len(heaters) == 0 {
			return nil, unknown(text)
		}
		return heaters, nil
	}

	m := devicePattern.FindStringSubmatch(text)
	if m == nil {
		return nil, unknown(text)
	}
	pwm, _ := strconv.Atoi(m[4])
	return Temperature{
		Designator: m[1],
		Current:    reading(m[2]),
		Target:     reading(m[3]),
		PWM:        pwm,
	}, nil
}

// Position is one coordinate system as reported by "get pos"
type Position struct {
	Command     string  `json:"command"`
	Description string  `json:"description"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Z           float64 `json:"z"`
}

var positionKinds = map[string]Position{
	"WCS":  {Command: "M114", Description: "Position of all axes"},
	"WPOS": {Command: "M114.1", Description: "Real time position of all axes"},
	"MPOS": {Command: "M114.2", Description: "Real time machine position of all axes"},
	"APOS": {Command: "M114.3", Description: "Real time actuator position of all actuators"},
	"LMS":  {Command: "M114.4", Description: "Last milestone"},
	"LMP":  {Command: "M114.5", Description: "Last machine position"},
}

// Positions decodes "get pos", keyed by coordinate system:
//
//	last C: X:0.0000 Y:0.0000 Z:0.0000
//	realtime WPOS: X:0.0000 Y:0.0000 Z:0.0000
//	MPOS: X:0.0000 Y:0.0000 Z:0.0000
func Positions(text string, _ []string) (any, error) {
	positions := make(map[string]Position)

	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		label, coords, ok := strings.Cut(strings.TrimSpace(line), ":")
		if !ok {
			continue
		}

		key := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(label), " ", "_"))
		switch key {
		case "LAST_C":
			key = "WCS"
		case "REALTIME_WPOS":
			key = "WPOS"
		}

		p, ok := positionKinds[key]
		if !ok {
			p = Position{Command: "M114.?", Description: "Unknown type"}
		}
		for _, field := range strings.Fields(coords) {
			axis, value, ok := strings.Cut(field, ":")
			if !ok {
				continue
			}
			v, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return nil, unknown(line)
			}
			switch strings.ToUpper(axis) {
			case "X":
				p.X = v
			case "Y":
				p.Y = v
			case "Z":
				p.Z = v
			}
		}
		positions[key] = p
	}

	if len(positions) == 0 {
		return nil, unknown(text)
	}
	return positions, nil
}

// Laser is the decoded reply of the fire command
type Laser struct {
	Fire  bool    `json:"fire"`
	Power float64 `json:"power"`
}

var firePattern = regexp.MustCompile(`^WARNING: Firing laser at ([0-9.]+)%`)

// Fire decodes "fire power|off". An empty reply never gets here, the
// codec reports it as an alarm.
func Fire(text string, _ []string) (any, error) {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "Usage: fire power") {
		return nil, fmt.Errorf("%w: fire power|off", ErrUsage)
	}
	if strings.HasPrefix(text, "turning laser off") {
		return Laser{}, nil
	}

	m := firePattern.FindStringSubmatch(text)
	if m == nil {
		return nil, unknown(text)
	}
	power, _ := strconv.ParseFloat(m[1], 64)
	return Laser{Fire: true, Power: power}, nil
}

// SwitchState is the decoded reply of the switch command
type SwitchState struct {
	Device string `json:"device"`
	Value  string `json:"value"`
}

// Switch decodes "switch device value".
func Switch(text string, args []string) (any, error) {
	device := arg(args, 0)
	if strings.HasSuffix(strings.TrimSpace(text), "is not a known switch device") {
		return nil, fmt.Errorf("switch device %q: %w", device, ErrNotFound)
	}
	return SwitchState{Device: device, Value: arg(args, 1)}, nil
}

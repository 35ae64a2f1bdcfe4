package decoders

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smoothie-happy/models"
	"smoothie-happy/protocol"
)

func decode(t *testing.T, line, text string) (any, error) {
	t.Helper()
	name, args := protocol.ParseLine(line)
	return protocol.NewCodec(NewRegistry()).Decode(name, text, args, nil)
}

func TestVersion(t *testing.T) {
	value, err := decode(t, "version", "Build version: edge-5829d90, Build date: Mar  3 2019 14:54:42, MCU: LPC1769, System Clock: 120MHz\r\n")
	require.NoError(t, err)
	assert.Equal(t, BoardVersion{
		Branch: "edge",
		Hash:   "5829d90",
		Date:   "Mar  3 2019 14:54:42",
		MCU:    "LPC1769",
		Clock:  "120MHz",
	}, value)

	_, err = decode(t, "version", "hello")
	assert.True(t, errors.Is(err, protocol.ErrParse))
	assert.True(t, errors.Is(err, ErrUnknownResponse))
}

func TestList(t *testing.T) {
	text := "config 29417\r\nfirmware.cur 368144\r\nproject1/\r\nSystem Volume Information/\r\nfile2.gcode 0\r\n"

	value, err := decode(t, "ls -s /SD/", text)
	require.NoError(t, err)
	assert.Equal(t, []models.FileEntry{
		{Type: models.TypeFile, Path: "/sd/config", Parent: "/sd", Name: "config", Size: 29417},
		{Type: models.TypeFile, Path: "/sd/firmware.cur", Parent: "/sd", Name: "firmware.cur", Extension: ".cur", Size: 368144},
		{Type: models.TypeFolder, Path: "/sd/project1", Parent: "/sd", Name: "project1"},
		{Type: models.TypeFile, Path: "/sd/file2.gcode", Parent: "/sd", Name: "file2.gcode", Extension: ".gcode"},
	}, value)

	value, err = decode(t, "ls /sd/empty", "")
	require.NoError(t, err)
	assert.Empty(t, value)

	_, err = decode(t, "ls -s /sd/nope", "Could not open directory /sd/nope\r\n")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestListPathWithSpaces(t *testing.T) {
	value, err := decode(t, "ls -s /sd/My Folder", "a.gcode 10\r\nsub dir/\r\n")
	require.NoError(t, err)
	assert.Equal(t, []models.FileEntry{
		{Type: models.TypeFile, Path: "/sd/my folder/a.gcode", Parent: "/sd/my folder", Name: "a.gcode", Extension: ".gcode", Size: 10},
		{Type: models.TypeFolder, Path: "/sd/my folder/sub dir", Parent: "/sd/my folder", Name: "sub dir"},
	}, value)

	entries, err := ParseList("my file.gcode 7\r\n", "/sd/a  b")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "/sd/a  b/my file.gcode", entries[0].Path)
	assert.Equal(t, int64(7), entries[0].Size)
}

func TestFileCommands(t *testing.T) {
	value, err := decode(t, "cd /sd/Gcode", "")
	require.NoError(t, err)
	assert.Equal(t, "/sd/gcode", value)

	value, err = decode(t, "pwd", "/sd\r\n")
	require.NoError(t, err)
	assert.Equal(t, "/sd", value)

	value, err = decode(t, "mkdir /sd/new", "created directory /sd/new\r\n")
	require.NoError(t, err)
	assert.Equal(t, "/sd/new", value)

	_, err = decode(t, "mkdir /sd/new", "could not create directory /sd/new\r\n")
	assert.True(t, errors.Is(err, protocol.ErrParse))

	value, err = decode(t, "rm /sd/a.gcode", "")
	require.NoError(t, err)
	assert.Equal(t, "/sd/a.gcode", value)

	_, err = decode(t, "rm /sd/a.gcode", "Could not delete /sd/a.gcode\r\n")
	assert.Error(t, err)

	value, err = decode(t, "mv /sd/a.gcode /sd/b.gcode", "")
	require.NoError(t, err)
	assert.Equal(t, Rename{From: "/sd/a.gcode", To: "/sd/b.gcode"}, value)

	value, err = decode(t, "md5sum /sd/config", "4b5c1d5ab4a1e8b7f1f1a0c3e37ab2a9 /sd/config\r\n")
	require.NoError(t, err)
	assert.Equal(t, Checksum{MD5: "4b5c1d5ab4a1e8b7f1f1a0c3e37ab2a9", File: "/sd/config"}, value)

	_, err = decode(t, "cat /sd/none", "File not found: /sd/none\r\n")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestConfig(t *testing.T) {
	value, err := decode(t, "config-get sd acceleration", "sd: acceleration is set to 3000\r\n")
	require.NoError(t, err)
	assert.Equal(t, Setting{Source: "sd", Setting: "acceleration", Value: "3000"}, value)

	_, err = decode(t, "config-get sd nope", "sd: nope is not in config\r\n")
	assert.True(t, errors.Is(err, ErrNotFound))

	value, err = decode(t, "config-set sd acceleration 2500", "sd: acceleration has been set to 2500\r\n")
	require.NoError(t, err)
	assert.Equal(t, Setting{Source: "sd", Setting: "acceleration", Value: "2500"}, value)

	_, err = decode(t, "config-set", "Usage: config-set source setting value # where source is sd\r\n")
	assert.True(t, errors.Is(err, ErrUsage))

	value, err = decode(t, "save", "Settings Stored to /sd/config-override\r\nok\r\n")
	require.NoError(t, err)
	assert.Equal(t, "/sd/config-override", value)
}

func TestPlay(t *testing.T) {
	value, err := decode(t, "play /sd/part.gcode", "Playing /sd/part.gcode\r\nTotal file size is 8600 bytes\r\n")
	require.NoError(t, err)
	assert.Equal(t, PlayStart{File: "/sd/part.gcode", Size: 8600}, value)

	_, err = decode(t, "play /sd/part.gcode", "Currently printing, abort print first\r\n")
	assert.True(t, errors.Is(err, ErrBusy))

	value, err = decode(t, "progress", "file: /sd/tag.gcode, 6 % complete, elapsed time: 00:01:42, est time: 00:25:23\r\n")
	require.NoError(t, err)
	assert.Equal(t, Progress{
		File:      "/sd/tag.gcode",
		Complete:  6,
		Elapsed:   time.Minute + 42*time.Second,
		Estimated: 25*time.Minute + 23*time.Second,
	}, value)

	value, err = decode(t, "progress", "file: /sd/skate.gcode, 27 % complete, elapsed time: 7 s\r\n")
	require.NoError(t, err)
	assert.Equal(t, Progress{File: "/sd/skate.gcode", Complete: 27, Elapsed: 7 * time.Second}, value)

	value, err = decode(t, "progress", "SD print is paused at 150/380\r\n")
	require.NoError(t, err)
	assert.Equal(t, Progress{Paused: true, Played: 150, Total: 380}, value)

	_, err = decode(t, "progress", "Not currently playing\r\n")
	assert.True(t, errors.Is(err, ErrNotPlaying))

	_, err = decode(t, "abort", "Aborted playing or paused file. Please turn any heaters off manually\r\n")
	assert.NoError(t, err)

	value, err = decode(t, "resume", "resuming print...\r\nRestoring saved XYZ positions and state...\r\nResuming print\r\n")
	require.NoError(t, err)
	assert.Equal(t, []string{"Restoring saved XYZ positions and state...", "Resuming print"}, value)
}

func TestTemperatures(t *testing.T) {
	value, err := decode(t, "get temp", "T (57988) temp: inf/0.000000 @0\r\nB (22060) temp: 21.500000/60.000000 @128\r\n")
	require.NoError(t, err)

	heaters, ok := value.([]Temperature)
	require.True(t, ok)
	require.Len(t, heaters, 2)
	assert.Equal(t, "T", heaters[0].Designator)
	assert.Equal(t, 57988, heaters[0].ID)
	assert.Nil(t, heaters[0].Current)
	require.NotNil(t, heaters[1].Current)
	assert.Equal(t, 21.5, *heaters[1].Current)
	assert.Equal(t, 60.0, *heaters[1].Target)
	assert.Equal(t, 128, heaters[1].PWM)

	value, err = decode(t, "get temp bed", "bed temp: 20.000000/0.000000 @0\r\n")
	require.NoError(t, err)
	bed, ok := value.(Temperature)
	require.True(t, ok)
	assert.Equal(t, "bed", bed.Designator)

	_, err = decode(t, "get temp laser", "laser is not a known temperature device\r\n")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestPositions(t *testing.T) {
	text := "last C: X:0.0000 Y:10.5000 Z:0.0000\r\nrealtime WPOS: X:1.0000 Y:2.0000 Z:3.0000\r\nMPOS: X:0.0000 Y:0.0000 Z:0.0000\r\n"

	value, err := decode(t, "get pos", text)
	require.NoError(t, err)

	positions, ok := value.(map[string]Position)
	require.True(t, ok)
	assert.Equal(t, Position{Command: "M114", Description: "Position of all axes", Y: 10.5}, positions["WCS"])
	assert.Equal(t, 3.0, positions["WPOS"].Z)
	assert.Equal(t, "M114.2", positions["MPOS"].Command)
}

func TestMachine(t *testing.T) {
	value, err := decode(t, "fire 50", "WARNING: Firing laser at 50.00% power, entering manual mode use fire off to return to auto mode\r\n")
	require.NoError(t, err)
	assert.Equal(t, Laser{Fire: true, Power: 50}, value)

	value, err = decode(t, "fire off", "turning laser off and returning to auto mode\r\n")
	require.NoError(t, err)
	assert.Equal(t, Laser{}, value)

	_, err = decode(t, "fire 50", "")
	assert.True(t, errors.Is(err, protocol.ErrAlarm))

	value, err = decode(t, "switch fan on", "")
	require.NoError(t, err)
	assert.Equal(t, SwitchState{Device: "fan", Value: "on"}, value)

	_, err = decode(t, "switch pump on", "pump is not a known switch device\r\n")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSystem(t *testing.T) {
	value, err := decode(t, "M999", "ok\r\n")
	require.NoError(t, err)
	assert.Equal(t, false, value)

	value, err = decode(t, "mem", "Unused Heap: 8344 bytes\r\nUsed Heap Size: 14348\r\nAllocated: 14348, Free: 2572\r\n")
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{
		"UNUSED_HEAP":    8344,
		"USED_HEAP_SIZE": 14348,
		"ALLOCATED":      14348,
		"FREE":           2572,
	}, value)

	value, err = decode(t, "net", "IP Addr:192.168.1.102\r\nIP GW:192.168.1.1\r\nIP mask:255.255.255.0\r\nMAC Address:00:1F:11:02:04:20\r\n")
	require.NoError(t, err)
	assert.Equal(t, NetworkInfo{IP: "192.168.1.102", Gateway: "192.168.1.1", Mask: "255.255.255.0", MAC: "00:1F:11:02:04:20"}, value)

	value, err = decode(t, "break", DebugBanner)
	require.NoError(t, err)
	assert.Equal(t, DebugBanner, value)

	_, err = decode(t, "ok", "ko")
	assert.True(t, errors.Is(err, protocol.ErrParse))
}

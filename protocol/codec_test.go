package protocol

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// alarmFlag counts real transitions, like a board would
type alarmFlag struct {
	on          bool
	transitions int
}

func (a *alarmFlag) SetAlarm(on bool) {
	if a.on != on {
		a.on = on
		a.transitions++
	}
}

func newTestCodec(t *testing.T) (*Codec, *int) {
	t.Helper()

	calls := 0
	r := NewRegistry()
	r.Register("ok", func(text string, _ []string) (any, error) {
		calls++
		return text, nil
	})
	r.Register("M999", func(text string, _ []string) (any, error) {
		calls++
		return true, nil
	})
	r.Register("get temp", func(text string, args []string) (any, error) {
		calls++
		return args, nil
	})
	r.Register("get", func(text string, args []string) (any, error) {
		calls++
		return "get", nil
	})
	r.Register("bad", func(text string, _ []string) (any, error) {
		return nil, fmt.Errorf("cannot read %q", text)
	})
	return NewCodec(r), &calls
}

func TestParseLine(t *testing.T) {
	name, args := ParseLine("  ls   -s  /sd/gcode \n")
	assert.Equal(t, "ls", name)
	assert.Equal(t, []string{"-s", "/sd/gcode"}, args)

	name, args = ParseLine("   ")
	assert.Equal(t, "", name)
	assert.Empty(t, args)
}

func TestEncode(t *testing.T) {
	assert.Equal(t, "version\n", Encode("version", nil))
	assert.Equal(t, "config-get sd acceleration\n", Encode("config-get", []string{"sd", "acceleration"}))
}

func TestDecodeUnsupportedNeverReachesDecoder(t *testing.T) {
	c, calls := newTestCodec(t)

	_, err := c.Decode("ok", "error:Unsupported command - ok\r\n", nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedCommand))
	assert.Equal(t, 0, *calls)

	var unsupported *UnsupportedCommandError
	require.True(t, errors.As(err, &unsupported))
	assert.Equal(t, "ok", unsupported.Command)
}

func TestDecodeAlarmSetsFlagOnce(t *testing.T) {
	c, calls := newTestCodec(t)
	state := &alarmFlag{}

	for i := 0; i < 2; i++ {
		_, err := c.Decode("ok", "!!\r\n", nil, state)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrAlarm))
	}
	assert.True(t, state.on)
	assert.Equal(t, 1, state.transitions)
	assert.Equal(t, 0, *calls)

	_, err := c.Decode("M999", "ok\r\n", nil, state)
	require.NoError(t, err)
	assert.False(t, state.on)
	assert.Equal(t, 2, state.transitions)
}

func TestDecodeAlarmMarkers(t *testing.T) {
	c, _ := newTestCodec(t)

	for _, text := range []string{"!!", "ALARM: Hard limit +X", "Error: MINTEMP triggered", "  !! halted\nok"} {
		_, err := c.Decode("ok", text, nil, nil)
		assert.True(t, errors.Is(err, ErrAlarm), text)
	}
}

func TestDecodeEmptyReply(t *testing.T) {
	c, _ := newTestCodec(t)
	state := &alarmFlag{}

	_, err := c.Decode("fire", "", []string{"50"}, state)
	assert.True(t, errors.Is(err, ErrAlarm))
	assert.True(t, state.on)

	// not in the table, the decoder decides
	value, err := c.Decode("ok", "", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "", value)
}

func TestDecodeEmptyReplyTable(t *testing.T) {
	r := NewRegistry()
	r.Register("play", func(string, []string) (any, error) { return nil, nil })
	c := NewCodec(r, WithEmptyReplyAlarm("play"))

	_, err := c.Decode("play", " \r\n", nil, nil)
	assert.True(t, errors.Is(err, ErrAlarm))

	_, err = c.Decode("fire", "", nil, nil)
	assert.True(t, errors.Is(err, ErrUnimplementedCommand))
}

func TestDecodeClearAlarmKeepsAlarmOnAlarmReply(t *testing.T) {
	c, _ := newTestCodec(t)
	state := &alarmFlag{on: true}

	_, err := c.Decode("M999", "!!", nil, state)
	assert.True(t, errors.Is(err, ErrAlarm))
	assert.True(t, state.on)
}

func TestDecodeUnimplemented(t *testing.T) {
	c, _ := newTestCodec(t)

	_, err := c.Decode("dance", "ok", nil, nil)
	assert.True(t, errors.Is(err, ErrUnimplementedCommand))
}

func TestDecodeParseError(t *testing.T) {
	c, _ := newTestCodec(t)

	_, err := c.Decode("bad", "garbage", nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrParse))

	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, "garbage", parseErr.Text)
	assert.Contains(t, parseErr.Err.Error(), "garbage")
}

func TestDecodeCompoundName(t *testing.T) {
	c, _ := newTestCodec(t)

	value, err := c.Decode("get", "T (1) temp: 20/0 @0", []string{"temp", "bed"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"bed"}, value)

	value, err = c.Decode("get", "whatever", []string{"fk"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "get", value)
}

func TestDecodeRaw(t *testing.T) {
	c, calls := newTestCodec(t)

	text, err := c.DecodeRaw("anything", "free text", nil)
	require.NoError(t, err)
	assert.Equal(t, "free text", text)
	assert.Equal(t, 0, *calls)

	_, err = c.DecodeRaw("anything", "error:Unsupported command", nil)
	assert.True(t, errors.Is(err, ErrUnsupportedCommand))
}

func TestRegistryNames(t *testing.T) {
	c, _ := newTestCodec(t)
	assert.Equal(t, []string{"M999", "bad", "get", "get temp", "ok"}, c.Registry().Names())
}

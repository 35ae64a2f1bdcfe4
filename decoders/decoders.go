// Package decoders holds the response decoders for the board commands
// this client knows about. Each decoder is pure and only turns reply
// text into a value or an error; shared alarm and unsupported-command
// detection happens earlier, in the protocol codec.
package decoders

import (
	"errors"
	"fmt"
	"strings"

	"smoothie-happy/models"
	"smoothie-happy/protocol"
)

// Sentinel errors returned by decoders. The codec wraps them in a
// *protocol.ParseError, errors.Is still matches.
var (
	ErrUnknownResponse = errors.New("unknown response string")
	ErrNotFound        = errors.New("not found")
	ErrNotPlaying      = errors.New("not currently playing")
	ErrUsage           = errors.New("bad usage")
	ErrBusy            = errors.New("currently playing, abort first")
)

// Register adds every decoder of this package to r.
func Register(r *protocol.Registry) {
	r.Register("version", Version)
	r.Register("ok", OK)
	r.Register("M999", ClearState)
	r.Register("break", Break)
	r.Register("reset", Trimmed)
	r.Register("remount", Trimmed)
	r.Register("net", Network)
	r.Register("mem", Memory)

	r.Register("ls", List)
	r.Register("pwd", Trimmed)
	r.Register("cd", ChangeDir)
	r.Register("cat", Cat)
	r.Register("mkdir", MakeDir)
	r.Register("rm", Remove)
	r.Register("mv", Move)
	r.Register("md5sum", MD5Sum)

	r.Register("config-get", ConfigGet)
	r.Register("config-set", ConfigSet)
	r.Register("save", Save)

	r.Register("play", Play)
	r.Register("progress", PlayProgress)
	r.Register("abort", Abort)
	r.Register("suspend", Suspend)
	r.Register("resume", Resume)

	r.Register("get temp", Temperatures)
	r.Register("get pos", Positions)
	r.Register("fire", Fire)
	r.Register("switch", Switch)
}

// NewRegistry returns a registry holding every decoder of this package.
func NewRegistry() *protocol.Registry {
	r := protocol.NewRegistry()
	Register(r)
	return r
}

// Trimmed returns the reply without surrounding white space.
func Trimmed(text string, _ []string) (any, error) {
	return strings.TrimSpace(text), nil
}

// arg returns args[i] or "" when missing
func arg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

func unknown(text string) error {
	return fmt.Errorf("%w: %q", ErrUnknownResponse, strings.TrimSpace(text))
}

// pathArg returns the normalized path given as argument i
func pathArg(args []string, i int) string {
	return models.NormalizePath(arg(args, i))
}

// pathRest returns the normalized path made of args[i:], for commands
// taking a single path that may contain spaces
func pathRest(args []string, i int) string {
	if i >= len(args) {
		return models.NormalizePath("")
	}
	return models.NormalizePath(strings.Join(args[i:], " "))
}

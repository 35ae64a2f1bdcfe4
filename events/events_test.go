package events

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct {
	Nop
	commands, states int
}

func (c *counter) OnCommand(CommandEvent) { c.commands++ }
func (c *counter) OnState(StateEvent)     { c.states++ }

func TestMulti(t *testing.T) {
	a, b := &counter{}, &counter{}
	m := Multi{a, b}

	m.OnCommand(CommandEvent{Kind: CommandCreated})
	m.OnState(StateEvent{Kind: Online})
	m.OnQueue(QueueEvent{Kind: QueuePaused})
	m.OnFileTree(FileTreeEvent{Path: "/sd"})

	assert.Equal(t, 1, a.commands)
	assert.Equal(t, 1, b.commands)
	assert.Equal(t, 1, a.states)
	assert.Equal(t, 1, b.states)
}

func TestOr(t *testing.T) {
	assert.Equal(t, Nop{}, Or(nil))

	c := &counter{}
	assert.Same(t, c, Or(c))
}

func TestKindNames(t *testing.T) {
	assert.Equal(t, "retry limit exceeded", CommandRetryLimitExceeded.String())
	assert.Equal(t, "cleared", QueueCleared.String())
	assert.Equal(t, "alarm entered", AlarmEntered.String())
	assert.Equal(t, "unknown", StateKind(42).String())
}

func TestLogObserver(t *testing.T) {
	log, hook := logtest.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	o := NewLogObserver(log)

	o.OnCommand(CommandEvent{
		Kind:    CommandErrored,
		Address: "192.168.1.102",
		Command: CommandInfo{ID: "1", Line: "version", Attempts: 3},
		Err:     errors.New("boom"),
	})
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "version", entry.Data["command"])
	assert.Equal(t, 3, entry.Data["attempts"])
	assert.Equal(t, "192.168.1.102", entry.Data["board"])

	o.OnState(StateEvent{Kind: Offline, Address: "192.168.1.102"})
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, "board offline", hook.LastEntry().Message)

	o.OnQueue(QueueEvent{Kind: QueueCleared, Cleared: []CommandInfo{{ID: "1"}, {ID: "2"}}})
	assert.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)
	assert.Equal(t, "queue cleared, 2 commands cancelled", hook.LastEntry().Message)

	o.OnFileTree(FileTreeEvent{Path: "/sd", Size: 130})
	assert.Equal(t, logrus.DebugLevel, hook.LastEntry().Level)
	assert.Equal(t, int64(130), hook.LastEntry().Data["size"])

	assert.Len(t, hook.AllEntries(), 4)
}

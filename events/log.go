package events

import (
	"github.com/sirupsen/logrus"
)

// LogObserver writes every event to a logrus logger
type LogObserver struct {
	log logrus.FieldLogger
}

// NewLogObserver creates a new observer logging to log
func NewLogObserver(log logrus.FieldLogger) *LogObserver {
	return &LogObserver{log: log}
}

func (o *LogObserver) OnCommand(e CommandEvent) {
	entry := o.log.WithFields(logrus.Fields{
		"board":    e.Address,
		"command":  e.Command.Line,
		"id":       e.Command.ID,
		"attempts": e.Command.Attempts,
	})

	switch e.Kind {
	case CommandErrored:
		entry.WithError(e.Err).Warn("command failed")
	case CommandRetryScheduled:
		entry.WithError(e.Err).Infof("retrying in %v", e.Delay)
	case CommandRetryLimitExceeded:
		entry.WithError(e.Err).Warn("retry limit exceeded")
	case CommandResolved:
		entry.WithField("elapsed", e.Elapsed).Debug("command resolved")
	default:
		entry.Debugf("command %s", e.Kind)
	}
}

func (o *LogObserver) OnQueue(e QueueEvent) {
	entry := o.log.WithFields(logrus.Fields{
		"board":   e.Address,
		"pending": e.Pending,
	})
	if e.Kind == QueueCleared {
		entry.Infof("queue cleared, %d commands cancelled", len(e.Cleared))
		return
	}
	entry.Debugf("queue %s", e.Kind)
}

func (o *LogObserver) OnState(e StateEvent) {
	entry := o.log.WithField("board", e.Address)
	switch e.Kind {
	case AlarmEntered, Offline:
		entry.Warnf("board %s", e.Kind)
	default:
		entry.Infof("board %s", e.Kind)
	}
}

func (o *LogObserver) OnFileTree(e FileTreeEvent) {
	o.log.WithFields(logrus.Fields{
		"board":   e.Address,
		"path":    e.Path,
		"entries": len(e.Entries),
		"removed": e.Removed,
		"size":    e.Size,
	}).Debug("file tree updated")
}

package events

import (
	"NSSaDS/fileshare/internal/domain"
	"NSSaDS/fileshare/pkg/logger"
)

// Multi fans one event out to several observers in order.
type Multi []domain.Observer

func (m Multi) Notify(event domain.Event) {
	for _, o := range m {
		if o != nil {
			o.Notify(event)
		}
	}
}

// LogObserver writes events to the log. The connection handler already logs
// per-command outcomes, so only aggregate events are logged at info level.
type LogObserver struct {
	log *logger.Logger
}

func NewLogObserver(log *logger.Logger) *LogObserver {
	return &LogObserver{log: log}
}

func (o *LogObserver) Notify(event domain.Event) {
	switch event.Type {
	case domain.EventProgress:
		if o.log.Enabled(logger.LevelDebug) {
			o.log.Debugf("%s %s from %s: %.1f%%", event.Command, event.File, event.Remote, event.Progress)
		}
	case domain.EventConnections:
		o.log.Infof("Active connections: %d", event.Count)
	case domain.EventStoreChanged:
		o.log.Infof("Store now holds %d files", event.Count)
	default:
		o.log.Debugf("Event %s conn=%s remote=%s command=%s", event.Type, event.ConnID, event.Remote, event.Command)
	}
}

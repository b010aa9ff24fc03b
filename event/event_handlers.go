package event

import (
	"github.com/sirupsen/logrus"
)

// EventHandler inspects one persisted event, a nil result means the
// handler does not care about that event.
type EventHandler func(e *EventRecord) *EventHandleResult

type EventHandleResult struct {
	Success           bool
	Message           string
	HandlerIdentifier string
}

var EventHandlers []EventHandler

var InvokeHandlersFunc = invokeHandlers

// invokeHandlers fans one committed event out to every registered
// handler in registration order. Handler failures are logged only,
// they never reach the mutation that raised the event.
func invokeHandlers(record *EventRecord) []EventHandleResult {
	results := []EventHandleResult{}
	for _, handler := range EventHandlers {
		logrus.Debug("dispatching event ", record.Event)
		r := handler(record)

		if r == nil {
			continue
		}

		results = append(results, *r)

		if r.Success {
			logrus.Info("event handled. ", r)
		} else {
			logrus.Error("event handler failed. ", r)
		}
	}
	return results
}

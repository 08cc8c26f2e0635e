package fetch

import "log/slog"

// Notifier surfaces non-blocking messages to the operator.
type Notifier interface {
	Notify(msg string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(msg string)

func (f NotifierFunc) Notify(msg string) {
	if f != nil {
		f(msg)
	}
}

// LogNotifier writes notifications to a logger, used when no UI is attached.
type LogNotifier struct{ Log *slog.Logger }

func (n LogNotifier) Notify(msg string) {
	if n.Log != nil {
		n.Log.Info("notify", "message", msg)
	}
}

package orgstate

import "github.com/rs/zerolog/log"

// NoticeLevel distinguishes success from failure notices.
type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
)

// Notice is a short message meant for the person acting.
type Notice struct {
	Level   NoticeLevel
	Message string
}

// Notifier delivers notices, for example as a toast or a CLI line.
type Notifier interface {
	Notify(n Notice)
}

// LogNotifier writes notices to the global zerolog logger.
type LogNotifier struct{}

func (LogNotifier) Notify(n Notice) {
	switch n.Level {
	case NoticeError:
		log.Warn().Str("notice", string(n.Level)).Msg(n.Message)
	default:
		log.Info().Str("notice", string(n.Level)).Msg(n.Message)
	}
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

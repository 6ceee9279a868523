package logger

import (
	"log/slog"
	"strconv"
)

// Group creates a slog group attribute from the provided attributes.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Errors groups multiple non-nil errors under the key "errors".
// If all errors are nil, it returns an empty Attr.
func Errors(errs ...error) slog.Attr {
	as := make([]slog.Attr, 0, len(errs))
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.Any(strconv.Itoa(i), err))
		}
	}
	if len(as) == 0 {
		return slog.Attr{}
	}
	return slog.Attr{Key: "errors", Value: slog.GroupValue(as...)}
}

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// EntityType records the machine's owning entity type under "entity_type".
func EntityType(t string) slog.Attr {
	return slog.String("entity_type", t)
}

// SubjectID records the stateful record's identifier under "subject_id".
// If id is nil, it returns an empty Attr.
func SubjectID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("subject_id", id)
}

// Column records the governed state field under "column".
func Column(name string) slog.Attr {
	return slog.String("column", name)
}

// FromState records the transition's source state under "from_state".
func FromState(state string) slog.Attr {
	return slog.String("from_state", state)
}

// ToState records the transition's target state under "to_state".
func ToState(state string) slog.Attr {
	return slog.String("to_state", state)
}

// Transition records the triggering event name under "transition".
func Transition(event string) slog.Attr {
	return slog.String("transition", event)
}

// ActorID records the acting principal under "actor_id".
// If id is nil, it returns an empty Attr.
func ActorID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("actor_id", id)
}

// Callable records a named callable reference under "callable".
func Callable(name string) slog.Attr {
	return slog.String("callable", name)
}

// RetryCount records the retry count under the key "retry_count".
func RetryCount(count int) slog.Attr {
	return slog.Int("retry_count", count)
}

// Duration records a duration under the key "duration".
func Duration(d any) slog.Attr {
	return slog.Any("duration", d)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Event records the event name under the key "event".
func Event(name string) slog.Attr {
	return slog.String("event", name)
}

package engine

import "fmt"

// Recognized hook names for CallbacksFromMap. These are the only six
// lifecycle notifications a session ever emits.
const (
	HookStarted   = "started"
	HookBytesSent = "bytes_sent"
	HookComplete  = "complete"
	HookAborted   = "aborted"
	HookError     = "error"
	HookCleanup   = "cleanup"
)

// Callbacks is the fixed set of lifecycle hooks a session fires. Every field
// is optional; nil hooks are replaced with no-ops before the session starts.
//
// Ordering guarantees per session: Started fires exactly once, first, with 0.
// Exactly one of Complete or Aborted fires. Error fires at most once, only
// together with Aborted, and never for a disconnect-class failure. Cleanup
// fires exactly once, last, on every exit path.
type Callbacks struct {
	Started   func(total int64)
	BytesSent func(chunk, total int64)
	Complete  func(total int64)
	Aborted   func(err error)
	Error     func(err error)
	Cleanup   func(total int64)
}

// ConfigError reports an invalid callback configuration. It is returned
// before any transfer begins and before any hook fires.
type ConfigError struct {
	Name   string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("callback %q: %s", e.Name, e.Reason)
}

// CallbacksFromMap builds a Callbacks set from loosely supplied hooks,
// validating names against the enumerated set and signatures against the
// expected function types. Unknown names and wrongly typed hooks fail fast
// with a *ConfigError.
func CallbacksFromMap(hooks map[string]any) (Callbacks, error) {
	var cb Callbacks
	for name, hook := range hooks {
		switch name {
		case HookStarted:
			fn, ok := hook.(func(int64))
			if !ok {
				return Callbacks{}, badHookType(name, "func(int64)")
			}
			cb.Started = fn
		case HookBytesSent:
			fn, ok := hook.(func(int64, int64))
			if !ok {
				return Callbacks{}, badHookType(name, "func(int64, int64)")
			}
			cb.BytesSent = fn
		case HookComplete:
			fn, ok := hook.(func(int64))
			if !ok {
				return Callbacks{}, badHookType(name, "func(int64)")
			}
			cb.Complete = fn
		case HookAborted:
			fn, ok := hook.(func(error))
			if !ok {
				return Callbacks{}, badHookType(name, "func(error)")
			}
			cb.Aborted = fn
		case HookError:
			fn, ok := hook.(func(error))
			if !ok {
				return Callbacks{}, badHookType(name, "func(error)")
			}
			cb.Error = fn
		case HookCleanup:
			fn, ok := hook.(func(int64))
			if !ok {
				return Callbacks{}, badHookType(name, "func(int64)")
			}
			cb.Cleanup = fn
		default:
			return Callbacks{}, &ConfigError{Name: name, Reason: "unrecognized hook name"}
		}
	}
	return cb, nil
}

func badHookType(name, want string) *ConfigError {
	return &ConfigError{Name: name, Reason: "hook must be " + want}
}

// Chain fans each hook out to a then b, letting callers stack independent
// observers (journal tracker, UI, logging) on one session.
func Chain(a, b Callbacks) Callbacks {
	a = a.normalized()
	b = b.normalized()
	return Callbacks{
		Started:   func(t int64) { a.Started(t); b.Started(t) },
		BytesSent: func(c, t int64) { a.BytesSent(c, t); b.BytesSent(c, t) },
		Complete:  func(t int64) { a.Complete(t); b.Complete(t) },
		Aborted:   func(err error) { a.Aborted(err); b.Aborted(err) },
		Error:     func(err error) { a.Error(err); b.Error(err) },
		Cleanup:   func(t int64) { a.Cleanup(t); b.Cleanup(t) },
	}
}

// normalized returns a copy with nil hooks replaced by no-ops so the session
// can invoke them unconditionally.
func (c Callbacks) normalized() Callbacks {
	if c.Started == nil {
		c.Started = func(int64) {}
	}
	if c.BytesSent == nil {
		c.BytesSent = func(int64, int64) {}
	}
	if c.Complete == nil {
		c.Complete = func(int64) {}
	}
	if c.Aborted == nil {
		c.Aborted = func(error) {}
	}
	if c.Error == nil {
		c.Error = func(error) {}
	}
	if c.Cleanup == nil {
		c.Cleanup = func(int64) {}
	}
	return c
}

package logger

import (
	"slices"
	"sync"
)

// named holds component loggers by name. Entries are either registered
// explicitly or derived from the global logger on first Get, so hot paths
// such as stream boxes do not rebuild a logger per call. Replacing the
// global logger clears it.
var named sync.Map // string -> *Logger

// Register stores l under name, replacing any derived logger.
func Register(name string, l *Logger) {
	named.Store(name, l)
}

// Get returns the logger for the named component, deriving it from the
// global logger the first time.
func Get(name string) *Logger {
	if l, ok := named.Load(name); ok {
		return l.(*Logger)
	}
	l, _ := named.LoadOrStore(name, GetGlobalLogger().WithComponent(name))
	return l.(*Logger)
}

// Names lists the component loggers in use, sorted.
func Names() []string {
	var names []string
	named.Range(func(k, _ any) bool {
		names = append(names, k.(string))
		return true
	})
	slices.Sort(names)
	return names
}

func resetNamed() {
	named.Clear()
}

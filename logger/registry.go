package logger

import (
	"sync"
)

// registry holds loggers under stable names so a package can pick up a
// configured logger without it being threaded through every call site.
var registry = &loggerRegistry{
	loggers: make(map[string]*Logger),
}

type loggerRegistry struct {
	mu      sync.RWMutex
	loggers map[string]*Logger
}

// Register stores a named logger. Registering the same name again replaces
// the previous logger.
func Register(name string, l *Logger) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.loggers[name] = l
}

// Lookup returns the logger registered under name, or (nil, false) when the
// name is unknown. Use Get for a global-logger fallback instead.
func Lookup(name string) (*Logger, bool) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	l, ok := registry.loggers[name]
	return l, ok
}

// Get retrieves a named logger. If the name is not registered it returns the
// global logger tagged with the requested component name.
func Get(name string) *Logger {
	if l, ok := Lookup(name); ok {
		return l
	}
	return GetGlobalLogger().WithComponent(name)
}

// RegisterDefaults seeds the registry with component-tagged children of the
// global logger. Call this after Init().
func RegisterDefaults(names ...string) {
	for _, name := range names {
		Register(name, GetGlobalLogger().WithComponent(name))
	}
}

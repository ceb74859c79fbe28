package formic

// Logger records store and engine diagnostics: recovered observer panics,
// discarded superseded runs. The default is a no-op.
type Logger interface {
	Logf(format string, args ...any)
}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(format string, args ...any)

// Logf implements Logger.
func (f LoggerFunc) Logf(format string, args ...any) {
	if f != nil {
		f(format, args...)
	}
}

type noopLogger struct{}

func (noopLogger) Logf(string, ...any) {}

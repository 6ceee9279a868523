package engine

// Config holds engine settings loaded from environment variables via
// pkg/config.
type Config struct {
	// LogFailures controls whether failed attempts reach the audit log.
	LogFailures bool `env:"FSM_LOG_FAILURES" envDefault:"true"`
	// TruncateLimit caps persisted exception messages, in runes.
	TruncateLimit int `env:"FSM_EXCEPTION_TRUNCATE_LIMIT" envDefault:"1000"`
	// ContextExcludes lists dotted context paths stripped before logging and
	// audit storage, comma separated.
	ContextExcludes []string `env:"FSM_CONTEXT_EXCLUDES" envSeparator:","`
}

// WithConfig applies environment-driven settings in one option.
func WithConfig(cfg Config) Option {
	return func(e *Engine) {
		e.logFailures = cfg.LogFailures
		e.sanitizer = NewSanitizer(cfg.ContextExcludes, cfg.TruncateLimit)
	}
}

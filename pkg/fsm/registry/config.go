package registry

// Config holds the environment-driven registry settings.
type Config struct {
	CacheEnabled bool   `env:"FSM_CACHE_ENABLED" envDefault:"false"`                    // CacheEnabled toggles the compiled-definition cache.
	CachePath    string `env:"FSM_CACHE_PATH" envDefault:".cache/fsm_definitions.json"` // CachePath is the file cache location.
	Bootstrap    bool   `env:"FSM_BOOTSTRAP_MODE" envDefault:"false"`                   // Bootstrap skips discovery during install/boot commands.
}

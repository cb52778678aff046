package tripwire

import (
	"sync"

	"github.com/nevware21/tripwire-sub002/tripwire/format"
	"github.com/nevware21/tripwire-sub002/tripwire/log"
)

// Default messages used when a predicate supplies no template of its own.
const (
	DefaultMessage      = "expected {actual} to satisfy the assertion"
	DefaultFatalMessage = "assertion cannot proceed"
)

// Settings is the configuration surface for assertion evaluation: message
// defaults, stack-trace filtering, verbosity, the formatter manager, and the
// failure logger.
//
// The process-wide default obtained via Default is explicitly global and
// user-mutable; evaluation is single-threaded by model, so readers take no
// lock beyond the install/replace guard.
type Settings struct {
	// Verbosity is the level at which assertion failures are logged.
	Verbosity log.Level

	// FullStacks disables the cosmetic filtering of internal frames from
	// failure stack traces.
	FullStacks bool

	// DefaultMessage is the template used by Eval when the caller supplies
	// none.
	DefaultMessage string

	// DefaultFatalMessage is the message used by Fatal when the caller
	// supplies none.
	DefaultFatalMessage string

	// Format owns value rendering: the pluggable formatter pipeline, the
	// finalize step, and the circular-reference placeholder.
	Format *format.Manager

	// Logger receives a structured record of every failure. Defaults to the
	// no-op logger.
	Logger log.Logger
}

// NewSettings returns a Settings populated with defaults and an independent
// format.Manager.
func NewSettings() *Settings {
	return &Settings{
		Verbosity:           log.LevelError,
		DefaultMessage:      DefaultMessage,
		DefaultFatalMessage: DefaultFatalMessage,
		Format:              format.NewManager(),
		Logger:              log.NewNop(),
	}
}

// Clone returns an independent deep copy of the settings, including the
// formatter list. The optional overrides function is applied to the copy
// before it is returned.
func (s *Settings) Clone(overrides func(*Settings)) *Settings {
	clone := &Settings{
		Verbosity:           s.Verbosity,
		FullStacks:          s.FullStacks,
		DefaultMessage:      s.DefaultMessage,
		DefaultFatalMessage: s.DefaultFatalMessage,
		Format:              s.Format.Clone(),
		Logger:              s.Logger,
	}

	if overrides != nil {
		overrides(clone)
	}

	return clone
}

var (
	defaultSettings   = NewSettings()
	defaultSettingsMu sync.RWMutex
)

// Default returns the process-wide settings consulted by scopes created
// without explicit settings.
func Default() *Settings {
	defaultSettingsMu.RLock()
	defer defaultSettingsMu.RUnlock()

	return defaultSettings
}

// SetDefault installs s as the process-wide settings and returns the
// previous value.
func SetDefault(s *Settings) *Settings {
	defaultSettingsMu.Lock()
	defer defaultSettingsMu.Unlock()

	prev := defaultSettings

	if s != nil {
		defaultSettings = s
	}

	return prev
}

// Reset restores the process-wide settings to defaults.
func Reset() {
	defaultSettingsMu.Lock()
	defer defaultSettingsMu.Unlock()

	defaultSettings = NewSettings()
}

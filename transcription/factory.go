package transcription

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"

	"github.com/kbukum/yttext/logger"
	"github.com/kbukum/yttext/provider"
)

// Factories maps backend names to constructors. Adapter packages register
// themselves here from init.
var Factories = provider.NewRegistry[Backend]()

// DefaultBackends is the configured order when none is given.
var DefaultBackends = []string{"whisper_cpp", "mlx", "openai", "whisper"}

// Config selects and configures backends.
type Config struct {
	// Backends lists backend names to construct. Order breaks priority ties.
	Backends []string `yaml:"backends" mapstructure:"backends"`
	// Settings holds per-backend options keyed by backend name.
	Settings map[string]map[string]any `yaml:"settings" mapstructure:"settings"`
}

// ApplyDefaults fills in the default backend list.
func (c *Config) ApplyDefaults() {
	if len(c.Backends) == 0 {
		c.Backends = append([]string(nil), DefaultBackends...)
	}
	if c.Settings == nil {
		c.Settings = make(map[string]map[string]any)
	}
}

// Validate rejects names no adapter registered.
func (c *Config) Validate() error {
	if len(c.Backends) == 0 {
		return fmt.Errorf("transcription.backends must not be empty")
	}
	var unknown []string
	for _, name := range c.Backends {
		if !Factories.Has(name) {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		return fmt.Errorf("transcription.backends: unknown backend(s) %s (registered: %s)",
			strings.Join(unknown, ", "), strings.Join(Factories.List(), ", "))
	}
	return nil
}

// Build constructs the configured backends and probes them into a Registry.
// A backend whose constructor fails is logged and left out.
func Build(ctx context.Context, cfg Config) (*Registry, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := logger.Get("transcription")
	backends := make([]Backend, 0, len(cfg.Backends))
	for _, name := range cfg.Backends {
		b, err := Factories.Create(name, cfg.Settings[name])
		if err != nil {
			log.Warn("Backend construction failed", logger.Fields(logger.FieldBackend, name, logger.FieldError, err.Error()))
			continue
		}
		backends = append(backends, b)
	}
	return NewRegistry(ctx, backends), nil
}

// DecodeSettings decodes a generic settings map into an adapter's typed
// config. Durations accept strings like "30s"; numbers may be strings.
func DecodeSettings(settings map[string]any, out any) error {
	if len(settings) == 0 {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(settings); err != nil {
		return fmt.Errorf("decode backend settings: %w", err)
	}
	return nil
}

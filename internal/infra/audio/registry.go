package audio

import (
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"

	"github.com/osa030/19player/internal/app/playback"
)

// Factory builds an engine from its settings.
type Factory func(settings map[string]any) (playback.Engine, error)

type registration struct {
	description string
	factory     Factory
}

// registry holds registered engine factories.
var registry = make(map[string]registration)

// ErrUnknownEngine is returned when the configured engine is not registered.
var ErrUnknownEngine = errors.New("unknown audio engine")

// Register registers an engine factory.
func Register(name, description string, factory Factory) {
	registry[name] = registration{description: description, factory: factory}
}

// Names returns the registered engine names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Describe returns the description of a registered engine.
func Describe(name string) string {
	return registry[name].description
}

// New creates the named engine.
func New(name string, settings map[string]any) (playback.Engine, error) {
	r, ok := registry[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownEngine, "engine %q", name)
	}
	e, err := r.factory(settings)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create engine %q", name)
	}
	return e, nil
}

// decodeSettings decodes settings into out, then applies defaults and validation tags.
func decodeSettings(settings map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create decoder")
	}
	if err := decoder.Decode(settings); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(out); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(out); err != nil {
		return errors.Wrap(err, "validation failed")
	}
	return nil
}

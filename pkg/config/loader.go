package config

import (
	"context"
	"fmt"
	"maps"
	"os"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"github.com/xhit/go-str2duration/v2"

	"github.com/argil-ai/argil-go/pkg/logger"
	sdkerrors "github.com/argil-ai/argil-go/sdk/errors"
)

const envPrefix = "ARGIL_"

// Loader merges defaults, YAML files, ARGIL_* environment variables and CLI
// flags into Settings, in that order of increasing precedence.
type Loader struct {
	koanf      *koanf.Koanf
	environ    func() []string
	metadata   Metadata
	metadataMu sync.RWMutex
}

type LoaderOption func(*Loader)

// WithEnviron replaces os.Environ as the source of environment variables.
func WithEnviron(fn func() []string) LoaderOption {
	return func(l *Loader) {
		l.environ = fn
	}
}

func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		koanf:   koanf.New("."),
		environ: os.Environ,
		metadata: Metadata{
			Sources: make(map[string]SourceType),
		},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ParseDuration accepts bare integers as milliseconds and anything
// go-str2duration understands ("90s", "1m30s", "1d").
func ParseDuration(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("empty duration")
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := str2duration.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	return d, nil
}

var durationType = reflect.TypeOf(time.Duration(0))

// durationDecodeHook reads strings with ParseDuration and plain numbers as
// milliseconds, matching the unit the API documents for timeouts.
func durationDecodeHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != durationType || from == durationType {
		return data, nil
	}
	switch v := data.(type) {
	case string:
		return ParseDuration(v)
	case int:
		return time.Duration(v) * time.Millisecond, nil
	case int64:
		return time.Duration(v) * time.Millisecond, nil
	case uint64:
		return time.Duration(v) * time.Millisecond, nil
	case float64:
		return time.Duration(v * float64(time.Millisecond)), nil
	default:
		return data, nil
	}
}

// sensitiveStringDecodeHook converts strings to SensitiveString.
func sensitiveStringDecodeHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(SensitiveString("")) {
		return data, nil
	}
	switch v := data.(type) {
	case string:
		return SensitiveString(v), nil
	case []byte:
		return SensitiveString(v), nil
	default:
		return data, nil
	}
}

// Load resets the loader and applies defaults, then every non-CLI source,
// then the environment, then CLI sources.
func (l *Loader) Load(ctx context.Context, sources ...Source) (*Settings, error) {
	l.reset()
	if err := l.loadDefaults(); err != nil {
		return nil, err
	}
	for _, source := range sources {
		if source == nil || source.Type() == SourceCLI || source.Type() == SourceEnv {
			continue
		}
		if err := l.loadSource(source); err != nil {
			return nil, err
		}
	}
	if err := l.loadEnvironment(); err != nil {
		return nil, err
	}
	for _, source := range sources {
		if source == nil || source.Type() != SourceCLI {
			continue
		}
		if err := l.loadSource(source); err != nil {
			return nil, err
		}
	}
	settings, err := l.unmarshalAndValidate()
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Debug("settings loaded", "keys", len(l.koanf.Keys()))
	return settings, nil
}

func (l *Loader) reset() {
	l.koanf = koanf.New(".")
	l.metadataMu.Lock()
	l.metadata.Sources = make(map[string]SourceType)
	l.metadata.LoadedAt = time.Now()
	l.metadataMu.Unlock()
}

func (l *Loader) loadDefaults() error {
	if err := l.koanf.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return fmt.Errorf("failed to load defaults: %w", err)
	}
	for _, key := range l.koanf.Keys() {
		l.trackSource(key, SourceDefault)
	}
	return nil
}

// loadEnvironment reads only the variables declared through env struct tags.
func (l *Loader) loadEnvironment() error {
	envToPath := GenerateEnvToConfigMap()
	before := l.snapshot()
	err := l.koanf.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(key string, value string) (string, any) {
			path, ok := envToPath[key]
			if !ok {
				return "", nil
			}
			return path, value
		},
		EnvironFunc: l.environ,
	}), nil)
	if err != nil {
		return fmt.Errorf("failed to load environment variables: %w", err)
	}
	l.trackChanges(before, SourceEnv)
	return nil
}

func (l *Loader) loadSource(source Source) error {
	data, err := source.Load()
	if err != nil {
		return fmt.Errorf("failed to load from source %s: %w", source.Type(), err)
	}
	if len(data) == 0 {
		return nil
	}
	before := l.snapshot()
	for key, value := range flattenMap("", data) {
		if err := l.koanf.Set(key, value); err != nil {
			return fmt.Errorf("failed to set key %s from source %s: %w", key, source.Type(), err)
		}
	}
	l.trackChanges(before, source.Type())
	return nil
}

func (l *Loader) snapshot() map[string]any {
	before := make(map[string]any)
	for _, key := range l.koanf.Keys() {
		before[key] = l.koanf.Get(key)
	}
	return before
}

func (l *Loader) trackChanges(before map[string]any, source SourceType) {
	for _, key := range l.koanf.Keys() {
		valBefore, existed := before[key]
		if !existed || !reflect.DeepEqual(valBefore, l.koanf.Get(key)) {
			l.trackSource(key, source)
		}
	}
}

// flattenMap flattens a nested map into dot-notation keys
func flattenMap(prefix string, m map[string]any) map[string]any {
	result := make(map[string]any)
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := v.(map[string]any); ok {
			maps.Copy(result, flattenMap(key, nested))
			continue
		}
		result[key] = v
	}
	return result
}

func (l *Loader) unmarshalAndValidate() (*Settings, error) {
	var settings Settings
	if err := l.koanf.UnmarshalWithConf("", &settings, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           &settings,
			TagName:          "koanf",
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				durationDecodeHook,
				sensitiveStringDecodeHook,
			),
		},
	}); err != nil {
		return nil, sdkerrors.Wrap(sdkerrors.KindConfig, err, "failed to decode settings")
	}
	if err := Validator().Struct(&settings); err != nil {
		return nil, sdkerrors.Wrap(sdkerrors.KindConfig, err, "invalid settings")
	}
	return &settings, nil
}

// GetSource returns the source that supplied key, SourceDefault when unknown.
func (l *Loader) GetSource(key string) SourceType {
	l.metadataMu.RLock()
	defer l.metadataMu.RUnlock()
	if source, ok := l.metadata.Sources[key]; ok {
		return source
	}
	return SourceDefault
}

// Metadata returns a copy of the source map of the last Load.
func (l *Loader) Metadata() Metadata {
	l.metadataMu.RLock()
	defer l.metadataMu.RUnlock()
	return Metadata{
		Sources:  maps.Clone(l.metadata.Sources),
		LoadedAt: l.metadata.LoadedAt,
	}
}

func (l *Loader) trackSource(key string, source SourceType) {
	l.metadataMu.Lock()
	defer l.metadataMu.Unlock()
	l.metadata.Sources[key] = source
}

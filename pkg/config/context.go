package config

import "context"

// ContextKey is an alias used for storing values in context
type ContextKey string

const SettingsCtxKey ContextKey = "argil_settings"

// ContextWithSettings stores loaded settings in the context
func ContextWithSettings(ctx context.Context, s *Settings) context.Context {
	return context.WithValue(ctx, SettingsCtxKey, s)
}

// FromContext returns the settings stored in ctx, or the defaults.
func FromContext(ctx context.Context) *Settings {
	if ctx != nil {
		if s, ok := ctx.Value(SettingsCtxKey).(*Settings); ok && s != nil {
			return s
		}
	}
	return Default()
}

const MetadataCtxKey ContextKey = "argil_config_metadata"

// ContextWithMetadata stores the source map of the last load in the context.
func ContextWithMetadata(ctx context.Context, m Metadata) context.Context {
	return context.WithValue(ctx, MetadataCtxKey, m)
}

// MetadataFromContext returns the stored load metadata, if any.
func MetadataFromContext(ctx context.Context) (Metadata, bool) {
	if ctx == nil {
		return Metadata{}, false
	}
	m, ok := ctx.Value(MetadataCtxKey).(Metadata)
	return m, ok
}

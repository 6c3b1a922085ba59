package config

import (
	"reflect"
	"sync"
)

// EnvMapping ties an ARGIL_* variable to the dotted settings key it fills.
type EnvMapping struct {
	EnvVar     string
	ConfigPath string
}

// settingsKeys is the index of Settings built from its koanf, env and
// sensitive struct tags.
type settingsKeys struct {
	mappings  []EnvMapping
	envToPath map[string]string
	sensitive map[string]bool
}

var keysIndex = sync.OnceValue(func() settingsKeys {
	idx := settingsKeys{
		envToPath: make(map[string]string),
		sensitive: make(map[string]bool),
	}
	walkSettingsFields(reflect.TypeOf(Settings{}), "", func(path string, field reflect.StructField) {
		if name := field.Tag.Get("env"); name != "" && name != "-" {
			idx.mappings = append(idx.mappings, EnvMapping{EnvVar: name, ConfigPath: path})
			idx.envToPath[name] = path
		}
		if field.Type == reflect.TypeOf(SensitiveString("")) || field.Tag.Get("sensitive") == "true" {
			idx.sensitive[path] = true
		}
	})
	return idx
})

// walkSettingsFields calls visit for every koanf-tagged field of t, nested
// sections included, in declaration order. time types are leaves.
func walkSettingsFields(t reflect.Type, prefix string, visit func(path string, field reflect.StructField)) {
	for i := range t.NumField() {
		field := t.Field(i)
		key := field.Tag.Get("koanf")
		if !field.IsExported() || key == "" || key == "-" {
			continue
		}
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		visit(path, field)
		if field.Type.Kind() == reflect.Struct && field.Type.PkgPath() != "time" {
			walkSettingsFields(field.Type, path, visit)
		}
	}
}

// GenerateEnvMappings lists every variable the env loader reads, in the order
// the fields appear in Settings.
func GenerateEnvMappings() []EnvMapping {
	return keysIndex().mappings
}

// GenerateEnvToConfigMap is GenerateEnvMappings keyed by variable name.
func GenerateEnvToConfigMap() map[string]string {
	src := keysIndex().envToPath
	out := make(map[string]string, len(src))
	for name, path := range src {
		out[name] = path
	}
	return out
}

// GetEnvVarForConfigPath returns "" for keys without an env tag.
func GetEnvVarForConfigPath(configPath string) string {
	for _, m := range keysIndex().mappings {
		if m.ConfigPath == configPath {
			return m.EnvVar
		}
	}
	return ""
}

// IsSensitiveConfigPath reports whether the value at configPath must be
// redacted when displayed.
func IsSensitiveConfigPath(configPath string) bool {
	return keysIndex().sensitive[configPath]
}

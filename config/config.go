// Package config loads typed configuration structs from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"reflect"
	"strings"

	"github.com/a-peyrard/godeco/option"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Options struct {
		prefix   string
		dotEnvs  []string
		defaults map[string]any
	}

	// WithDefault is implemented by configuration structs able to fill their own
	// missing values once loaded.
	WithDefault interface {
		ApplyDefault()
	}
)

var withDefaultType = reflect.TypeOf((*WithDefault)(nil)).Elem()

func WithEnvPrefix(prefix string) option.Option[Options] {
	return func(opts *Options) {
		opts.prefix = prefix
	}
}

// WithDotEnv loads the given .env files into the environment before binding it.
// Variables already set in the environment win, missing files are ignored.
func WithDotEnv(files ...string) option.Option[Options] {
	return func(opts *Options) {
		opts.dotEnvs = append(opts.dotEnvs, files...)
	}
}

// WithValue sets the default value of a configuration key, using the dotted
// mapstructure path (ex: "retry.attempts").
func WithValue(key string, value any) option.Option[Options] {
	return func(opts *Options) {
		opts.defaults[key] = value
	}
}

// Load builds a T from the environment. Every exported leaf field is bound to the
// variable PREFIX_PARENT_FIELD, in screaming snake case. Nil struct pointers are
// allocated, then ApplyDefault is called on every struct implementing WithDefault.
func Load[T any](opts ...option.Option[Options]) (*T, error) {
	options := option.Build(&Options{defaults: make(map[string]any)}, opts...)

	for _, file := range options.dotEnvs {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("unable to load env file %s:\n\t%w", file, err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix(options.prefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, value := range options.defaults {
		v.SetDefault(key, value)
	}

	var vT T
	typ := reflect.TypeOf(vT)
	if typ == nil || typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("configuration type must be a struct, got %T", vT)
	}
	if err := bindEnvs(v, options.prefix, typ); err != nil {
		return nil, fmt.Errorf("unable to bind environment:\n\t%w", err)
	}

	if err := v.Unmarshal(&vT); err != nil {
		return nil, fmt.Errorf("unable to unmarshal config: %w", err)
	}

	walkStruct(&vT, func(val reflect.Value, typ reflect.Type) {
		createNilStructs(val, typ)
		applyDefault(val, typ)
	})

	return &vT, nil
}

func bindEnvs(v *viper.Viper, envPrefix string, typ reflect.Type, parts ...string) error {
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		tag, ok := field.Tag.Lookup("mapstructure")
		if !ok {
			tag = field.Name
		}
		envName := field.Name
		if ok {
			envName = tag
		}

		fieldTyp := field.Type
		if fieldTyp.Kind() == reflect.Pointer && fieldTyp.Elem().Kind() == reflect.Struct {
			fieldTyp = fieldTyp.Elem()
		}
		if fieldTyp.Kind() == reflect.Struct && !isLeafStruct(fieldTyp) {
			if err := bindEnvs(v, envPrefix, fieldTyp, append(parts, tag)...); err != nil {
				return err
			}
			continue
		}

		key := strings.Join(append(parts, tag), ".")
		env := strings.Join(append(envParts(parts), envKey(envName)), "_")
		if err := v.BindEnv(key, mergeWithEnvPrefix(envPrefix, env)); err != nil {
			return fmt.Errorf("unable to bind %s: %w", key, err)
		}
	}
	return nil
}

// isLeafStruct reports structs decoded from a single value, like time.Time.
func isLeafStruct(typ reflect.Type) bool {
	return typ.PkgPath() == "time"
}

func envParts(parts []string) []string {
	converted := make([]string, len(parts))
	for i, part := range parts {
		converted[i] = envKey(part)
	}
	return converted
}

func mergeWithEnvPrefix(envPrefix string, in string) string {
	if envPrefix != "" {
		return strings.ToUpper(envPrefix + "_" + in)
	}

	return strings.ToUpper(in)
}

func applyDefault(val reflect.Value, typ reflect.Type) {
	switch {
	case !val.IsValid() || isNilPointer(val):
		return
	case typ.Implements(withDefaultType):
		val.Interface().(WithDefault).ApplyDefault()
	case typ.Kind() == reflect.Struct && val.CanAddr() && reflect.PointerTo(typ).Implements(withDefaultType):
		val.Addr().Interface().(WithDefault).ApplyDefault()
	}
}

func isNilPointer(val reflect.Value) bool {
	return (val.Kind() == reflect.Pointer || val.Kind() == reflect.Interface) && val.IsNil()
}

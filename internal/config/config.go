package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// EnvPrefix is prepended to every `env` tag when reading environment overrides.
const EnvPrefix = "LEDSPIN_"

// LoadConfig overlays an optional TOML file and LEDSPIN_* environment variables
// onto opts, a pointer to a flat options struct. Precedence is
// CLI flags > env vars > config file > struct defaults.
//
// The file path is taken from a string field named Config. An empty or missing
// path is not an error; a file that exists but does not parse is.
// If cmd is provided, flags explicitly set on the command line are left alone.
func LoadConfig(opts any, cmd *cobra.Command) error {
	v := reflect.ValueOf(opts).Elem()
	t := v.Type()

	changed := changedFlags(cmd)

	if path := configPath(v); path != "" {
		if err := applyFile(v, t, path, changed); err != nil {
			return err
		}
	}

	applyEnv(v, t, changed)
	return nil
}

// changedFlags returns the set of flags set explicitly on the command line.
func changedFlags(cmd *cobra.Command) map[string]bool {
	changed := make(map[string]bool)
	if cmd == nil {
		return changed
	}
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			changed[f.Name] = true
		}
	})
	return changed
}

func configPath(v reflect.Value) string {
	f := v.FieldByName("Config")
	if !f.IsValid() || f.Kind() != reflect.String {
		return ""
	}
	return f.String()
}

func applyFile(v reflect.Value, t reflect.Type, path string, changed map[string]bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		// Optional file.
		return nil
	}

	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse TOML config %s: %w", path, err)
	}

	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		if changed[fieldNameToFlag(field.Name)] {
			continue
		}
		tomlPath := field.Tag.Get("toml")
		if tomlPath == "" {
			continue
		}
		if value := getNestedValue(doc, tomlPath); value != nil {
			setFieldValue(v.Field(i), value)
		}
	}
	return nil
}

func applyEnv(v reflect.Value, t reflect.Type, changed map[string]bool) {
	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		if changed[fieldNameToFlag(field.Name)] {
			continue
		}
		envKey := field.Tag.Get("env")
		if envKey == "" {
			continue
		}
		if envValue := os.Getenv(EnvPrefix + envKey); envValue != "" {
			setFieldValueFromString(v.Field(i), envValue)
		}
	}
}

// fieldNameToFlag converts a struct field name to a CLI flag name.
// Acronyms stay together: "LoggingAPI" -> "logging-api", "MinRate" -> "min-rate".
func fieldNameToFlag(fieldName string) string {
	runes := []rune(fieldName)
	var result []rune
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || nextLower {
				result = append(result, '-')
			}
		}
		result = append(result, unicode.ToLower(r))
	}
	return string(result)
}

// getNestedValue retrieves a value from nested map using dot notation.
func getNestedValue(data map[string]any, path string) any {
	parts := strings.Split(path, ".")
	current := data

	for i, part := range parts {
		if i == len(parts)-1 {
			return current[part]
		}
		next, ok := current[part].(map[string]any)
		if !ok {
			return nil
		}
		current = next
	}
	return nil
}

// setFieldValue sets a field from a decoded TOML value.
func setFieldValue(field reflect.Value, value any) {
	if !field.CanSet() {
		return
	}

	switch field.Kind() {
	case reflect.String:
		if s, ok := value.(string); ok {
			field.SetString(s)
		}
	case reflect.Bool:
		if b, ok := value.(bool); ok {
			field.SetBool(b)
		}
	case reflect.Int, reflect.Int64:
		switch n := value.(type) {
		case int64:
			field.SetInt(n)
		case int:
			field.SetInt(int64(n))
		}
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return
		}
		arr, ok := value.([]any)
		if !ok {
			return
		}
		slice := make([]string, len(arr))
		for i, item := range arr {
			if s, strOk := item.(string); strOk {
				slice[i] = s
			}
		}
		field.Set(reflect.ValueOf(slice))
	}
}

// setFieldValueFromString sets a field from an environment variable.
func setFieldValueFromString(field reflect.Value, value string) {
	if !field.CanSet() {
		return
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		if b, err := strconv.ParseBool(value); err == nil {
			field.SetBool(b)
		}
	case reflect.Int, reflect.Int64:
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			field.SetInt(i)
		}
	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			field.Set(reflect.ValueOf(SplitList(value)))
		}
	}
}

// SplitList splits a comma-separated list and trims each element.
// Empty input yields an empty slice.
func SplitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	out := make([]string, len(parts))
	for i, part := range parts {
		out[i] = strings.TrimSpace(part)
	}
	return out
}

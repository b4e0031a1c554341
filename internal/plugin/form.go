package plugin

import (
	"fmt"
	"strconv"
)

// FieldKind enumerates the value types a configuration form field can take.
type FieldKind string

const (
	FieldString FieldKind = "string"
	FieldInt    FieldKind = "int"
	FieldFloat  FieldKind = "float"
	FieldBool   FieldKind = "bool"
	FieldChoice FieldKind = "choice"
)

// Choice is one selectable option of a choice field.
type Choice struct {
	Value string
	Label string
}

// FormField describes a single input of a layout configuration form.
type FormField struct {
	Name     string
	Label    string
	Kind     FieldKind
	Required bool
	// Default is the raw (string) default applied when the submitted
	// values omit the field.
	Default string
	// Choices constrains FieldChoice values.
	Choices []Choice
}

// ConfigurationForm is the declarative description of a layout's extra
// configuration step. It doubles as the validator for submitted values.
type ConfigurationForm struct {
	Fields []FormField
}

// Clean validates raw submitted values against the form and returns the
// typed configuration map that is handed to the layout's render context.
func (f *ConfigurationForm) Clean(values map[string]string) (map[string]any, error) {
	cleaned := make(map[string]any, len(f.Fields))

	for _, field := range f.Fields {
		raw, ok := values[field.Name]
		if !ok || raw == "" {
			if field.Required && field.Default == "" {
				return nil, fmt.Errorf("plugin: configuration value %q is required", field.Name)
			}
			raw = field.Default
		}

		value, err := field.clean(raw)
		if err != nil {
			return nil, err
		}
		cleaned[field.Name] = value
	}
	return cleaned, nil
}

func (field FormField) clean(raw string) (any, error) {
	switch field.Kind {
	case FieldString:
		return raw, nil
	case FieldInt:
		if raw == "" {
			return 0, nil
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("plugin: configuration value %q must be an integer: %w", field.Name, err)
		}
		return v, nil
	case FieldFloat:
		if raw == "" {
			return 0.0, nil
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("plugin: configuration value %q must be a number: %w", field.Name, err)
		}
		return v, nil
	case FieldBool:
		if raw == "" {
			return false, nil
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("plugin: configuration value %q must be a boolean: %w", field.Name, err)
		}
		return v, nil
	case FieldChoice:
		for _, c := range field.Choices {
			if c.Value == raw {
				return raw, nil
			}
		}
		return nil, fmt.Errorf("plugin: configuration value %q: %q is not a valid choice", field.Name, raw)
	default:
		return nil, fmt.Errorf("plugin: configuration field %q has unknown kind %q", field.Name, field.Kind)
	}
}

package schema

import (
	"errors"
	"fmt"
	"math"
	"reflect"

	"gopkg.in/yaml.v3"
)

// Attribute errors.
var (
	ErrRequired         = errors.New("attribute is required")
	ErrNotNullable      = errors.New("attribute does not accept null")
	ErrValueType        = errors.New("invalid value type for attribute")
	ErrOutOfRange       = errors.New("value out of range")
	ErrNotInEnum        = errors.New("value not in enum")
	ErrUnknownAttribute = errors.New("unknown attribute")
)

// DataType is the declared type of an attribute value.
type DataType uint8

const (
	DataTypeAny DataType = iota
	DataTypeBool
	DataTypeInt
	DataTypeUint
	DataTypeFloat
	DataTypeString
	DataTypeBytes
	DataTypeArray
	DataTypeMap
)

var dataTypeNames = []string{"any", "bool", "int", "uint", "float", "string", "bytes", "array", "map"}

// String returns the data type name.
func (d DataType) String() string {
	if int(d) < len(dataTypeNames) {
		return dataTypeNames[d]
	}
	return "unknown"
}

// ParseDataType returns the DataType named s. The empty string is DataTypeAny.
func ParseDataType(s string) (DataType, error) {
	if s == "" {
		return DataTypeAny, nil
	}
	for i, name := range dataTypeNames {
		if name == s {
			return DataType(i), nil
		}
	}
	return DataTypeAny, fmt.Errorf("unknown data type %q", s)
}

// UnmarshalYAML decodes a data type name.
func (d *DataType) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseDataType(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalYAML encodes the data type name.
func (d DataType) MarshalYAML() (any, error) {
	return d.String(), nil
}

// Attribute describes one attribute of a model.
type Attribute struct {
	// Name is the attribute key.
	Name string `yaml:"name"`

	// Type is the data type of the attribute value.
	Type DataType `yaml:"type"`

	// Required rejects states where the attribute is absent.
	Required bool `yaml:"required"`

	// Nullable indicates if nil is a valid value.
	Nullable bool `yaml:"nullable"`

	// Min is the minimum allowed value (for numeric types).
	Min any `yaml:"min"`

	// Max is the maximum allowed value (for numeric types).
	Max any `yaml:"max"`

	// Enum lists the allowed values, if set.
	Enum []any `yaml:"enum"`

	// Default is the value used when the attribute is missing at construction.
	Default any `yaml:"default"`

	// Unit is the unit of measurement (e.g., "W", "s").
	Unit string `yaml:"unit"`

	// Description is a human-readable description.
	Description string `yaml:"description"`
}

// Check validates a value against the attribute's declaration. present
// reports whether the key exists at all.
func (a *Attribute) Check(value any, present bool) error {
	if !present {
		if a.Required {
			return fmt.Errorf("%s: %w", a.Name, ErrRequired)
		}
		return nil
	}
	if value == nil {
		if !a.Nullable {
			return fmt.Errorf("%s: %w", a.Name, ErrNotNullable)
		}
		return nil
	}

	if err := a.checkType(value); err != nil {
		return fmt.Errorf("%s: %w", a.Name, err)
	}
	if a.Min != nil || a.Max != nil {
		if err := a.checkRange(value); err != nil {
			return fmt.Errorf("%s: %w", a.Name, err)
		}
	}
	if len(a.Enum) > 0 && !a.inEnum(value) {
		return fmt.Errorf("%s: %w: %v", a.Name, ErrNotInEnum, value)
	}
	return nil
}

// checkType checks if the value matches the declared type.
func (a *Attribute) checkType(value any) error {
	switch a.Type {
	case DataTypeBool:
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("%w: expected bool", ErrValueType)
		}
	case DataTypeInt:
		if !isIntegral(value) {
			return fmt.Errorf("%w: expected integer", ErrValueType)
		}
	case DataTypeUint:
		if !isIntegral(value) {
			return fmt.Errorf("%w: expected unsigned integer", ErrValueType)
		}
		if v, _ := toFloat64(value); v < 0 {
			return fmt.Errorf("%w: expected unsigned integer", ErrValueType)
		}
	case DataTypeFloat:
		if !isNumericType(value) {
			return fmt.Errorf("%w: expected float", ErrValueType)
		}
	case DataTypeString:
		if _, ok := value.(string); !ok {
			return fmt.Errorf("%w: expected string", ErrValueType)
		}
	case DataTypeBytes:
		if _, ok := value.([]byte); !ok {
			return fmt.Errorf("%w: expected bytes", ErrValueType)
		}
	case DataTypeArray:
		if k := reflect.TypeOf(value).Kind(); k != reflect.Slice && k != reflect.Array {
			return fmt.Errorf("%w: expected array", ErrValueType)
		}
	case DataTypeMap:
		if reflect.TypeOf(value).Kind() != reflect.Map {
			return fmt.Errorf("%w: expected map", ErrValueType)
		}
	}
	return nil
}

// checkRange validates numeric range constraints.
func (a *Attribute) checkRange(value any) error {
	v, ok := toFloat64(value)
	if !ok {
		return nil // Not a numeric type
	}

	if a.Min != nil {
		min, _ := toFloat64(a.Min)
		if v < min {
			return fmt.Errorf("%w: %v < %v", ErrOutOfRange, value, a.Min)
		}
	}

	if a.Max != nil {
		max, _ := toFloat64(a.Max)
		if v > max {
			return fmt.Errorf("%w: %v > %v", ErrOutOfRange, value, a.Max)
		}
	}

	return nil
}

func (a *Attribute) inEnum(value any) bool {
	fv, numeric := toFloat64(value)
	for _, allowed := range a.Enum {
		if reflect.DeepEqual(allowed, value) {
			return true
		}
		if numeric {
			if fa, ok := toFloat64(allowed); ok && fa == fv {
				return true
			}
		}
	}
	return false
}

// Helper functions for type checking.

// isIntegral accepts integer types and floats without a fractional part,
// which is how decoded JSON numbers arrive.
func isIntegral(v any) bool {
	switch n := v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	case float32:
		return float64(n) == math.Trunc(float64(n))
	case float64:
		return n == math.Trunc(n)
	default:
		return false
	}
}

func isNumericType(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	default:
		return false
	}
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

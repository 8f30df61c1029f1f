package feature

import (
	"strings"
	"time"
	"unicode/utf8"
)

// KeySeparator joins the entity and feature segments of a cache key. It is
// not a legal character in entity ids or feature names.
const KeySeparator = ":"

// MaxComponentLength bounds entity ids and feature names in bytes.
const MaxComponentLength = 255

// DataType is the declared type of a feature.
type DataType string

const (
	DataTypeInt       DataType = "int"
	DataTypeFloat     DataType = "float"
	DataTypeBool      DataType = "bool"
	DataTypeString    DataType = "string"
	DataTypeEmbedding DataType = "embedding"
)

// ParseDataType normalizes s to a known DataType. "boolean" is accepted as an
// alias of bool.
func ParseDataType(s string) (DataType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "int":
		return DataTypeInt, nil
	case "float":
		return DataTypeFloat, nil
	case "bool", "boolean":
		return DataTypeBool, nil
	case "string":
		return DataTypeString, nil
	case "embedding":
		return DataTypeEmbedding, nil
	}
	return "", Validationf("data_type", "unknown data type %q", s)
}

// Definition is a feature registered in the metadata catalog.
type Definition struct {
	ID             int64          `json:"id"`
	Name           string         `json:"name"`
	Description    *string        `json:"description"`
	DataType       DataType       `json:"data_type"`
	Entity         string         `json:"entity"`
	FeatureGroup   *string        `json:"feature_group"`
	IsNullable     bool           `json:"is_nullable"`
	Source         *string        `json:"source"`
	Transformation *string        `json:"transformation"`
	MinValue       *float64       `json:"min_value"`
	MaxValue       *float64       `json:"max_value"`
	MeanValue      *float64       `json:"mean_value"`
	StdDev         *float64       `json:"std_dev"`
	TTLSeconds     *int64         `json:"ttl_seconds"`
	Tags           map[string]any `json:"tags"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      *time.Time     `json:"updated_at"`
}

// TTL returns the cache expiry policy. Zero means no expiry.
func (d Definition) TTL() time.Duration {
	if d.TTLSeconds == nil {
		return 0
	}
	return time.Duration(*d.TTLSeconds) * time.Second
}

// Validate checks catalog invariants on d.
func (d Definition) Validate() error {
	if err := ValidateComponent("name", d.Name); err != nil {
		return err
	}
	if strings.TrimSpace(d.Entity) == "" {
		return Validationf("entity", "entity must not be empty")
	}
	if _, err := ParseDataType(string(d.DataType)); err != nil {
		return err
	}
	if d.TTLSeconds != nil && *d.TTLSeconds <= 0 {
		return Validationf("ttl_seconds", "ttl_seconds must be positive, got %d", *d.TTLSeconds)
	}
	if d.MinValue != nil && d.MaxValue != nil && *d.MinValue > *d.MaxValue {
		return Validationf("min_value", "min_value %v exceeds max_value %v", *d.MinValue, *d.MaxValue)
	}
	return nil
}

// Accepts reports whether v conforms to the declared data type. Ints are
// accepted for float features; null only for nullable features.
func (d Definition) Accepts(v Value) error {
	if v.IsNull() {
		if d.IsNullable {
			return nil
		}
		return Validationf("value", "feature '%s' is not nullable", d.Name)
	}

	dt, err := ParseDataType(string(d.DataType))
	if err != nil {
		return err
	}

	ok := false
	switch dt {
	case DataTypeInt:
		ok = v.Kind() == KindInt
	case DataTypeFloat:
		ok = v.Kind() == KindFloat || v.Kind() == KindInt
	case DataTypeBool:
		ok = v.Kind() == KindBool
	case DataTypeString:
		ok = v.Kind() == KindString
	case DataTypeEmbedding:
		ok = v.Kind() == KindEmbedding
	}
	if !ok {
		return Validationf("value", "feature '%s' expects %s, got %s", d.Name, dt, v.Kind())
	}
	return nil
}

// Registration is the input shape of a new definition. IsNullable defaults
// to true when omitted.
type Registration struct {
	Name           string         `json:"name" yaml:"name"`
	Description    *string        `json:"description,omitempty" yaml:"description"`
	DataType       string         `json:"data_type" yaml:"data_type"`
	Entity         string         `json:"entity" yaml:"entity"`
	FeatureGroup   *string        `json:"feature_group,omitempty" yaml:"feature_group"`
	IsNullable     *bool          `json:"is_nullable,omitempty" yaml:"is_nullable"`
	Source         *string        `json:"source,omitempty" yaml:"source"`
	Transformation *string        `json:"transformation,omitempty" yaml:"transformation"`
	MinValue       *float64       `json:"min_value,omitempty" yaml:"min_value"`
	MaxValue       *float64       `json:"max_value,omitempty" yaml:"max_value"`
	MeanValue      *float64       `json:"mean_value,omitempty" yaml:"mean_value"`
	StdDev         *float64       `json:"std_dev,omitempty" yaml:"std_dev"`
	TTLSeconds     *int64         `json:"ttl_seconds,omitempty" yaml:"ttl_seconds"`
	Tags           map[string]any `json:"tags,omitempty" yaml:"tags"`
}

// Definition converts r into a validated Definition with a normalized data type.
func (r Registration) Definition() (Definition, error) {
	dt, err := ParseDataType(r.DataType)
	if err != nil {
		return Definition{}, err
	}
	nullable := true
	if r.IsNullable != nil {
		nullable = *r.IsNullable
	}
	d := Definition{
		Name:           r.Name,
		Description:    r.Description,
		DataType:       dt,
		Entity:         r.Entity,
		FeatureGroup:   r.FeatureGroup,
		IsNullable:     nullable,
		Source:         r.Source,
		Transformation: r.Transformation,
		MinValue:       r.MinValue,
		MaxValue:       r.MaxValue,
		MeanValue:      r.MeanValue,
		StdDev:         r.StdDev,
		TTLSeconds:     r.TTLSeconds,
		Tags:           r.Tags,
	}
	if err := d.Validate(); err != nil {
		return Definition{}, err
	}
	return d, nil
}

// ValidateComponent checks that s can be used as one segment of a cache key:
// non-empty, valid UTF-8, bounded, and free of KeySeparator.
func ValidateComponent(field, s string) error {
	switch {
	case s == "":
		return Validationf(field, "%s must not be empty", field)
	case len(s) > MaxComponentLength:
		return Validationf(field, "%s exceeds %d bytes", field, MaxComponentLength)
	case !utf8.ValidString(s):
		return Validationf(field, "%s must be valid UTF-8", field)
	case strings.Contains(s, KeySeparator):
		return Validationf(field, "%s %q must not contain %q", field, s, KeySeparator)
	}
	return nil
}

// FeatureValue is one named value of an ingestion request.
type FeatureValue struct {
	FeatureName string `json:"feature_name"`
	Value       Value  `json:"value"`
}

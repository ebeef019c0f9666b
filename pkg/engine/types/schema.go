package types

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
)

// Field is a named, typed column description.
type Field struct {
	Name string
	Type DataType
}

func (f Field) String() string { return fmt.Sprintf("%s: %s", f.Name, f.Type) }

// Schema is an ordered list of fields. Schemas are values and are never
// mutated after construction; methods that change a schema return a copy.
type Schema struct {
	Fields []Field
}

// NewSchema returns a schema with the given fields.
func NewSchema(fields ...Field) Schema {
	return Schema{Fields: fields}
}

func (s Schema) Len() int { return len(s.Fields) }

// Index returns the position of the field called name, or -1.
func (s Schema) Index(name string) int {
	for i, f := range s.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Field returns the field called name.
func (s Schema) Field(name string) (Field, bool) {
	if i := s.Index(name); i >= 0 {
		return s.Fields[i], true
	}
	return Field{}, false
}

// Contains reports whether s has a field called name.
func (s Schema) Contains(name string) bool { return s.Index(name) >= 0 }

// Names returns the field names in order.
func (s Schema) Names() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// Equal reports whether s and other have the same fields in the same order.
func (s Schema) Equal(other Schema) bool {
	if len(s.Fields) != len(other.Fields) {
		return false
	}
	for i := range s.Fields {
		if s.Fields[i] != other.Fields[i] {
			return false
		}
	}
	return true
}

// Select returns a schema containing the named fields in the order of s.
// Unknown names are ignored.
func (s Schema) Select(names map[string]struct{}) Schema {
	fields := make([]Field, 0, len(names))
	for _, f := range s.Fields {
		if _, ok := names[f.Name]; ok {
			fields = append(fields, f)
		}
	}
	return Schema{Fields: fields}
}

// String renders the schema one field per line.
func (s Schema) String() string {
	var sb strings.Builder
	sb.WriteString("Schema:\n")
	for _, f := range s.Fields {
		fmt.Fprintf(&sb, "name: %s, data type: %s\n", f.Name, f.Type)
	}
	return sb.String()
}

// ToArrow converts s into an Arrow schema. All fields are nullable.
func (s Schema) ToArrow() *arrow.Schema {
	fields := make([]arrow.Field, len(s.Fields))
	for i, f := range s.Fields {
		fields[i] = arrow.Field{Name: f.Name, Type: f.Type.ArrowType(), Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}

// SchemaFromArrow converts an Arrow schema into a Schema.
func SchemaFromArrow(schema *arrow.Schema) (Schema, error) {
	fields := make([]Field, schema.NumFields())
	for i, f := range schema.Fields() {
		dt, err := FromArrow(f.Type)
		if err != nil {
			return Schema{}, fmt.Errorf("field %s: %w", f.Name, err)
		}
		fields[i] = Field{Name: f.Name, Type: dt}
	}
	return Schema{Fields: fields}, nil
}

package parquet_accumulator

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"
)

type (
	// ParquetSchemaAccumulator infers a flat schema from rows, one field per key in first-seen order.
	ParquetSchemaAccumulator struct {
		fields []*ParquetSchema
		byKey  map[string]*ParquetSchema
		names  map[string]struct{}
	}

	ParquetSchema struct {
		// Key is the row key the field reads
		Key        string    `json:"-"`
		TagStructs SchemaTag `json:"-,omitempty"`
	}

	ParquetJSONSchema struct {
		Tag    string               `json:",omitempty"`
		Fields []*ParquetJSONSchema `json:",omitempty"`
	}

	SchemaTag struct {
		Name           string         `json:"name,omitempty"`
		Type           string         `json:"type,omitempty"`
		ConvertedType  string         `json:"convertedtype,omitempty"`
		RepetitionType RepetitionType `json:"repetitiontype,omitempty"`
		Encoding       string         `json:"encoding,omitempty"`
	}

	RepetitionType string

	// InferredColumn is one field of an accumulated schema.
	InferredColumn struct {
		Key  string `json:"key"`
		Name string `json:"name"`
		Type string `json:"type"`
	}
)

var (
	Optional RepetitionType = "OPTIONAL"
	Required RepetitionType = "REQUIRED"
)

const (
	typeUnknown   = ""
	typeByteArray = "BYTE_ARRAY"
	typeDouble    = "DOUBLE"
	typeBoolean   = "BOOLEAN"
)

func NewParquetAccumulator() ParquetSchemaAccumulator {
	return ParquetSchemaAccumulator{
		byKey: make(map[string]*ParquetSchema),
		names: make(map[string]struct{}),
	}
}

// Declare adds fields for keys ahead of any row, fixing their order. A declared field that never
// sees a value is written as text.
func (pa *ParquetSchemaAccumulator) Declare(keys ...string) {
	for _, key := range keys {
		pa.field(key)
	}
}

// WriteRow widens the schema with the keys and values of row. Null values only declare the key.
func (pa *ParquetSchemaAccumulator) WriteRow(row map[string]any) {
	// map order is random, sort so new keys land deterministically
	keys := make([]string, 0, len(row))
	for key := range row {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		field := pa.field(key)
		field.widen(parquetType(row[key]))
	}
}

func (pa *ParquetSchemaAccumulator) field(key string) *ParquetSchema {
	if f, ok := pa.byKey[key]; ok {
		return f
	}
	f := &ParquetSchema{
		Key: key,
		TagStructs: SchemaTag{
			Name:           pa.uniqueName(key),
			RepetitionType: Optional,
		},
	}
	pa.fields = append(pa.fields, f)
	pa.byKey[key] = f
	return f
}

// uniqueName turns key into an exported identifier, so parquet-go maps it the same way on write
// and read. Collisions get a numeric suffix.
func (pa *ParquetSchemaAccumulator) uniqueName(key string) string {
	var sb strings.Builder
	for i, r := range key {
		switch {
		case r == '_' || unicode.IsLetter(r) && r < unicode.MaxASCII:
			if i == 0 {
				r = unicode.ToUpper(r)
			}
			sb.WriteRune(r)
		case unicode.IsDigit(r) && r < unicode.MaxASCII:
			if i == 0 {
				sb.WriteString("C_")
			}
			sb.WriteRune(r)
		default:
			if i == 0 {
				sb.WriteString("C")
			}
			sb.WriteRune('_')
		}
	}
	base := sb.String()
	if base == "" {
		base = "C"
	}

	name := base
	for n := 2; ; n++ {
		if _, taken := pa.names[name]; !taken {
			break
		}
		name = fmt.Sprintf("%s_%d", base, n)
	}
	pa.names[name] = struct{}{}
	return name
}

func (ps *ParquetSchema) widen(t string) {
	switch {
	case t == typeUnknown || t == ps.TagStructs.Type:
		return
	case ps.TagStructs.Type == typeUnknown:
		ps.TagStructs.Type = t
	default:
		// mixed types fall back to text
		ps.TagStructs.Type = typeByteArray
	}
	if ps.TagStructs.Type == typeByteArray {
		ps.TagStructs.ConvertedType = "UTF8"
		ps.TagStructs.Encoding = "PLAIN"
	}
}

func (ps *ParquetSchema) resolvedType() string {
	if ps.TagStructs.Type == typeUnknown {
		return typeByteArray
	}
	return ps.TagStructs.Type
}

func parquetType(v any) string {
	switch val := v.(type) {
	case nil:
		return typeUnknown
	case bool:
		return typeBoolean
	case string, time.Time:
		return typeByteArray
	case *string:
		if val == nil {
			return typeUnknown
		}
		return typeByteArray
	}
	if _, ok := asFloat(v); ok {
		return typeDouble
	}
	return typeByteArray
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
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
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func (pa *ParquetSchemaAccumulator) GetColumnNames() []string {
	var cols []string
	for _, field := range pa.fields {
		cols = append(cols, field.TagStructs.Name)
	}
	return cols
}

func (ps *ParquetSchema) GetType() string {
	switch ps.resolvedType() {
	case typeDouble:
		return "float"
	case typeBoolean:
		return "bool"
	default:
		return "string"
	}
}

// GetColumnTypes returns the types of columns in the same order, `string`, `float` or `bool`
func (pa *ParquetSchemaAccumulator) GetColumnTypes() []string {
	var cols []string
	for _, field := range pa.fields {
		cols = append(cols, field.GetType())
	}
	return cols
}

// Columns lists the accumulated fields in order.
func (pa *ParquetSchemaAccumulator) Columns() []InferredColumn {
	out := make([]InferredColumn, len(pa.fields))
	for i, field := range pa.fields {
		out[i] = InferredColumn{Key: field.Key, Name: field.TagStructs.Name, Type: field.GetType()}
	}
	return out
}

func (ps *ParquetSchema) ToParquetJSONSchema() *ParquetJSONSchema {
	tagArr := []string{"type=" + ps.resolvedType()}
	if ps.resolvedType() == typeByteArray {
		tagArr = append(tagArr, "convertedtype=UTF8", "encoding=PLAIN")
	}
	tagArr = append(tagArr, "name="+ps.TagStructs.Name)
	if string(ps.TagStructs.RepetitionType) != "" {
		tagArr = append(tagArr, "repetitiontype="+string(ps.TagStructs.RepetitionType))
	}
	return &ParquetJSONSchema{
		Tag: strings.Join(tagArr, ", "),
	}
}

// GetSchemaString returns the JSON formatted schema string
func (pa *ParquetSchemaAccumulator) GetSchemaString() (string, error) {
	var fields []*ParquetJSONSchema
	for _, field := range pa.fields {
		fields = append(fields, field.ToParquetJSONSchema())
	}
	pjs := ParquetJSONSchema{
		Tag:    "name=parquet_go_root, repetitiontype=REQUIRED",
		Fields: fields,
	}

	b, err := json.Marshal(pjs)
	if err != nil {
		return "", fmt.Errorf("error in json.Marshal: %w", err)
	}
	return string(b), nil
}

// Encode converts row into the JSON record the parquet-go JSON writer expects for this schema.
// Null values are omitted.
func (pa *ParquetSchemaAccumulator) Encode(row map[string]any) (string, error) {
	rec := make(map[string]any, len(pa.fields))
	for _, field := range pa.fields {
		v, ok := row[field.Key]
		if !ok || v == nil {
			continue
		}
		if s, isPtr := v.(*string); isPtr {
			if s == nil {
				continue
			}
			v = *s
		}

		switch field.resolvedType() {
		case typeDouble:
			f, _ := asFloat(v)
			rec[field.TagStructs.Name] = f
		case typeBoolean:
			rec[field.TagStructs.Name] = v
		default:
			rec[field.TagStructs.Name] = asText(v)
		}
	}

	b, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("error in json.Marshal: %w", err)
	}
	return string(b), nil
}

func asText(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case time.Time:
		return val.Format(time.RFC3339Nano)
	case fmt.Stringer:
		return val.String()
	}
	if _, ok := asFloat(v); ok {
		return fmt.Sprint(v)
	}
	if b, err := json.Marshal(v); err == nil {
		return string(b)
	}
	return fmt.Sprint(v)
}

// InferColumns accumulates every row and returns the resulting fields.
func InferColumns(rows []map[string]any) []InferredColumn {
	pa := NewParquetAccumulator()
	for _, row := range rows {
		pa.WriteRow(row)
	}
	return pa.Columns()
}

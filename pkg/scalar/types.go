package scalar

import (
	"fmt"
	"strings"
)

// TypeTag identifies a scalar type.
type TypeTag int

const (
	TagUnknown TypeTag = iota
	TagTinyint
	TagSmallint
	TagInteger
	TagBigint
	TagFloat
	TagDouble
	TagDecimal
	TagVarchar
	TagBoolean
	TagDate
	TagTimestamp
	TagArray
	TagMap
)

// TypeFamily is the coarse grouping of scalar types used for implicit
// coercion checks. Composite tags (array, map) belong to no coercion
// family and never participate in them.
type TypeFamily int

const (
	FamilyUnknown TypeFamily = iota
	FamilyNumeric
	FamilyCharacter
	FamilyBoolean
	FamilyTemporal
	FamilyComposite
)

func (f TypeFamily) String() string {
	switch f {
	case FamilyNumeric:
		return "numeric"
	case FamilyCharacter:
		return "character"
	case FamilyBoolean:
		return "boolean"
	case FamilyTemporal:
		return "temporal"
	case FamilyComposite:
		return "composite"
	default:
		return "unknown"
	}
}

func (t TypeTag) String() string {
	switch t {
	case TagTinyint:
		return "TINYINT"
	case TagSmallint:
		return "SMALLINT"
	case TagInteger:
		return "INTEGER"
	case TagBigint:
		return "BIGINT"
	case TagFloat:
		return "FLOAT"
	case TagDouble:
		return "DOUBLE"
	case TagDecimal:
		return "DECIMAL"
	case TagVarchar:
		return "VARCHAR"
	case TagBoolean:
		return "BOOLEAN"
	case TagDate:
		return "DATE"
	case TagTimestamp:
		return "TIMESTAMP"
	case TagArray:
		return "ARRAY"
	case TagMap:
		return "MAP"
	default:
		return "UNKNOWN"
	}
}

// ParseTypeTag resolves a tag by its name, case-insensitively.
func ParseTypeTag(s string) (TypeTag, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TINYINT":
		return TagTinyint, true
	case "SMALLINT":
		return TagSmallint, true
	case "INTEGER", "INT":
		return TagInteger, true
	case "BIGINT":
		return TagBigint, true
	case "FLOAT", "REAL":
		return TagFloat, true
	case "DOUBLE":
		return TagDouble, true
	case "DECIMAL":
		return TagDecimal, true
	case "VARCHAR", "STRING":
		return TagVarchar, true
	case "BOOLEAN":
		return TagBoolean, true
	case "DATE":
		return TagDate, true
	case "TIMESTAMP":
		return TagTimestamp, true
	case "ARRAY":
		return TagArray, true
	case "MAP":
		return TagMap, true
	default:
		return TagUnknown, false
	}
}

// Family returns the coercion family the tag belongs to.
func (t TypeTag) Family() TypeFamily {
	switch t {
	case TagTinyint, TagSmallint, TagInteger, TagBigint, TagFloat, TagDouble, TagDecimal:
		return FamilyNumeric
	case TagVarchar:
		return FamilyCharacter
	case TagBoolean:
		return FamilyBoolean
	case TagDate, TagTimestamp:
		return FamilyTemporal
	case TagArray, TagMap:
		return FamilyComposite
	default:
		return FamilyUnknown
	}
}

// IsInteger reports whether the tag is one of the exact integer types.
func (t TypeTag) IsInteger() bool {
	switch t {
	case TagTinyint, TagSmallint, TagInteger, TagBigint:
		return true
	}
	return false
}

// IsApproximate reports whether the tag is a non-integer numeric type.
func (t TypeTag) IsApproximate() bool {
	switch t {
	case TagFloat, TagDouble, TagDecimal:
		return true
	}
	return false
}

// IsTemporal reports whether the tag is a date or timestamp type.
func (t TypeTag) IsTemporal() bool {
	return t == TagDate || t == TagTimestamp
}

// Type is a concrete scalar type: a tag plus optional precision detail.
// Precision carries decimal precision or timestamp fractional digits;
// Scale carries decimal scale. Zero means the type's default.
type Type struct {
	Tag       TypeTag
	Precision int
	Scale     int
}

// Convenience values for the parameterless renderings of each type.
var (
	Tinyint   = Type{Tag: TagTinyint}
	Smallint  = Type{Tag: TagSmallint}
	Integer   = Type{Tag: TagInteger}
	Bigint    = Type{Tag: TagBigint}
	Float     = Type{Tag: TagFloat}
	Double    = Type{Tag: TagDouble}
	Decimal   = Type{Tag: TagDecimal}
	Varchar   = Type{Tag: TagVarchar}
	Boolean   = Type{Tag: TagBoolean}
	Date      = Type{Tag: TagDate}
	Timestamp = Type{Tag: TagTimestamp}
	Array     = Type{Tag: TagArray}
	Map       = Type{Tag: TagMap}
)

// WithPrecision returns a copy of the type with the given precision.
func (t Type) WithPrecision(p int) Type {
	t.Precision = p
	return t
}

// WithScale returns a copy of the type with the given scale.
func (t Type) WithScale(s int) Type {
	t.Scale = s
	return t
}

// Family returns the coercion family of the type's tag.
func (t Type) Family() TypeFamily {
	return t.Tag.Family()
}

func (t Type) String() string {
	switch t.Tag {
	case TagDecimal:
		if t.Precision > 0 {
			return fmt.Sprintf("DECIMAL(%d,%d)", t.Precision, t.Scale)
		}
	case TagTimestamp:
		if t.Precision > 0 {
			return fmt.Sprintf("TIMESTAMP(%d)", t.Precision)
		}
	}
	return t.Tag.String()
}

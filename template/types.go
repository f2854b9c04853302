package template

import "strings"

// TypeTag names how a leaf value is synthesized. The vocabulary is closed; see ParseTypeTag.
type TypeTag string

// Generic tags
const (
	TypeInt     TypeTag = "int"
	TypeDouble  TypeTag = "double"
	TypeBoolean TypeTag = "boolean"
	TypeString  TypeTag = "string"
	TypeArray   TypeTag = "array"
	TypeObject  TypeTag = "object"
)

// Integer refinements
const (
	TypeAge    TypeTag = "age"
	TypeYear   TypeTag = "year"
	TypeMonth  TypeTag = "month"
	TypeDay    TypeTag = "day"
	TypeHour   TypeTag = "hour"
	TypeMinute TypeTag = "minute"
	TypeSecond TypeTag = "second"
	TypePort   TypeTag = "port"
	TypeID     TypeTag = "id"
)

// Double refinements
const (
	TypePrice       TypeTag = "price"
	TypeRate        TypeTag = "rate"
	TypeScore       TypeTag = "score"
	TypeTemperature TypeTag = "temperature"
	TypeLatitude    TypeTag = "latitude"
	TypeLongitude   TypeTag = "longitude"
)

// Formatted strings
const (
	TypeEmail TypeTag = "email"
	TypePhone TypeTag = "phone"
	TypeDate  TypeTag = "date"
	TypeIP    TypeTag = "ip"
	TypeURL   TypeTag = "url"
	TypeUUID  TypeTag = "uuid"
	TypeName  TypeTag = "name"
	TypeColor TypeTag = "color"
)

// Epoch-millisecond timestamps
const (
	TypeTimestampRealtime TypeTag = "timestamp_realtime"
	TypeTimestampEditable TypeTag = "timestamp_editable"
)

var knownTags = map[TypeTag]struct{}{}

func init() {
	for _, t := range []TypeTag{
		TypeInt, TypeDouble, TypeBoolean, TypeString, TypeArray, TypeObject,
		TypeAge, TypeYear, TypeMonth, TypeDay, TypeHour, TypeMinute, TypeSecond, TypePort, TypeID,
		TypePrice, TypeRate, TypeScore, TypeTemperature, TypeLatitude, TypeLongitude,
		TypeEmail, TypePhone, TypeDate, TypeIP, TypeURL, TypeUUID, TypeName, TypeColor,
		TypeTimestampRealtime, TypeTimestampEditable,
	} {
		knownTags[t] = struct{}{}
	}
}

// ParseTypeTag maps a client-supplied tag to the vocabulary. Matching ignores case and
// surrounding space. Unknown tags map to TypeString and ok is false.
func ParseTypeTag(s string) (tag TypeTag, ok bool) {
	t := TypeTag(strings.ToLower(strings.TrimSpace(s)))
	if _, known := knownTags[t]; known {
		return t, true
	}
	return TypeString, false
}

// IsInt reports whether the tag produces an integer
func (t TypeTag) IsInt() bool {
	switch t {
	case TypeInt, TypeAge, TypeYear, TypeMonth, TypeDay, TypeHour, TypeMinute, TypeSecond, TypePort, TypeID:
		return true
	}
	return false
}

// IsDouble reports whether the tag produces a fractional number
func (t TypeTag) IsDouble() bool {
	switch t {
	case TypeDouble, TypePrice, TypeRate, TypeScore, TypeTemperature, TypeLatitude, TypeLongitude:
		return true
	}
	return false
}

// IsTimestamp reports whether the tag produces epoch milliseconds
func (t TypeTag) IsTimestamp() bool {
	return t == TypeTimestampRealtime || t == TypeTimestampEditable
}

// IsContainer reports whether the tag produces an array or object
func (t TypeTag) IsContainer() bool {
	return t == TypeArray || t == TypeObject
}

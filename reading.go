package lottery

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// ValueKind is the type tag of a SourceReading value
type ValueKind byte

const (
	IntValue    ValueKind = 'i'
	FloatValue  ValueKind = 'f'
	StringValue ValueKind = 's'
	BytesValue  ValueKind = 'b'
)

// String returns the value kind name
func (k ValueKind) String() string {
	switch k {
	case IntValue:
		return "int"
	case FloatValue:
		return "float"
	case StringValue:
		return "string"
	case BytesValue:
		return "bytes"
	default:
		return "unknown"
	}
}

// SourceReading is one value produced by an entropy probe.
//
// Readings are immutable: byte values are copied on construction and on access.
type SourceReading struct {
	name      string
	kind      ValueKind
	i         int64
	f         float64
	s         string
	b         []byte
	timestamp time.Time
}

// IntReading creates an integer reading
func IntReading(name string, v int64, ts time.Time) SourceReading {
	return SourceReading{name: name, kind: IntValue, i: v, timestamp: ts}
}

// FloatReading creates a float reading
func FloatReading(name string, v float64, ts time.Time) SourceReading {
	return SourceReading{name: name, kind: FloatValue, f: v, timestamp: ts}
}

// StringReading creates a string reading
func StringReading(name, v string, ts time.Time) SourceReading {
	return SourceReading{name: name, kind: StringValue, s: v, timestamp: ts}
}

// BytesReading creates a byte-sequence reading
func BytesReading(name string, v []byte, ts time.Time) SourceReading {
	return SourceReading{name: name, kind: BytesValue, b: bytes.Clone(v), timestamp: ts}
}

// Name returns the reading identifier
func (r SourceReading) Name() string { return r.name }

// Kind returns the value type tag
func (r SourceReading) Kind() ValueKind { return r.kind }

// Timestamp returns the acquisition time
func (r SourceReading) Timestamp() time.Time { return r.timestamp }

// Value returns the reading value as int64, float64, string or []byte
func (r SourceReading) Value() any {
	switch r.kind {
	case IntValue:
		return r.i
	case FloatValue:
		return r.f
	case StringValue:
		return r.s
	case BytesValue:
		return bytes.Clone(r.b)
	default:
		return nil
	}
}

// valueBytes returns the fixed encoding of the value
func (r SourceReading) valueBytes() []byte {
	switch r.kind {
	case IntValue:
		return binary.BigEndian.AppendUint64(nil, uint64(r.i))
	case FloatValue:
		return binary.BigEndian.AppendUint64(nil, math.Float64bits(r.f))
	case StringValue:
		return []byte(r.s)
	default:
		return r.b
	}
}

// MarshalBinary encodes the reading as
// kind | u32 len(name) | name | i64 unix nanos | u32 len(value) | value,
// all integers big-endian.
func (r SourceReading) MarshalBinary() ([]byte, error) {
	value := r.valueBytes()
	if uint64(len(r.name)) > math.MaxUint32 || uint64(len(value)) > math.MaxUint32 {
		return nil, ErrSerializationFailed.WithDetails(fmt.Sprintf("reading %q too large", r.name))
	}

	buf := make([]byte, 0, 1+4+len(r.name)+8+4+len(value))
	buf = append(buf, byte(r.kind))
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(r.name)))
	buf = append(buf, r.name...)
	buf = binary.BigEndian.AppendUint64(buf, uint64(r.timestamp.UnixNano()))
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(value)))
	buf = append(buf, value...)
	return buf, nil
}

// String renders the reading for debug logs
func (r SourceReading) String() string {
	switch r.kind {
	case BytesValue:
		return fmt.Sprintf("%s=<%d bytes>", r.name, len(r.b))
	default:
		return fmt.Sprintf("%s=%v", r.name, r.Value())
	}
}

// EntropyBundle is the ordered set of readings of one collection pass
type EntropyBundle struct {
	readings []SourceReading
	strong   bool
}

// NewEntropyBundle creates a bundle from readings in invocation order.
// strong marks that the OS random source contributed at least one reading.
func NewEntropyBundle(strong bool, readings ...SourceReading) EntropyBundle {
	return EntropyBundle{
		readings: append([]SourceReading(nil), readings...),
		strong:   strong,
	}
}

// Len returns the number of readings
func (b EntropyBundle) Len() int { return len(b.readings) }

// IsEmpty reports whether the bundle has no readings
func (b EntropyBundle) IsEmpty() bool { return len(b.readings) == 0 }

// HasStrongSource reports whether a cryptographically strong reading is present
func (b EntropyBundle) HasStrongSource() bool { return b.strong }

// Readings returns a copy of the readings
func (b EntropyBundle) Readings() []SourceReading {
	return append([]SourceReading(nil), b.readings...)
}

// Append returns a new bundle with other's readings after b's
func (b EntropyBundle) Append(other EntropyBundle) EntropyBundle {
	readings := make([]SourceReading, 0, len(b.readings)+len(other.readings))
	readings = append(readings, b.readings...)
	readings = append(readings, other.readings...)
	return EntropyBundle{readings: readings, strong: b.strong || other.strong}
}

// Names returns the reading names in order
func (b EntropyBundle) Names() []string {
	names := make([]string, len(b.readings))
	for i, r := range b.readings {
		names[i] = r.name
	}
	return names
}

package dem

import (
	"reflect"
	"unicode/utf8"
)

// Limits bounds the classifier's structural traversal. The values are
// heuristic knobs, not invariants; see DefaultLimits for the stock
// settings and the tuning config for overrides.
type Limits struct {
	// MaxDepth is the deepest nesting level examined.
	MaxDepth int `json:"max_depth"`
	// ListSample is how many leading elements of a non-byte slice are
	// examined.
	ListSample int `json:"list_sample"`
	// MapEntries is how many map values are examined.
	MapEntries int `json:"map_entries"`
	// PrintableRatio is the minimum share of printable characters for a
	// byte field to count as readable text.
	PrintableRatio float64 `json:"printable_ratio"`
}

// DefaultLimits returns the stock traversal bounds: four levels deep,
// sampling 8 slice elements and 16 map entries, with an 0.85 printable
// threshold.
func DefaultLimits() Limits {
	return Limits{
		MaxDepth:       4,
		ListSample:     8,
		MapEntries:     16,
		PrintableRatio: 0.85,
	}
}

// Classifier decides whether a payload carries byte fields that do not
// look like human-readable text. The dispatcher drops such payloads
// unless binary inclusion is requested.
type Classifier struct {
	limits Limits
}

// NewClassifier builds a classifier with the given traversal bounds.
func NewClassifier(limits Limits) *Classifier {
	return &Classifier{limits: limits}
}

// HasUnreadableBinary reports whether any byte field sampled within the
// traversal bounds fails the printable-text test. The traversal is
// deliberately approximate: the bounds trade completeness for a fixed
// cost on deep or huge payloads.
func (c *Classifier) HasUnreadableBinary(payload any) bool {
	return c.scan(reflect.ValueOf(payload), 0)
}

func (c *Classifier) scan(v reflect.Value, depth int) bool {
	if depth > c.limits.MaxDepth || !v.IsValid() {
		return false
	}
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return false
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			if v.Len() == 0 {
				return false
			}
			// Element-wise reads work on values reached through
			// unexported fields, which Interface() and reflect.Copy
			// refuse. Proto messages keep unknownFields that way.
			b := make([]byte, v.Len())
			for i := range b {
				b[i] = byte(v.Index(i).Uint())
			}
			return !c.readableBytes(b)
		}
		for i := 0; i < v.Len() && i < c.limits.ListSample; i++ {
			if c.scan(v.Index(i), depth+1) {
				return true
			}
		}
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			if c.scan(v.Field(i), depth+1) {
				return true
			}
		}
	case reflect.Map:
		iter := v.MapRange()
		n := 0
		for iter.Next() {
			if c.scan(iter.Value(), depth+1) {
				return true
			}
			n++
			if n >= c.limits.MapEntries {
				break
			}
		}
	}
	return false
}

// readableBytes applies the printable-text test: empty is readable,
// invalid UTF-8 is not, and otherwise the share of printable characters
// (tab, newline, carriage return, ASCII 32..126) must reach the
// configured ratio.
func (c *Classifier) readableBytes(b []byte) bool {
	if len(b) == 0 {
		return true
	}
	if !utf8.Valid(b) {
		return false
	}
	printable, total := 0, 0
	for _, r := range string(b) {
		total++
		if r == '\n' || r == '\r' || r == '\t' || (r >= 32 && r <= 126) {
			printable++
		}
	}
	return float64(printable)/float64(total) >= c.limits.PrintableRatio
}

// Package payload normalizes the shape-shifting artifact values attached to
// agent replies into canonical flight records.
//
// The backend is tolerated in every shape it has been observed to produce:
// the artifact may arrive as a JSON object or as a string-encoded object, it
// may be wrapped in a one-level {"content": ...} envelope, and the flight
// collection may be an object keyed "Flight N" or an array of
// {index, summary{...}} items. Normalization never fails: malformed fields
// degrade to zero values at the field level, never at the record or payload
// level.
package payload

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Flight is a normalized flight record derived from an artifact payload. It
// is recomputed from the raw artifact on every normalization pass and is not
// persisted directly.
//
// Ordinal and Key together form the stable cross-session identity of the
// record: provider caches are keyed by Ordinal and selection actions carry
// both.
type Flight struct {
	Ordinal          int      `json:"ordinal"`
	Key              string   `json:"key"`
	PriceDisplay     string   `json:"price"`
	Airlines         []string `json:"airlines,omitempty"`
	DepartureAirport string   `json:"departure_airport"`
	ArrivalAirport   string   `json:"arrival_airport"`
	DepartureTime    string   `json:"departure_time"`
	ArrivalTime      string   `json:"arrival_time"`
	DurationLabel    string   `json:"flight_duration"`
	Stops            int      `json:"stops"`
}

// Extract resolves an artifact value to its payload object.
//
// A string-encoded artifact is parsed; if parsing fails the original string
// is returned unchanged. A {"content": ...} envelope is unwrapped one level,
// and an envelope whose content is itself string-encoded is parsed again.
// Extract is idempotent over enveloped and bare inputs and never panics.
func Extract(artifact json.RawMessage) json.RawMessage {
	v := decodeIfString(artifact)
	if len(v) == 0 {
		return nil
	}
	if content := gjson.GetBytes(v, "content"); content.Exists() && gjson.ParseBytes(v).IsObject() {
		return decodeIfString(json.RawMessage(content.Raw))
	}
	return v
}

// decodeIfString unwraps a JSON string whose content is itself valid JSON.
// Anything else passes through untouched.
func decodeIfString(raw json.RawMessage) json.RawMessage {
	v := json.RawMessage(strings.TrimSpace(string(raw)))
	if len(v) == 0 {
		return nil
	}
	parsed := gjson.ParseBytes(v)
	if parsed.Type != gjson.String {
		return v
	}
	inner := strings.TrimSpace(parsed.String())
	if inner != "" && gjson.Valid(inner) {
		return json.RawMessage(inner)
	}
	return v
}

// Flights extracts the ordered flight sequence from an artifact value.
//
// The flights collection may be absent (empty result), an object mapping
// labels like "Flight 2" to flight objects, or an array of flight objects.
// Records are sorted ascending by numeric ordinal with a stable tie-break on
// original iteration order, so "Flight 2" sorts before "Flight 10".
func Flights(artifact json.RawMessage) []Flight {
	p := Extract(artifact)
	if len(p) == 0 {
		return nil
	}
	coll := gjson.GetBytes(p, "flights")
	if !coll.IsObject() && !coll.IsArray() {
		// A scalar in the flights position ("none found", null) is no
		// collection at all; iterating it would invent an empty record.
		return nil
	}

	var out []Flight
	pos := 0
	coll.ForEach(func(key, value gjson.Result) bool {
		pos++
		var rec Flight
		if coll.IsObject() {
			rec = record(value, ordinalFromLabel(key.String(), pos), key.String())
		} else {
			ord := ordinalFromItem(value, pos)
			rec = record(value, ord, "Flight "+strconv.Itoa(ord))
		}
		out = append(out, rec)
		return true
	})

	sort.SliceStable(out, func(i, j int) bool { return out[i].Ordinal < out[j].Ordinal })
	return out
}

// Currency reads the confirmed currency code from an artifact value.
// Absence is a valid, non-error result.
func Currency(artifact json.RawMessage) string {
	p := Extract(artifact)
	if len(p) == 0 {
		return ""
	}
	return gjson.GetBytes(p, "currency").String()
}

// SessionID reads the live automation session id from an artifact value.
func SessionID(artifact json.RawMessage) string {
	p := Extract(artifact)
	if len(p) == 0 {
		return ""
	}
	return gjson.GetBytes(p, "session_id").String()
}

// Message reads the free-text status message from an artifact value.
func Message(artifact json.RawMessage) string {
	p := Extract(artifact)
	if len(p) == 0 {
		return ""
	}
	return gjson.GetBytes(p, "message").String()
}

// record builds one Flight from a raw flight object. Every field resolves
// through a flat primary source with a nested "summary" fallback; absence of
// both leaves the zero value.
func record(v gjson.Result, ordinal int, key string) Flight {
	return Flight{
		Ordinal:          ordinal,
		Key:              key,
		PriceDisplay:     field(v, "price"),
		Airlines:         airlines(v),
		DepartureAirport: field(v, "departure_airport"),
		ArrivalAirport:   field(v, "arrival_airport"),
		DepartureTime:    field(v, "departure_time"),
		ArrivalTime:      field(v, "arrival_time"),
		DurationLabel:    field(v, "flight_duration"),
		Stops:            stops(v),
	}
}

func field(v gjson.Result, name string) string {
	if f := v.Get(name); scalar(f) {
		return f.String()
	}
	if f := v.Get("summary." + name); scalar(f) {
		return f.String()
	}
	return ""
}

// scalar reports whether the value renders as a plain display string.
// Objects and arrays in a string position degrade to empty instead.
func scalar(f gjson.Result) bool {
	switch f.Type {
	case gjson.String, gjson.Number, gjson.True, gjson.False:
		return true
	}
	return false
}

// airlines tolerates both an array of names and a bare string.
func airlines(v gjson.Result) []string {
	f := v.Get("airlines")
	if !f.Exists() {
		f = v.Get("summary.airlines")
	}
	switch {
	case f.IsArray():
		var names []string
		f.ForEach(func(_, item gjson.Result) bool {
			if s := item.String(); s != "" {
				names = append(names, s)
			}
			return true
		})
		return names
	case f.Type == gjson.String && f.String() != "":
		return []string{f.String()}
	}
	return nil
}

func stops(v gjson.Result) int {
	f := v.Get("stops")
	if !f.Exists() {
		f = v.Get("summary.stops")
	}
	if n := int(f.Int()); n > 0 {
		return n
	}
	return 0
}

// ordinalFromLabel derives the ordinal from the first run of digits in an
// object key; without digits it falls back to the 1-based position.
func ordinalFromLabel(label string, pos int) int {
	start := -1
	for i, r := range label {
		if r >= '0' && r <= '9' {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			return atoi(label[start:i], pos)
		}
	}
	if start >= 0 {
		return atoi(label[start:], pos)
	}
	return pos
}

// ordinalFromItem derives the ordinal of an array-form entry from its index
// or flight_no field, falling back to the 1-based position.
func ordinalFromItem(v gjson.Result, pos int) int {
	for _, name := range []string{"index", "flight_no"} {
		if f := v.Get(name); f.Exists() {
			if n := int(f.Int()); n > 0 {
				return n
			}
		}
	}
	return pos
}

func atoi(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

package codec

import (
	"encoding/json"
)

// JSON is the standard-library JSON codec.
//
// Float vectors survive a round trip; attribute numbers decode as float64.
type JSON struct{}

// Marshal encodes the value to JSON.
func (JSON) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

// Unmarshal decodes the JSON data into v.
func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// Name returns the unique name of the codec ("json").
func (JSON) Name() string { return "json" }

// Default is the codec used when a store is opened without WithCodec.
var Default Codec = GoJSON{}

package api

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// Envelope is the wire form of a Request: a type tag plus its payload. It is
// what journals record and what scripts and remote hosts send.
type Envelope struct {
	Type    RequestKind     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Encode wraps req in an Envelope.
func Encode(req Request) (Envelope, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s: %w", req.Kind(), err)
	}
	return Envelope{Type: req.Kind(), Payload: payload}, nil
}

// Decode unwraps the envelope into its typed Request. The type tag may be the
// bare request kind or a Redux action type such as
// "components/addOrUpdateComponentReducer".
func (e Envelope) Decode() (Request, error) {
	kind := NormalizeKind(string(e.Type))
	if !kind.Valid() {
		return nil, fmt.Errorf("decode envelope: unknown request type %q", e.Type)
	}
	payload := e.Payload
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}

	var (
		req Request
		err error
	)
	switch kind {
	case KindAddOrUpdate:
		var r AddOrUpdate
		err = json.Unmarshal(payload, &r)
		req = r
	case KindRemove:
		var r Remove
		err = json.Unmarshal(payload, &r)
		req = r
	case KindCopy:
		var r Copy
		err = json.Unmarshal(payload, &r)
		req = r
	case KindBringToFront:
		var r BringToFront
		err = json.Unmarshal(payload, &r)
		req = r
	case KindUpdateProps:
		var r UpdateProps
		err = json.Unmarshal(payload, &r)
		req = r
	case KindDelete:
		var r Delete
		err = json.Unmarshal(payload, &r)
		req = r
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", kind, err)
	}
	return req, nil
}

// NormalizeKind maps a Redux action type ("components/removeComponentReducer")
// or a bare reducer name ("removeComponentReducer") to its RequestKind.
// Unknown names are returned as-is and fail Valid.
func NormalizeKind(name string) RequestKind {
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimSuffix(name, "Reducer")
	return RequestKind(name)
}

// MarshalRequest encodes req as an envelope document.
func MarshalRequest(req Request) ([]byte, error) {
	env, err := Encode(req)
	if err != nil {
		return nil, err
	}
	return json.Marshal(env)
}

// UnmarshalRequest decodes an envelope document.
func UnmarshalRequest(data []byte) (Request, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	return env.Decode()
}

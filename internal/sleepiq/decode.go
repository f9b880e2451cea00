package sleepiq

import (
	"encoding/json"
	"reflect"
	"strings"
)

// decodeStrict unmarshals data into v, a pointer to a struct. Every exported
// field without a sleepiq:"optional" tag is required: if the key is missing
// from the payload the result is a *MalformedResponseError naming it.
func decodeStrict(endpoint string, data []byte, v any) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return &MalformedResponseError{Endpoint: endpoint, Err: err}
	}

	if name, ok := missingField(reflect.TypeOf(v).Elem(), fields); !ok {
		return &MalformedResponseError{Endpoint: endpoint, Field: name}
	}

	if err := json.Unmarshal(data, v); err != nil {
		return &MalformedResponseError{Endpoint: endpoint, Err: err}
	}
	return nil
}

func missingField(t reflect.Type, fields map[string]json.RawMessage) (string, bool) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		if f.Tag.Get("sleepiq") == "optional" {
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			continue
		}
		if _, ok := fields[name]; !ok {
			return name, false
		}
	}
	return "", true
}

// field extracts one required member of a JSON object.
func field(endpoint string, data []byte, name string) (json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, &MalformedResponseError{Endpoint: endpoint, Err: err}
	}
	raw, ok := fields[name]
	if !ok {
		return nil, &MalformedResponseError{Endpoint: endpoint, Field: name}
	}
	return raw, nil
}

// decodeList decodes a required array member, each element strictly.
func decodeList[T any](endpoint string, data []byte, name string) ([]*T, error) {
	raw, err := field(endpoint, data, name)
	if err != nil {
		return nil, err
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, &MalformedResponseError{Endpoint: endpoint, Err: err}
	}

	out := make([]*T, 0, len(items))
	for _, item := range items {
		v := new(T)
		if err := decodeStrict(endpoint, item, v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

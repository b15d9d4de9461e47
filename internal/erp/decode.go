package erp

import (
	"encoding/json"
	"fmt"
)

// DecodeError marks a response body that could not be parsed into the
// expected shape. It fails fast at the boundary instead of letting a
// half-decoded value propagate into the calculation pipeline.
type DecodeError struct {
	Endpoint string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("erp: decode %s response: %v", e.Endpoint, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// decodeList parses a collection response that may be a bare JSON array or an
// object wrapping the array under one of the given field names. The backend
// does not guarantee a fixed pagination envelope, only "an array of records,
// optionally wrapped in a named field".
func decodeList[T any](endpoint string, body []byte, wrapperKeys ...string) ([]T, error) {
	var direct []T
	if err := json.Unmarshal(body, &direct); err == nil {
		return direct, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &DecodeError{Endpoint: endpoint, Err: err}
	}
	for _, key := range wrapperKeys {
		raw, ok := envelope[key]
		if !ok {
			continue
		}
		var wrapped []T
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			return nil, &DecodeError{Endpoint: endpoint, Err: err}
		}
		return wrapped, nil
	}
	return nil, &DecodeError{Endpoint: endpoint, Err: fmt.Errorf("no recognised collection field in %v", keysOf(envelope))}
}

func decodeObject[T any](endpoint string, body []byte) (T, error) {
	var out T
	if err := json.Unmarshal(body, &out); err != nil {
		return out, &DecodeError{Endpoint: endpoint, Err: err}
	}
	return out, nil
}

func keysOf(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

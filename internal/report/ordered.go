// Package report turns raw tool reports into ordered issue sequences.
// Each normalizer takes one report's bytes and produces either a list of
// issues in document order or a parse error; nothing here touches the
// filesystem or decides envelope policy.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// forEachMember walks the members of a top-level JSON object in document
// order, invoking fn with each key and its raw value. encoding/json maps
// lose member order, which matters here: issue selection must be
// deterministic with respect to the report as written. Duplicate keys are
// passed through as separate members.
func forEachMember(data []byte, fn func(key string, value json.RawMessage) error) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("decode report: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("decode report: expected a JSON object, got %v", tok)
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("decode report key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("decode report key: unexpected token %v", keyTok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("decode value for %q: %w", key, err)
		}
		if err := fn(key, value); err != nil {
			return err
		}
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("decode report: %w", err)
	}
	return nil
}

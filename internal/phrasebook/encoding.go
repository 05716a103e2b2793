// ABOUTME: JSON encoding for conversation state blobs
// ABOUTME: Decode re-validates the invariants so a corrupt blob never reaches the controller

package phrasebook

import (
	"encoding/json"
	"fmt"
)

// stateJSON is the persisted shape of a State.
type stateJSON struct {
	Dictionaries    map[string][]string `json:"dictionaries"`
	DictionaryNames []string            `json:"dictionary_names"`
	Current         string              `json:"current_dictionary"`
	Cursor          int                 `json:"cursor"`
	IntervalSeconds float64             `json:"interval_seconds,omitempty"`
}

// Encode serializes the full state.
func Encode(s *State) ([]byte, error) {
	data, err := json.Marshal(stateJSON{
		Dictionaries:    s.dictionaries,
		DictionaryNames: s.names,
		Current:         s.current,
		Cursor:          s.cursor,
		IntervalSeconds: s.interval,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding state: %w", err)
	}
	return data, nil
}

// Decode parses a blob produced by Encode.
func Decode(data []byte) (*State, error) {
	var raw stateJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding state: %w", err)
	}

	if len(raw.DictionaryNames) != len(raw.Dictionaries) {
		return nil, fmt.Errorf("%w: %d names for %d dictionaries", ErrInvalidState, len(raw.DictionaryNames), len(raw.Dictionaries))
	}
	seen := make(map[string]bool, len(raw.DictionaryNames))
	for _, name := range raw.DictionaryNames {
		if _, ok := raw.Dictionaries[name]; !ok || seen[name] {
			return nil, fmt.Errorf("%w: name %q does not match dictionaries", ErrInvalidState, name)
		}
		seen[name] = true
	}
	if _, ok := raw.Dictionaries[DefaultDictionary]; !ok {
		return nil, fmt.Errorf("%w: missing %q dictionary", ErrInvalidState, DefaultDictionary)
	}
	if _, ok := raw.Dictionaries[raw.Current]; !ok {
		return nil, fmt.Errorf("%w: current dictionary %q unknown", ErrInvalidState, raw.Current)
	}
	if raw.Cursor < 0 {
		return nil, fmt.Errorf("%w: negative cursor", ErrInvalidState)
	}
	if raw.IntervalSeconds < 0 {
		return nil, fmt.Errorf("%w: negative interval", ErrInvalidState)
	}

	for name, phrases := range raw.Dictionaries {
		if phrases == nil {
			raw.Dictionaries[name] = []string{}
		}
	}

	return &State{
		dictionaries: raw.Dictionaries,
		names:        raw.DictionaryNames,
		current:      raw.Current,
		cursor:       raw.Cursor,
		interval:     raw.IntervalSeconds,
	}, nil
}

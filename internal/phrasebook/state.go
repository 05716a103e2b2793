// ABOUTME: Typed per-conversation state: dictionaries, selection, cursor and interval
// ABOUTME: Implements the phrase store and dictionary selector operations

package phrasebook

import (
	"fmt"
	"math"
	"strings"
	"unicode"
)

// State is the durable state of a single conversation.
// It is not safe for concurrent use; callers serialize access per conversation.
type State struct {
	dictionaries map[string][]string
	names        []string
	current      string
	cursor       int
	interval     float64 // 0 means never set
}

// NewState returns a state seeded with the default dictionary.
func NewState() *State {
	s := &State{}
	s.EnsureInitialized()
	return s
}

// EnsureInitialized seeds the default dictionary, selects it and resets the
// cursor if the state has no dictionaries yet. It reports whether it seeded.
func (s *State) EnsureInitialized() bool {
	if len(s.dictionaries) > 0 {
		return false
	}
	s.dictionaries = map[string][]string{DefaultDictionary: BuiltinPhrases()}
	s.names = []string{DefaultDictionary}
	s.current = DefaultDictionary
	s.cursor = 0
	return true
}

// ValidateName checks that name is usable as a dictionary name.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrInvalidName)
	}
	if strings.IndexFunc(name, unicode.IsSpace) >= 0 {
		return fmt.Errorf("%w: %q contains whitespace", ErrInvalidName, name)
	}
	return nil
}

// Create adds an empty dictionary, makes it current and resets the cursor.
// Re-creating an existing name fails with ErrAlreadyExists and leaves it untouched.
func (s *State) Create(name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if s.dictionaries == nil {
		s.EnsureInitialized()
	}
	if _, ok := s.dictionaries[name]; ok {
		return fmt.Errorf("%w: %q", ErrAlreadyExists, name)
	}
	s.dictionaries[name] = []string{}
	s.names = append(s.names, name)
	s.current = name
	s.cursor = 0
	return nil
}

// AppendPhrase appends phrase to the named dictionary.
func (s *State) AppendPhrase(name, phrase string) error {
	if phrase == "" {
		return ErrEmptyPhrase
	}
	phrases, ok := s.dictionaries[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	s.dictionaries[name] = append(phrases, phrase)
	return nil
}

// Names returns the dictionary names in creation order.
func (s *State) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Get returns a copy of the phrases in the named dictionary.
func (s *State) Get(name string) ([]string, error) {
	phrases, ok := s.dictionaries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	out := make([]string, len(phrases))
	copy(out, phrases)
	return out, nil
}

// Current returns the name of the selected dictionary.
func (s *State) Current() string {
	return s.current
}

// SetCurrent selects the named dictionary and resets the cursor.
func (s *State) SetCurrent(name string) error {
	if _, ok := s.dictionaries[name]; !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	s.current = name
	s.cursor = 0
	return nil
}

// Snapshot returns an owned copy of the current dictionary's phrases.
func (s *State) Snapshot() []string {
	phrases, _ := s.Get(s.current)
	return phrases
}

// Cursor returns the index of the next phrase to send.
func (s *State) Cursor() int {
	return s.cursor
}

// NextPhrase returns the phrase at the cursor within snapshot and advances the
// cursor cyclically. The cursor is reduced modulo len(snapshot) before reading,
// so a cursor left over from a longer dictionary never indexes out of range.
func (s *State) NextPhrase(snapshot []string) (string, error) {
	n := len(snapshot)
	if n == 0 {
		return "", ErrEmptySequence
	}
	idx := s.cursor % n
	s.cursor = (idx + 1) % n
	return snapshot[idx], nil
}

// Interval returns the delivery period in seconds.
func (s *State) Interval() float64 {
	if s.interval == 0 {
		return DefaultInterval
	}
	return s.interval
}

// SetInterval stores the delivery period in seconds.
func (s *State) SetInterval(seconds float64) error {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidInterval, seconds)
	}
	s.interval = seconds
	return nil
}

// Package phrasebook holds the durable per-conversation state of the phrase bot.
//
// # State
//
// A State owns the named phrase dictionaries of one conversation, the name of
// the currently selected dictionary, the rotation cursor and the delivery
// interval. The zero value is an unseeded state: call EnsureInitialized (or use
// NewState, which does it for you) before anything else, or decode one with Decode.
//
// Invariants maintained by every method:
//
//   - a dictionary named DefaultDictionary always exists once seeded
//   - Names() always equals the key set of the dictionaries, in creation order
//   - Current() is always one of Names()
//
// # Rotation
//
// Delivery jobs never read the live dictionary. They capture a Snapshot when
// they start and feed it back into NextPhrase on every tick, which reduces the
// cursor modulo the snapshot length before reading it.
//
// # Encoding
//
// Encode and Decode round-trip the complete state as JSON. Decode re-checks
// the invariants and rejects blobs that violate them.
package phrasebook

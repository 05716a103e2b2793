// ABOUTME: Built-in phrase list used to seed the default dictionary
// ABOUTME: Phrases are opaque strings delivered verbatim

package phrasebook

// DefaultDictionary is the name of the dictionary every conversation starts with.
const DefaultDictionary = "default"

// DefaultInterval is the delivery period in seconds used until one is set.
const DefaultInterval = 2.0

// builtinPhrases seeds DefaultDictionary.
var builtinPhrases = []string{
	"The kettle has opinions about Tuesdays.",
	"Somewhere a pigeon is filing its taxes.",
	"Please do not feed the semicolons.",
	"The moon called, it wants its spoon back.",
	"All socks are temporary.",
	"I have counted the clouds. There are too many.",
	"Your toaster is proud of you.",
	"Stairs are just slow elevators with ambition.",
	"Never trust a cucumber in a tie.",
	"This message will self-destruct in a decade or so.",
}

// BuiltinPhrases returns a copy of the phrases the default dictionary is seeded with.
func BuiltinPhrases() []string {
	out := make([]string, len(builtinPhrases))
	copy(out, builtinPhrases)
	return out
}

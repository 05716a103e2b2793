// ABOUTME: Reply texts sent back to a conversation for each command outcome
// ABOUTME: Wording lives here; the conditions that trigger each reply live in the handlers

package controller

import (
	"fmt"
	"strconv"
)

const (
	replyGreeting = "Hi! You wrote to me, so you must want a pile of strange messages.\n" +
		"Send /spam and I will start sending them, /stop and I will stop.\n" +
		"Set the pause between messages with \"/interval x\" (seconds).\n" +
		"Dictionaries: /new_dict name, /add_phrase text, /set_dict name, /dicts, /current_dict."

	replyStopped        = "Ok, stopping."
	replyIntervalUsage  = "Set the interval between messages as \"/interval x\", where x is the interval in seconds.\nThe interval cannot be less than 1."
	replyIntervalFormat = "Wrong format. One number is needed."
	replyIntervalClamp  = "The interval cannot be less than 1."
	replyNewDictUsage   = "Create a dictionary with \"/new_dict name\": exactly one word."
	replyAddPhraseUsage = "Add a phrase with \"/add_phrase text\"."
	replySetDictUsage   = "Select a dictionary with \"/set_dict name\": exactly one word."
	replyFailure        = "Something went wrong, please try again later."
)

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func replyIntervalSet(v float64) string {
	return fmt.Sprintf("Interval set to %s.", formatSeconds(v))
}

func replyIntervalTooLarge(max float64) string {
	return fmt.Sprintf("The interval cannot be more than %s seconds.", formatSeconds(max))
}

func replyEmptyDictionary(name string) string {
	return fmt.Sprintf("Dictionary %q has no phrases yet. Add some with /add_phrase.", name)
}

func replyInvalidName(name string) string {
	return fmt.Sprintf("%q is not a valid dictionary name: use one word without spaces.", name)
}

func replyAlreadyExists(name string) string {
	return fmt.Sprintf("Dictionary %q already exists. Select it with /set_dict %s.", name, name)
}

func replyDictCreated(name string) string {
	return fmt.Sprintf("Dictionary %q created and selected.", name)
}

func replyPhraseAdded(phrase, dict string) string {
	return fmt.Sprintf("%s\nPhrase added to dictionary %q.", phrase, dict)
}

func replyUnknownDict(name string) string {
	return fmt.Sprintf("There is no dictionary %q. See /dicts.", name)
}

func replyDictSelected(name string) string {
	return fmt.Sprintf("Dictionary %q selected.", name)
}

package usecase

import (
	"fmt"
	"sort"
	"strings"

	draftdomain "tonedraft-backend/internal/draft/domain"
	profiledomain "tonedraft-backend/internal/profile/domain"
)

// ProfileSummary renders a tone profile as plain instructions for the
// generation prompt. An empty profile yields a neutral fallback so a user
// with no history still gets a best-effort draft.
func ProfileSummary(profile *profiledomain.ToneProfile) string {
	if profile.IsEmpty() {
		return "No writing history is available for this relationship. Use a neutral, polite, moderately concise tone."
	}

	features, err := profile.DecodeFeatures()
	if err != nil {
		return "No writing history is available for this relationship. Use a neutral, polite, moderately concise tone."
	}

	var b strings.Builder

	switch {
	case features.Formality >= 0.65:
		b.WriteString("The user writes formally to this kind of contact.")
	case features.Formality <= 0.35:
		b.WriteString("The user writes casually to this kind of contact.")
	default:
		b.WriteString("The user writes in a neutral register to this kind of contact.")
	}

	if g := topKey(features.Greetings); g != "" {
		fmt.Fprintf(&b, " Typical greeting: %q.", g)
	}
	if s := topKey(features.Signoffs); s != "" {
		fmt.Fprintf(&b, " Typical sign-off: %q.", s)
	}
	if features.AvgWordCount > 0 {
		fmt.Fprintf(&b, " Replies average about %d words.", int(features.AvgWordCount))
	}
	if features.ExclamationRate >= 1 {
		b.WriteString(" Exclamation marks are common.")
	}
	if len(features.Vocabulary) > 0 {
		words := topKeys(features.Vocabulary, 8)
		fmt.Fprintf(&b, " Frequently used words: %s.", strings.Join(words, ", "))
	}

	return b.String()
}

// BuildPrompt renders the provider-agnostic generation request: instructions,
// tone profile summary, retrieved context, then the message to answer.
func BuildPrompt(profileSummary string, contextMsgs []draftdomain.RetrievedMessage, msg draftdomain.InboundMessage) string {
	var b strings.Builder

	b.WriteString("You draft email replies in the user's own voice. ")
	b.WriteString("Write a reply to the email below. Match the user's writing style as described. ")
	b.WriteString("Output only the reply body, no subject line, no commentary.\n\n")

	b.WriteString("WRITING STYLE:\n")
	b.WriteString(profileSummary)
	b.WriteString("\n\n")

	if len(contextMsgs) > 0 {
		b.WriteString("RELEVANT PAST MESSAGES (for context and phrasing, do not copy verbatim):\n")
		for i, cm := range contextMsgs {
			fmt.Fprintf(&b, "--- Past message %d ---\n%s\n", i+1, cm.Snippet)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "EMAIL TO ANSWER:\nFrom: %s", msg.Sender)
	if msg.SenderName != "" {
		fmt.Fprintf(&b, " (%s)", msg.SenderName)
	}
	fmt.Fprintf(&b, "\nSubject: %s\n\n%s\n\nREPLY:", msg.Subject, msg.Body)

	return b.String()
}

func topKey(counts map[string]int) string {
	keys := topKeys(counts, 1)
	if len(keys) == 0 {
		return ""
	}
	return keys[0]
}

func topKeys(counts map[string]int, n int) []string {
	type kv struct {
		k string
		v int
	}
	entries := make([]kv, 0, len(counts))
	for k, v := range counts {
		entries = append(entries, kv{k, v})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].v != entries[j].v {
			return entries[i].v > entries[j].v
		}
		return entries[i].k < entries[j].k
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	keys := make([]string, len(entries))
	for i, e := range entries {
		keys[i] = e.k
	}
	return keys
}

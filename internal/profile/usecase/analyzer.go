package usecase

import (
	"regexp"
	"strings"

	profiledomain "tonedraft-backend/internal/profile/domain"
)

// Style markers. Deliberately shallow: the signal feeding the prompt needs to
// be directionally right, not linguistically complete.
var formalMarkers = []string{
	"dear", "sincerely", "regards", "kindly", "please find", "i would",
	"thank you for your", "best regards", "kind regards", "yours",
	"pursuant", "hereby", "i am writing",
}

var informalMarkers = []string{
	"hey", "yeah", "yep", "nope", "gonna", "wanna", "gotta", "btw",
	"lol", "haha", "thx", "cool", "awesome", "no worries", "sure thing",
}

var contractionPattern = regexp.MustCompile(`\b\w+'(s|t|re|ve|ll|d|m)\b`)

var greetingPattern = regexp.MustCompile(`(?i)^(hi|hey|hello|dear|good morning|good afternoon|good evening)\b`)

var signoffPattern = regexp.MustCompile(`(?i)^(best|best regards|kind regards|regards|cheers|thanks|thanks again|many thanks|sincerely|talk soon|take care|love|yours)[,!.]?$`)

var namePattern = regexp.MustCompile(`^[A-Z][a-z]+`)

var stopwords = map[string]bool{
	"about": true, "after": true, "again": true, "because": true, "before": true,
	"being": true, "could": true, "doing": true, "during": true, "every": true,
	"having": true, "might": true, "other": true, "really": true, "should": true,
	"something": true, "still": true, "their": true, "there": true, "these": true,
	"thing": true, "think": true, "those": true, "through": true, "under": true,
	"where": true, "which": true, "while": true, "would": true, "going": true,
}

// FormalityScore rates a text from 0 (casual) to 1 (formal) by counting
// register markers. 0.5 is neutral.
func FormalityScore(text string) float64 {
	lower := strings.ToLower(text)
	score := 0.5

	for _, marker := range formalMarkers {
		score += 0.08 * float64(strings.Count(lower, marker))
	}
	for _, marker := range informalMarkers {
		score -= 0.08 * float64(countWord(lower, marker))
	}
	score -= 0.02 * float64(len(contractionPattern.FindAllString(text, -1)))
	score -= 0.03 * float64(strings.Count(text, "!"))

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}

// countWord counts whole-word occurrences so "yep" does not match "yeppers"-style
// substrings inside longer tokens.
func countWord(lower, word string) int {
	count := 0
	for _, tok := range strings.FieldsFunc(lower, func(r rune) bool {
		return !('a' <= r && r <= 'z') && r != '\''
	}) {
		if tok == word {
			count++
		}
	}
	return count
}

// ExtractGreeting returns the normalized greeting pattern of a message, with
// any personal name replaced by a placeholder. Empty string means no greeting.
func ExtractGreeting(body string) string {
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if loc := greetingPattern.FindStringIndex(line); loc != nil {
			greeting := line[:loc[1]]
			rest := strings.TrimLeft(line[loc[1]:], " ,")
			if namePattern.MatchString(rest) {
				return greeting + " {name}"
			}
			return greeting
		}
		return ""
	}
	return ""
}

// ExtractSignoff returns the sign-off phrase of a message, if any.
func ExtractSignoff(body string) string {
	lines := strings.Split(strings.TrimSpace(body), "\n")
	// Scan the last few lines; the literal last line is usually the name.
	start := len(lines) - 5
	if start < 0 {
		start = 0
	}
	for i := len(lines) - 1; i >= start; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		if m := signoffPattern.FindString(line); m != "" {
			return strings.ToLower(strings.TrimRight(m, ",!."))
		}
	}
	return ""
}

// analyzeMessage extracts style features from a single message body.
func analyzeMessage(body string) profiledomain.StyleFeatures {
	words := strings.Fields(body)

	f := profiledomain.StyleFeatures{
		Formality:       FormalityScore(body),
		AvgWordCount:    float64(len(words)),
		ExclamationRate: float64(strings.Count(body, "!")),
		Greetings:       map[string]int{},
		Signoffs:        map[string]int{},
		Vocabulary:      map[string]int{},
	}

	if g := ExtractGreeting(body); g != "" {
		f.Greetings[strings.ToLower(g)]++
	}
	if s := ExtractSignoff(body); s != "" {
		f.Signoffs[s]++
	}

	for _, w := range words {
		w = strings.ToLower(strings.Trim(w, ".,!?;:\"'()"))
		if len(w) >= 5 && !stopwords[w] {
			f.Vocabulary[w]++
		}
	}

	return f
}

// AnalyzeMessages turns a window of sent message bodies into a mergeable
// observation batch: numeric features averaged, pattern counts summed.
func AnalyzeMessages(bodies []string) profiledomain.Observations {
	obs := profiledomain.Observations{
		Features: profiledomain.StyleFeatures{
			Greetings:  map[string]int{},
			Signoffs:   map[string]int{},
			Vocabulary: map[string]int{},
		},
	}

	for _, body := range bodies {
		if strings.TrimSpace(body) == "" {
			continue
		}
		f := analyzeMessage(body)
		obs.Count++
		obs.Features.Formality += f.Formality
		obs.Features.AvgWordCount += f.AvgWordCount
		obs.Features.ExclamationRate += f.ExclamationRate
		addCounts(obs.Features.Greetings, f.Greetings)
		addCounts(obs.Features.Signoffs, f.Signoffs)
		addCounts(obs.Features.Vocabulary, f.Vocabulary)
	}

	if obs.Count > 0 {
		n := float64(obs.Count)
		obs.Features.Formality /= n
		obs.Features.AvgWordCount /= n
		obs.Features.ExclamationRate /= n
	}

	return obs
}

func addCounts(dst, src map[string]int) {
	for k, v := range src {
		dst[k] += v
	}
}

package usecase

import (
	"strings"

	draftdomain "tonedraft-backend/internal/draft/domain"
	profileusecase "tonedraft-backend/internal/profile/usecase"
)

const diffSampleCap = 10

// Analyze compares a generated draft against the content the user actually
// sent and derives the structured diff fed back into profile learning. Pure
// function: no side effects beyond the return value.
func Analyze(draftText, sentText string) draftdomain.EditAnalysis {
	draftWords := strings.Fields(draftText)
	sentWords := strings.Fields(sentText)

	added, removed := wordDiff(draftWords, sentWords)

	analysis := draftdomain.EditAnalysis{
		Additions:         len(added),
		Deletions:         len(removed),
		AddedWords:        sample(added, diffSampleCap),
		RemovedWords:      sample(removed, diffSampleCap),
		FormalityDelta:    profileusecase.FormalityScore(sentText) - profileusecase.FormalityScore(draftText),
		GreetingNameAdded: greetingNameAdded(draftText, sentText),
	}

	if len(draftWords) > 0 {
		analysis.LengthRatio = float64(len(sentWords)) / float64(len(draftWords))
	} else if len(sentWords) > 0 {
		analysis.LengthRatio = float64(len(sentWords))
	} else {
		analysis.LengthRatio = 1
	}

	return analysis
}

// wordDiff returns the words the user added and removed, derived from a
// longest-common-subsequence alignment of the two word sequences.
func wordDiff(draft, sent []string) (added, removed []string) {
	n, m := len(draft), len(sent)

	// LCS length table
	lcs := make([][]int, n+1)
	for i := range lcs {
		lcs[i] = make([]int, m+1)
	}
	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			if draft[i-1] == sent[j-1] {
				lcs[i][j] = lcs[i-1][j-1] + 1
			} else if lcs[i-1][j] >= lcs[i][j-1] {
				lcs[i][j] = lcs[i-1][j]
			} else {
				lcs[i][j] = lcs[i][j-1]
			}
		}
	}

	// Walk back: words only in draft were removed, words only in sent added.
	i, j := n, m
	for i > 0 || j > 0 {
		switch {
		case i > 0 && j > 0 && draft[i-1] == sent[j-1]:
			i--
			j--
		case j > 0 && (i == 0 || lcs[i][j-1] >= lcs[i-1][j]):
			added = append(added, sent[j-1])
			j--
		default:
			removed = append(removed, draft[i-1])
			i--
		}
	}

	reverse(added)
	reverse(removed)
	return added, removed
}

func reverse(s []string) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

func sample(words []string, n int) []string {
	if len(words) <= n {
		return words
	}
	return words[:n]
}

// greetingNameAdded reports whether the sent version addresses the
// correspondent by name where the draft did not.
func greetingNameAdded(draftText, sentText string) bool {
	draftGreeting := profileusecase.ExtractGreeting(draftText)
	sentGreeting := profileusecase.ExtractGreeting(sentText)
	return strings.Contains(sentGreeting, "{name}") && !strings.Contains(draftGreeting, "{name}")
}

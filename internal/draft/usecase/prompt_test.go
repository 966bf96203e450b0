package usecase

import (
	"strings"
	"testing"

	draftdomain "tonedraft-backend/internal/draft/domain"
	profiledomain "tonedraft-backend/internal/profile/domain"
)

func TestProfileSummaryEmptyProfile(t *testing.T) {
	profile := &profiledomain.ToneProfile{UserID: "u", RelationshipType: "colleague"}

	summary := ProfileSummary(profile)
	if !strings.Contains(summary, "No writing history") {
		t.Errorf("Expected neutral fallback summary, got %q", summary)
	}
}

func TestProfileSummaryRendersFeatures(t *testing.T) {
	tests := []struct {
		name     string
		features profiledomain.StyleFeatures
		want     []string
	}{
		{
			name: "formal profile",
			features: profiledomain.StyleFeatures{
				Formality:    0.8,
				AvgWordCount: 120,
				Greetings:    map[string]int{"dear {name}": 4},
				Signoffs:     map[string]int{"sincerely": 4},
			},
			want: []string{"formally", `"dear {name}"`, `"sincerely"`, "120 words"},
		},
		{
			name: "casual profile",
			features: profiledomain.StyleFeatures{
				Formality:       0.2,
				ExclamationRate: 1.5,
				Greetings:       map[string]int{"hey": 3},
			},
			want: []string{"casually", `"hey"`, "Exclamation marks are common"},
		},
		{
			name:     "neutral register",
			features: profiledomain.StyleFeatures{Formality: 0.5, AvgWordCount: 30},
			want:     []string{"neutral register", "30 words"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile := &profiledomain.ToneProfile{UserID: "u", RelationshipType: "colleague", EmailsAnalyzed: 5}
			if err := profile.EncodeFeatures(tt.features); err != nil {
				t.Fatal(err)
			}
			summary := ProfileSummary(profile)
			for _, w := range tt.want {
				if !strings.Contains(summary, w) {
					t.Errorf("Summary missing %q: %q", w, summary)
				}
			}
		})
	}
}

func TestProfileSummaryVocabularyTopWords(t *testing.T) {
	profile := &profiledomain.ToneProfile{UserID: "u", RelationshipType: "friend", EmailsAnalyzed: 10}
	if err := profile.EncodeFeatures(profiledomain.StyleFeatures{
		Formality:  0.4,
		Vocabulary: map[string]int{"cheers": 9, "definitely": 7, "rare": 1},
	}); err != nil {
		t.Fatal(err)
	}

	summary := ProfileSummary(profile)
	if !strings.Contains(summary, "cheers") || !strings.Contains(summary, "definitely") {
		t.Errorf("Expected frequent words in summary, got %q", summary)
	}
}

func TestBuildPromptStructure(t *testing.T) {
	msg := draftdomain.InboundMessage{
		MessageID:  "m1",
		Sender:     "bob@acme.com",
		SenderName: "Bob Lee",
		Subject:    "Quarterly numbers",
		Body:       "Can you share the Q3 numbers?",
	}
	contextMsgs := []draftdomain.RetrievedMessage{
		{MessageID: "p1", Score: 0.9, Snippet: "Here are the Q2 numbers you asked for."},
	}

	prompt := BuildPrompt("The user writes formally.", contextMsgs, msg)

	for _, want := range []string{
		"WRITING STYLE:",
		"The user writes formally.",
		"RELEVANT PAST MESSAGES",
		"Here are the Q2 numbers you asked for.",
		"EMAIL TO ANSWER:",
		"bob@acme.com",
		"Bob Lee",
		"Quarterly numbers",
		"Can you share the Q3 numbers?",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("Prompt missing %q", want)
		}
	}

	if strings.Index(prompt, "WRITING STYLE:") > strings.Index(prompt, "EMAIL TO ANSWER:") {
		t.Error("Style section should precede the email to answer")
	}
}

func TestBuildPromptOmitsContextSectionWhenEmpty(t *testing.T) {
	msg := draftdomain.InboundMessage{MessageID: "m1", Sender: "a@b.com", Subject: "Hi", Body: "Hello"}

	prompt := BuildPrompt("Neutral tone.", nil, msg)
	if strings.Contains(prompt, "RELEVANT PAST MESSAGES") {
		t.Error("Empty context must not produce a past-messages section")
	}
}

func TestTopKeysOrderingAndTieBreak(t *testing.T) {
	counts := map[string]int{"b": 2, "a": 2, "c": 5}

	keys := topKeys(counts, 2)
	if len(keys) != 2 || keys[0] != "c" || keys[1] != "a" {
		t.Errorf("Expected [c a], got %v", keys)
	}
}

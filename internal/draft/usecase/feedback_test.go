package usecase

import "testing"

func TestAnalyzeGreetingNameAndLength(t *testing.T) {
	// Tracked draft vs what the user actually sent
	analysis := Analyze("Hi, thanks!", "Hi Sam, thank you so much!")

	if analysis.LengthRatio <= 1 {
		t.Errorf("Expected length increase, got ratio %f", analysis.LengthRatio)
	}
	if !analysis.GreetingNameAdded {
		t.Error("Expected greeting-name addition to be detected")
	}
	if analysis.Additions == 0 {
		t.Error("Expected added words")
	}
}

func TestAnalyzeIdenticalTexts(t *testing.T) {
	text := "Hi Tom,\n\nSounds good, see you Thursday.\n\nBest,\nAlice"
	analysis := Analyze(text, text)

	if analysis.Additions != 0 || analysis.Deletions != 0 {
		t.Errorf("Expected no diff for identical texts, got +%d -%d", analysis.Additions, analysis.Deletions)
	}
	if analysis.LengthRatio != 1 {
		t.Errorf("Expected length ratio 1, got %f", analysis.LengthRatio)
	}
	if analysis.FormalityDelta != 0 {
		t.Errorf("Expected zero formality delta, got %f", analysis.FormalityDelta)
	}
	if analysis.GreetingNameAdded {
		t.Error("Identical texts cannot add a greeting name")
	}
}

func TestAnalyzeDeletions(t *testing.T) {
	draft := "Hi Sam, I will send the full report with all appendices tomorrow morning."
	sent := "Hi Sam, I will send the report tomorrow."

	analysis := Analyze(draft, sent)

	if analysis.Deletions == 0 {
		t.Error("Expected deletions when the user shortened the draft")
	}
	if analysis.LengthRatio >= 1 {
		t.Errorf("Expected length decrease, got ratio %f", analysis.LengthRatio)
	}
}

func TestAnalyzeFormalityShift(t *testing.T) {
	draft := "hey! yeah sure, gonna send it over. thx!"
	sent := "Dear Ms. Chen,\n\nPlease find the document attached. Thank you for your patience.\n\nSincerely,\nAlice"

	analysis := Analyze(draft, sent)

	if analysis.FormalityDelta <= 0 {
		t.Errorf("Expected positive formality delta (user formalized), got %f", analysis.FormalityDelta)
	}
}

func TestAnalyzeEmptyDraft(t *testing.T) {
	analysis := Analyze("", "Hello there")
	if analysis.LengthRatio <= 0 {
		t.Errorf("Expected positive length ratio for empty draft, got %f", analysis.LengthRatio)
	}
	if analysis.Additions != 2 {
		t.Errorf("Expected 2 additions, got %d", analysis.Additions)
	}
}

func TestWordDiffSamplesCapped(t *testing.T) {
	draft := ""
	sent := "a b c d e f g h i j k l m n o p"

	analysis := Analyze(draft, sent)
	if len(analysis.AddedWords) > diffSampleCap {
		t.Errorf("Expected sample capped at %d, got %d", diffSampleCap, len(analysis.AddedWords))
	}
	if analysis.Additions != 16 {
		t.Errorf("Expected full addition count 16, got %d", analysis.Additions)
	}
}

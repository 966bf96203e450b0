package usecase

import (
	"math"
	"sync"
	"testing"

	profiledomain "tonedraft-backend/internal/profile/domain"
)

// fakeProfileRepo is an in-memory ProfileRepository.
type fakeProfileRepo struct {
	mu       sync.Mutex
	profiles map[string]*profiledomain.ToneProfile
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{profiles: make(map[string]*profiledomain.ToneProfile)}
}

func (f *fakeProfileRepo) key(userID, rel string) string { return userID + "|" + rel }

func (f *fakeProfileRepo) Get(userID, rel string) (*profiledomain.ToneProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.profiles[f.key(userID, rel)]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeProfileRepo) Save(p *profiledomain.ToneProfile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.ID == "" {
		p.ID = "profile-" + p.UserID + "-" + p.RelationshipType
	}
	cp := *p
	f.profiles[f.key(p.UserID, p.RelationshipType)] = &cp
	return nil
}

func (f *fakeProfileRepo) ListByUserID(userID string) ([]*profiledomain.ToneProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*profiledomain.ToneProfile
	for _, p := range f.profiles {
		if p.UserID == userID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func TestGetEmptyProfile(t *testing.T) {
	store := NewStore(newFakeProfileRepo())

	profile, err := store.Get("user-1", "colleague")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !profile.IsEmpty() {
		t.Error("Expected empty profile for user with no history")
	}
	if profile.EmailsAnalyzed != 0 {
		t.Errorf("Expected emails_analyzed 0, got %d", profile.EmailsAnalyzed)
	}
}

func TestMergeIncrementsCounter(t *testing.T) {
	store := NewStore(newFakeProfileRepo())

	obs := AnalyzeMessages([]string{
		"Hi Tom,\n\nThe report is attached.\n\nBest,\nAlice",
		"Hi Tom,\n\nLet's sync tomorrow about the rollout.\n\nBest,\nAlice",
		"Hello team,\n\nMeeting moved to Friday.\n\nRegards,\nAlice",
	})

	profile, err := store.Merge("user-1", "colleague", obs)
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if profile.EmailsAnalyzed != 3 {
		t.Errorf("Expected emails_analyzed 3, got %d", profile.EmailsAnalyzed)
	}
}

func TestMergeCountCommutative(t *testing.T) {
	b1 := AnalyzeMessages([]string{
		"Hey! Quick one - can you send the deck?\nThanks",
		"Yeah that works, see you then!",
	})
	b2 := AnalyzeMessages([]string{
		"Dear Mr. Patel,\n\nPlease find the contract attached.\n\nSincerely,\nAlice",
		"Thank you for your patience. I would suggest we proceed.\n\nKind regards,\nAlice",
		"Hi,\n\nFollowing up on the invoice.\n\nRegards,\nAlice",
	})

	storeA := NewStore(newFakeProfileRepo())
	if _, err := storeA.Merge("u", "client", b1); err != nil {
		t.Fatal(err)
	}
	pa, err := storeA.Merge("u", "client", b2)
	if err != nil {
		t.Fatal(err)
	}

	storeB := NewStore(newFakeProfileRepo())
	if _, err := storeB.Merge("u", "client", b2); err != nil {
		t.Fatal(err)
	}
	pb, err := storeB.Merge("u", "client", b1)
	if err != nil {
		t.Fatal(err)
	}

	if pa.EmailsAnalyzed != pb.EmailsAnalyzed {
		t.Errorf("emails_analyzed order-dependent: %d vs %d", pa.EmailsAnalyzed, pb.EmailsAnalyzed)
	}
	if pa.EmailsAnalyzed != 5 {
		t.Errorf("Expected 5 total, got %d", pa.EmailsAnalyzed)
	}

	// Blended floats must agree within tolerance regardless of order.
	fa, _ := pa.DecodeFeatures()
	fb, _ := pb.DecodeFeatures()
	if math.Abs(fa.Formality-fb.Formality) > 1e-9 {
		t.Errorf("Formality order-dependent beyond tolerance: %f vs %f", fa.Formality, fb.Formality)
	}
}

func TestMergeBlendsRunningAverage(t *testing.T) {
	store := NewStore(newFakeProfileRepo())

	// First batch: two messages of 10 words each
	ten := "one two three four five six seven eight nine ten"
	if _, err := store.Merge("u", "friend", AnalyzeMessages([]string{ten, ten})); err != nil {
		t.Fatal(err)
	}

	// Second batch: one message of 40 words
	forty := ten + " " + ten + " " + ten + " " + ten
	profile, err := store.Merge("u", "friend", AnalyzeMessages([]string{forty}))
	if err != nil {
		t.Fatal(err)
	}

	f, err := profile.DecodeFeatures()
	if err != nil {
		t.Fatal(err)
	}
	// (10*2 + 40*1) / 3 = 20
	if math.Abs(f.AvgWordCount-20) > 0.01 {
		t.Errorf("Expected blended avg word count 20, got %f", f.AvgWordCount)
	}
}

func TestMergeEmptyBatchIsNoop(t *testing.T) {
	store := NewStore(newFakeProfileRepo())

	profile, err := store.Merge("u", "colleague", profiledomain.Observations{})
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if profile.EmailsAnalyzed != 0 {
		t.Errorf("Expected no change, got emails_analyzed %d", profile.EmailsAnalyzed)
	}
}

func TestMergeConcurrentSameKey(t *testing.T) {
	store := NewStore(newFakeProfileRepo())
	obs := AnalyzeMessages([]string{"Hi,\n\nShort note.\n\nBest,\nA"})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Merge("u", "colleague", obs); err != nil {
				t.Errorf("Merge failed: %v", err)
			}
		}()
	}
	wg.Wait()

	profile, err := store.Get("u", "colleague")
	if err != nil {
		t.Fatal(err)
	}
	if profile.EmailsAnalyzed != 20 {
		t.Errorf("Expected 20 after concurrent merges, got %d", profile.EmailsAnalyzed)
	}
}

package usecase

import (
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	profiledomain "tonedraft-backend/internal/profile/domain"
	"tonedraft-backend/internal/profile/repository"
)

// vocabularyCap bounds the distinctive-word list so profiles do not grow
// without limit.
const vocabularyCap = 40

// Store is the tone profile store. Merge is the only mutation path; it runs
// a read-modify-write under a per-(user, relationship) mutex so concurrent
// batch jobs for the same key serialize instead of clobbering each other.
type Store struct {
	repo repository.ProfileRepository

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewStore(repo repository.ProfileRepository) *Store {
	return &Store{
		repo:  repo,
		locks: make(map[string]*sync.Mutex),
	}
}

func (s *Store) keyLock(userID, relationshipType string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := userID + "|" + relationshipType
	if l, ok := s.locks[key]; ok {
		return l
	}
	l := &sync.Mutex{}
	s.locks[key] = l
	return l
}

// Get returns the profile for (user, relationship). A user with no history
// gets an empty profile value, never an error: generation still proceeds with
// a generic tone.
func (s *Store) Get(userID, relationshipType string) (*profiledomain.ToneProfile, error) {
	profile, err := s.repo.Get(userID, relationshipType)
	if err != nil {
		return nil, fmt.Errorf("failed to load tone profile: %w", err)
	}
	if profile == nil {
		return &profiledomain.ToneProfile{
			UserID:           userID,
			RelationshipType: relationshipType,
		}, nil
	}
	return profile, nil
}

// Merge blends an observation batch into the stored profile. Numeric features
// use a weighted running average so profiles evolve smoothly; pattern counts
// add; the analyzed counter only increases.
func (s *Store) Merge(userID, relationshipType string, obs profiledomain.Observations) (*profiledomain.ToneProfile, error) {
	if obs.Count == 0 {
		return s.Get(userID, relationshipType)
	}

	lock := s.keyLock(userID, relationshipType)
	lock.Lock()
	defer lock.Unlock()

	profile, err := s.repo.Get(userID, relationshipType)
	if err != nil {
		return nil, fmt.Errorf("failed to load tone profile for merge: %w", err)
	}
	if profile == nil {
		profile = &profiledomain.ToneProfile{
			UserID:           userID,
			RelationshipType: relationshipType,
		}
	}

	features, err := profile.DecodeFeatures()
	if err != nil {
		// A corrupt blob should not block learning forever; start over but
		// keep the counter so it stays monotonic.
		log.Printf("[ProfileStore] Corrupt feature blob for %s/%s, rebuilding: %v", userID, relationshipType, err)
		features = profiledomain.StyleFeatures{}
	}

	oldN := float64(profile.EmailsAnalyzed)
	newN := float64(obs.Count)
	total := oldN + newN

	features.Formality = (features.Formality*oldN + obs.Features.Formality*newN) / total
	features.AvgWordCount = (features.AvgWordCount*oldN + obs.Features.AvgWordCount*newN) / total
	features.ExclamationRate = (features.ExclamationRate*oldN + obs.Features.ExclamationRate*newN) / total

	if features.Greetings == nil {
		features.Greetings = map[string]int{}
	}
	if features.Signoffs == nil {
		features.Signoffs = map[string]int{}
	}
	if features.Vocabulary == nil {
		features.Vocabulary = map[string]int{}
	}
	addCounts(features.Greetings, obs.Features.Greetings)
	addCounts(features.Signoffs, obs.Features.Signoffs)
	addCounts(features.Vocabulary, obs.Features.Vocabulary)
	features.Vocabulary = trimToTop(features.Vocabulary, vocabularyCap)

	if err := profile.EncodeFeatures(features); err != nil {
		return nil, fmt.Errorf("failed to encode features: %w", err)
	}
	profile.EmailsAnalyzed += obs.Count
	profile.LastUpdatedAt = time.Now()

	if err := s.repo.Save(profile); err != nil {
		return nil, fmt.Errorf("failed to save tone profile: %w", err)
	}

	log.Printf("[ProfileStore] Merged %d observations into %s/%s (analyzed total: %d)",
		obs.Count, userID, relationshipType, profile.EmailsAnalyzed)

	return profile, nil
}

// trimToTop keeps the n highest-count entries.
func trimToTop(counts map[string]int, n int) map[string]int {
	if len(counts) <= n {
		return counts
	}
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
	trimmed := make(map[string]int, n)
	for _, e := range entries[:n] {
		trimmed[e.k] = e.v
	}
	return trimmed
}

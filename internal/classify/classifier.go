// Package classify decides which relationship type a correspondent falls
// into. Classification is an external capability as far as the pipeline is
// concerned: the orchestrator only depends on the Classifier contract, and
// anything satisfying it can be injected.
package classify

import (
	"context"
	"strings"
)

// Relationship types are a small open-ended string set; unknown senders fall
// back to RelationshipOther and get a generic tone.
const (
	RelationshipColleague = "colleague"
	RelationshipClient    = "client"
	RelationshipFamily    = "family"
	RelationshipFriend    = "friend"
	RelationshipOther     = "other"
)

// Classifier maps a correspondent to a relationship type.
type Classifier interface {
	Classify(ctx context.Context, accountAddress, peerAddress, peerName, body string) (string, error)
}

// HeuristicClassifier is the default implementation: mail-domain comparison
// plus a few content cues. Deliberately cheap; a smarter classifier can be
// swapped in behind the same interface.
type HeuristicClassifier struct{}

func NewHeuristicClassifier() *HeuristicClassifier {
	return &HeuristicClassifier{}
}

var freeMailDomains = map[string]bool{
	"gmail.com": true, "googlemail.com": true, "yahoo.com": true,
	"outlook.com": true, "hotmail.com": true, "icloud.com": true,
	"aol.com": true, "proton.me": true, "protonmail.com": true,
	"gmx.com": true, "mail.com": true,
}

var familyCues = []string{
	"mom", "dad", "mum", "grandma", "grandpa", "love you",
	"your brother", "your sister", "your son", "your daughter",
}

func (c *HeuristicClassifier) Classify(_ context.Context, accountAddress, peerAddress, _ string, body string) (string, error) {
	accountDomain := mailDomain(accountAddress)
	peerDomain := mailDomain(peerAddress)

	if peerDomain != "" && peerDomain == accountDomain {
		return RelationshipColleague, nil
	}

	lower := strings.ToLower(body)
	for _, cue := range familyCues {
		if strings.Contains(lower, cue) {
			return RelationshipFamily, nil
		}
	}

	if peerDomain != "" && !freeMailDomains[peerDomain] {
		return RelationshipClient, nil
	}
	if freeMailDomains[peerDomain] {
		return RelationshipFriend, nil
	}

	return RelationshipOther, nil
}

func mailDomain(address string) string {
	at := strings.LastIndex(address, "@")
	if at < 0 || at == len(address)-1 {
		return ""
	}
	return strings.ToLower(address[at+1:])
}

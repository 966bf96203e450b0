package classify

import (
	"context"
	"testing"
)

func TestHeuristicClassify(t *testing.T) {
	c := NewHeuristicClassifier()

	tests := []struct {
		name    string
		account string
		peer    string
		body    string
		want    string
	}{
		{"same domain is colleague", "alice@acme.com", "bob@acme.com", "meeting at 3", RelationshipColleague},
		{"same domain case insensitive", "alice@Acme.COM", "bob@acme.com", "", RelationshipColleague},
		{"family cue wins over free mail", "alice@acme.com", "june@gmail.com", "Love you, Mom", RelationshipFamily},
		{"corporate domain is client", "alice@acme.com", "cfo@bigcorp.io", "re: the contract", RelationshipClient},
		{"free mail is friend", "alice@acme.com", "sam@gmail.com", "drinks friday?", RelationshipFriend},
		{"unparseable peer is other", "alice@acme.com", "not-an-address", "hello", RelationshipOther},
		{"empty peer is other", "alice@acme.com", "", "hello", RelationshipOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Classify(context.Background(), tt.account, tt.peer, "", tt.body)
			if err != nil {
				t.Fatalf("Classify failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Classify(%q, %q) = %q, want %q", tt.account, tt.peer, got, tt.want)
			}
		})
	}
}

func TestMailDomain(t *testing.T) {
	tests := []struct {
		address string
		want    string
	}{
		{"alice@acme.com", "acme.com"},
		{"ALICE@ACME.COM", "acme.com"},
		{"weird@with@two.com", "two.com"},
		{"no-at-sign", ""},
		{"trailing@", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := mailDomain(tt.address); got != tt.want {
			t.Errorf("mailDomain(%q) = %q, want %q", tt.address, got, tt.want)
		}
	}
}

package worker

// Queue names registered with the broker.
const (
	QueueEmailJobs = "email-processing"
	QueueToneJobs  = "tone-profile"
)

// EmailJobPayload carries one inbound message through the draft queue.
type EmailJobPayload struct {
	UserID     string `json:"user_id"`
	AccountID  string `json:"account_id"`
	MessageID  string `json:"message_id"`
	ThreadID   string `json:"thread_id"`
	Sender     string `json:"sender"`
	SenderName string `json:"sender_name"`
	Recipient  string `json:"recipient"`
	Subject    string `json:"subject"`
	Body       string `json:"body"`
}

// ToneJobPayload asks the tone worker to fold the unanalyzed sent messages
// for one (user, relationship) pair into the profile.
type ToneJobPayload struct {
	UserID           string `json:"user_id"`
	RelationshipType string `json:"relationship_type"`
}

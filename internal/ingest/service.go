package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/emersion/go-message/mail"
	"google.golang.org/api/option"

	accountrepo "tonedraft-backend/internal/account/repository"
	"tonedraft-backend/internal/classify"
	draftdomain "tonedraft-backend/internal/draft/domain"
	draftrepo "tonedraft-backend/internal/draft/repository"
	draftusecase "tonedraft-backend/internal/draft/usecase"
	profiledomain "tonedraft-backend/internal/profile/domain"
	profilerepo "tonedraft-backend/internal/profile/repository"
	"tonedraft-backend/internal/queue"
	"tonedraft-backend/internal/worker"
)

// MailEvent is one message on the mail events topic. Raw carries the full
// RFC 822 message.
type MailEvent struct {
	Type      string `json:"type"` // "received" or "sent"
	UserID    string `json:"user_id"`
	AccountID string `json:"account_id"`
	Raw       string `json:"raw"`
}

const (
	EventReceived = "received"
	EventSent     = "sent"
)

// VectorIndexer mirrors the vector client's write surface so the service can
// run without an index configured.
type VectorIndexer interface {
	UpsertMessage(ctx context.Context, userID, messageID, sender, relationshipType string, sentAt time.Time, subject, body string) error
}

// Service consumes mail events and routes them: received messages become
// draft jobs, sent messages close the feedback loop and feed tone learning.
type Service struct {
	pubsubClient *pubsub.Client
	broker       queue.Broker
	accounts     accountrepo.AccountRepository
	drafts       draftrepo.DraftRepository
	sentMessages profilerepo.SentMessageRepository
	classifier   classify.Classifier
	vector       VectorIndexer
	topicName    string
	subName      string
}

func NewService(
	projectID, topicName, credentialsFile string,
	broker queue.Broker,
	accounts accountrepo.AccountRepository,
	drafts draftrepo.DraftRepository,
	sentMessages profilerepo.SentMessageRepository,
	classifier classify.Classifier,
	vector VectorIndexer,
) (*Service, error) {
	ctx := context.Background()

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %v", err)
	}

	return &Service{
		pubsubClient: client,
		broker:       broker,
		accounts:     accounts,
		drafts:       drafts,
		sentMessages: sentMessages,
		classifier:   classifier,
		vector:       vector,
		topicName:    topicName,
		subName:      topicName + "-sub", // Convention: topic-sub
	}, nil
}

func (s *Service) Start(ctx context.Context) {
	log.Printf("[Ingest] Starting mail event listener with topic: %s, subscription: %s", s.topicName, s.subName)

	sub := s.pubsubClient.Subscription(s.subName)
	exists, err := sub.Exists(ctx)
	if err != nil {
		log.Printf("[Ingest] Error checking subscription existence: %v", err)
		return
	}

	if !exists {
		topic := s.pubsubClient.Topic(s.topicName)
		topicExists, err := topic.Exists(ctx)
		if err != nil {
			log.Printf("[Ingest] Error checking topic existence: %v", err)
			return
		}
		if !topicExists {
			log.Printf("[Ingest] Topic %s does not exist, cannot create subscription", s.topicName)
			return
		}

		sub, err = s.pubsubClient.CreateSubscription(ctx, s.subName, pubsub.SubscriptionConfig{
			Topic:       topic,
			AckDeadline: 10 * time.Second,
		})
		if err != nil {
			log.Printf("[Ingest] Failed to create subscription: %v", err)
			return
		}
		log.Printf("[Ingest] Created subscription: %s", s.subName)
	}

	log.Printf("[Ingest] Listening for mail events on subscription: %s", s.subName)
	err = sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		s.handleMessage(ctx, msg)
		msg.Ack()
	})
	if err != nil {
		log.Printf("[Ingest] Error receiving messages: %v", err)
	}
}

func (s *Service) handleMessage(ctx context.Context, msg *pubsub.Message) {
	var event MailEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		log.Printf("[Ingest] Failed to unmarshal mail event: %v", err)
		return
	}

	parsed, err := ParseMessage(event.Raw)
	if err != nil {
		log.Printf("[Ingest] Failed to parse message for user %s: %v", event.UserID, err)
		return
	}

	switch event.Type {
	case EventReceived:
		s.handleReceived(event, parsed)
	case EventSent:
		s.handleSent(ctx, event, parsed)
	default:
		log.Printf("[Ingest] Ignoring event with unknown type %q", event.Type)
	}
}

// handleReceived enqueues a draft generation job. The message id doubles as
// the idempotency key so redelivered events collapse into one job.
func (s *Service) handleReceived(event MailEvent, m *ParsedMessage) {
	payload, err := json.Marshal(worker.EmailJobPayload{
		UserID:     event.UserID,
		AccountID:  event.AccountID,
		MessageID:  m.MessageID,
		ThreadID:   m.ThreadID,
		Sender:     m.From,
		SenderName: m.FromName,
		Recipient:  m.To,
		Subject:    m.Subject,
		Body:       m.Body,
	})
	if err != nil {
		log.Printf("[Ingest] Failed to encode email job: %v", err)
		return
	}

	jobID, err := s.broker.Enqueue(worker.QueueEmailJobs, m.MessageID, payload)
	if errors.Is(err, queue.ErrDuplicateJob) {
		log.Printf("[Ingest] Message %s already queued as job %s", m.MessageID, jobID)
		return
	}
	if err != nil {
		log.Printf("[Ingest] Failed to enqueue draft job for message %s: %v", m.MessageID, err)
		return
	}
	log.Printf("[Ingest] Queued draft job %s for message %s", jobID, m.MessageID)
}

// handleSent records the outbound message for tone learning, closes the
// draft feedback loop when the message answers a tracked draft, indexes the
// message for retrieval, and queues a profile update.
func (s *Service) handleSent(ctx context.Context, event MailEvent, m *ParsedMessage) {
	relationship := classify.RelationshipOther
	if s.classifier != nil {
		if rel, err := s.classifier.Classify(ctx, m.From, m.To, m.ToName, m.Body); err == nil && rel != "" {
			relationship = rel
		}
	}

	// Feedback loop: match the sent message to the pending draft on the same
	// thread and record what the user actually sent.
	draft, err := s.drafts.FindUnsentByThreadID(event.UserID, m.ThreadID)
	if err != nil {
		log.Printf("[Ingest] Failed to look up draft for thread %s: %v", m.ThreadID, err)
	} else if draft != nil {
		analysis := draftusecase.Analyze(draft.DraftText, m.Body)
		sentAt := m.Date
		if sentAt.IsZero() {
			sentAt = time.Now()
		}
		err := s.drafts.MarkSent(draft.ID, m.Body, analysis, sentAt)
		switch {
		case errors.Is(err, draftdomain.ErrAlreadySent):
			log.Printf("[Ingest] Draft %s already marked sent, skipping feedback", draft.ID)
		case err != nil:
			log.Printf("[Ingest] Failed to mark draft %s sent: %v", draft.ID, err)
		default:
			log.Printf("[Ingest] Recorded sent feedback for draft %s (+%d -%d words)",
				draft.ID, analysis.Additions, analysis.Deletions)
		}
		if draft.RelationshipType != "" {
			relationship = draft.RelationshipType
		}
	}

	sentAt := m.Date
	if sentAt.IsZero() {
		sentAt = time.Now()
	}
	if err := s.sentMessages.Record(&profiledomain.SentMessage{
		UserID:           event.UserID,
		RelationshipType: relationship,
		MessageID:        m.MessageID,
		Recipient:        m.To,
		Subject:          m.Subject,
		Body:             m.Body,
		SentAt:           sentAt,
	}); err != nil {
		log.Printf("[Ingest] Failed to record sent message %s: %v", m.MessageID, err)
		return
	}

	if s.vector != nil {
		if err := s.vector.UpsertMessage(ctx, event.UserID, m.MessageID, m.To, relationship, sentAt, m.Subject, m.Body); err != nil {
			log.Printf("[Ingest] Failed to index sent message %s: %v", m.MessageID, err)
		}
	}

	payload, err := json.Marshal(worker.ToneJobPayload{
		UserID:           event.UserID,
		RelationshipType: relationship,
	})
	if err != nil {
		log.Printf("[Ingest] Failed to encode tone job: %v", err)
		return
	}
	key := event.UserID + "|" + relationship
	if _, err := s.broker.Enqueue(worker.QueueToneJobs, key, payload); err != nil && !errors.Is(err, queue.ErrDuplicateJob) {
		log.Printf("[Ingest] Failed to enqueue tone job for %s: %v", key, err)
	}
}

// ParsedMessage is the subset of an RFC 822 message the pipeline uses.
type ParsedMessage struct {
	MessageID string
	ThreadID  string
	From      string
	FromName  string
	To        string
	ToName    string
	Subject   string
	Body      string
	Date      time.Time
}

// ParseMessage extracts headers and the first plain text part from a raw
// RFC 822 message. The thread id is the root of the References chain, falling
// back to In-Reply-To and finally the message's own id.
func ParseMessage(raw string) (*ParsedMessage, error) {
	mr, err := mail.CreateReader(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to read message: %w", err)
	}
	defer mr.Close()

	h := mr.Header
	parsed := &ParsedMessage{}

	parsed.MessageID, _ = h.MessageID()
	if parsed.MessageID == "" {
		return nil, errors.New("message has no Message-ID header")
	}
	parsed.Subject, _ = h.Subject()
	parsed.Date, _ = h.Date()

	if from, err := h.AddressList("From"); err == nil && len(from) > 0 {
		parsed.From = from[0].Address
		parsed.FromName = from[0].Name
	}
	if to, err := h.AddressList("To"); err == nil && len(to) > 0 {
		parsed.To = to[0].Address
		parsed.ToName = to[0].Name
	}

	if refs, err := h.MsgIDList("References"); err == nil && len(refs) > 0 {
		parsed.ThreadID = refs[0]
	} else if replies, err := h.MsgIDList("In-Reply-To"); err == nil && len(replies) > 0 {
		parsed.ThreadID = replies[0]
	} else {
		parsed.ThreadID = parsed.MessageID
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read message part: %w", err)
		}
		if _, ok := part.Header.(*mail.InlineHeader); ok {
			body, err := io.ReadAll(part.Body)
			if err != nil {
				return nil, fmt.Errorf("failed to read message body: %w", err)
			}
			parsed.Body = strings.TrimSpace(string(body))
			break
		}
	}

	return parsed, nil
}

package ingest

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	draftdomain "tonedraft-backend/internal/draft/domain"
	profiledomain "tonedraft-backend/internal/profile/domain"
	"tonedraft-backend/internal/queue"
	"tonedraft-backend/internal/worker"
)

const rawReceived = "Message-ID: <abc123@mail.example.com>\r\n" +
	"From: \"Bob Lee\" <bob@acme.com>\r\n" +
	"To: \"Alice Vu\" <alice@acme.com>\r\n" +
	"Subject: Quarterly numbers\r\n" +
	"Date: Mon, 10 Aug 2026 09:30:00 +0000\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Can you share the Q3 numbers?\r\n"

const rawReply = "Message-ID: <def456@mail.example.com>\r\n" +
	"In-Reply-To: <abc123@mail.example.com>\r\n" +
	"From: \"Alice Vu\" <alice@acme.com>\r\n" +
	"To: \"Bob Lee\" <bob@acme.com>\r\n" +
	"Subject: Re: Quarterly numbers\r\n" +
	"Date: Mon, 10 Aug 2026 10:00:00 +0000\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Hi Bob, numbers attached. Best, Alice\r\n"

func TestParseMessageHeaders(t *testing.T) {
	m, err := ParseMessage(rawReceived)
	if err != nil {
		t.Fatalf("ParseMessage failed: %v", err)
	}

	if m.MessageID != "abc123@mail.example.com" {
		t.Errorf("Unexpected message id: %q", m.MessageID)
	}
	if m.From != "bob@acme.com" || m.FromName != "Bob Lee" {
		t.Errorf("Unexpected sender: %q (%q)", m.From, m.FromName)
	}
	if m.To != "alice@acme.com" {
		t.Errorf("Unexpected recipient: %q", m.To)
	}
	if m.Subject != "Quarterly numbers" {
		t.Errorf("Unexpected subject: %q", m.Subject)
	}
	if m.Body != "Can you share the Q3 numbers?" {
		t.Errorf("Unexpected body: %q", m.Body)
	}
	// A thread starter is its own thread root.
	if m.ThreadID != m.MessageID {
		t.Errorf("Expected thread id to fall back to message id, got %q", m.ThreadID)
	}
}

func TestParseMessageThreading(t *testing.T) {
	m, err := ParseMessage(rawReply)
	if err != nil {
		t.Fatalf("ParseMessage failed: %v", err)
	}
	if m.ThreadID != "abc123@mail.example.com" {
		t.Errorf("Expected thread rooted at the original message, got %q", m.ThreadID)
	}
}

func TestParseMessageMissingMessageID(t *testing.T) {
	raw := "From: a@b.com\r\nSubject: x\r\n\r\nbody\r\n"
	if _, err := ParseMessage(raw); err == nil {
		t.Error("Expected error for message without Message-ID")
	}
}

type enqueuedJob struct {
	queue   string
	key     string
	payload []byte
}

type fakeBroker struct {
	mu       sync.Mutex
	enqueued []enqueuedJob
	dup      bool
}

func (f *fakeBroker) Enqueue(q, key string, payload []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enqueued = append(f.enqueued, enqueuedJob{q, key, payload})
	if f.dup {
		return "existing", queue.ErrDuplicateJob
	}
	return "job-1", nil
}

func (f *fakeBroker) jobs() []enqueuedJob {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]enqueuedJob, len(f.enqueued))
	copy(out, f.enqueued)
	return out
}
func (f *fakeBroker) Cancel(jobID string) error                        { return nil }
func (f *fakeBroker) Job(jobID string) (*queue.Job, error)             { return nil, queue.ErrUnknownJob }
func (f *fakeBroker) Subscribe(q string, workers int, h queue.Handler) {}
func (f *fakeBroker) Start(ctx context.Context)                        {}
func (f *fakeBroker) Stop()                                            {}

type fakeDraftRepo struct {
	draft      *draftdomain.DraftTracking
	markSentID string
	markErr    error
}

func (f *fakeDraftRepo) Create(d *draftdomain.DraftTracking) error { return nil }
func (f *fakeDraftRepo) FindByID(id string) (*draftdomain.DraftTracking, error) {
	return nil, nil
}
func (f *fakeDraftRepo) FindByOriginalMessageID(id string) (*draftdomain.DraftTracking, error) {
	return nil, nil
}
func (f *fakeDraftRepo) FindUnsentByThreadID(userID, threadID string) (*draftdomain.DraftTracking, error) {
	if f.draft != nil && f.draft.ThreadID == threadID {
		return f.draft, nil
	}
	return nil, nil
}
func (f *fakeDraftRepo) FindByUserID(userID string, limit, offset int) ([]*draftdomain.DraftTracking, error) {
	return nil, nil
}
func (f *fakeDraftRepo) MarkSent(id, content string, analysis draftdomain.EditAnalysis, sentAt time.Time) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.markSentID = id
	return nil
}

type fakeSentRepo struct {
	recorded []*profiledomain.SentMessage
}

func (f *fakeSentRepo) Record(m *profiledomain.SentMessage) error {
	f.recorded = append(f.recorded, m)
	return nil
}
func (f *fakeSentRepo) FindUnanalyzed(userID, rel string, limit int) ([]*profiledomain.SentMessage, error) {
	return nil, nil
}
func (f *fakeSentRepo) MarkAnalyzed(ids []string) error { return nil }

type fakeVector struct {
	upserts int
}

func (f *fakeVector) UpsertMessage(ctx context.Context, userID, messageID, sender, relationshipType string, sentAt time.Time, subject, body string) error {
	f.upserts++
	return nil
}

func testService(broker queue.Broker, drafts *fakeDraftRepo, sent *fakeSentRepo, vector VectorIndexer) *Service {
	return &Service{
		broker:       broker,
		drafts:       drafts,
		sentMessages: sent,
		vector:       vector,
	}
}

func TestHandleReceivedEnqueuesDraftJob(t *testing.T) {
	broker := &fakeBroker{}
	svc := testService(broker, &fakeDraftRepo{}, &fakeSentRepo{}, nil)

	m, err := ParseMessage(rawReceived)
	if err != nil {
		t.Fatal(err)
	}
	svc.handleReceived(MailEvent{Type: EventReceived, UserID: "u1", AccountID: "a1"}, m)

	if len(broker.enqueued) != 1 {
		t.Fatalf("Expected 1 enqueue, got %d", len(broker.enqueued))
	}
	job := broker.enqueued[0]
	if job.queue != worker.QueueEmailJobs {
		t.Errorf("Expected email queue, got %s", job.queue)
	}
	if job.key != "abc123@mail.example.com" {
		t.Errorf("Expected message id as idempotency key, got %q", job.key)
	}

	var payload worker.EmailJobPayload
	if err := json.Unmarshal(job.payload, &payload); err != nil {
		t.Fatal(err)
	}
	if payload.Sender != "bob@acme.com" || payload.Recipient != "alice@acme.com" {
		t.Errorf("Unexpected payload addresses: %+v", payload)
	}
}

func TestHandleSentClosesFeedbackLoop(t *testing.T) {
	broker := &fakeBroker{}
	drafts := &fakeDraftRepo{draft: &draftdomain.DraftTracking{
		ID:               "d1",
		UserID:           "u1",
		ThreadID:         "abc123@mail.example.com",
		DraftText:        "Hi Bob, here are the numbers.",
		RelationshipType: "colleague",
	}}
	sent := &fakeSentRepo{}
	vector := &fakeVector{}
	svc := testService(broker, drafts, sent, vector)

	m, err := ParseMessage(rawReply)
	if err != nil {
		t.Fatal(err)
	}
	svc.handleSent(context.Background(), MailEvent{Type: EventSent, UserID: "u1", AccountID: "a1"}, m)

	if drafts.markSentID != "d1" {
		t.Errorf("Expected draft d1 marked sent, got %q", drafts.markSentID)
	}
	if len(sent.recorded) != 1 {
		t.Fatalf("Expected 1 sent message recorded, got %d", len(sent.recorded))
	}
	if sent.recorded[0].RelationshipType != "colleague" {
		t.Errorf("Expected relationship from the matched draft, got %q", sent.recorded[0].RelationshipType)
	}
	if vector.upserts != 1 {
		t.Errorf("Expected sent message indexed, got %d upserts", vector.upserts)
	}

	if len(broker.enqueued) != 1 {
		t.Fatalf("Expected 1 tone job enqueued, got %d", len(broker.enqueued))
	}
	tone := broker.enqueued[0]
	if tone.queue != worker.QueueToneJobs {
		t.Errorf("Expected tone queue, got %s", tone.queue)
	}
	if tone.key != "u1|colleague" {
		t.Errorf("Expected user|relationship key, got %q", tone.key)
	}
}

func TestHandleSentWithoutMatchingDraftStillLearns(t *testing.T) {
	broker := &fakeBroker{}
	drafts := &fakeDraftRepo{}
	sent := &fakeSentRepo{}
	svc := testService(broker, drafts, sent, nil)

	m, err := ParseMessage(rawReply)
	if err != nil {
		t.Fatal(err)
	}
	svc.handleSent(context.Background(), MailEvent{Type: EventSent, UserID: "u1"}, m)

	if drafts.markSentID != "" {
		t.Error("No draft should have been marked sent")
	}
	if len(sent.recorded) != 1 {
		t.Errorf("Sent message should still be recorded, got %d", len(sent.recorded))
	}
	if len(broker.enqueued) != 1 {
		t.Errorf("Tone job should still be queued, got %d", len(broker.enqueued))
	}
}

func TestHandleSentAlreadySentIsQuiet(t *testing.T) {
	broker := &fakeBroker{}
	drafts := &fakeDraftRepo{
		draft: &draftdomain.DraftTracking{
			ID:       "d1",
			UserID:   "u1",
			ThreadID: "abc123@mail.example.com",
		},
		markErr: draftdomain.ErrAlreadySent,
	}
	sent := &fakeSentRepo{}
	svc := testService(broker, drafts, sent, nil)

	m, _ := ParseMessage(rawReply)
	svc.handleSent(context.Background(), MailEvent{Type: EventSent, UserID: "u1"}, m)

	// A duplicate sent event still records the message and queues learning.
	if len(sent.recorded) != 1 {
		t.Errorf("Expected sent message recorded despite duplicate feedback, got %d", len(sent.recorded))
	}
}

func TestReceiveEndToEnd(t *testing.T) {
	srv := pstest.NewServer()
	defer srv.Close()

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := pubsub.NewClient(ctx, "test-project", option.WithGRPCConn(conn))
	if err != nil {
		t.Fatal(err)
	}

	topic, err := client.CreateTopic(ctx, "mail-events")
	if err != nil {
		t.Fatal(err)
	}

	broker := &fakeBroker{}
	svc := &Service{
		pubsubClient: client,
		broker:       broker,
		drafts:       &fakeDraftRepo{},
		sentMessages: &fakeSentRepo{},
		topicName:    "mail-events",
		subName:      "mail-events-sub",
	}

	event, _ := json.Marshal(MailEvent{Type: EventReceived, UserID: "u1", AccountID: "a1", Raw: rawReceived})
	go svc.Start(ctx)

	// Give the subscription a moment to come up before publishing.
	time.Sleep(200 * time.Millisecond)
	res := topic.Publish(ctx, &pubsub.Message{Data: event})
	if _, err := res.Get(ctx); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if len(broker.jobs()) > 0 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	jobs := broker.jobs()
	if len(jobs) == 0 {
		t.Fatal("Expected the published event to reach the broker")
	}
	if !strings.Contains(string(jobs[0].payload), "abc123@mail.example.com") {
		t.Errorf("Payload missing message id: %s", jobs[0].payload)
	}
}

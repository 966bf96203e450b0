package chroma

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"tonedraft-backend/pkg/config"

	chroma "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings/gemini"
)

// ErrUnavailable marks the vector index as unreachable. Callers degrade to an
// empty context set instead of failing the whole pipeline.
var ErrUnavailable = errors.New("vector index unavailable")

const collectionName = "messages"

// Client wraps the Chroma collection holding one embedding per historical
// message, with just enough metadata to filter before similarity ranking.
type Client struct {
	client     chroma.Client
	embedFunc  *gemini.GeminiEmbeddingFunction
	config     *config.Config
	collection chroma.Collection // Pre-created collection
}

func NewClient(cfg *config.Config) (*Client, error) {
	if cfg.ChromaAPIKey == "" {
		return nil, fmt.Errorf("CHROMA_API_KEY is required")
	}

	// Set environment variable for Gemini API key if needed
	if cfg.GeminiAPIKey != "" {
		os.Setenv("GEMINI_API_KEY", cfg.GeminiAPIKey)
	}

	// Create Gemini embedding function
	embedFunc, err := gemini.NewGeminiEmbeddingFunction(
		gemini.WithEnvAPIKey(),
		gemini.WithDefaultModel("text-embedding-004"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini embedding function: %w", err)
	}

	// Create Chroma Cloud client
	var client chroma.Client
	if cfg.ChromaDatabase != "" && cfg.ChromaTenant != "" {
		client, err = chroma.NewHTTPClient(
			chroma.WithBaseURL(chroma.ChromaCloudEndpoint),
			chroma.WithCloudAPIKey(cfg.ChromaAPIKey),
			chroma.WithDatabaseAndTenant(cfg.ChromaDatabase, cfg.ChromaTenant),
		)
	} else if cfg.ChromaTenant != "" {
		client, err = chroma.NewHTTPClient(
			chroma.WithBaseURL(chroma.ChromaCloudEndpoint),
			chroma.WithCloudAPIKey(cfg.ChromaAPIKey),
			chroma.WithTenant(cfg.ChromaTenant),
		)
	} else {
		client, err = chroma.NewHTTPClient(
			chroma.WithBaseURL(chroma.ChromaCloudEndpoint),
			chroma.WithCloudAPIKey(cfg.ChromaAPIKey),
		)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create Chroma client: %w", err)
	}

	// Create collection once during initialization
	ctx := context.Background()
	collection, err := client.GetOrCreateCollection(
		ctx,
		collectionName,
		chroma.WithEmbeddingFunctionCreate(embedFunc),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}

	log.Printf("[Chroma] Initialized client with collection: %s", collectionName)

	return &Client{
		client:     client,
		embedFunc:  embedFunc,
		config:     cfg,
		collection: collection,
	}, nil
}

// UpsertMessage indexes one historical message. Upsert keyed by message ID
// prevents duplicates when the same message is observed twice.
func (c *Client) UpsertMessage(ctx context.Context, userID, messageID, sender, relationshipType string, sentAt time.Time, subject, body string) error {
	text := fmt.Sprintf("Subject: %s\n\n%s", subject, body)
	if len(text) > 10000 {
		// Truncate if too long (embedding models have token limits)
		text = text[:10000]
	}

	metadata, err := chroma.NewDocumentMetadataFromMap(map[string]interface{}{
		"user_id":      userID,
		"message_id":   messageID,
		"sender":       sender,
		"relationship": relationshipType,
		"sent_at":      sentAt.Unix(),
	})
	if err != nil {
		return fmt.Errorf("failed to create metadata: %w", err)
	}

	err = c.collection.Upsert(
		ctx,
		chroma.WithIDs(chroma.DocumentID(messageID)),
		chroma.WithMetadatas(metadata),
		chroma.WithTexts(text),
	)
	if err != nil {
		return fmt.Errorf("%w: failed to upsert message embedding: %v", ErrUnavailable, err)
	}

	return nil
}

// Query ranks the user's indexed messages by cosine similarity against the
// query text, optionally narrowed to one relationship type, and returns the
// top-k ids, similarity scores, and document snippets.
func (c *Client) Query(ctx context.Context, userID, relationshipType, query string, limit int) ([]string, []float64, []string, error) {
	if c.collection == nil {
		return nil, nil, nil, fmt.Errorf("%w: collection is nil", ErrUnavailable)
	}

	where := chroma.EqString("user_id", userID)
	if relationshipType != "" {
		where = chroma.And(
			chroma.EqString("user_id", userID),
			chroma.EqString("relationship", relationshipType),
		)
	}

	results, err := c.collection.Query(
		ctx,
		chroma.WithQueryTexts(query),
		chroma.WithNResults(limit),
		chroma.WithWhereQuery(where),
		chroma.WithIncludeQuery(chroma.IncludeDocuments, chroma.IncludeMetadatas, chroma.IncludeDistances),
	)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: query failed: %v", ErrUnavailable, err)
	}

	if results == nil || results.CountGroups() == 0 {
		return []string{}, []float64{}, []string{}, nil
	}

	idGroups := results.GetIDGroups()
	distanceGroups := results.GetDistancesGroups()
	documentGroups := results.GetDocumentsGroups()

	if len(idGroups) == 0 || len(idGroups[0]) == 0 {
		return []string{}, []float64{}, []string{}, nil
	}

	messageIDs := make([]string, 0, len(idGroups[0]))
	for _, id := range idGroups[0] {
		messageIDs = append(messageIDs, string(id))
	}

	// Cosine distance -> similarity score
	scores := make([]float64, 0, len(messageIDs))
	if len(distanceGroups) > 0 {
		for _, d := range distanceGroups[0] {
			scores = append(scores, 1.0-float64(d))
		}
	}
	for len(scores) < len(messageIDs) {
		scores = append(scores, 0)
	}

	snippets := make([]string, 0, len(messageIDs))
	if len(documentGroups) > 0 {
		for _, doc := range documentGroups[0] {
			text := doc.ContentString()
			if len(text) > 500 {
				text = text[:500]
			}
			snippets = append(snippets, text)
		}
	}
	for len(snippets) < len(messageIDs) {
		snippets = append(snippets, "")
	}

	return messageIDs, scores, snippets, nil
}

// DeleteMessage removes one message from the index.
func (c *Client) DeleteMessage(ctx context.Context, messageID string) error {
	err := c.collection.Delete(ctx, chroma.WithIDsDelete(chroma.DocumentID(messageID)))
	if err != nil {
		return fmt.Errorf("%w: failed to delete message embedding: %v", ErrUnavailable, err)
	}
	return nil
}

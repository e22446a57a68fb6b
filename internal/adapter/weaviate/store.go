package weaviate

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"lectern/internal/ingest"
	"lectern/internal/rag"
	"lectern/internal/vector"
)

const chunkFetchLimit = 10000

type Store struct {
	client *weaviate.Client
}

func NewStore(client *weaviate.Client) *Store {
	return &Store{client: client}
}

// EnsureSchema creates or patches the DocumentChunk class.
func (s *Store) EnsureSchema(ctx context.Context) error {
	return vector.EnsureSchema(ctx, vector.NewSchemaAdapter(s.client))
}

// UpsertBatch writes all chunks of a document in a single batch call.
func (s *Store) UpsertBatch(ctx context.Context, chunks []ingest.TextChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	objects := make([]*models.Object, 0, len(chunks))
	for _, chunk := range chunks {
		props := map[string]interface{}{
			"content":        chunk.Content,
			"documentId":     chunk.DocumentID,
			"sequenceNumber": chunk.SequenceNumber,
		}
		if chunk.PageNumber != nil {
			props["pageNumber"] = *chunk.PageNumber
		}
		if chunk.ChapterNumber != nil {
			props["chapterNumber"] = *chunk.ChapterNumber
		}
		if chunk.ChapterTitle != "" {
			props["chapterTitle"] = chunk.ChapterTitle
		}
		if chunk.ContentType != "" {
			props["contentType"] = chunk.ContentType
		}
		objects = append(objects, &models.Object{
			Class:      vector.ClassDocumentChunk,
			Properties: props,
			Vector:     models.C11yVector(chunk.Vector),
		})
	}

	resp, err := s.client.Batch().ObjectsBatcher().
		WithObjects(objects...).
		Do(ctx)
	if err != nil {
		return err
	}

	for _, obj := range resp {
		if obj.Result != nil && obj.Result.Errors != nil && len(obj.Result.Errors.Error) > 0 {
			return fmt.Errorf("batch object rejected: %s", obj.Result.Errors.Error[0].Message)
		}
	}
	return nil
}

// DeleteByDocument removes every indexed chunk of a document.
func (s *Store) DeleteByDocument(ctx context.Context, documentID string) error {
	_, err := s.client.Batch().ObjectsBatchDeleter().
		WithClassName(vector.ClassDocumentChunk).
		WithOutput("minimal").
		WithWhere(filters.Where().
			WithPath([]string{"documentId"}).
			WithOperator(filters.Equal).
			WithValueString(documentID)).
		Do(ctx)
	return err
}

// SearchByVector runs a nearVector query, scoped to one document when
// documentID is non-empty. Similarity is 1 - cosine distance.
func (s *Store) SearchByVector(ctx context.Context, queryVector []float32, documentID string, limit int) ([]rag.SearchResult, error) {
	nearVector := s.client.GraphQL().NearVectorArgBuilder().
		WithVector(queryVector)

	fields := []graphql.Field{
		{Name: "content"},
		{Name: "documentId"},
		{Name: "sequenceNumber"},
		{Name: "pageNumber"},
		{Name: "chapterNumber"},
		{Name: "chapterTitle"},
		{Name: "contentType"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "distance"}}},
	}

	query := s.client.GraphQL().Get().
		WithClassName(vector.ClassDocumentChunk).
		WithNearVector(nearVector).
		WithLimit(limit).
		WithFields(fields...)

	if documentID != "" {
		query = query.WithWhere(filters.Where().
			WithPath([]string{"documentId"}).
			WithOperator(filters.Equal).
			WithValueString(documentID))
	}

	res, err := query.Do(ctx)
	if err != nil {
		return nil, err
	}
	if len(res.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %v", res.Errors)
	}

	var results []rag.SearchResult
	for _, props := range classObjects(res.Data) {
		result := rag.SearchResult{
			Metadata: make(map[string]interface{}),
		}

		if content, ok := props["content"].(string); ok {
			result.Content = content
		}
		if documentID, ok := props["documentId"].(string); ok {
			result.Metadata["document_id"] = documentID
		}
		if seq, ok := props["sequenceNumber"].(float64); ok {
			result.Metadata["sequence_number"] = int(seq)
		}
		if page, ok := props["pageNumber"].(float64); ok {
			result.Metadata["page_number"] = int(page)
		}
		if chapter, ok := props["chapterNumber"].(float64); ok {
			result.Metadata["chapter_number"] = int(chapter)
		}
		if title, ok := props["chapterTitle"].(string); ok && title != "" {
			result.Metadata["chapter_title"] = title
		}
		if contentType, ok := props["contentType"].(string); ok && contentType != "" {
			result.Metadata["content_type"] = contentType
		}

		if additional, ok := props["_additional"].(map[string]interface{}); ok {
			result.Similarity = 1 - extractDistance(additional["distance"])
		}

		results = append(results, result)
	}
	return results, nil
}

// ChunkContents returns the text of all chunks of a document in
// sequence order.
func (s *Store) ChunkContents(ctx context.Context, documentID string) ([]string, error) {
	fields := []graphql.Field{
		{Name: "content"},
		{Name: "sequenceNumber"},
	}

	where := filters.Where().
		WithPath([]string{"documentId"}).
		WithOperator(filters.Equal).
		WithValueString(documentID)

	res, err := s.client.GraphQL().Get().
		WithClassName(vector.ClassDocumentChunk).
		WithWhere(where).
		WithLimit(chunkFetchLimit).
		WithFields(fields...).
		Do(ctx)
	if err != nil {
		return nil, err
	}
	if len(res.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %v", res.Errors)
	}

	type ordered struct {
		seq     int
		content string
	}

	var rows []ordered
	for _, props := range classObjects(res.Data) {
		row := ordered{}
		if content, ok := props["content"].(string); ok {
			row.content = content
		}
		if seq, ok := props["sequenceNumber"].(float64); ok {
			row.seq = int(seq)
		}
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })

	contents := make([]string, len(rows))
	for i, row := range rows {
		contents[i] = row.content
	}
	return contents, nil
}

// CountChunks returns the total number of indexed chunks.
func (s *Store) CountChunks(ctx context.Context) (int, error) {
	res, err := s.client.GraphQL().Aggregate().
		WithClassName(vector.ClassDocumentChunk).
		WithFields(graphql.Field{
			Name:   "meta",
			Fields: []graphql.Field{{Name: "count"}},
		}).
		Do(ctx)
	if err != nil {
		return 0, err
	}
	if len(res.Errors) > 0 {
		return 0, fmt.Errorf("graphql error: %v", res.Errors)
	}

	if agg, ok := res.Data["Aggregate"].(map[string]interface{}); ok {
		if rows, ok := agg[vector.ClassDocumentChunk].([]interface{}); ok && len(rows) > 0 {
			if props, ok := rows[0].(map[string]interface{}); ok {
				if meta, ok := props["meta"].(map[string]interface{}); ok {
					if count, ok := meta["count"].(float64); ok {
						return int(count), nil
					}
				}
			}
		}
	}
	return 0, nil
}

// classObjects unwraps a GraphQL Get response into per-object property
// maps.
func classObjects(data map[string]models.JSONObject) []map[string]interface{} {
	get, ok := data["Get"].(map[string]interface{})
	if !ok {
		return nil
	}
	raw, ok := get[vector.ClassDocumentChunk].([]interface{})
	if !ok {
		return nil
	}

	var objects []map[string]interface{}
	for _, item := range raw {
		if props, ok := item.(map[string]interface{}); ok {
			objects = append(objects, props)
		}
	}
	return objects
}

// extractDistance copes with distance arriving as a float or a string
// depending on server version.
func extractDistance(value interface{}) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return 0
}

package vectorstore

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"

	memerrors "github.com/lerianstudio/memory-retrieval/internal/errors"
	"github.com/lerianstudio/memory-retrieval/internal/logging"
)

// QdrantConfig configures a QdrantStore.
type QdrantConfig struct {
	Host           string
	Port           int
	APIKey         string
	UseTLS         bool
	Collection     string
	Dimension      int
	TimeoutSeconds int
}

// QdrantStore is the production VectorStore adapter, backed by Qdrant.
type QdrantStore struct {
	client         *qdrant.Client
	cfg            QdrantConfig
	log            logging.Logger
	collectionName string
}

// NewQdrantStore constructs a QdrantStore; call Initialize before use.
func NewQdrantStore(cfg QdrantConfig, log logging.Logger) *QdrantStore {
	name := cfg.Collection
	if name == "" {
		name = "memory_vectors"
	}
	return &QdrantStore{cfg: cfg, log: log.WithComponent("vectorstore.qdrant"), collectionName: name}
}

// Initialize connects to Qdrant and creates the collection if absent.
func (qs *QdrantStore) Initialize(ctx context.Context) error {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:                   qs.cfg.Host,
		Port:                   qs.cfg.Port,
		APIKey:                 qs.cfg.APIKey,
		UseTLS:                 qs.cfg.UseTLS,
		SkipCompatibilityCheck: true,
	})
	if err != nil {
		return memerrors.Retryable(memerrors.New(memerrors.KindVectorStore, "qdrant.Initialize", err))
	}
	qs.client = client

	collections, err := client.ListCollections(ctx)
	if err != nil {
		return memerrors.Retryable(memerrors.New(memerrors.KindVectorStore, "qdrant.Initialize", err))
	}

	exists := false
	for _, c := range collections {
		if c == qs.collectionName {
			exists = true
			break
		}
	}
	if !exists {
		dim := qs.cfg.Dimension
		if dim <= 0 {
			dim = 1536
		}
		err = client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: qs.collectionName,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(dim),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return memerrors.New(memerrors.KindVectorStore, "qdrant.Initialize", fmt.Errorf("create collection %s: %w", qs.collectionName, err))
		}
		qs.log.Info("created qdrant collection", "collection", qs.collectionName)
	}
	return nil
}

// Upsert stores or replaces the point with id, vector, and payload.
func (qs *QdrantStore) Upsert(ctx context.Context, id string, vector []float32, payload map[string]interface{}) error {
	point := &qdrant.PointStruct{
		Id:      qdrant.NewID(id),
		Vectors: qdrant.NewVectors(vector...),
		Payload: qdrant.NewValueMap(payload),
	}
	_, err := qs.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: qs.collectionName,
		Points:         []*qdrant.PointStruct{point},
	})
	if err != nil {
		return memerrors.New(memerrors.KindVectorStore, "qdrant.Upsert", err)
	}
	return nil
}

// Search performs an ANN search, applying filter as an AND of conditions.
func (qs *QdrantStore) Search(ctx context.Context, vector []float32, filter *Filter, limit int) ([]Hit, error) {
	if limit < 0 {
		limit = 0
	}
	qFilter := toQdrantFilter(filter)

	result, err := qs.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: qs.collectionName,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
		Filter:         qFilter,
	})
	if err != nil {
		return nil, memerrors.New(memerrors.KindVectorStore, "qdrant.Search", err)
	}

	hits := make([]Hit, 0, len(result))
	for _, p := range result {
		payload := fromQdrantPayload(p.GetPayload())
		memoryID, _ := payload["memory_id"].(string)
		hits = append(hits, Hit{
			ID:       pointIDString(p.GetId()),
			Score:    float64(p.GetScore()),
			MemoryID: memoryID,
			Payload:  payload,
		})
	}
	return hits, nil
}

// DeleteByID removes a single point by id.
func (qs *QdrantStore) DeleteByID(ctx context.Context, id string) error {
	_, err := qs.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: qs.collectionName,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Points{
				Points: &qdrant.PointsIdsList{Ids: []*qdrant.PointId{qdrant.NewID(id)}},
			},
		},
	})
	if err != nil {
		return memerrors.New(memerrors.KindVectorStore, "qdrant.DeleteByID", err)
	}
	return nil
}

// DeleteByFilter removes every point matching filter.
func (qs *QdrantStore) DeleteByFilter(ctx context.Context, filter *Filter) error {
	qFilter := toQdrantFilter(filter)
	if qFilter == nil {
		return memerrors.New(memerrors.KindInputValidation, "qdrant.DeleteByFilter", fmt.Errorf("refusing to delete with an empty filter"))
	}
	_, err := qs.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: qs.collectionName,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{Filter: qFilter},
		},
	})
	if err != nil {
		return memerrors.New(memerrors.KindVectorStore, "qdrant.DeleteByFilter", err)
	}
	return nil
}

// Close releases the underlying gRPC connection.
func (qs *QdrantStore) Close() error {
	if qs.client == nil {
		return nil
	}
	return qs.client.Close()
}

func toQdrantFilter(f *Filter) *qdrant.Filter {
	if f == nil || len(f.Conditions) == 0 {
		return nil
	}
	conditions := make([]*qdrant.Condition, 0, len(f.Conditions))
	for _, c := range f.Conditions {
		switch {
		case len(c.MatchAnyOf) > 0:
			conditions = append(conditions, &qdrant.Condition{
				ConditionOneOf: &qdrant.Condition_Field{
					Field: &qdrant.FieldCondition{
						Key: c.Key,
						Match: &qdrant.Match{
							MatchValue: &qdrant.Match_Keywords{Keywords: &qdrant.RepeatedStrings{Strings: c.MatchAnyOf}},
						},
					},
				},
			})
		case c.HasRangeGTE:
			conditions = append(conditions, &qdrant.Condition{
				ConditionOneOf: &qdrant.Condition_Field{
					Field: &qdrant.FieldCondition{
						Key:   c.Key,
						Range: &qdrant.Range{Gte: qdrant.PtrOf(c.RangeGTE)},
					},
				},
			})
		default:
			conditions = append(conditions, &qdrant.Condition{
				ConditionOneOf: &qdrant.Condition_Field{
					Field: &qdrant.FieldCondition{
						Key:   c.Key,
						Match: &qdrant.Match{MatchValue: &qdrant.Match_Keyword{Keyword: c.MatchValue}},
					},
				},
			})
		}
	}
	return &qdrant.Filter{Must: conditions}
}

func fromQdrantPayload(p map[string]*qdrant.Value) map[string]interface{} {
	out := make(map[string]interface{}, len(p))
	for k, v := range p {
		out[k] = qdrantValueToGo(v)
	}
	return out
}

func qdrantValueToGo(v *qdrant.Value) interface{} {
	switch kind := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return kind.StringValue
	case *qdrant.Value_IntegerValue:
		return kind.IntegerValue
	case *qdrant.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrant.Value_BoolValue:
		return kind.BoolValue
	case *qdrant.Value_ListValue:
		items := kind.ListValue.GetValues()
		out := make([]interface{}, len(items))
		for i, it := range items {
			out[i] = qdrantValueToGo(it)
		}
		return out
	default:
		return nil
	}
}

func pointIDString(id *qdrant.PointId) string {
	if id == nil {
		return ""
	}
	if s, ok := id.GetPointIdOptions().(*qdrant.PointId_Uuid); ok {
		return s.Uuid
	}
	if n, ok := id.GetPointIdOptions().(*qdrant.PointId_Num); ok {
		return fmt.Sprintf("%d", n.Num)
	}
	return ""
}

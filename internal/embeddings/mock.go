package embeddings

import (
	"context"
	"hash/fnv"
	"math"

	memerrors "github.com/lerianstudio/memory-retrieval/internal/errors"
)

// MockClient produces deterministic pseudo-embeddings derived from a hash
// of the input text, so the same text always embeds to the same vector
// without calling out to a real provider. Used by tests and local
// development in place of a concrete embedding provider, which this module
// treats as an external collaborator outside its scope.
type MockClient struct {
	dimension int
}

// NewMockClient constructs a MockClient producing vectors of dim floats.
func NewMockClient(dim int) *MockClient {
	if dim <= 0 {
		dim = 1536
	}
	return &MockClient{dimension: dim}
}

func (m *MockClient) Dimension() int { return m.dimension }

func (m *MockClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, memerrors.New(memerrors.KindEmbedding, "mock.Embed", errEmptyText)
	}
	return deterministicVector(text, m.dimension), nil
}

func (m *MockClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		v, err := m.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

var errEmptyText = emptyTextError{}

type emptyTextError struct{}

func (emptyTextError) Error() string { return "embeddings: text must not be empty" }

// deterministicVector hashes text into a reproducible, unit-ish vector.
// Successive dimensions are derived from successive 32-bit hash states so
// near-duplicate strings do not collide trivially.
func deterministicVector(text string, dim int) []float32 {
	v := make([]float32, dim)
	h := fnv.New32a()
	for i := 0; i < dim; i++ {
		h.Reset()
		_, _ = h.Write([]byte(text))
		_, _ = h.Write([]byte{byte(i), byte(i >> 8)})
		sum := h.Sum32()
		v[i] = (float32(sum%10000)/10000.0)*2 - 1
	}
	normalize(v)
	return v
}

func normalize(v []float32) {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	if sumSq == 0 {
		return
	}
	norm := float32(math.Sqrt(sumSq))
	for i := range v {
		v[i] /= norm
	}
}

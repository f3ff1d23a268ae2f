package qdrant

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"flirtbot/internal/domain"
	"flirtbot/internal/vectorstore"
)

// Connection and collection defaults.
const (
	DefaultAddr      = "localhost:6334"
	DefaultPrefix    = "flirtbot"
	DefaultBatchSize = 256
	positionKey      = "position"
)

var (
	idNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("flirtbot"))
	unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)
)

// Config describes how language collections are named and filled.
type Config struct {
	Addr      string
	APIKey    string
	Prefix    string
	BatchSize int
}

// Dial opens a gRPC connection to Qdrant. The API key, if any, is sent as metadata on every call.
func Dial(cfg Config) (*grpc.ClientConn, error) {
	addr := cfg.Addr
	if addr == "" {
		addr = DefaultAddr
	}
	opts := []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	if cfg.APIKey != "" {
		key := cfg.APIKey
		opts = append(opts, grpc.WithUnaryInterceptor(func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, callOpts ...grpc.CallOption) error {
			ctx = metadata.AppendToOutgoingContext(ctx, "api-key", key)
			return invoker(ctx, method, req, reply, cc, callOpts...)
		}))
	}
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("qdrant: dial %s: %w", addr, err)
	}
	return conn, nil
}

// Index stores one language in its own Qdrant collection and searches it exactly.
type Index struct {
	Points      qdrant.PointsClient
	Collections qdrant.CollectionsClient

	language   string
	collection string
	batchSize  int

	mu        sync.RWMutex
	dimension int
	size      int
}

// NewIndex returns an index for language using the given clients.
func NewIndex(points qdrant.PointsClient, collections qdrant.CollectionsClient, language string, cfg Config) *Index {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	return &Index{
		Points:      points,
		Collections: collections,
		language:    language,
		collection:  CollectionName(prefix, language),
		batchSize:   batch,
	}
}

// NewFactory returns an IndexFactory that creates one collection per language over conn.
func NewFactory(conn grpc.ClientConnInterface, cfg Config) domain.IndexFactory {
	points := qdrant.NewPointsClient(conn)
	collections := qdrant.NewCollectionsClient(conn)
	return func(language string) (domain.LanguageIndex, error) {
		return NewIndex(points, collections, language, cfg), nil
	}
}

// CollectionName builds "<prefix>_<language>_<hash>". The readable part has
// unsafe characters replaced; the hash of the exact language keeps names
// distinct for languages that differ only in case or punctuation.
func CollectionName(prefix, language string) string {
	sum := sha1.Sum([]byte(language))
	readable := unsafeChars.ReplaceAllString(strings.ToLower(language), "_")
	return prefix + "_" + readable + "_" + hex.EncodeToString(sum[:])[:12]
}

// PointID is the deterministic point UUID for a position within a language.
func PointID(language string, position int) string {
	return uuid.NewSHA1(idNamespace, []byte(fmt.Sprintf("%s/%d", language, position))).String()
}

// Collection returns the Qdrant collection backing this index.
func (x *Index) Collection() string { return x.collection }

// Build recreates the collection and upserts every vector with its position as payload.
func (x *Index) Build(ctx context.Context, vectors []domain.Embedding) error {
	dim, err := vectorstore.CheckDimensions(vectors)
	if err != nil {
		return err
	}
	if _, err := x.Collections.Delete(ctx, &qdrant.DeleteCollection{CollectionName: x.collection}); err != nil && status.Code(err) != codes.NotFound {
		return fmt.Errorf("qdrant: drop %s: %w", x.collection, err)
	}
	if len(vectors) > 0 {
		_, err = x.Collections.Create(ctx, &qdrant.CreateCollection{
			CollectionName: x.collection,
			VectorsConfig: &qdrant.VectorsConfig{
				Config: &qdrant.VectorsConfig_Params{
					Params: &qdrant.VectorParams{
						Size:     uint64(dim),
						Distance: qdrant.Distance_Euclid,
					},
				},
			},
		})
		if err != nil {
			return fmt.Errorf("qdrant: create %s: %w", x.collection, err)
		}
	}

	wait := true
	for start := 0; start < len(vectors); start += x.batchSize {
		end := min(start+x.batchSize, len(vectors))
		points := make([]*qdrant.PointStruct, 0, end-start)
		for i := start; i < end; i++ {
			points = append(points, &qdrant.PointStruct{
				Id:      qdrant.NewID(PointID(x.language, i)),
				Vectors: qdrant.NewVectors(vectors[i]...),
				Payload: map[string]*qdrant.Value{
					positionKey: {Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(i)}},
				},
			})
		}
		upsert, err := x.Points.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: x.collection,
			Wait:           &wait,
			Points:         points,
		})
		if err != nil {
			return fmt.Errorf("qdrant: upsert %s: %w", x.collection, err)
		}
		st := upsert.GetResult().GetStatus()
		if st != qdrant.UpdateStatus_Acknowledged && st != qdrant.UpdateStatus_Completed {
			return fmt.Errorf("qdrant: upsert %s: status %s", x.collection, st)
		}
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	x.dimension = dim
	x.size = len(vectors)
	return nil
}

// Search runs an exact search and returns squared Euclidean distances.
// When the k-th hit may share its distance with points Qdrant left out, a
// second query bounded by that score collects them so the lowest position wins.
func (x *Index) Search(ctx context.Context, query domain.Embedding, k int) ([]domain.Neighbor, error) {
	x.mu.RLock()
	dim, size := x.dimension, x.size
	x.mu.RUnlock()
	if k <= 0 || size == 0 {
		return nil, nil
	}
	if len(query) != dim {
		return nil, fmt.Errorf("%w: query has %d, index has %d", vectorstore.ErrDimensionMismatch, len(query), dim)
	}
	limit := min(k, size)
	points, err := x.search(ctx, query, limit, nil)
	if err != nil {
		return nil, err
	}
	if len(points) == limit && limit < size {
		worst := points[len(points)-1].GetScore()
		if points, err = x.search(ctx, query, size, &worst); err != nil {
			return nil, err
		}
	}
	hits := make([]domain.Neighbor, 0, len(points))
	for _, p := range points {
		v, ok := p.GetPayload()[positionKey]
		if !ok {
			return nil, errors.New("qdrant: point without position payload")
		}
		d := float64(p.GetScore())
		hits = append(hits, domain.Neighbor{Position: int(v.GetIntegerValue()), Distance: d * d})
	}
	return vectorstore.TopK(hits, k), nil
}

// search returns up to limit points ordered by Qdrant. A non-nil threshold
// drops points farther than it.
func (x *Index) search(ctx context.Context, query domain.Embedding, limit int, threshold *float32) ([]*qdrant.ScoredPoint, error) {
	exact := true
	resp, err := x.Points.Search(ctx, &qdrant.SearchPoints{
		CollectionName: x.collection,
		Vector:         query,
		Limit:          uint64(limit),
		ScoreThreshold: threshold,
		WithPayload:    &qdrant.WithPayloadSelector{SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true}},
		Params:         &qdrant.SearchParams{Exact: &exact},
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: search %s: %w", x.collection, err)
	}
	return resp.GetResult(), nil
}

// Len returns the number of points written by the last Build.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.size
}

// Dimension returns the vector length of the collection, or 0 before Build.
func (x *Index) Dimension() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.dimension
}

// Count asks Qdrant for the exact number of stored points.
func (x *Index) Count(ctx context.Context) (uint64, error) {
	exact := true
	resp, err := x.Points.Count(ctx, &qdrant.CountPoints{CollectionName: x.collection, Exact: &exact})
	if err != nil {
		return 0, fmt.Errorf("qdrant: count %s: %w", x.collection, err)
	}
	return resp.GetResult().GetCount(), nil
}

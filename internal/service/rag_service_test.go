package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"documentor/internal/chunker"
	"documentor/internal/domain"
	ragerr "documentor/internal/errors"
	"documentor/internal/vectorstore/memory"
)

// letterEmbedder embeds text as its normalised a-z letter histogram.
type letterEmbedder struct {
	fail    error
	block   bool
	active  atomic.Int32
	maxSeen atomic.Int32
	delay   time.Duration
}

func (e *letterEmbedder) Name() string   { return "letters" }
func (e *letterEmbedder) Dimension() int { return 26 }

func (e *letterEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (e *letterEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	n := e.active.Add(1)
	defer e.active.Add(-1)
	for {
		seen := e.maxSeen.Load()
		if n <= seen || e.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}

	if e.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if e.delay > 0 {
		time.Sleep(e.delay)
	}
	if e.fail != nil {
		return nil, e.fail
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, 26)
		for _, r := range strings.ToLower(text) {
			if r >= 'a' && r <= 'z' {
				vec[r-'a']++
			}
		}
		out[i] = vec
	}
	return out, nil
}

type textExtractor struct{}

func (textExtractor) Supports(mediaType string) bool { return mediaType == "text/plain" }

func (textExtractor) Extract(_ context.Context, doc domain.Document) (string, error) {
	if string(doc.Content) == "corrupt" {
		return "", errors.New("decode failed")
	}
	return string(doc.Content), nil
}

type fakeCompleter struct {
	mu       sync.Mutex
	messages []domain.Message
	ctxErr   error
	reply    string
	fail     error
	block    bool
}

func (c *fakeCompleter) Name() string { return "fake" }

func (c *fakeCompleter) Complete(ctx context.Context, messages []domain.Message) (string, error) {
	c.mu.Lock()
	c.messages = messages
	c.ctxErr = ctx.Err()
	c.mu.Unlock()

	if c.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if c.fail != nil {
		return "", c.fail
	}
	return c.reply, nil
}

func (c *fakeCompleter) lastMessages() []domain.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.messages
}

type fixture struct {
	svc       *RAGService
	embedder  *letterEmbedder
	completer *fakeCompleter
	store     *memory.Storage
}

func newFixture(t *testing.T, chunkSize, overlap int, opts ...Option) *fixture {
	t.Helper()
	ch, err := chunker.New(chunker.WithChunkSize(chunkSize), chunker.WithOverlap(overlap))
	require.NoError(t, err)

	f := &fixture{
		embedder:  &letterEmbedder{},
		completer: &fakeCompleter{reply: "an answer"},
		store:     memory.NewStorage(),
	}
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	f.svc = NewRAGService(textExtractor{}, ch, f.embedder, f.store, f.completer, opts...)
	return f
}

func textDoc(name, content string) domain.Document {
	return domain.Document{Name: name, MediaType: "text/plain", Content: []byte(content)}
}

func TestQueryBeforeIngest(t *testing.T) {
	f := newFixture(t, 20, 5)
	_, err := f.svc.Query(context.Background(), "what about cats?")
	assert.True(t, ragerr.HasCode(err, ragerr.CodeNotIngested))
	assert.Nil(t, f.completer.lastMessages())
}

func TestQueryRejectsBlankPrompt(t *testing.T) {
	f := newFixture(t, 20, 5)
	_, err := f.svc.Query(context.Background(), "   ")
	assert.True(t, ragerr.HasCode(err, ragerr.CodeRequestInvalid))
}

func TestIngestReportsChunkCount(t *testing.T) {
	f := newFixture(t, 20, 5)
	res, err := f.svc.Ingest(context.Background(), textDoc("cats.txt", "Hello world. This is a test document about cats."))
	require.NoError(t, err)

	assert.Equal(t, 3, res.ChunkCount)
	assert.Equal(t, uint64(1), res.GenerationID)
	assert.NotEmpty(t, res.DocumentID)
	assert.Contains(t, res.Message, "cats.txt")
	assert.Contains(t, res.Message, "3 chunks")

	st := f.svc.Status()
	assert.True(t, st.Ready)
	require.NotNil(t, st.Generation)
	assert.Equal(t, res.DocumentID, st.Generation.DocumentID)
	assert.Equal(t, 26, st.Dimension)
	assert.Equal(t, "letters", st.Embedder)
	assert.Equal(t, "fake", st.Completion)
	assert.Equal(t, DefaultTopK, st.TopK)
}

func TestFailedIngestKeepsGeneration(t *testing.T) {
	f := newFixture(t, 20, 5)
	first, err := f.svc.Ingest(context.Background(), textDoc("a.txt", "alpha beta gamma"))
	require.NoError(t, err)

	tests := []struct {
		name string
		doc  domain.Document
		code ragerr.Code
	}{
		{name: "empty document", doc: textDoc("empty.txt", ""), code: ragerr.CodeDocumentEmpty},
		{name: "whitespace document", doc: textDoc("blank.txt", " \n\t"), code: ragerr.CodeDocumentEmpty},
		{name: "unsupported type", doc: domain.Document{Name: "x.png", MediaType: "image/png", Content: []byte("x")}, code: ragerr.CodeMediaTypeUnsupported},
		{name: "extraction failure", doc: textDoc("bad.txt", "corrupt"), code: ragerr.CodeExtractionFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Ingest(context.Background(), tt.doc)
			require.Error(t, err)
			assert.Equal(t, tt.code, ragerr.CodeOf(err))

			info, ok := f.store.Current()
			require.True(t, ok)
			assert.Equal(t, first.GenerationID, info.ID)
			assert.Equal(t, first.DocumentID, info.DocumentID)
		})
	}
}

func TestEmbeddingFailureKeepsGeneration(t *testing.T) {
	f := newFixture(t, 20, 5)
	first, err := f.svc.Ingest(context.Background(), textDoc("a.txt", "alpha beta gamma"))
	require.NoError(t, err)

	f.embedder.fail = errors.New("provider down")
	_, err = f.svc.Ingest(context.Background(), textDoc("b.txt", "delta epsilon"))
	require.Error(t, err)
	assert.Equal(t, ragerr.CodeEmbeddingFailure, ragerr.CodeOf(err))
	assert.Equal(t, "embed", ragerr.FieldsOf(err)["stage"])
	assert.Equal(t, "letters", ragerr.FieldsOf(err)["provider"])

	info, _ := f.store.Current()
	assert.Equal(t, first.GenerationID, info.ID)
}

func TestQueryRanksAndAssemblesPrompt(t *testing.T) {
	// Two chunks of ten runes: "aaaaaaaaaa" and "bbbbbbbbbb".
	f := newFixture(t, 10, 0)
	_, err := f.svc.Ingest(context.Background(), textDoc("ab.txt", strings.Repeat("a", 10)+strings.Repeat("b", 10)))
	require.NoError(t, err)

	res, err := f.svc.Query(context.Background(), "bbb ab")
	require.NoError(t, err)
	assert.Equal(t, "an answer", res.Response)

	require.Len(t, res.Chunks, 2)
	assert.Equal(t, 1, res.Chunks[0].Chunk.ID)
	assert.Equal(t, 0, res.Chunks[1].Chunk.ID)
	assert.Greater(t, res.Chunks[0].Score, res.Chunks[1].Score)
	assert.Equal(t, []string{strings.Repeat("b", 10), strings.Repeat("a", 10)}, res.Context())

	msgs := f.completer.lastMessages()
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.RoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "only the information in the context")
	assert.Contains(t, msgs[0].Content, "not enough information")
	assert.Equal(t, domain.RoleUser, msgs[1].Role)
	assert.Contains(t, msgs[1].Content, strings.Repeat("b", 10)+ContextDelimiter+strings.Repeat("a", 10))
	assert.True(t, strings.HasSuffix(msgs[1].Content, "Question: bbb ab"))
}

func TestQueryTiesFollowChunkOrder(t *testing.T) {
	f := newFixture(t, 4, 0)
	_, err := f.svc.Ingest(context.Background(), textDoc("ties.txt", "abcdbcdacdab"))
	require.NoError(t, err)

	res, err := f.svc.Query(context.Background(), "abcd")
	require.NoError(t, err)
	require.Len(t, res.Chunks, 3)
	for i, c := range res.Chunks {
		assert.Equal(t, i, c.Chunk.ID)
	}
}

func TestQueryIsDeterministic(t *testing.T) {
	f := newFixture(t, 30, 10)
	_, err := f.svc.Ingest(context.Background(), textDoc("doc.txt", strings.Repeat("the quick brown fox jumps over the lazy dog. ", 10)))
	require.NoError(t, err)

	first, err := f.svc.Query(context.Background(), "lazy fox")
	require.NoError(t, err)
	second, err := f.svc.Query(context.Background(), "lazy fox")
	require.NoError(t, err)
	assert.Equal(t, first.Chunks, second.Chunks)
	assert.Len(t, first.Chunks, DefaultTopK)
}

func TestQueryTopKOption(t *testing.T) {
	f := newFixture(t, 10, 0, WithTopK(1))
	_, err := f.svc.Ingest(context.Background(), textDoc("doc.txt", strings.Repeat("x", 50)))
	require.NoError(t, err)

	res, err := f.svc.Query(context.Background(), "x")
	require.NoError(t, err)
	assert.Len(t, res.Chunks, 1)
}

func TestProviderTimeouts(t *testing.T) {
	t.Run("embedding", func(t *testing.T) {
		f := newFixture(t, 20, 5, WithEmbedTimeout(20*time.Millisecond))
		f.embedder.block = true

		_, err := f.svc.Ingest(context.Background(), textDoc("a.txt", "some text"))
		assert.Equal(t, ragerr.CodeProviderTimeout, ragerr.CodeOf(err))
		assert.False(t, f.store.IsReady())
	})

	t.Run("completion", func(t *testing.T) {
		f := newFixture(t, 20, 5, WithCompletionTimeout(20*time.Millisecond))
		_, err := f.svc.Ingest(context.Background(), textDoc("a.txt", "some text"))
		require.NoError(t, err)
		f.completer.block = true

		_, err = f.svc.Query(context.Background(), "text")
		assert.Equal(t, ragerr.CodeProviderTimeout, ragerr.CodeOf(err))
		assert.Equal(t, "complete", ragerr.FieldsOf(err)["stage"])
	})
}

func TestCompletionFailure(t *testing.T) {
	f := newFixture(t, 20, 5)
	_, err := f.svc.Ingest(context.Background(), textDoc("a.txt", "some text"))
	require.NoError(t, err)
	f.completer.fail = errors.New("rate limited upstream")

	_, err = f.svc.Query(context.Background(), "text")
	assert.Equal(t, ragerr.CodeCompletionFailure, ragerr.CodeOf(err))
	assert.ErrorContains(t, err, "rate limited upstream")
}

func TestCallerCancellationDoesNotReachProviders(t *testing.T) {
	f := newFixture(t, 20, 5)
	_, err := f.svc.Ingest(context.Background(), textDoc("a.txt", "some text"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := f.svc.Query(ctx, "text")
	require.NoError(t, err)
	assert.Equal(t, "an answer", res.Response)
	assert.NoError(t, f.completer.ctxErr)
}

func TestConcurrentIngestsAreSerialised(t *testing.T) {
	f := newFixture(t, 8, 2)
	f.embedder.delay = 2 * time.Millisecond

	const n = 12
	ids := make(chan uint64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.svc.Ingest(context.Background(), textDoc(fmt.Sprintf("doc-%d.txt", i), strings.Repeat("word ", i+1)))
			assert.NoError(t, err)
			ids <- res.GenerationID
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[uint64]bool)
	for id := range ids {
		assert.False(t, seen[id], "generation %d published twice", id)
		seen[id] = true
	}
	assert.Len(t, seen, n)
	assert.Equal(t, int32(1), f.embedder.maxSeen.Load())

	info, ok := f.store.Current()
	require.True(t, ok)
	assert.Equal(t, uint64(n), info.ID)
}

func TestQueriesDuringIngestSeeOneGeneration(t *testing.T) {
	f := newFixture(t, 6, 1)
	_, err := f.svc.Ingest(context.Background(), textDoc("seed.txt", "seed seed seed"))
	require.NoError(t, err)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(stop)
		for i := 0; i < 50; i++ {
			_, err := f.svc.Ingest(context.Background(), textDoc("doc.txt", strings.Repeat(fmt.Sprintf("gen%d ", i), i+2)))
			assert.NoError(t, err)
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				res, err := f.svc.Query(context.Background(), "gen")
				if !assert.NoError(t, err) {
					return
				}
				docID := res.Chunks[0].Chunk.DocumentID
				for _, c := range res.Chunks {
					assert.Equal(t, docID, c.Chunk.DocumentID)
				}
			}
		}()
	}
	wg.Wait()
}

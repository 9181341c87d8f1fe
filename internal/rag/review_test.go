package rag

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"
	"unicode/utf8"

	"contract-review/internal/config"
	"contract-review/internal/models"
	"contract-review/internal/vectorstore"

	"github.com/tmc/langchaingo/llms"
)

const notAvailable = "The information is not available in the document."

// fakeEmbedder maps text to a deterministic unit vector.
type fakeEmbedder struct {
	queries []string
}

func (f *fakeEmbedder) embed(text string) []float32 {
	v := make([]float32, 8)
	for i, b := range []byte(text) {
		v[i%8] += float32(b)
	}
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		v[0] = 1
		return v
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range v {
		v[i] *= scale
	}
	return v
}

func (f *fakeEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = f.embed(text)
	}
	return vectors, nil
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.queries = append(f.queries, text)
	return f.embed(text), nil
}

// fakeLLM honors the system instruction: it answers with the context block
// when one is present and reports missing information otherwise.
type fakeLLM struct {
	prompts []string
	err     error
}

func (f *fakeLLM) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	var human string
	for _, msg := range messages {
		if msg.Role == llms.ChatMessageTypeHuman {
			for _, part := range msg.Parts {
				if text, ok := part.(llms.TextContent); ok {
					human = text.Text
				}
			}
		}
	}
	f.prompts = append(f.prompts, human)

	answer := notAvailable
	if ctxBlock := promptContext(human); strings.TrimSpace(ctxBlock) != "" {
		answer = ctxBlock
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: answer}}}, nil
}

func (f *fakeLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	res, err := f.GenerateContent(ctx, []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, prompt)}, options...)
	if err != nil {
		return "", err
	}
	return res.Choices[0].Content, nil
}

func promptContext(human string) string {
	after, ok := strings.CutPrefix(human, "Context:\n")
	if !ok {
		return ""
	}
	if idx := strings.LastIndex(after, "\n\nQuestion: "); idx >= 0 {
		return after[:idx]
	}
	return after
}

func testConfig() *config.Config {
	return &config.Config{
		RAG: config.RAGConfig{ChunkSize: 1000, ChunkOverlap: 200, Collection: "test"},
	}
}

func newSession(t *testing.T) (*Review, *fakeEmbedder, *fakeLLM) {
	t.Helper()
	store, err := vectorstore.New(vectorstore.StoreConfig{InMemory: true, Collection: "test"})
	if err != nil {
		t.Fatalf("vectorstore.New() error: %v", err)
	}
	embedder := &fakeEmbedder{}
	llm := &fakeLLM{}
	return NewReview(embedder, store, llm, testConfig()), embedder, llm
}

func buildIndex(t *testing.T, review *Review, contents ...string) {
	t.Helper()
	chunks := make([]models.Chunk, len(contents))
	for i, content := range contents {
		chunks[i] = models.Chunk{Content: content, SourcePath: "contract.pdf", PageNumber: 1, ChunkID: i + 1}
	}
	if err := review.BuildIndex(context.Background(), chunks); err != nil {
		t.Fatalf("BuildIndex() error: %v", err)
	}
}

func TestAnalyze_NotReady(t *testing.T) {
	review, _, _ := newSession(t)
	ctx := context.Background()

	if _, err := review.Analyze(ctx, "What is the payment term?"); !errors.Is(err, ErrNotReady) {
		t.Errorf("Analyze() before indexing = %v, want ErrNotReady", err)
	}
	if _, err := review.Retrieve(ctx, "payment"); !errors.Is(err, ErrNotReady) {
		t.Errorf("Retrieve() before indexing = %v, want ErrNotReady", err)
	}
	if _, err := review.ExtractClauses(ctx); !errors.Is(err, ErrNotReady) {
		t.Errorf("ExtractClauses() before indexing = %v, want ErrNotReady", err)
	}
	if msgs := review.Messages(); len(msgs) != 0 {
		t.Errorf("history has %d messages after rejected calls, want 0", len(msgs))
	}
}

func TestAnalyze_PaymentTermScenario(t *testing.T) {
	review, _, _ := newSession(t)
	buildIndex(t, review, "Payment is due within 30 days.")

	result, err := review.Analyze(context.Background(), "What is the payment term?")
	if err != nil {
		t.Fatalf("Analyze() error: %v", err)
	}
	if !strings.Contains(result.Answer, "30 days") {
		t.Errorf("answer %q does not reference the 30 day term", result.Answer)
	}
	if len(result.Sources) != 1 {
		t.Fatalf("got %d sources, want 1", len(result.Sources))
	}
	src := result.Sources[0]
	if src.PageNumber != 1 || src.SourcePath != "contract.pdf" {
		t.Errorf("unexpected source metadata: %+v", src)
	}
	if !strings.HasPrefix(src.Content, "Payment is due within 30 days.") {
		t.Errorf("source preview = %q", src.Content)
	}
}

func TestAnalyze_SourcePreviewTruncated(t *testing.T) {
	review, _, _ := newSession(t)
	long := strings.Repeat("clause text ", 20) // 240 chars
	buildIndex(t, review, long)

	result, err := review.Analyze(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Analyze() error: %v", err)
	}
	want := long[:100] + "..."
	if result.Sources[0].Content != want {
		t.Errorf("preview = %q, want first 100 chars plus ellipsis", result.Sources[0].Content)
	}
}

func TestAnalyze_MessageHistory(t *testing.T) {
	review, _, _ := newSession(t)
	buildIndex(t, review, "Payment is due within 30 days.", "The term of this agreement is two years.")

	ctx := context.Background()
	queries := []string{"What is the payment term?", "How long does the agreement run?", "Who are the parties?"}
	for _, q := range queries {
		if _, err := review.Analyze(ctx, q); err != nil {
			t.Fatalf("Analyze(%q) error: %v", q, err)
		}
	}

	msgs := review.Messages()
	if len(msgs) != 2*len(queries) {
		t.Fatalf("history has %d messages, want %d", len(msgs), 2*len(queries))
	}
	for i, q := range queries {
		if msgs[2*i].Role != models.RoleUser || msgs[2*i].Content != q {
			t.Errorf("message %d = %+v, want user %q", 2*i, msgs[2*i], q)
		}
		if msgs[2*i+1].Role != models.RoleAssistant {
			t.Errorf("message %d role = %s, want assistant", 2*i+1, msgs[2*i+1].Role)
		}
	}
}

func TestAnalyze_EmptyIndexAnswersNotAvailable(t *testing.T) {
	review, _, _ := newSession(t)
	buildIndex(t, review) // zero chunks, session still becomes ready

	result, err := review.Analyze(context.Background(), "What is the payment term?")
	if err != nil {
		t.Fatalf("Analyze() on empty index error: %v", err)
	}
	if result.Answer != notAvailable {
		t.Errorf("answer = %q, want the not-available notice", result.Answer)
	}
	if len(result.Sources) != 0 {
		t.Errorf("got %d sources from an empty index", len(result.Sources))
	}
}

func TestExtractClauses_AllLabelsInOrder(t *testing.T) {
	review, _, _ := newSession(t)
	buildIndex(t, review) // no chunks, every answer reports missing info

	findings, err := review.ExtractClauses(context.Background())
	if err != nil {
		t.Fatalf("ExtractClauses() error: %v", err)
	}
	if len(findings) != len(models.ClauseLabels) {
		t.Fatalf("got %d findings, want %d", len(findings), len(models.ClauseLabels))
	}
	for i, label := range models.ClauseLabels {
		if findings[i].Klausa != label {
			t.Errorf("finding %d label = %q, want %q", i, findings[i].Klausa, label)
		}
		if findings[i].Isi != notAvailable {
			t.Errorf("finding %d answer = %q, want the not-available notice", i, findings[i].Isi)
		}
	}
}

func TestExtractClauses_AbortsOnFailure(t *testing.T) {
	review, _, llm := newSession(t)
	buildIndex(t, review, "Payment is due within 30 days.")
	llm.err = errors.New("provider timeout")

	if _, err := review.ExtractClauses(context.Background()); err == nil {
		t.Fatal("expected batch to abort on LLM failure")
	} else if !strings.Contains(err.Error(), models.ClauseLabels[0]) {
		t.Errorf("error %q does not name the failing clause", err)
	}
}

func TestIdentifyRisks_AllQuestions(t *testing.T) {
	review, _, _ := newSession(t)
	buildIndex(t, review, "Payment is due within 30 days.")

	risks, err := review.IdentifyRisks(context.Background())
	if err != nil {
		t.Fatalf("IdentifyRisks() error: %v", err)
	}
	if len(risks) != len(models.RiskQuestions) {
		t.Fatalf("got %d risks, want %d", len(risks), len(models.RiskQuestions))
	}
	for _, question := range models.RiskQuestions {
		if _, ok := risks[question]; !ok {
			t.Errorf("missing answer for question %q", question)
		}
	}
}

func TestCompareWithStandard_TruncatesTo1000(t *testing.T) {
	review, embedder, llm := newSession(t)
	buildIndex(t, review, "Payment is due within 30 days.")

	standard := strings.Repeat("a", 5000)
	if _, err := review.CompareWithStandard(context.Background(), standard); err != nil {
		t.Fatalf("CompareWithStandard() error: %v", err)
	}

	wantQuery := fmt.Sprintf(models.CompareQueryTemplate, strings.Repeat("a", 1000))
	lastEmbedded := embedder.queries[len(embedder.queries)-1]
	if lastEmbedded != wantQuery {
		t.Errorf("embedded query = %d chars, want exactly the 1000-char truncation", len(lastEmbedded))
	}
	lastPrompt := llm.prompts[len(llm.prompts)-1]
	if !strings.Contains(lastPrompt, strings.Repeat("a", 1000)) {
		t.Error("prompt does not carry the truncated standard terms")
	}
	if strings.Contains(lastPrompt, strings.Repeat("a", 1001)) {
		t.Error("prompt carries more than 1000 chars of the standard terms")
	}
}

func TestCompareWithStandard_TruncatesOnRuneBoundary(t *testing.T) {
	review, embedder, _ := newSession(t)
	buildIndex(t, review, "Payment is due within 30 days.")

	// two-byte runes: a byte cut at 1000 would land mid-rune
	standard := strings.Repeat("é", 3000)
	if _, err := review.CompareWithStandard(context.Background(), standard); err != nil {
		t.Fatalf("CompareWithStandard() error: %v", err)
	}

	lastEmbedded := embedder.queries[len(embedder.queries)-1]
	if !utf8.ValidString(lastEmbedded) {
		t.Error("embedded query contains invalid UTF-8")
	}
	wantQuery := fmt.Sprintf(models.CompareQueryTemplate, strings.Repeat("é", 1000))
	if lastEmbedded != wantQuery {
		t.Errorf("embedded query carries %d runes of the standard terms, want exactly 1000",
			utf8.RuneCountInString(lastEmbedded)-utf8.RuneCountInString(fmt.Sprintf(models.CompareQueryTemplate, "")))
	}
}

func TestAnalyze_SourcePreviewRuneSafe(t *testing.T) {
	review, _, _ := newSession(t)
	long := strings.Repeat("§", 200)
	buildIndex(t, review, long)

	result, err := review.Analyze(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Analyze() error: %v", err)
	}
	got := result.Sources[0].Content
	if !utf8.ValidString(got) {
		t.Error("source preview contains invalid UTF-8")
	}
	if want := strings.Repeat("§", 100) + "..."; got != want {
		t.Errorf("preview = %q, want first 100 runes plus ellipsis", got)
	}
}

func TestBatchStopsOnCanceledContext(t *testing.T) {
	review, _, _ := newSession(t)
	buildIndex(t, review, "Payment is due within 30 days.")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := review.IdentifyRisks(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("IdentifyRisks() with canceled context = %v, want context.Canceled", err)
	}
}

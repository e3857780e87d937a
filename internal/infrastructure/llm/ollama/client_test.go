package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kirillkom/document-structurer/internal/core/domain"
	"github.com/kirillkom/document-structurer/internal/infrastructure/chunking"
	"github.com/kirillkom/document-structurer/internal/infrastructure/resilience"
)

func newGenerateServer(t *testing.T, respond func(prompt string) string) (*httptest.Server, *[]string) {
	t.Helper()
	var (
		mu      sync.Mutex
		prompts []string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}
		if payload["format"] != "json" {
			t.Errorf("expected json format, got %v", payload["format"])
		}
		prompt, _ := payload["prompt"].(string)
		mu.Lock()
		prompts = append(prompts, prompt)
		mu.Unlock()

		body, _ := json.Marshal(map[string]string{"response": respond(prompt)})
		_, _ = w.Write(body)
	}))
	t.Cleanup(server.Close)
	return server, &prompts
}

func TestZeroShotNormalisesRequestedLabels(t *testing.T) {
	server, prompts := newGenerateServer(t, func(string) string {
		return "Here you go: {\"scores\": {\"Legal\": 0.6, \"financial\": 0.2, \"poetry\": 0.9, \"medical\": -1}}"
	})
	classifier := NewZeroShotClassifier(New(server.URL, "llama3"))

	labels := domain.CategoryLabels()
	scores, err := classifier.ClassifyZeroShot(context.Background(), "This contract is governed by...", labels)
	if err != nil {
		t.Fatalf("ClassifyZeroShot() error = %v", err)
	}

	if len(scores) != len(labels) {
		t.Fatalf("expected a score for every label, got %v", scores)
	}
	if _, ok := scores["poetry"]; ok {
		t.Fatalf("unrequested label leaked: %v", scores)
	}
	if math.Abs(scores["legal"]-0.75) > 1e-9 || math.Abs(scores["financial"]-0.25) > 1e-9 {
		t.Fatalf("unexpected normalised scores: %v", scores)
	}
	if scores["medical"] != 0 {
		t.Fatalf("expected negative score clamped to 0, got %v", scores["medical"])
	}
	if !strings.Contains((*prompts)[0], "legal, financial, technical") {
		t.Fatalf("expected labels in prompt, got %s", (*prompts)[0])
	}
}

func TestZeroShotScoresZeroWhenLabelsAbsent(t *testing.T) {
	for _, body := range []string{`{"scores": {}}`, `{"scores": {"poetry": 1}}`} {
		server, _ := newGenerateServer(t, func(string) string { return body })
		classifier := NewZeroShotClassifier(New(server.URL, "llama3"))

		scores, err := classifier.ClassifyZeroShot(context.Background(), "text", []string{"legal", "financial"})
		if err != nil {
			t.Fatalf("ClassifyZeroShot(%s) error = %v", body, err)
		}
		if len(scores) != 2 || scores["legal"] != 0 || scores["financial"] != 0 {
			t.Fatalf("expected zero for every requested label, got %v", scores)
		}
	}
}

func TestZeroShotRequiresLabels(t *testing.T) {
	server, _ := newGenerateServer(t, func(string) string { return `{"scores": {}}` })
	classifier := NewZeroShotClassifier(New(server.URL, "llama3"))
	if _, err := classifier.ClassifyZeroShot(context.Background(), "text", nil); err == nil {
		t.Fatalf("expected error without labels")
	}
}

func TestZeroShotMalformedOutputDoesNotTripBreaker(t *testing.T) {
	var calls atomic.Int32
	server, _ := newGenerateServer(t, func(string) string {
		calls.Add(1)
		return "I think this is a legal document."
	})
	exec := resilience.NewExecutor(resilience.Config{
		Retry:   resilience.RetryPolicy{MaxAttempts: 1},
		Breaker: resilience.BreakerPolicy{Enabled: true, MinRequests: 1, FailureRatio: 0.1},
	}, nil)
	classifier := NewZeroShotClassifier(NewWithOptions(server.URL, "llama3", Options{Executor: exec}))

	for i := 0; i < 3; i++ {
		_, err := classifier.ClassifyZeroShot(context.Background(), "text", []string{"legal"})
		var outputErr *ModelOutputError
		if !errors.As(err, &outputErr) {
			t.Fatalf("call %d: expected model output error, got %v", i, err)
		}
		if domain.IsKind(err, domain.ErrTemporary) {
			t.Fatalf("call %d: malformed output must not be temporary, got %v", i, err)
		}
	}
	if calls.Load() != 3 {
		t.Fatalf("expected every call to reach the model, got %d", calls.Load())
	}
	if state := exec.BreakerStates()["ollama.zero_shot"]; state != "closed" {
		t.Fatalf("expected closed breaker, got %q", state)
	}
}

func TestModelUnavailableOpensBreaker(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "loading model", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	exec := resilience.NewExecutor(resilience.Config{
		Retry:   resilience.RetryPolicy{MaxAttempts: 1},
		Breaker: resilience.BreakerPolicy{Enabled: true, MinRequests: 2, FailureRatio: 0.5, OpenTimeout: time.Minute},
	}, nil)
	classifier := NewZeroShotClassifier(NewWithOptions(server.URL, "llama3", Options{Executor: exec}))

	for i := 0; i < 3; i++ {
		_, err := classifier.ClassifyZeroShot(context.Background(), "text", []string{"legal"})
		if !domain.IsKind(err, domain.ErrTemporary) {
			t.Fatalf("call %d: expected temporary error, got %v", i, err)
		}
	}
	if calls.Load() != 2 {
		t.Fatalf("expected open breaker to stop the third call, got %d calls", calls.Load())
	}
}

func TestEntityExtractorMergesChunks(t *testing.T) {
	server, prompts := newGenerateServer(t, func(prompt string) string {
		if strings.Contains(prompt, "Acme") {
			return `{"persons":["John Smith"],"organizations":["Acme Corp"],"dates":["March 1, 2024"],"locations":["California"],"key_phrases":["lease term","rent"],"language":"EN"}`
		}
		return `{"persons":["John  Smith","Jane Doe"],"organizations":[],"dates":[],"locations":["Nevada"],"key_phrases":["lease term","security deposit"],"language":"fr"}`
	})
	extractor := NewEntityExtractor(New(server.URL, "llama3"), chunking.NewSplitter(60, 0))

	text := "Acme Corp leases the premises to John Smith on March 1, 2024. " +
		"The tenant Jane Doe pays a security deposit in Nevada."
	meta, err := extractor.Extract(context.Background(), text)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if len(*prompts) < 2 {
		t.Fatalf("expected one call per chunk, got %d", len(*prompts))
	}
	if got := strings.Join(meta.Entities.Persons, "|"); got != "John Smith|John Smith|Jane Doe" {
		t.Fatalf("unexpected persons %q", got)
	}
	if got := strings.Join(meta.Entities.Locations, "|"); got != "California|Nevada" {
		t.Fatalf("unexpected locations %q", got)
	}
	if got := strings.Join(meta.KeyPhrases, "|"); got != "lease term|security deposit" {
		t.Fatalf("unexpected key phrases %q", got)
	}
	if meta.Language != "en" {
		t.Fatalf("expected language from first chunk, got %q", meta.Language)
	}
	if meta.Statistics.WordCount == 0 || meta.Statistics.SentenceCount != 2 {
		t.Fatalf("unexpected statistics %+v", meta.Statistics)
	}
}

func TestEntityExtractorKeepsRepeatedMentions(t *testing.T) {
	server, _ := newGenerateServer(t, func(string) string {
		return `{"persons":["John Smith","Jane Doe","John Smith"],"dates":["March 1 2024","March 1 2024"],"key_phrases":["lease term","lease term"]}`
	})
	meta, err := NewEntityExtractor(New(server.URL, "llama3"), nil).Extract(context.Background(),
		"John Smith and Jane Doe signed on March 1 2024. John Smith paid on March 1 2024.")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got := strings.Join(meta.Entities.Persons, "|"); got != "John Smith|Jane Doe|John Smith" {
		t.Fatalf("unexpected persons %q", got)
	}
	if got := strings.Join(meta.Entities.Dates, "|"); got != "March 1 2024|March 1 2024" {
		t.Fatalf("unexpected dates %q", got)
	}
	if got := strings.Join(meta.KeyPhrases, "|"); got != "lease term" {
		t.Fatalf("expected key phrases deduplicated, got %q", got)
	}
}

func TestEntityExtractorSkipsOverlapRepeats(t *testing.T) {
	names := map[string]bool{"Alice": true, "Bob": true}
	mentions := func(text string) []string {
		out := []string{}
		for _, word := range strings.Fields(text) {
			if word = strings.Trim(word, ".,"); names[word] {
				out = append(out, word)
			}
		}
		return out
	}
	server, prompts := newGenerateServer(t, func(prompt string) string {
		doc := prompt[strings.LastIndex(prompt, "Document:\n")+len("Document:\n"):]
		body, _ := json.Marshal(map[string][]string{"persons": mentions(doc)})
		return string(body)
	})

	text := strings.Repeat("Alice met Bob. Bob paid Alice. ", 6)
	extractor := NewEntityExtractor(New(server.URL, "llama3"), chunking.NewSplitter(40, 15))
	meta, err := extractor.Extract(context.Background(), text)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(*prompts) < 3 {
		t.Fatalf("expected several overlapping chunks, got %d", len(*prompts))
	}

	want := strings.Join(mentions(text), "|")
	if got := strings.Join(meta.Entities.Persons, "|"); got != want {
		t.Fatalf("persons = %q, want every mention once: %q", got, want)
	}
}

func TestEntityExtractorDefaultsEmptyLists(t *testing.T) {
	server, _ := newGenerateServer(t, func(string) string { return `{}` })
	meta, err := NewEntityExtractor(New(server.URL, "llama3"), nil).Extract(context.Background(), "Short memo.")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if meta.Entities.Persons == nil || meta.Entities.Dates == nil || meta.KeyPhrases == nil {
		t.Fatalf("expected empty non-nil lists, got %+v", meta)
	}
	if meta.Language != defaultLanguage {
		t.Fatalf("expected default language, got %q", meta.Language)
	}
}

func TestHTTPErrorsAreTemporaryWhenRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	exec := resilience.NewExecutor(resilience.DefaultConfig().WithoutRetries(), nil)
	client := NewWithOptions(server.URL, "llama3", Options{Executor: exec})
	_, err := NewZeroShotClassifier(client).ClassifyZeroShot(context.Background(), "text", []string{"legal"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "model unavailable") {
		t.Fatalf("expected response body in error, got %v", err)
	}
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
}

func TestHTTPClientErrorsArePermanent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	_, err := NewEntityExtractor(New(server.URL, "missing"), nil).Extract(context.Background(), "text")
	if err == nil {
		t.Fatalf("expected error")
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("did not expect temporary error for 404, got %v", err)
	}
}

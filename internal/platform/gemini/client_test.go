package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/generative-ai-go/genai"

	"github.com/szonjajakab/ponpa/internal/platform/logger"
)

type stubResult struct {
	resp *genai.GenerateContentResponse
	err  error
}

type stubGenerator struct {
	calls   int
	results []stubResult
}

func (g *stubGenerator) GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	i := g.calls
	g.calls++
	if i >= len(g.results) {
		i = len(g.results) - 1
	}
	return g.results[i].resp, g.results[i].err
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []genai.Part{genai.Text(text)}}},
		},
	}
}

func blobResponse(data []byte) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []genai.Part{genai.Blob{MIMEType: "image/png", Data: data}}}},
		},
	}
}

func newTestService(t *testing.T, gen generator) *service {
	t.Helper()
	log, err := logger.New("prod")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return &service{
		log:     log.With("service", "GeminiService"),
		cfg:     Config{Model: "test-model", RPM: 15, TPM: 32000, Timeout: time.Second},
		gen:     gen,
		limiter: NewRateLimiter(15, 32000),
		usage:   newUsageLog(),
		sleep:   func(time.Duration) {},
	}
}

func TestTextRequestRetriesThenSucceeds(t *testing.T) {
	gen := &stubGenerator{results: []stubResult{
		{err: errors.New("transient 1")},
		{err: errors.New("transient 2")},
		{resp: textResponse("a lovely outfit")},
	}}
	svc := newTestService(t, gen)

	got, err := svc.textRequest(context.Background(), "describe this outfit", nil)
	if err != nil {
		t.Fatalf("textRequest: %v", err)
	}
	if got != "a lovely outfit" {
		t.Fatalf("result = %q", got)
	}
	if gen.calls != 3 {
		t.Fatalf("calls = %d, want 3", gen.calls)
	}

	stats := svc.UsageStats(time.Hour)
	if stats.TotalRequests != 1 || stats.SuccessfulRequests != 1 {
		t.Fatalf("expected exactly one successful usage entry, got %+v", stats)
	}
	// prompt words (3) + result words (3)
	if stats.TotalTokens != 6 {
		t.Fatalf("tokens = %d, want 6", stats.TotalTokens)
	}
}

func TestTextRequestExhaustsRetries(t *testing.T) {
	gen := &stubGenerator{results: []stubResult{{err: errors.New("boom")}}}
	svc := newTestService(t, gen)

	_, err := svc.textRequest(context.Background(), "prompt", nil)
	if err == nil {
		t.Fatal("expected error after retries exhausted")
	}
	if gen.calls != 3 {
		t.Fatalf("calls = %d, want 3", gen.calls)
	}

	stats := svc.UsageStats(time.Hour)
	if stats.TotalRequests != 1 || stats.FailedRequests != 1 {
		t.Fatalf("expected exactly one failed usage entry, got %+v", stats)
	}
	if stats.TotalTokens != 0 {
		t.Fatalf("failed call should not count tokens, got %d", stats.TotalTokens)
	}
}

func TestTextRequestEmptyResponseIsTransient(t *testing.T) {
	gen := &stubGenerator{results: []stubResult{
		{resp: &genai.GenerateContentResponse{}},
		{resp: textResponse("filled in")},
	}}
	svc := newTestService(t, gen)

	got, err := svc.textRequest(context.Background(), "prompt", nil)
	if err != nil {
		t.Fatalf("textRequest: %v", err)
	}
	if got != "filled in" {
		t.Fatalf("result = %q", got)
	}
	if gen.calls != 2 {
		t.Fatalf("calls = %d, want 2", gen.calls)
	}
}

func TestRequestRateLimitedFailsFast(t *testing.T) {
	gen := &stubGenerator{results: []stubResult{{resp: textResponse("x")}}}
	svc := newTestService(t, gen)
	svc.limiter = NewRateLimiter(0, 32000)

	_, err := svc.textRequest(context.Background(), "prompt", nil)
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}
	if gen.calls != 0 {
		t.Fatal("rate-limited call must not reach the transport")
	}
	if stats := svc.UsageStats(time.Hour); stats.TotalRequests != 0 {
		t.Fatalf("rate-limited call must not record usage, got %+v", stats)
	}
}

func TestRequestUnavailable(t *testing.T) {
	svc := newTestService(t, nil)
	svc.gen = nil

	if _, err := svc.textRequest(context.Background(), "prompt", nil); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("text err = %v, want ErrUnavailable", err)
	}
	if _, err := svc.imageRequest(context.Background(), "prompt", nil); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("image err = %v, want ErrUnavailable", err)
	}
}

func TestImageRequestBlobPart(t *testing.T) {
	payload := []byte{0x89, 0x50, 0x4e, 0x47}
	gen := &stubGenerator{results: []stubResult{{resp: blobResponse(payload)}}}
	svc := newTestService(t, gen)

	data, err := svc.imageRequest(context.Background(), "generate an image", nil)
	if err != nil {
		t.Fatalf("imageRequest: %v", err)
	}
	if string(data) != string(payload) {
		t.Fatalf("data mismatch")
	}

	stats := svc.UsageStats(time.Hour)
	if stats.TotalRequests != 1 || stats.SuccessfulRequests != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	// prompt word count only; image calls have no completion tokens.
	if stats.TotalTokens != 3 {
		t.Fatalf("tokens = %d, want 3", stats.TotalTokens)
	}
}

func TestImageRequestBase64TextPart(t *testing.T) {
	payload := []byte("fake image bytes")
	encoded := base64.StdEncoding.EncodeToString(payload)
	gen := &stubGenerator{results: []stubResult{{resp: textResponse(encoded)}}}
	svc := newTestService(t, gen)

	data, err := svc.imageRequest(context.Background(), "prompt", nil)
	if err != nil {
		t.Fatalf("imageRequest: %v", err)
	}
	if string(data) != string(payload) {
		t.Fatalf("decoded data mismatch: %q", data)
	}
}

func TestImageRequestNoImageData(t *testing.T) {
	// Not valid base64, not a blob: nothing extractable.
	gen := &stubGenerator{results: []stubResult{{resp: textResponse("sorry, I cannot do that!")}}}
	svc := newTestService(t, gen)

	_, err := svc.imageRequest(context.Background(), "prompt", nil)
	if err == nil || !strings.Contains(err.Error(), "no image data found in AI response") {
		t.Fatalf("err = %v", err)
	}
}

func TestAnalyzeClothingCompatibility(t *testing.T) {
	gen := &stubGenerator{results: []stubResult{
		{resp: textResponse(`{"compatibility_score": 8, "color_harmony": 7, "style_coherence": 8, "occasion_appropriateness": 9, "overall_assessment": "solid", "strengths": ["fit"], "areas_for_improvement": []}`)},
	}}
	svc := newTestService(t, gen)

	analysis, err := svc.AnalyzeClothingCompatibility(context.Background(), []ItemInfo{{Name: "Blue Jeans", Category: "bottoms"}})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if analysis.CompatibilityScore != 8 || analysis.OverallAssessment != "solid" {
		t.Fatalf("analysis = %+v", analysis)
	}
}

func TestPromptsCarryItemAndContextDetails(t *testing.T) {
	items := []ItemInfo{
		{Name: "White Tee", Category: "tops", Brand: "Acme", Size: "M", Colors: []string{"white"}},
		{Category: "bottoms"},
	}

	p := buildTryOnPrompt(items, UserContext{"occasion": "wedding", "weather": "sunny"})
	for _, want := range []string{"- White Tee: tops, Acme, white, size M", "- Unknown item: bottoms", "Occasion: wedding", "Weather: sunny"} {
		if !strings.Contains(p, want) {
			t.Fatalf("try-on prompt missing %q:\n%s", want, p)
		}
	}

	ip := buildImageGenerationPrompt(items, UserContext{"style": "casual"})
	for _, want := range []string{"White Tee in white (tops)", "with casual styling", "Professional fashion photography"} {
		if !strings.Contains(ip, want) {
			t.Fatalf("image prompt missing %q:\n%s", want, ip)
		}
	}
}

package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/szonjajakab/ponpa/internal/platform/logger"
)

var (
	ErrUnavailable = errors.New("AI service is not available")
	ErrRateLimited = errors.New("rate limit exceeded, please try again later")
)

const (
	maxAttempts = 3
	// Budget assumed for the pre-flight rate-limit check when the real
	// token count is not yet known.
	defaultTokenEstimate = 100
)

type Config struct {
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int32
	RPM         int
	TPM         int
	Timeout     time.Duration
}

// generator is the one seam over the genai SDK. Production wires
// *genai.GenerativeModel; tests stub it with canned responses.
type generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

type Service interface {
	IsAvailable() bool
	Model() string
	RateLimits() (rpm, tpm int)
	UsageStats(window time.Duration) UsageStats

	GenerateTryOnDescription(ctx context.Context, items []ItemInfo, userContext UserContext) (string, error)
	AnalyzeClothingCompatibility(ctx context.Context, items []ItemInfo) (CompatibilityAnalysis, error)
	SuggestOutfitImprovements(ctx context.Context, items []ItemInfo, occasion, weather string) ([]string, error)
	GenerateOutfitWithImage(ctx context.Context, items []ItemInfo, userImage []byte) (string, error)
	GenerateTryOnImage(ctx context.Context, items []ItemInfo, userImage []byte, userContext UserContext) ([]byte, error)

	Close() error
}

type service struct {
	log     *logger.Logger
	cfg     Config
	client  *genai.Client
	gen     generator
	limiter *RateLimiter
	usage   *usageLog
	sleep   func(time.Duration)
}

// NewService builds the gateway. A missing API key is not an error: the
// service comes up unavailable and every call returns ErrUnavailable, so
// the rest of the app still runs.
func NewService(log *logger.Logger, cfg Config) (Service, error) {
	serviceLog := log.With("service", "GeminiService")
	svc := &service{
		log:     serviceLog,
		cfg:     cfg,
		limiter: NewRateLimiter(cfg.RPM, cfg.TPM),
		usage:   newUsageLog(),
		sleep:   time.Sleep,
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		serviceLog.Warn("Google AI API key not configured - AI features will be disabled")
		return svc, nil
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	model := client.GenerativeModel(cfg.Model)
	model.SetTemperature(cfg.Temperature)
	model.SetMaxOutputTokens(cfg.MaxTokens)
	model.SafetySettings = []*genai.SafetySetting{
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockMediumAndAbove},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockMediumAndAbove},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockMediumAndAbove},
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockMediumAndAbove},
	}

	svc.client = client
	svc.gen = model
	serviceLog.Info("Initialized Google Generative AI", "model", cfg.Model)
	return svc, nil
}

func (s *service) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

func (s *service) IsAvailable() bool {
	return s.gen != nil
}

func (s *service) Model() string {
	return s.cfg.Model
}

func (s *service) RateLimits() (int, int) {
	return s.cfg.RPM, s.cfg.TPM
}

func (s *service) UsageStats(window time.Duration) UsageStats {
	return s.usage.Stats(window)
}

func (s *service) GenerateTryOnDescription(ctx context.Context, items []ItemInfo, userContext UserContext) (string, error) {
	return s.textRequest(ctx, buildTryOnPrompt(items, userContext), nil)
}

func (s *service) AnalyzeClothingCompatibility(ctx context.Context, items []ItemInfo) (CompatibilityAnalysis, error) {
	response, err := s.textRequest(ctx, buildCompatibilityPrompt(items), nil)
	if err != nil {
		return CompatibilityAnalysis{}, err
	}
	return parseCompatibilityResponse(response), nil
}

func (s *service) SuggestOutfitImprovements(ctx context.Context, items []ItemInfo, occasion, weather string) ([]string, error) {
	response, err := s.textRequest(ctx, buildImprovementPrompt(items, occasion, weather), nil)
	if err != nil {
		return nil, err
	}
	return parseSuggestionsResponse(response), nil
}

func (s *service) GenerateOutfitWithImage(ctx context.Context, items []ItemInfo, userImage []byte) (string, error) {
	return s.textRequest(ctx, buildImageTryOnPrompt(items), userImage)
}

func (s *service) GenerateTryOnImage(ctx context.Context, items []ItemInfo, userImage []byte, userContext UserContext) ([]byte, error) {
	return s.imageRequest(ctx, buildImageGenerationPrompt(items, userContext), userImage)
}

// textRequest runs one logical text call: availability and rate-limit
// pre-flight, up to maxAttempts transport attempts with exponential
// backoff, rate-limit budget recorded only on success, and exactly one
// usage entry regardless of how many attempts were made.
func (s *service) textRequest(ctx context.Context, prompt string, image []byte) (string, error) {
	if !s.IsAvailable() {
		return "", ErrUnavailable
	}
	if !s.limiter.CanMakeRequest(defaultTokenEstimate) {
		return "", ErrRateLimited
	}

	start := time.Now()
	parts := buildParts(prompt, image)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := s.attemptText(ctx, parts)
		if err == nil {
			tokensUsed := wordCount(prompt) + wordCount(result)
			s.limiter.RecordRequest(tokensUsed)
			s.recordUsage(start, wordCount(prompt), tokensUsed, tokensUsed, true, "")
			return result, nil
		}
		lastErr = err
		s.log.Error("AI request failed", "attempt", attempt, "error", err)
		if !s.backoff(ctx, attempt) {
			break
		}
	}

	s.recordUsage(start, wordCount(prompt), 0, 0, false, lastErr.Error())
	return "", fmt.Errorf("ai request failed: %w", lastErr)
}

// imageRequest is textRequest's twin for calls whose payload is an image.
// Completion tokens are always zero; the prompt's word count is what gets
// charged against the token budget.
func (s *service) imageRequest(ctx context.Context, prompt string, userImage []byte) ([]byte, error) {
	if !s.IsAvailable() {
		return nil, ErrUnavailable
	}
	if !s.limiter.CanMakeRequest(defaultTokenEstimate) {
		return nil, ErrRateLimited
	}

	start := time.Now()
	parts := buildParts(prompt, userImage)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		data, err := s.attemptImage(ctx, parts)
		if err == nil {
			tokensUsed := wordCount(prompt)
			s.limiter.RecordRequest(tokensUsed)
			s.recordUsage(start, wordCount(prompt), 0, tokensUsed, true, "")
			return data, nil
		}
		lastErr = err
		s.log.Error("AI image request failed", "attempt", attempt, "error", err)
		if !s.backoff(ctx, attempt) {
			break
		}
	}

	s.recordUsage(start, wordCount(prompt), 0, 0, false, lastErr.Error())
	return nil, fmt.Errorf("ai image request failed: %w", lastErr)
}

func (s *service) attemptText(ctx context.Context, parts []genai.Part) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	resp, err := s.gen.GenerateContent(callCtx, parts...)
	if err != nil {
		return "", err
	}
	result := responseText(resp)
	if result == "" {
		return "", errors.New("empty response from AI service")
	}
	return result, nil
}

func (s *service) attemptImage(ctx context.Context, parts []genai.Part) ([]byte, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	resp, err := s.gen.GenerateContent(callCtx, parts...)
	if err != nil {
		return nil, err
	}
	return extractImageData(resp)
}

// backoff sleeps 1s, 2s, 4s... capped at 10s. Returns false once attempts
// are exhausted or the caller's context is done.
func (s *service) backoff(ctx context.Context, attempt int) bool {
	if attempt >= maxAttempts {
		return false
	}
	wait := time.Duration(1<<(attempt-1)) * time.Second
	if wait > 10*time.Second {
		wait = 10 * time.Second
	}
	select {
	case <-ctx.Done():
		return false
	default:
	}
	s.sleep(wait)
	return ctx.Err() == nil
}

func (s *service) recordUsage(start time.Time, promptTokens, completionTokens, totalTokens int, success bool, errMsg string) {
	s.usage.Record(Usage{
		Timestamp:        time.Now(),
		Model:            s.cfg.Model,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      totalTokens,
		RequestDuration:  time.Since(start).Seconds(),
		Success:          success,
		ErrorMessage:     errMsg,
	})
}

func buildParts(prompt string, image []byte) []genai.Part {
	parts := []genai.Part{genai.Text(prompt)}
	if len(image) > 0 {
		parts = append(parts, genai.ImageData(imageFormat(image), image))
	}
	return parts
}

func imageFormat(data []byte) string {
	switch http.DetectContentType(data) {
	case "image/jpeg":
		return "jpeg"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	default:
		return "png"
	}
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
	}
	return sb.String()
}

// extractImageData walks the response parts for image bytes. A Blob part
// wins outright; a Text part is tried as base64, since some preview models
// return the payload that way.
func extractImageData(resp *genai.GenerateContentResponse) ([]byte, error) {
	if resp != nil {
		for _, cand := range resp.Candidates {
			if cand == nil || cand.Content == nil {
				continue
			}
			for _, part := range cand.Content.Parts {
				switch p := part.(type) {
				case genai.Blob:
					if len(p.Data) > 0 {
						return p.Data, nil
					}
				case genai.Text:
					if decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(p))); err == nil && len(decoded) > 0 {
						return decoded, nil
					}
				}
			}
		}
	}
	return nil, errors.New("no image data found in AI response")
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}

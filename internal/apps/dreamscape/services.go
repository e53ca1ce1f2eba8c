package dreamscape

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/url"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/dreamscape-backend/internal/dream"
	"github.com/getsentry/sentry-go"
)

var (
	ErrMissingInput     = errors.New("missing dream or style")
	ErrMisconfigured    = errors.New("generation provider not configured")
	ErrGenerationFailed = errors.New("generation failed")
	ErrSharingDisabled  = errors.New("sharing is disabled for this app")
	ErrGalleryDisabled  = errors.New("gallery is disabled for this app")
	ErrEntryNotFound    = errors.New("entry not found")
	ErrInvalidDraft     = errors.New("invalid draft")
)

const disclaimerMarker = "Important Disclaimer:"

const disclaimerBody = disclaimerMarker + " This dream interpretation is provided for entertainment and self-reflection purposes only. " +
	"It is not a substitute for professional psychological, psychiatric, or medical advice, diagnosis, or treatment. " +
	"Dream interpretation is highly subjective, and the insights provided are potential avenues for exploration, not definitive facts. " +
	"If you are experiencing distress or have concerns about your mental health, please consult a qualified healthcare professional."

const disclaimer = "---\n\n" + disclaimerBody

const interpreterPreamble = `ROLE: You are "Oneiros", an empathetic and analytical dream interpreter.
You guide the dreamer through possible meanings rather than giving definitive answers.
Use exploratory language ("this could symbolize", "it might be worth considering").
The dreamer's own life is the final authority on what the dream means.

PROCESS:
1. Briefly summarize the dream.
2. Deconstruct it: primary symbols, characters and archetypes, setting, core emotions, plot.
3. Analyze it through at least three lenses, each under its own subheading:
   a. Psychological / cognitive
   b. Archetypal / Jungian
   c. Symbolic and metaphorical
4. Synthesize a "Potential Meanings" section.
5. Close with reflective questions that connect the dream to waking life.

FORMAT: Markdown with ### headings, #### subheadings, **bold** and bullet points.
Explain any technical term briefly. Ground interpretations in established theory.

End every response with this disclaimer, after a horizontal rule (---):

` + disclaimerBody

// TextGenerator produces the written interpretation.
type TextGenerator interface {
	GenerateText(ctx context.Context, model, prompt string, temperature float64) (string, error)
}

// ImageGenerator produces one image and returns it as a URL, normally a
// data: URI.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, model, prompt string, aspect dream.AspectRatio) (string, error)
}

// GenerateParams is a validated generation request.
type GenerateParams struct {
	Dream            string
	Style            string
	LengthPreference dream.LengthPreference
	Temperature      float64
	AspectRatio      dream.AspectRatio
	TextModel        string
	ImageModel       string
}

// VisualizeService turns a dream description into an interpretation and an
// illustration.
type VisualizeService struct {
	text       TextGenerator
	image      ImageGenerator
	textModel  string
	imageModel string
	timeout    time.Duration
	sig        func() int
}

// NewVisualizeService creates a VisualizeService. A nil text generator means
// the provider is not configured and every call fails with ErrMisconfigured.
func NewVisualizeService(text TextGenerator, image ImageGenerator, textModel, imageModel string, timeout time.Duration) *VisualizeService {
	return &VisualizeService{
		text:       text,
		image:      image,
		textModel:  textModel,
		imageModel: imageModel,
		timeout:    timeout,
		sig:        func() int { return rand.IntN(1_000_000_000) },
	}
}

// Enabled reports whether a provider is configured.
func (s *VisualizeService) Enabled() bool {
	return s.text != nil
}

// Params validates req and applies defaults. Only missing or empty dream and
// style are rejected and the dream text is passed through whole. Unknown enum
// values fall back to their defaults, matching what the client would have sent.
func (s *VisualizeService) Params(req VisualizeRequest) (GenerateParams, error) {
	if req.Dream == "" || req.Style == "" {
		return GenerateParams{}, ErrMissingInput
	}

	p := GenerateParams{
		Dream:            req.Dream,
		Style:            req.Style,
		LengthPreference: dream.DefaultLengthPreference,
		Temperature:      dream.DefaultTemperature,
		AspectRatio:      dream.DefaultAspectRatio,
		TextModel:        s.textModel,
		ImageModel:       s.imageModel,
	}
	if req.LengthPreference != nil && req.LengthPreference.Valid() {
		p.LengthPreference = *req.LengthPreference
	}
	if req.Temperature != nil {
		p.Temperature = dream.ClampTemperature(*req.Temperature)
	}
	if req.AspectRatio != nil && req.AspectRatio.Valid() {
		p.AspectRatio = *req.AspectRatio
	}
	return p, nil
}

// Generate runs the text model, then the image model. Text failures fail the
// call; image failures fall back to a stock photo URL.
func (s *VisualizeService) Generate(ctx context.Context, p GenerateParams) (dream.GenerationResult, error) {
	if s.text == nil {
		return dream.GenerationResult{}, ErrMisconfigured
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	analysis, err := s.text.GenerateText(ctx, p.TextModel, interpretationPrompt(p), p.Temperature)
	if err != nil {
		slog.Error("dream interpretation failed",
			"action", "visualize",
			"error", err.Error(),
			"model", p.TextModel,
			"latency_ms", time.Since(start).Milliseconds(),
		)
		sentry.CaptureException(err)
		return dream.GenerationResult{}, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	analysis = ensureDisclaimer(analysis)

	imageURL := ""
	if s.image != nil {
		imageURL, err = s.image.GenerateImage(ctx, p.ImageModel, illustrationPrompt(p), p.AspectRatio)
		if err != nil {
			slog.Warn("image generation failed, using stock photo", "error", err, "model", p.ImageModel)
			imageURL = ""
		}
	}
	if imageURL == "" {
		imageURL = stockImageURL(p.Style, p.Dream, p.AspectRatio, s.sig())
	}

	slog.Info("dream visualized",
		"style", p.Style,
		"length", string(p.LengthPreference),
		"aspect_ratio", string(p.AspectRatio),
		"inline_image", dream.IsInlineImage(imageURL),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return dream.GenerationResult{ImageURL: imageURL, AnalysisText: analysis}, nil
}

func targetLength(l dream.LengthPreference) string {
	switch l {
	case dream.LengthShort:
		return "80-120 words"
	case dream.LengthLong:
		return "280-400 words"
	default:
		return "150-220 words"
	}
}

func interpretationPrompt(p GenerateParams) string {
	var b strings.Builder
	b.WriteString(interpreterPreamble)
	b.WriteString("\n\nLENGTH: aim for ")
	b.WriteString(targetLength(p.LengthPreference))
	b.WriteString(" before the disclaimer.")
	b.WriteString("\n\nDream description:\n\"\"\"\n")
	b.WriteString(p.Dream)
	b.WriteString("\n\"\"\"")
	return b.String()
}

func illustrationPrompt(p GenerateParams) string {
	return fmt.Sprintf("Create a single detailed illustration in the style of %s. "+
		"The illustration should visualize this dream: %s. "+
		"Render with cinematic composition, cohesive palette, evocative atmosphere, and high fidelity.",
		p.Style, p.Dream)
}

func ensureDisclaimer(text string) string {
	if strings.Contains(text, disclaimerMarker) {
		return text
	}
	return text + "\n\n" + disclaimer
}

func stockImageDims(a dream.AspectRatio) string {
	switch a {
	case dream.AspectSquare:
		return "1200x1200"
	case dream.AspectPortrait:
		return "900x1600"
	default:
		return "1600x900"
	}
}

func stockImageURL(style, dreamText string, aspect dream.AspectRatio, sig int) string {
	query := fmt.Sprintf("%s dream surreal fantasy %s", style, dream.TruncateRunes(dreamText, 32))
	return fmt.Sprintf("https://source.unsplash.com/%s/?%s&sig=%d",
		stockImageDims(aspect), strings.ReplaceAll(url.QueryEscape(query), "+", "%20"), sig)
}

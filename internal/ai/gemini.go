package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiProvider implements BriefProvider using Google's Gemini models.
type GeminiProvider struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGeminiProvider initializes a new Gemini client.
// apiKey should be provided from environment variables.
func NewGeminiProvider(ctx context.Context, apiKey string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	// Use Gemini 2.0 Flash for low latency and cost efficiency.
	model := client.GenerativeModel("gemini-2.0-flash")

	// Plain text out; the brief is rendered verbatim to the approver.
	model.ResponseMIMEType = "text/plain"
	model.SetTemperature(0.3)

	return &GeminiProvider{
		client: client,
		model:  model,
	}, nil
}

// Close cleans up the Gemini client resources.
func (p *GeminiProvider) Close() {
	p.client.Close()
}

// TripBrief renders the input into a prompt and returns the model's summary.
func (p *GeminiProvider) TripBrief(ctx context.Context, input BriefInput) (string, error) {
	prompt := buildBriefPrompt(input)

	resp, err := p.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generation error: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("no response candidates from Gemini")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			text.WriteString(string(txt))
		}
	}

	brief := strings.TrimSpace(text.String())
	if brief == "" {
		return "", fmt.Errorf("empty brief from Gemini")
	}
	return brief, nil
}

func buildBriefPrompt(in BriefInput) string {
	var b strings.Builder
	b.WriteString(`Role: You are the dispatch assistant for a long-haul trucking fleet.
Write a brief for the supervisor who is about to approve or reject a trip request.

RULES:
- At most 4 short sentences, plain text, no markdown, no headings.
- Lead with the open request and what approving it would do.
- Mention anything unusual in the recent events (rejections, cancellations).
- Do not invent facts; only use the data below.

TRIP:
`)
	fmt.Fprintf(&b, "- Route: %s -> %s\n", in.Origin, in.Destination)
	fmt.Fprintf(&b, "- Scheduled: %s\n", in.ScheduledAt)
	fmt.Fprintf(&b, "- Status: %s\n", in.Status)
	fmt.Fprintf(&b, "- Driver: %s, vehicle %s\n", in.DriverName, in.VehiclePlate)
	if in.TravelEstimate != "" {
		fmt.Fprintf(&b, "- Travel estimate: %s\n", in.TravelEstimate)
	}
	if in.OpenRequest != "" {
		fmt.Fprintf(&b, "- Open request: %s\n", in.OpenRequest)
	}
	if len(in.RecentEvents) > 0 {
		b.WriteString("- Recent events:\n")
		for _, ev := range in.RecentEvents {
			fmt.Fprintf(&b, "  - %s\n", ev)
		}
	}
	return b.String()
}

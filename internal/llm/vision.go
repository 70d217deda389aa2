package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/skim-ai/cli/internal/models"
)

const classifyPrompt = `Classify this image into ONE of these categories:

1. flowchart - Process flows, decision trees, workflow diagrams
2. bar_chart - Bar graphs showing comparisons
3. line_chart - Line graphs showing trends
4. pie_chart - Pie or donut charts
5. table - Structured data in rows and columns
6. diagram - Technical diagrams, architecture, illustrations
7. other - Screenshots, photos, or unclear images

Respond with ONLY the category name, nothing else.`

const barChartPrompt = `Extract ALL data from this bar chart in this exact format:

Title: [chart title]
X-axis: [what it represents]
Y-axis: [what it represents]

Data points (list ALL bars with their exact values):
- Category1: Value1
- Category2: Value2
...

Key insight: [What comparison or trend does this show?]

Be precise with numbers and include ALL categories shown.`

const lineChartPrompt = `Extract data from this line chart:

Title: [chart title]
X-axis: [time period or categories]
Y-axis: [metric]

Data trend: [describe the trend with key values]
Key points: [notable peaks, valleys, or changes]`

const flowchartPrompt = `Extract the complete process flow:

Title/Purpose: [what process this shows]

Steps (in order):
1. [First step]
2. [Second step]
...

Decision points: [list any decision branches]
Key outcomes: [final states or results]`

const pieChartPrompt = `Extract pie chart data:

Title: [chart title]
Total: [if shown]

Segments (with percentages if visible):
- Segment1: X%
- Segment2: Y%
...

Key insight: [what distribution or comparison this shows]`

const genericVisualPrompt = `Describe this visual element:

Type: [table/diagram/other]
Purpose: [what information it conveys]
Key information: [main data points or concepts]
Structure: [how information is organized]`

// Vision classifies embedded document images and extracts structured
// descriptions from them using a vision-capable chat model.
type Vision struct {
	client *Client
	model  string
}

// NewVision creates a vision extractor using the given model.
func NewVision(client *Client, model string) *Vision {
	if model == "" {
		model = "llava"
	}
	return &Vision{client: client, model: model}
}

// Classify returns the visual type of a PNG-encoded image. Labels outside
// the known set normalize to ContentOther.
func (v *Vision) Classify(ctx context.Context, png []byte) (models.ContentType, error) {
	label, err := v.client.Chat(ctx, &ChatRequest{
		Model: v.model,
		Messages: []ChatMessage{
			{
				Role:    "user",
				Content: classifyPrompt,
				Images:  []string{base64.StdEncoding.EncodeToString(png)},
			},
		},
		Options: map[string]any{"temperature": 0},
	})
	if err != nil {
		return "", fmt.Errorf("failed to classify image: %w", err)
	}

	return normalizeLabel(label), nil
}

// Describe extracts a structured textual description of a PNG-encoded image
// using the prompt template for the detected visual type.
func (v *Vision) Describe(ctx context.Context, png []byte, visualType models.ContentType) (string, error) {
	var prompt string
	switch visualType {
	case models.ContentBarChart:
		prompt = barChartPrompt
	case models.ContentLineChart:
		prompt = lineChartPrompt
	case models.ContentFlowchart:
		prompt = flowchartPrompt
	case models.ContentPieChart:
		prompt = pieChartPrompt
	default: // table, diagram, other
		prompt = genericVisualPrompt
	}

	description, err := v.client.Chat(ctx, &ChatRequest{
		Model: v.model,
		Messages: []ChatMessage{
			{
				Role:    "user",
				Content: prompt,
				Images:  []string{base64.StdEncoding.EncodeToString(png)},
			},
		},
		Options: map[string]any{"temperature": 0},
	})
	if err != nil {
		return "", fmt.Errorf("failed to extract visual data: %w", err)
	}

	return description, nil
}

// normalizeLabel maps a raw model response onto the enumerated visual types.
func normalizeLabel(label string) models.ContentType {
	cleaned := strings.ToLower(strings.TrimSpace(label))
	cleaned = strings.Trim(cleaned, ".\"'`")
	// Some models answer "bar chart" instead of "bar_chart".
	cleaned = strings.ReplaceAll(cleaned, " ", "_")

	ct := models.ContentType(cleaned)
	if models.VisualTypes[ct] {
		return ct
	}
	return models.ContentOther
}

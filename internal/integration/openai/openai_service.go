// Package openai assesses dengue risk with an OpenAI chat model
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"

	"github.com/abelzeko/dengue-watch/internal/entities"
	"github.com/abelzeko/dengue-watch/internal/prediction"
)

// Source names predictions produced by this assessor
const Source = "openai"

// AgentResponse defines the structured output of the model
type AgentResponse struct {
	RiskLevel  string  `json:"risk_level" jsonschema:"enum=Low,enum=Medium,enum=High" jsonschema_description:"Dengue outbreak risk for the area"`
	Confidence float64 `json:"confidence" jsonschema_description:"Confidence in the risk level between 0 and 1"`
	Rationale  string  `json:"rationale" jsonschema_description:"One sentence explaining the assessment"`
}

// RiskAssessor implements prediction.Predictor on top of the chat completions API
type RiskAssessor struct {
	client openai.Client
	schema interface{}
	logger *zap.SugaredLogger
}

// GenerateSchema generates a JSON schema for a given type.
func GenerateSchema[T any]() interface{} {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	schema := reflector.Reflect(v)
	return schema
}

// NewRiskAssessor creates an assessor for the given API key. Extra options,
// such as a base URL, are passed to the client
func NewRiskAssessor(apiKey string, logger *zap.SugaredLogger, opts ...option.RequestOption) (*RiskAssessor, error) {
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY is not set")
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)

	return &RiskAssessor{
		client: openai.NewClient(opts...),
		schema: GenerateSchema[AgentResponse](),
		logger: logger,
	}, nil
}

const systemPrompt = `You are an epidemiologist assessing dengue outbreak risk in Lahore, Pakistan.
You receive environmental readings for one neighbourhood: rainfall (mm), temperature (°C),
relative humidity (%) and vegetation index (NDVI, -1 to 1).

Stagnant water after rainfall, temperatures between 25 and 35 °C, humidity above 60% and dense
vegetation all favor Aedes mosquito breeding.

Classify the risk as exactly one of: Low, Medium, High.
Output **strictly** in JSON.`

// Assess asks the model for a risk level
func (a *RiskAssessor) Assess(ctx context.Context, reading entities.EnvironmentalReading) (prediction.Assessment, error) {
	userMessage := fmt.Sprintf("Neighbourhood: %s, Lahore\nRainfall: %.1f mm\nTemperature: %.1f °C\nHumidity: %.1f%%\nVegetation index: %.2f",
		reading.Location, reading.Rainfall, reading.Temperature, reading.Humidity, reading.Vegetation)

	schemaParam := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:        "risk_assessment",
		Description: openai.String("Dengue risk level with confidence"),
		Schema:      a.schema,
		Strict:      openai.Bool(true),
	}

	respFormat := openai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{JSONSchema: schemaParam},
	}

	chat, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userMessage),
		},
		ResponseFormat: respFormat,
		Model:          openai.ChatModelGPT4o,
	})
	if err != nil {
		return prediction.Assessment{}, fmt.Errorf("error calling OpenAI API: %w", err)
	}

	if len(chat.Choices) == 0 || chat.Choices[0].Message.Content == "" {
		return prediction.Assessment{}, errors.New("received empty response from OpenAI")
	}

	return a.decode(chat.Choices[0].Message.Content)
}

func (a *RiskAssessor) decode(content string) (prediction.Assessment, error) {
	var resp AgentResponse
	if err := json.Unmarshal([]byte(content), &resp); err != nil {
		a.logger.Warnf("Failed to unmarshal OpenAI response: %s, raw response: %s", err, content)
		return prediction.Assessment{}, fmt.Errorf("error unmarshalling OpenAI response: %w", err)
	}

	for _, level := range entities.RiskLevels {
		if string(level) == resp.RiskLevel {
			score := resp.Confidence
			if score < 0 {
				score = 0
			}
			if score > 1 {
				score = 1
			}
			a.logger.Debugf("OpenAI assessed %s: %s", level, resp.Rationale)
			return prediction.Assessment{Level: level, Score: score, Source: Source}, nil
		}
	}
	return prediction.Assessment{}, fmt.Errorf("OpenAI returned unknown risk level %q", resp.RiskLevel)
}

var _ prediction.Predictor = (*RiskAssessor)(nil)

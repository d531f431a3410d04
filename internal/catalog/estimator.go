package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/myrjola/burnplan/internal/workout"
)

// Estimator supplies a MET value for catalog records that lack one.
type Estimator interface {
	EstimateMET(ctx context.Context, ex workout.Exercise) (float64, error)
}

// TableEstimator assigns a typical MET per body area. It never fails.
type TableEstimator struct{}

//nolint:gochecknoglobals // read-only lookup table.
var metByArea = map[workout.BodyArea]float64{
	workout.AreaCardio:   7,
	workout.AreaFullBody: 6,
	workout.AreaLower:    5,
	workout.AreaUpper:    4,
	workout.AreaCore:     3.8,
}

const defaultMET = 4.0

func (TableEstimator) EstimateMET(_ context.Context, ex workout.Exercise) (float64, error) {
	if met, ok := metByArea[ex.Area]; ok {
		return met, nil
	}
	return defaultMET, nil
}

// Chain tries each estimator in order and returns the first positive estimate.
type Chain struct {
	estimators []Estimator
	logger     *slog.Logger
}

func NewChain(logger *slog.Logger, estimators ...Estimator) *Chain {
	return &Chain{estimators: estimators, logger: logger}
}

func (c *Chain) EstimateMET(ctx context.Context, ex workout.Exercise) (float64, error) {
	var errs []error
	for _, e := range c.estimators {
		met, err := e.EstimateMET(ctx, ex)
		if err == nil && met > 0 {
			return met, nil
		}
		if err == nil {
			err = fmt.Errorf("non-positive estimate %v", met) //nolint:err113 // collected below.
		}
		c.logger.LogAttrs(ctx, slog.LevelWarn, "MET estimate failed, trying next estimator",
			slog.String("exercise", ex.Name), slog.String("error", err.Error()))
		errs = append(errs, err)
	}
	return 0, fmt.Errorf("estimate MET of %s: %w", ex.Name, errors.Join(errs...))
}

// OpenAIEstimator asks a chat model for a compendium MET value.
type OpenAIEstimator struct {
	client openai.Client
	model  openai.ChatModel
	logger *slog.Logger
}

// NewOpenAIEstimator creates an estimator. Extra options, such as a base URL, are passed to the client.
func NewOpenAIEstimator(apiKey string, logger *slog.Logger, opts ...option.RequestOption) *OpenAIEstimator {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &OpenAIEstimator{
		client: openai.NewClient(opts...),
		model:  openai.ChatModelGPT4oMini,
		logger: logger,
	}
}

const metPrompt = `You estimate metabolic equivalent (MET) values from the Compendium of Physical Activities.
Answer with a single decimal number between 1 and 20 and nothing else.`

func (e *OpenAIEstimator) EstimateMET(ctx context.Context, ex workout.Exercise) (float64, error) {
	question := fmt.Sprintf("Exercise: %s\nBody area: %s\nEquipment: %s\nPerformed as: %s",
		ex.Name, ex.Area, ex.Equipment, ex.Kind)

	completion, err := e.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{ //nolint:exhaustruct // defaults.
		Model: e.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(metPrompt),
			openai.UserMessage(question),
		},
		Temperature: openai.Float(0),
	})
	if err != nil {
		return 0, fmt.Errorf("chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return 0, errors.New("chat completion without choices") //nolint:err113 // unexpected response.
	}

	answer := strings.TrimSpace(completion.Choices[0].Message.Content)
	met, err := strconv.ParseFloat(answer, 64)
	if err != nil {
		return 0, fmt.Errorf("parse MET answer %q: %w", answer, err)
	}
	if met < 1 || met > 20 {
		return 0, fmt.Errorf("MET answer %v out of range", met) //nolint:err113 // unexpected response.
	}

	e.logger.LogAttrs(ctx, slog.LevelDebug, "estimated MET",
		slog.String("exercise", ex.Name),
		slog.Float64("met", met),
		slog.Int64("total_tokens", completion.Usage.TotalTokens))
	return met, nil
}

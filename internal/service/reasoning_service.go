package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/AndressToscanom30/AprendizajeAdaptativo-sub001/internal/config"
	"github.com/AndressToscanom30/AprendizajeAdaptativo-sub001/internal/model"
	"github.com/AndressToscanom30/AprendizajeAdaptativo-sub001/internal/util"
	"github.com/AndressToscanom30/AprendizajeAdaptativo-sub001/pkg/monitoring"
)

// QuestionSummary is the per-question line of the structured summary sent
// to the reasoning service. No free text is interpreted on the way back.
type QuestionSummary struct {
	QuestionID uint   `json:"questionId"`
	Type       string `json:"type"`
	Category   string `json:"category"`
	Difficulty string `json:"difficulty"`
	Content    string `json:"content"`
	Correct    *bool  `json:"correct"`
	Points     *int   `json:"points"`
	MaxPoints  int    `json:"maxPoints"`
}

type AnalysisRequest struct {
	AssessmentTitle string            `json:"assessmentTitle"`
	TotalScore      int               `json:"totalScore"`
	MaxScore        int               `json:"maxScore"`
	Questions       []QuestionSummary `json:"questions"`
}

// AnalysisPayload is the typed analysis result. Validated at the boundary;
// the rest of the system never sees raw model output.
type AnalysisPayload struct {
	GlobalScore        int                  `json:"globalScore"`
	Percentage         float64              `json:"percentage"`
	CategoryBreakdown  []model.CategoryStat `json:"categoryBreakdown"`
	Strengths          []string             `json:"strengths"`
	Weaknesses         []string             `json:"weaknesses"`
	Recommendations    []string             `json:"recommendations"`
	SuggestedStudyTime string               `json:"suggestedStudyTime"`
}

type GenerationRequest struct {
	Topic          string   `json:"topic"`
	Level          string   `json:"level"`
	Position       int      `json:"position"`
	AvoidRepeating []string `json:"avoidRepeating,omitempty"`
}

// GeneratedQuestion is the typed generated-question payload.
type GeneratedQuestion struct {
	Content       string                  `json:"content"`
	Options       []model.GeneratedOption `json:"options,omitempty"`
	CorrectAnswer string                  `json:"correctAnswer"`
	Difficulty    string                  `json:"difficulty"`
	Explanation   string                  `json:"explanation"`
}

// ReasoningClient is the external reasoning collaborator: opaque calls in,
// typed payloads or typed errors out.
type ReasoningClient interface {
	AnalyzePerformance(ctx context.Context, req AnalysisRequest) (*AnalysisPayload, error)
	GenerateQuestion(ctx context.Context, req GenerationRequest) (*GeneratedQuestion, error)
}

// AIService talks to an OpenAI-compatible chat-completions endpoint.
type AIService struct {
	config config.AIConfig
	client *http.Client
}

func NewAIService(cfg config.AIConfig) *AIService {
	return &AIService{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type aiChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []aiChatMessage `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message aiChatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

const analysisSystemPrompt = `Eres un tutor experto en aprendizaje adaptativo. ` +
	`Recibes el resumen estructurado de un intento de evaluación y devuelves ` +
	`únicamente un objeto JSON con las claves: globalScore (entero), percentage ` +
	`(número), categoryBreakdown (lista de {category, correct, total, accuracy}), ` +
	`strengths (lista de textos), weaknesses (lista de textos), recommendations ` +
	`(lista de textos) y suggestedStudyTime (texto, p. ej. "5 horas por semana"). ` +
	`No incluyas ningún texto fuera del JSON.`

const generationSystemPrompt = `Eres un generador de preguntas para un tutor ` +
	`adaptativo. Devuelves únicamente un objeto JSON con las claves: content ` +
	`(enunciado), options (lista de {id, text} con ids "a".."d", vacía si la ` +
	`pregunta es abierta), correctAnswer (id de la opción correcta o la respuesta ` +
	`canónica), difficulty y explanation. No incluyas ningún texto fuera del JSON.`

func (s *AIService) AnalyzePerformance(ctx context.Context, req AnalysisRequest) (*AnalysisPayload, error) {
	summary, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	prompt := fmt.Sprintf("Resultados del intento:\n%s", summary)

	var payload AnalysisPayload
	if err := s.completeJSON(ctx, "analysis", analysisSystemPrompt, prompt, &payload); err != nil {
		return nil, err
	}

	if payload.Percentage < 0 || payload.Percentage > 100 {
		return nil, fmt.Errorf("%w: percentage out of range", util.ErrReasoningService)
	}
	return &payload, nil
}

func (s *AIService) GenerateQuestion(ctx context.Context, req GenerationRequest) (*GeneratedQuestion, error) {
	spec, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	prompt := fmt.Sprintf("Genera la pregunta número %d sobre el tema %q con dificultad %q.\nParámetros:\n%s",
		req.Position, req.Topic, req.Level, spec)

	var payload GeneratedQuestion
	if err := s.completeJSON(ctx, "generation", generationSystemPrompt, prompt, &payload); err != nil {
		return nil, err
	}

	if payload.Content == "" || payload.CorrectAnswer == "" {
		return nil, fmt.Errorf("%w: incomplete generated question", util.ErrReasoningService)
	}
	if payload.Difficulty == "" {
		payload.Difficulty = req.Level
	}
	return &payload, nil
}

// transientError marks a failure worth retrying: network errors and
// overload-class statuses. Everything else fails the call on the first
// attempt.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

func transient(err error) error {
	return &transientError{err: err}
}

// completeJSON performs the chat-completions call with bounded retries and
// decodes the single JSON object the model was instructed to return. Only
// transient failures are retried; a rejected request or a malformed payload
// would fail identically on every attempt.
func (s *AIService) completeJSON(ctx context.Context, kind, system, prompt string, out interface{}) error {
	var lastErr error

	for attempt := 0; attempt <= s.config.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := s.config.InitialWait * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", util.ErrReasoningService, ctx.Err())
			case <-time.After(wait):
			}
		}

		err := s.completeOnce(ctx, system, prompt, out)
		if err == nil {
			monitoring.ReasoningCalls.WithLabelValues(kind, "ok").Inc()
			return nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		var te *transientError
		if !errors.As(err, &te) {
			break
		}
	}

	monitoring.ReasoningCalls.WithLabelValues(kind, "error").Inc()
	return lastErr
}

func (s *AIService) completeOnce(ctx context.Context, system, prompt string, out interface{}) error {
	reqBody := chatCompletionRequest{
		Model: s.config.Model,
		Messages: []aiChatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.config.BaseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.config.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return transient(fmt.Errorf("%w: %v", util.ErrReasoningService, err))
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		statusErr := fmt.Errorf("%w: status %d: %s", util.ErrReasoningService, resp.StatusCode, string(body))
		if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
			return transient(statusErr)
		}
		return statusErr
	}

	var result chatCompletionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("%w: %v", util.ErrReasoningService, err)
	}
	if result.Error != nil {
		return fmt.Errorf("%w: %s", util.ErrReasoningService, result.Error.Message)
	}
	if len(result.Choices) == 0 {
		return fmt.Errorf("%w: no choices returned", util.ErrReasoningService)
	}

	if err := json.Unmarshal([]byte(result.Choices[0].Message.Content), out); err != nil {
		return fmt.Errorf("%w: malformed payload: %v", util.ErrReasoningService, err)
	}
	return nil
}

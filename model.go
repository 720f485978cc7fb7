package ecochat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/flarexio/ecochat/vector"
)

var (
	ErrMissingCredential    = errors.New("missing API credential")
	ErrInvalidSessionID     = errors.New("invalid session ID")
	ErrSessionAlreadyExists = errors.New("session already exists")
	ErrSessionNotFound      = errors.New("session not found")
	ErrNoActiveChat         = errors.New("no active chat for session")
	ErrInvalidConfig        = errors.New("invalid generation config")
	ErrVectorDBNotSet       = errors.New("vector database not set")
	ErrEmptyMessage         = errors.New("empty message")
)

type Config struct {
	Model          ModelConfig      `yaml:"model"`
	Vector         vector.Config    `yaml:"vector"`
	Generation     GenerationConfig `yaml:"generation"`
	PromptTemplate string           `yaml:"promptTemplate"`
	TopK           int              `yaml:"topK"`
	SessionTTL     Duration         `yaml:"sessionTTL"`
	RequestTimeout Duration         `yaml:"requestTimeout"`
}

type ModelConfig struct {
	Name           string `yaml:"name"`
	EmbeddingModel string `yaml:"embeddingModel"`
	MaxRetries     int    `yaml:"maxRetries"`
}

// GenerationConfig holds the sampling parameters for the generative model.
// It is replaced wholesale on every settings update, never merged.
type GenerationConfig struct {
	Temperature     float32 `json:"temperature" yaml:"temperature"`
	TopP            float32 `json:"top_p" yaml:"topP"`
	TopK            int32   `json:"top_k" yaml:"topK"`
	MaxOutputTokens int32   `json:"max_output_tokens" yaml:"maxOutputTokens"`
}

func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		Temperature:     0.9,
		TopP:            0.9,
		TopK:            50,
		MaxOutputTokens: 128,
	}
}

func (config GenerationConfig) Validate() error {
	if config.Temperature < 0 || config.Temperature > 1 {
		return fmt.Errorf("%w: temperature %v not in [0,1]", ErrInvalidConfig, config.Temperature)
	}

	if config.TopP < 0 || config.TopP > 1 {
		return fmt.Errorf("%w: top_p %v not in [0,1]", ErrInvalidConfig, config.TopP)
	}

	if config.TopK < 0 || config.TopK > 100 {
		return fmt.Errorf("%w: top_k %d not in [0,100]", ErrInvalidConfig, config.TopK)
	}

	if config.MaxOutputTokens < 0 || config.MaxOutputTokens > 1024 {
		return fmt.Errorf("%w: max_output_tokens %d not in [0,1024]", ErrInvalidConfig, config.MaxOutputTokens)
	}

	return nil
}

const (
	RoleUser  string = "user"
	RoleModel string = "model"
)

// Message is one turn of a chat history.
type Message struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Chat is a stateful handle to an ongoing conversation with the hosted model.
// Send appends both the prompt and the reply to the handle's history.
type Chat interface {
	Send(ctx context.Context, prompt string) (string, error)
	History() []Message
}

// ChatProvider creates chat handles bound to a generation config. Handing the
// previous handle's history to NewChat carries the conversation forward under
// the new config.
type ChatProvider interface {
	NewChat(ctx context.Context, config GenerationConfig, history []Message) (Chat, error)
}

// Embedder turns a batch of texts into one vector per text, order-preserving.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbeddingFunc adapts a batch Embedder to the single-text shape the vector
// store expects for query embedding.
func EmbeddingFunc(embedder Embedder) vector.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		vectors, err := embedder.Embed(ctx, []string{text})
		if err != nil {
			return nil, err
		}

		if len(vectors) != 1 {
			return nil, fmt.Errorf("expected 1 embedding, got %d", len(vectors))
		}

		return vectors[0], nil
	}
}

// Session is the per-conversation state. The mutex serializes handlers on the
// same session; two sessions never contend.
type Session struct {
	ID         string
	Collection vector.Collection

	mu     sync.Mutex
	config GenerationConfig
	chat   Chat

	heartbeat atomic.Int64
}

func (s *Session) Touch() {
	s.heartbeat.Store(time.Now().UnixNano())
}

func (s *Session) IsIdle(ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}

	lastBeat := time.Unix(0, s.heartbeat.Load())
	return time.Since(lastBeat) > ttl
}

type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d Duration) MarshalJSON() ([]byte, error) {
	str := d.Duration().String()
	return json.Marshal(str)
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	// Parse the string duration
	duration, err := time.ParseDuration(str)
	if err != nil {
		return err
	}

	*d = Duration(duration)
	return nil
}

func (d Duration) MarshalYAML() ([]byte, error) {
	str := d.Duration().String()
	return yaml.Marshal(str)
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var str string
	if err := value.Decode(&str); err != nil {
		return err
	}

	// Parse the string duration
	duration, err := time.ParseDuration(str)
	if err != nil {
		return err
	}

	*d = Duration(duration)
	return nil
}

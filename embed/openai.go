package embed

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/viant/quotevec/vector"
	"golang.org/x/time/rate"
)

// OpenAIConfig configures an OpenAI-compatible embeddings client. BaseURL
// points it at other servers speaking the same API (Ollama, vLLM, TEI).
type OpenAIConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	Dimension int
	BatchSize int
	// SendDimensions asks the endpoint to truncate to Dimension. Only some
	// models support it.
	SendDimensions bool
	// RequestsPerSecond throttles calls to the endpoint; 0 disables it.
	RequestsPerSecond float64
	Timeout           time.Duration
}

// OpenAIEmbedder calls an OpenAI-compatible /embeddings endpoint.
type OpenAIEmbedder struct {
	Lifecycle
	cfg     OpenAIConfig
	client  *openai.Client
	limiter *rate.Limiter
}

// NewOpenAIEmbedder validates cfg and returns an unbooted embedder. No
// network traffic happens until Boot.
func NewOpenAIEmbedder(cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("embed: openai model is required")
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("embed: invalid dimension %d", cfg.Dimension)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	e := &OpenAIEmbedder{cfg: cfg}
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		e.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return e, nil
}

// Boot builds the client and probes the endpoint once, checking that it
// returns vectors of the configured width.
func (e *OpenAIEmbedder) Boot(ctx context.Context) error {
	clientCfg := openai.DefaultConfig(e.cfg.APIKey)
	if e.cfg.BaseURL != "" {
		clientCfg.BaseURL = e.cfg.BaseURL
	}
	clientCfg.HTTPClient = &http.Client{Timeout: e.cfg.Timeout}
	e.client = openai.NewClientWithConfig(clientCfg)

	vecs, err := e.request(ctx, []string{"ping"})
	if err != nil {
		return err
	}
	if got := len(vecs[0]); got != e.cfg.Dimension {
		return fmt.Errorf("embed: model %s returns width %d: %w",
			e.cfg.Model, got, &vector.DimensionError{Index: -1, Want: e.cfg.Dimension, Got: got})
	}
	e.MarkReady()
	return nil
}

// Close implements Embedder.
func (e *OpenAIEmbedder) Close() error {
	e.MarkClosed()
	return nil
}

// Embed implements Embedder. Texts are sent in chunks of BatchSizeHint.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := e.Check(); err != nil {
		return nil, err
	}
	if err := ValidateTexts(texts); err != nil {
		return nil, err
	}
	out := make([][]float32, 0, len(texts))
	for _, batch := range Batches(texts, e.cfg.BatchSize) {
		vecs, err := e.request(ctx, batch)
		if err != nil {
			return nil, err
		}
		for _, v := range vecs {
			if len(v) != e.cfg.Dimension {
				return nil, &BackendError{Model: e.cfg.Model, Err: &vector.DimensionError{Index: len(out), Want: e.cfg.Dimension, Got: len(v)}}
			}
			out = append(out, v)
		}
	}
	return out, nil
}

func (e *OpenAIEmbedder) request(ctx context.Context, texts []string) ([][]float32, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	req := openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(e.cfg.Model),
	}
	if e.cfg.SendDimensions {
		req.Dimensions = e.cfg.Dimension
	}
	resp, err := e.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, &BackendError{Model: e.cfg.Model, Err: err}
	}
	if len(resp.Data) != len(texts) {
		return nil, &BackendError{Model: e.cfg.Model, Err: fmt.Errorf("got %d embeddings for %d inputs", len(resp.Data), len(texts))}
	}
	data := resp.Data
	sort.SliceStable(data, func(i, j int) bool { return data[i].Index < data[j].Index })
	out := make([][]float32, len(data))
	for i, d := range data {
		out[i] = d.Embedding
	}
	return out, nil
}

// Dimension implements Embedder.
func (e *OpenAIEmbedder) Dimension() int { return e.cfg.Dimension }

// Model implements Embedder.
func (e *OpenAIEmbedder) Model() string { return e.cfg.Model }

// BatchSizeHint implements Embedder.
func (e *OpenAIEmbedder) BatchSizeHint() int { return e.cfg.BatchSize }

// Device implements Embedder.
func (e *OpenAIEmbedder) Device() string {
	if e.cfg.BaseURL != "" {
		return "remote:" + e.cfg.BaseURL
	}
	return "remote:api.openai.com"
}

var _ Embedder = (*OpenAIEmbedder)(nil)

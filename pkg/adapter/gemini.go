package adapter

import (
	"context"
	"math"

	"github.com/m-mizutani/goerr/v2"
	"github.com/r-fujimoto/grind/pkg/model"
	"google.golang.org/genai"
)

// Gemini is the narrow slice of the Gemini API the drill engine needs: text
// completion for question synthesis and grading, and embeddings for probe
// vectors.
type Gemini interface {
	GenerateContent(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	Embedding(ctx context.Context, text string) ([]float32, error)
}

type GeminiClient struct {
	client          *genai.Client
	generativeModel string
	embeddingModel  string
	embeddingDim    int32
	normalize       bool
}

type GeminiOption func(*GeminiClient)

func WithGenerativeModel(model string) GeminiOption {
	return func(g *GeminiClient) {
		g.generativeModel = model
	}
}

func WithEmbeddingModel(model string) GeminiOption {
	return func(g *GeminiClient) {
		g.embeddingModel = model
	}
}

// WithEmbeddingDimension sets the output dimensionality of embedding calls.
// Must match the dimension of the vectors in the context store.
func WithEmbeddingDimension(dim int32) GeminiOption {
	return func(g *GeminiClient) {
		g.embeddingDim = dim
	}
}

func NewGemini(ctx context.Context, projectID, location string, opts ...GeminiOption) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  projectID,
		Location: location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create genai client")
	}

	g := &GeminiClient{
		client:          client,
		generativeModel: "gemini-2.5-flash",
		embeddingModel:  "gemini-embedding-001",
		embeddingDim:    768,
		normalize:       true,
	}

	for _, opt := range opts {
		opt(g)
	}

	return g, nil
}

func (g *GeminiClient) GenerateContent(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.generativeModel, contents, config)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate content", goerr.T(model.TagCompletionUnavailable))
	}
	return resp, nil
}

// Embedding converts text into a fixed-dimension vector. Reduced-dimension
// Gemini embeddings are not unit length, so the vector is normalized before
// return to keep cosine distance meaningful.
func (g *GeminiClient) Embedding(ctx context.Context, text string) ([]float32, error) {
	resp, err := g.client.Models.EmbedContent(ctx, g.embeddingModel, genai.Text(text), &genai.EmbedContentConfig{
		OutputDimensionality: &g.embeddingDim,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed content", goerr.T(model.TagEmbeddingUnavailable))
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, goerr.New("empty embedding response", goerr.T(model.TagEmbeddingUnavailable))
	}

	vec := resp.Embeddings[0].Values
	if g.normalize {
		vec = Normalize(vec)
	}
	return vec, nil
}

// Normalize scales a vector to unit length. Zero vectors are returned as is.
func Normalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return vec
	}
	norm := math.Sqrt(sum)
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(float64(v) / norm)
	}
	return out
}

// ResponseText extracts the text of the first candidate of a generation
// response.
func ResponseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", goerr.New("invalid response structure from gemini", goerr.T(model.TagCompletionUnavailable))
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}

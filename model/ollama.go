package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"time"
)

// OllamaEmbedder implements Embedder against the Ollama embeddings API.
type OllamaEmbedder struct {
	apiURL string
	model  string
	client *http.Client
}

type ollamaEmbeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

func NewOllamaEmbedder() *OllamaEmbedder {
	return &OllamaEmbedder{
		apiURL: os.Getenv("OLLAMA_EMBEDDING_URL"),
		model:  os.Getenv("OLLAMA_EMBEDDING_MODEL"),
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	req := ollamaEmbeddingRequest{
		Model:  e.model,
		Prompt: text,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, &ServiceError{Service: "embedding", Op: "marshal request", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", e.apiURL, bytes.NewBuffer(body))
	if err != nil {
		return nil, &ServiceError{Service: "embedding", Op: "create request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, &ServiceError{Service: "embedding", Op: "call ollama", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &ServiceError{
			Service: "embedding",
			Op:      "call ollama",
			Err:     fmt.Errorf("status %d, body: %s", resp.StatusCode, string(body)),
		}
	}

	var ollamaResp ollamaEmbeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&ollamaResp); err != nil {
		return nil, &ServiceError{Service: "embedding", Op: "decode response", Err: err}
	}

	return normalize(ollamaResp.Embedding), nil
}

// EmbedBatch embeds texts sequentially. The Ollama embeddings endpoint takes
// one prompt per call; the first failure fails the whole batch.
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed text %d of %d: %w", i+1, len(texts), err)
		}
		vecs[i] = vec
	}
	return vecs, nil
}

// normalize L2-normalizes the vector and converts it to float32, so the dot
// product of two embeddings is their cosine similarity.
func normalize(vec []float64) []float32 {
	var sum float64
	for _, v := range vec {
		sum += v * v
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		norm = 1
	}

	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out
}

// OllamaGenerator implements Generator against the Ollama generate API.
type OllamaGenerator struct {
	apiURL string
	model  string
	system string
	client *http.Client
}

type ollamaGenerateRequest struct {
	Model  string `json:"model"`
	System string `json:"system,omitempty"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func NewOllamaGenerator(system string) *OllamaGenerator {
	return &OllamaGenerator{
		apiURL: os.Getenv("LLM_URL"),
		model:  os.Getenv("LLM_MODEL"),
		system: system,
		client: &http.Client{Timeout: 300 * time.Second},
	}
}

func (g *OllamaGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	reqBody, err := json.Marshal(ollamaGenerateRequest{
		Model:  g.model,
		System: g.system,
		Prompt: prompt,
		Stream: false,
	})
	if err != nil {
		return "", &ServiceError{Service: "generation", Op: "marshal request", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", g.apiURL, bytes.NewBuffer(reqBody))
	if err != nil {
		return "", &ServiceError{Service: "generation", Op: "create request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", &ServiceError{Service: "generation", Op: "call ollama", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", &ServiceError{
			Service: "generation",
			Op:      "call ollama",
			Err:     fmt.Errorf("status %d, body: %s", resp.StatusCode, string(body)),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &ServiceError{Service: "generation", Op: "read response", Err: err}
	}

	var genResp ollamaGenerateResponse
	if err := json.Unmarshal(body, &genResp); err == nil && genResp.Response != "" {
		return genResp.Response, nil
	}

	// Some deployments stream regardless of the flag; collect the parts.
	var output bytes.Buffer
	decoder := json.NewDecoder(bytes.NewReader(body))
	for decoder.More() {
		var chunk ollamaGenerateResponse
		if err := decoder.Decode(&chunk); err != nil {
			return "", &ServiceError{Service: "generation", Op: "decode response", Err: err}
		}
		output.WriteString(chunk.Response)
		if chunk.Done {
			break
		}
	}
	return output.String(), nil
}

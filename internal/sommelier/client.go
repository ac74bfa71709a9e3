package sommelier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	domainerrors "github.com/pbaille/divino/internal/errors"
)

const (
	apiKeyHeader       = "x-goog-api-key"
	statusExhausted    = "RESOURCE_EXHAUSTED"
	jsonMimeType       = "application/json"
	modalityImage      = "IMAGE"
	maxErrorBodyLength = 512
)

type generateRequest struct {
	Contents          []content         `json:"contents"`
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string `json:"text,omitempty"`
	InlineData *blob  `json:"inlineData,omitempty"`
}

// blob carries inline media; encoding/json base64-encodes Data.
type blob struct {
	MimeType string `json:"mimeType"`
	Data     []byte `json:"data"`
}

type generationConfig struct {
	ResponseMimeType   string   `json:"responseMimeType,omitempty"`
	ResponseSchema     *schema  `json:"responseSchema,omitempty"`
	ResponseModalities []string `json:"responseModalities,omitempty"`
	Temperature        *float64 `json:"temperature,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("api error %d %s: %s", e.Code, e.Status, e.Message)
}

func (e *apiError) quota() bool {
	return e.Code == http.StatusTooManyRequests ||
		e.Status == statusExhausted ||
		strings.Contains(strings.ToLower(e.Message), "quota")
}

// text joins the text parts of the first candidate
func (r *generateResponse) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return strings.TrimSpace(sb.String())
}

// image returns the first inline image of the first candidate
func (r *generateResponse) image() (*blob, bool) {
	if len(r.Candidates) == 0 {
		return nil, false
	}
	for _, p := range r.Candidates[0].Content.Parts {
		if p.InlineData != nil && len(p.InlineData.Data) > 0 {
			return p.InlineData, true
		}
	}
	return nil, false
}

// callAPI sends one generateContent request. Failures come back as
// QuotaExceeded or RequestFailed domain errors tagged with op.
func (s *Sommelier) callAPI(ctx context.Context, op, model string, reqBody generateRequest) (*generateResponse, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx, model); err != nil {
			return nil, domainerrors.RequestFailed(op, fmt.Errorf("rate limit wait: %w", err))
		}
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, domainerrors.RequestFailed(op, fmt.Errorf("marshal request: %w", err))
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", s.baseURL, model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, domainerrors.RequestFailed(op, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", jsonMimeType)
	req.Header.Set(apiKeyHeader, s.apiKey)

	s.logger.Debug("gemini request", "op", op, "model", model)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, domainerrors.RequestFailed(op, fmt.Errorf("http request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domainerrors.RequestFailed(op, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(op, resp.StatusCode, body)
	}

	var apiResp generateResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, domainerrors.RequestFailed(op, fmt.Errorf("unmarshal response: %w", err))
	}
	if apiResp.Error != nil {
		return nil, classify(op, apiResp.Error)
	}
	if apiResp.PromptFeedback != nil && apiResp.PromptFeedback.BlockReason != "" {
		return nil, domainerrors.RequestFailed(op, fmt.Errorf("prompt blocked: %s", apiResp.PromptFeedback.BlockReason))
	}
	if len(apiResp.Candidates) == 0 {
		return nil, domainerrors.RequestFailed(op, fmt.Errorf("empty response"))
	}

	return &apiResp, nil
}

func statusError(op string, status int, body []byte) error {
	var wrapped struct {
		Error *apiError `json:"error"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil || wrapped.Error == nil {
		msg := string(body)
		if len(msg) > maxErrorBodyLength {
			msg = msg[:maxErrorBodyLength]
		}
		wrapped.Error = &apiError{Message: msg}
	}
	if wrapped.Error.Code == 0 {
		wrapped.Error.Code = status
	}
	return classify(op, wrapped.Error)
}

func classify(op string, apiErr *apiError) error {
	if apiErr.quota() {
		return domainerrors.QuotaExceeded(op, apiErr)
	}
	return domainerrors.RequestFailed(op, apiErr)
}

// stripFences removes a markdown code block around a JSON answer
func stripFences(resp string) string {
	resp = strings.TrimSpace(resp)
	resp = strings.TrimPrefix(resp, "```json")
	resp = strings.TrimPrefix(resp, "```JSON")
	resp = strings.TrimPrefix(resp, "```")
	resp = strings.TrimSuffix(resp, "```")
	return strings.TrimSpace(resp)
}

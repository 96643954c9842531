// Package comfy is a small client for the ComfyUI HTTP API: image upload, prompt
// queueing, history lookup and output retrieval.
package comfy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/raushankrgupta/fitly-comfy-tryon/models"
	"go.uber.org/zap"
)

const maxErrorBody = 512

// Client talks to one ComfyUI server.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	logger  *zap.Logger
}

// NewClient creates a client for baseURL. A zero timeout leaves requests bounded only by ctx.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// UploadImage stores an input image on the server and returns its assigned name.
func (c *Client) UploadImage(ctx context.Context, file *models.ImageFile) (*UploadResponse, error) {
	if file == nil || len(file.Data) == 0 {
		return nil, fmt.Errorf("upload image: empty file")
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, file.Name))
	h.Set("Content-Type", contentType)
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("upload image: %w", err)
	}
	if _, err := part.Write(file.Data); err != nil {
		return nil, fmt.Errorf("upload image: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("upload image: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/upload/image", body)
	if err != nil {
		return nil, fmt.Errorf("upload image: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var resp UploadResponse
	if err := c.do(req, "upload image", &resp); err != nil {
		return nil, err
	}
	if resp.Name == "" {
		return nil, fmt.Errorf("upload image: response has no name")
	}
	c.logger.Debug("Image uploaded", zap.String("local_name", file.Name), zap.String("server_name", resp.Name))
	return &resp, nil
}

// QueuePrompt submits a graph for asynchronous execution.
func (c *Client) QueuePrompt(ctx context.Context, graph any, clientID string) (*PromptResponse, error) {
	payload, err := json.Marshal(PromptRequest{Prompt: graph, ClientID: clientID})
	if err != nil {
		return nil, fmt.Errorf("queue prompt: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/prompt", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("queue prompt: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var resp PromptResponse
	if err := c.do(req, "queue prompt", &resp); err != nil {
		return nil, err
	}
	if len(resp.NodeErrors) > 0 {
		return nil, fmt.Errorf("queue prompt: node errors: %v", resp.NodeErrors)
	}
	if resp.PromptID == "" {
		return nil, fmt.Errorf("queue prompt: response has no prompt_id")
	}
	c.logger.Debug("Prompt queued", zap.String("prompt_id", resp.PromptID), zap.String("client_id", clientID))
	return &resp, nil
}

// History fetches the execution record of a prompt. Stock ComfyUI nests the record
// under the prompt ID and answers {} until execution starts; a flat record is also
// accepted. An unknown prompt yields an empty, still-pending entry.
func (c *Client) History(ctx context.Context, promptID string) (*HistoryEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/history/"+url.PathEscape(promptID), nil)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := c.do(req, "history", &raw); err != nil {
		return nil, err
	}

	entry := &HistoryEntry{}
	var record []byte
	switch {
	case raw["status"] != nil || raw["outputs"] != nil:
		record, err = json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("history: %w", err)
		}
	case raw[promptID] != nil:
		record = raw[promptID]
	default:
		return entry, nil
	}
	if err := json.Unmarshal(record, entry); err != nil {
		return nil, fmt.Errorf("history: decode record: %w", err)
	}
	return entry, nil
}

// ViewURL builds the retrieval URL for an output image.
func (c *Client) ViewURL(img OutputImage) string {
	q := url.Values{}
	q.Set("filename", img.Filename)
	if img.Subfolder != "" {
		q.Set("subfolder", img.Subfolder)
	}
	if img.Type != "" && img.Type != "output" {
		q.Set("type", img.Type)
	}
	return c.BaseURL + "/view?" + q.Encode()
}

func (c *Client) do(req *http.Request, op string, out any) error {
	res, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		return &APIError{Op: op, StatusCode: res.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

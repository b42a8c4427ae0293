package apiclient

// Typed wrappers for the document-chat backend endpoints.

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
)

// ChatTurn is one exchange in the conversation history.
type ChatTurn struct {
	User      string `json:"user"`
	Assistant string `json:"bot,omitempty"`
}

// ChatRequest is the payload for a chat submission.
type ChatRequest struct {
	History   []ChatTurn             `json:"history"`
	Approach  int                    `json:"approach"`
	Overrides map[string]interface{} `json:"overrides,omitempty"`
}

// ChatResponse is the backend's answer to a chat submission.
type ChatResponse struct {
	Answer     string   `json:"answer"`
	Thoughts   string   `json:"thoughts"`
	DataPoints []string `json:"data_points"`
	Citations  []string `json:"citation_lookup,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// UploadStatus describes one uploaded document's processing state.
type UploadStatus struct {
	FilePath       string `json:"file_path"`
	State          string `json:"state"`
	StateTimestamp string `json:"state_timestamp"`
	Description    string `json:"state_description"`
}

// StatusLogEntry is one processing log line for a file.
type StatusLogEntry struct {
	Timestamp string `json:"timestamp"`
	Status    string `json:"status"`
	Class     string `json:"status_classification"`
}

// InfoData describes the deployed backend.
type InfoData struct {
	ModelName    string `json:"AZURE_OPENAI_MODEL_NAME"`
	ModelVersion string `json:"AZURE_OPENAI_MODEL_VERSION"`
}

// CitationFile is the content behind a citation reference.
type CitationFile struct {
	ContentType string
	Content     []byte
}

// Chat submits a conversation and returns the assistant's answer. The context
// carries the caller's cancellation: aborting it stops the in-flight request
// without touching session state or cached tokens.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	resp, err := c.PostJSON(ctx, "/chat", req)
	if err != nil {
		return nil, err
	}
	var out ChatResponse
	if err := decodeJSON(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AllUploadStatus returns processing state for uploaded documents within the
// timeframe (minutes; zero means all) and state filter ("ALL" for no filter).
func (c *Client) AllUploadStatus(ctx context.Context, timeframe int, state string) ([]UploadStatus, error) {
	payload := map[string]interface{}{
		"timeframe":  timeframe,
		"file_state": strings.TrimSpace(state),
	}
	resp, err := c.PostJSON(ctx, "/getAllUploadStatus", payload)
	if err != nil {
		return nil, err
	}
	var out []UploadStatus
	if err := decodeJSON(resp, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteItems removes an uploaded document (and its derived chunks) by path.
func (c *Client) DeleteItems(ctx context.Context, path string) error {
	resp, err := c.PostJSON(ctx, "/deleteItems", map[string]string{"path": path})
	if err != nil {
		return err
	}
	return decodeJSON(resp, nil)
}

// ResubmitItems queues an uploaded document for reprocessing.
func (c *Client) ResubmitItems(ctx context.Context, path string) error {
	resp, err := c.PostJSON(ctx, "/resubmitItems", map[string]string{"path": path})
	if err != nil {
		return err
	}
	return decodeJSON(resp, nil)
}

// StatusLog returns the processing log for one uploaded file.
func (c *Client) StatusLog(ctx context.Context, path string) ([]StatusLogEntry, error) {
	resp, err := c.PostJSON(ctx, "/getStatusLog", map[string]string{"path": path})
	if err != nil {
		return nil, err
	}
	var out []StatusLogEntry
	if err := decodeJSON(resp, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetInfoData returns deployment information about the backend.
func (c *Client) GetInfoData(ctx context.Context) (*InfoData, error) {
	resp, err := c.Get(ctx, "/getInfoData")
	if err != nil {
		return nil, err
	}
	var out InfoData
	if err := decodeJSON(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// WarningBanner returns the operator-configured warning banner text, which
// may be empty.
func (c *Client) WarningBanner(ctx context.Context) (string, error) {
	resp, err := c.Get(ctx, "/getWarningBanner")
	if err != nil {
		return "", err
	}
	var out struct {
		Text string `json:"WARNING_BANNER_TEXT"`
	}
	if err := decodeJSON(resp, &out); err != nil {
		return "", err
	}
	return out.Text, nil
}

// ApplicationTitle returns the deployment's display title. The endpoint is
// public so the title can be shown before sign-in.
func (c *Client) ApplicationTitle(ctx context.Context) (string, error) {
	resp, err := c.Do(ctx, "/getApplicationTitle", Options{SkipAuth: true})
	if err != nil {
		return "", err
	}
	var out struct {
		Title string `json:"APPLICATION_TITLE"`
	}
	if err := decodeJSON(resp, &out); err != nil {
		return "", err
	}
	return out.Title, nil
}

// Tags returns all tags present on uploaded documents.
func (c *Client) Tags(ctx context.Context) ([]string, error) {
	resp, err := c.Get(ctx, "/getAllTags")
	if err != nil {
		return nil, err
	}
	var out []string
	if err := decodeJSON(resp, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FeatureFlags returns the backend's feature toggles.
func (c *Client) FeatureFlags(ctx context.Context) (map[string]bool, error) {
	resp, err := c.Get(ctx, "/getFeatureFlags")
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool)
	if err := decodeJSON(resp, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MaxFileSizeMB returns the upload size limit in megabytes.
func (c *Client) MaxFileSizeMB(ctx context.Context) (float64, error) {
	resp, err := c.Get(ctx, "/getMaxFileSize")
	if err != nil {
		return 0, err
	}
	var out struct {
		MaxFileSizeMB float64 `json:"MAX_FILE_SIZE_MB"`
	}
	if err := decodeJSON(resp, &out); err != nil {
		return 0, err
	}
	return out.MaxFileSizeMB, nil
}

// Citation fetches the source file content behind a citation reference.
func (c *Client) Citation(ctx context.Context, citation string) (*CitationFile, error) {
	resp, err := c.PostJSON(ctx, "/getCitation", map[string]string{"citation": citation})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read citation content: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("citation request failed with status %d", resp.StatusCode)
	}
	return &CitationFile{
		ContentType: resp.Header.Get("Content-Type"),
		Content:     content,
	}, nil
}

// UploadFile uploads a document as multipart form data. No explicit JSON
// content type is set on the parts; the multipart writer supplies the
// boundary so the transport can frame the body correctly.
func (c *Client) UploadFile(ctx context.Context, filename string, content io.Reader, tags []string) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return fmt.Errorf("failed to create multipart file field: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return fmt.Errorf("failed to copy file content: %w", err)
	}
	if len(tags) > 0 {
		if err := writer.WriteField("tags", strings.Join(tags, ",")); err != nil {
			return fmt.Errorf("failed to write tags field: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	resp, err := c.Do(ctx, "/file", Options{
		Method:      http.MethodPost,
		Body:        buf.Bytes(),
		ContentType: writer.FormDataContentType(),
	})
	if err != nil {
		return err
	}
	return decodeJSON(resp, nil)
}

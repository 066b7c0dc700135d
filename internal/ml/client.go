package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"ms-backoffice/internal/logger"
)

// Client forwards event recordings to the external visit-detection service.
// The service answers detections back through the /api/ml ingestion routes.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *logger.Logger
}

func NewClient(baseURL string, client *http.Client, logger *logger.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		logger:  logger,
	}
}

// UploadResult carries the analysis service response. Errors from the call
// are reported in the Error field rather than failing the request that
// triggered the upload.
type UploadResult struct {
	Status string `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
}

// UploadVideo POSTs the event video as multipart form data to {base}/upload/.
func (c *Client) UploadVideo(ctx context.Context, eventID int64, videoPath string) UploadResult {
	file, err := os.Open(videoPath)
	if err != nil {
		c.logger.Error("ML", fmt.Sprintf("Failed to open video %s: %v", videoPath, err))
		return UploadResult{Error: fmt.Sprintf("file not found: %s", videoPath)}
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if err := writer.WriteField("event_id", strconv.FormatInt(eventID, 10)); err != nil {
		return UploadResult{Error: err.Error()}
	}
	part, err := writer.CreateFormFile("file", filepath.Base(videoPath))
	if err != nil {
		return UploadResult{Error: err.Error()}
	}
	if _, err := io.Copy(part, file); err != nil {
		return UploadResult{Error: err.Error()}
	}
	if err := writer.Close(); err != nil {
		return UploadResult{Error: err.Error()}
	}

	url := c.baseURL + "/upload/"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return UploadResult{Error: err.Error()}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	c.logger.Info("ML", fmt.Sprintf("Uploading video for event %d to %s", eventID, url))

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("ML", fmt.Sprintf("Analysis service error: %v", err))
		return UploadResult{Error: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Error("ML", fmt.Sprintf("Analysis service returned status: %d", resp.StatusCode))
		return UploadResult{Error: fmt.Sprintf("analysis service returned status %d", resp.StatusCode)}
	}

	var result UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		// Some deployments answer with an empty body; treat that as accepted.
		return UploadResult{Status: "accepted"}
	}
	return result
}

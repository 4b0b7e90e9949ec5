package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// MediaHTTP delegates uploads to a managed media service over multipart POST.
// The service contract is external and fixed: it answers {url, public_id}.
type MediaHTTP struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

func NewMediaHTTP(endpoint, apiKey string) *MediaHTTP {
	return &MediaHTTP{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (m *MediaHTTP) Upload(ctx context.Context, data []byte, filename string) (Result, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return Result{}, err
	}
	if _, err := part.Write(data); err != nil {
		return Result{}, err
	}
	if err := w.Close(); err != nil {
		return Result{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, &body)
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	if m.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+m.apiKey)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Result{}, fmt.Errorf("media service status %d: %s", resp.StatusCode, raw)
	}

	var out struct {
		URL      string `json:"url"`
		PublicID string `json:"public_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Result{}, err
	}
	return Result{URL: out.URL, PublicID: out.PublicID}, nil
}

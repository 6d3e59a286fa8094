package pinning

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"go.uber.org/zap"

	"newschain/internal/logging"
)

// ErrMissingJWT is returned when the Pinata client is built without credentials.
var ErrMissingJWT = errors.New("pinata jwt not set")

type pinataClient struct {
	uploadURL string
	jwt       string
	http      *http.Client
	logger    *zap.Logger
}

type pinataUploadResponse struct {
	Data struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		CID  string `json:"cid"`
		Size int64  `json:"size"`
	} `json:"data"`
}

// NewPinataClient returns a Pinner backed by the Pinata v3 upload API.
func NewPinataClient(uploadURL, jwt string, httpClient *http.Client, logger *zap.Logger) (Pinner, error) {
	if jwt == "" {
		return nil, ErrMissingJWT
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &pinataClient{
		uploadURL: uploadURL,
		jwt:       jwt,
		http:      httpClient,
		logger:    logging.OrNop(logger),
	}, nil
}

func (c *pinataClient) PinFile(ctx context.Context, u Upload) (string, error) {
	body, contentType, err := pinataForm(u)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.jwt)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("pinata upload %q: %w", u.Name, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("pinata upload %q: read response: %w", u.Name, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("pinata upload %q: status %d: %s", u.Name, resp.StatusCode, bytes.TrimSpace(raw))
	}

	var out pinataUploadResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("pinata upload %q: decode response: %w", u.Name, err)
	}

	id, err := normalizeCID(out.Data.CID)
	if err != nil {
		return "", fmt.Errorf("pinata upload %q: %w", u.Name, err)
	}

	c.logger.Debug("file pinned", zap.String("name", u.Name), zap.String("cid", id), zap.Int64("size", out.Data.Size))
	return id, nil
}

func pinataForm(u Upload) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("network", "public"); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("name", u.Name); err != nil {
		return nil, "", err
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, u.Name))
	ct := u.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)

	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(u.Data); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

package insights

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"go.uber.org/zap"

	"newschain/internal/logging"
	"newschain/internal/pinning"
)

const DefaultURL = "http://localhost:5000/news/insights"

// Request is what the insights service needs to classify a submission.
type Request struct {
	Title       string
	Description string
	Thumbnail   *pinning.Upload
	Files       []pinning.Upload
}

// Result is the classification payload returned by the insights service.
type Result struct {
	Status         string   `json:"status"`
	Insights       string   `json:"insights"`
	Score          float64  `json:"score"`
	ScoreReasoning []string `json:"score_reasoning"`
	Category       string   `json:"category"`
	SubCategory    string   `json:"sub_category"`
	Labels         []string `json:"labels"`
	Error          string   `json:"error,omitempty"`
}

// OK reports whether the service classified the submission.
func (r Result) OK() bool {
	return r.Status == "success"
}

type Client struct {
	url    string
	http   *http.Client
	logger *zap.Logger
}

func NewClient(url string, timeout time.Duration, logger *zap.Logger) *Client {
	if url == "" {
		url = DefaultURL
	}
	return &Client{
		url:    url,
		http:   &http.Client{Timeout: timeout},
		logger: logging.OrNop(logger),
	}
}

// Analyze posts the submission as multipart form data. Error statuses with a
// JSON body come back as a Result so the caller can inspect Status/Error.
func (c *Client) Analyze(ctx context.Context, in Request) (Result, error) {
	body, contentType, err := buildForm(in)
	if err != nil {
		return Result{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, body)
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("insights request: %w", err)
	}
	defer resp.Body.Close()

	var out Result
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Result{}, fmt.Errorf("insights response (status %d): %w", resp.StatusCode, err)
	}

	c.logger.Info("insights received",
		zap.Int("status", resp.StatusCode),
		zap.String("result", out.Status),
		zap.Float64("score", out.Score),
		zap.String("category", out.Category),
		zap.Duration("took", time.Since(start)),
	)
	return out, nil
}

func buildForm(in Request) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("title", in.Title); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("description", in.Description); err != nil {
		return nil, "", err
	}
	if in.Thumbnail != nil {
		if err := writeFile(w, "thumbnail", *in.Thumbnail); err != nil {
			return nil, "", err
		}
	}
	for _, f := range in.Files {
		if err := writeFile(w, "files", f); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func writeFile(w *multipart.Writer, field string, u pinning.Upload) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, u.Name))
	ct := u.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)

	part, err := w.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = part.Write(u.Data)
	return err
}

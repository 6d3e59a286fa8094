package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"newschain/internal/apperr"
	"newschain/internal/news"
	"newschain/internal/pinning"
)

const (
	fieldTitle       = "title"
	fieldDescription = "description"
	fieldThumbnail   = "thumbnail"
	fieldFiles       = "files"
)

// fileLimits lists the accepted file fields and how many files each may carry.
var fileLimits = map[string]int{
	fieldThumbnail: 1,
	fieldFiles:     10,
}

// parseSubmission reads title, description and the uploaded files from r.
// Multipart, JSON and urlencoded bodies are accepted; files only arrive with
// multipart. The whole body is capped at maxBytes.
func parseSubmission(w http.ResponseWriter, r *http.Request, maxBytes int64) (news.CreateInput, error) {
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		return parseMultipart(r)
	case "application/json":
		var body struct {
			Title       string `json:"title"`
			Description string `json:"description"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			return news.CreateInput{}, bodyError(err)
		}
		return news.CreateInput{Title: body.Title, Description: body.Description}, nil
	default:
		if err := r.ParseForm(); err != nil {
			return news.CreateInput{}, bodyError(err)
		}
		return news.CreateInput{
			Title:       r.PostForm.Get(fieldTitle),
			Description: r.PostForm.Get(fieldDescription),
		}, nil
	}
}

func parseMultipart(r *http.Request) (news.CreateInput, error) {
	var in news.CreateInput

	mr, err := r.MultipartReader()
	if err != nil {
		return in, bodyError(err)
	}

	counts := make(map[string]int, len(fileLimits))
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return in, nil
		}
		if err != nil {
			return in, bodyError(err)
		}

		name := part.FormName()
		if part.FileName() == "" {
			value, err := io.ReadAll(part)
			if err != nil {
				return in, bodyError(err)
			}
			switch name {
			case fieldTitle:
				in.Title = string(value)
			case fieldDescription:
				in.Description = string(value)
			}
			continue
		}

		limit, ok := fileLimits[name]
		counts[name]++
		if !ok || counts[name] > limit {
			return in, unexpectedField(name)
		}

		data, err := io.ReadAll(part)
		if err != nil {
			return in, bodyError(err)
		}
		u := pinning.Upload{
			Name:        part.FileName(),
			ContentType: part.Header.Get("Content-Type"),
			Data:        data,
		}
		if name == fieldThumbnail {
			in.Thumbnail = &u
		} else {
			in.Files = append(in.Files, u)
		}
	}
}

func unexpectedField(name string) error {
	return apperr.NewValidation("Unexpected field", apperr.FieldError{
		Field:   name,
		Message: fmt.Sprintf("Unexpected field %q", name),
	})
}

func bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		vErr := apperr.NewValidation(fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit))
		vErr.StatusCode = http.StatusRequestEntityTooLarge
		return vErr
	}
	return apperr.NewValidation("Invalid request body", apperr.FieldError{Message: err.Error()})
}

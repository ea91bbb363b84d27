package http

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/m-mizutani/goerr/v2"

	"github.com/moneta-lab/moneta/pkg/domain/model"
	"github.com/moneta-lab/moneta/pkg/utils/errutil"
)

type uploadResponse struct {
	Indexed int `json:"indexed"`
}

// handleUploadDocuments accepts multipart file uploads, extracts their text
// and adds them to the knowledge index.
func (s *Server) handleUploadDocuments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "invalid multipart request"), http.StatusBadRequest)
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		errutil.HandleHTTP(ctx, w, goerr.New("no files in request"), http.StatusBadRequest)
		return
	}

	var docs []model.Document
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to open upload",
				goerr.V("filename", fh.Filename)), http.StatusBadRequest)
			return
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to read upload",
				goerr.V("filename", fh.Filename)), http.StatusBadRequest)
			return
		}

		text, err := extractText(fh.Filename, data)
		if err != nil {
			errutil.HandleHTTP(ctx, w, err, http.StatusUnprocessableEntity)
			return
		}

		docs = append(docs, model.Document{
			Content:  text,
			Metadata: map[string]string{"filename": fh.Filename},
		})
	}

	if err := s.uc.AddDocuments(ctx, docs); err != nil {
		errutil.HandleHTTP(ctx, w, err, http.StatusInternalServerError)
		return
	}

	writeJSON(ctx, w, http.StatusOK, uploadResponse{Indexed: len(docs)})
}

// extractText normalizes an upload into indexable text. CSV rows become
// one line each with comma-joined cells; everything else must be UTF-8
// plain text.
func extractText(filename string, data []byte) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		reader := csv.NewReader(bytes.NewReader(data))
		reader.FieldsPerRecord = -1

		var sb strings.Builder
		for {
			record, err := reader.Read()
			if err == io.EOF {
				break
			}
			if err != nil {
				return "", goerr.Wrap(err, "failed to parse CSV upload",
					goerr.V("filename", filename))
			}
			sb.WriteString(strings.Join(record, ", "))
			sb.WriteString("\n")
		}
		return sb.String(), nil

	default:
		if !utf8.Valid(data) {
			return "", goerr.New("upload is not valid UTF-8 text",
				goerr.V("filename", filename))
		}
		return string(data), nil
	}
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		_ = errutil.Handle(ctx, err, "failed to write response")
	}
}

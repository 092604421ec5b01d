package server

import (
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/patchjudge/patchjudge/internal/model"
)

// Upload limits. Patches are text; anything near these bounds is suspect
// but still accepted, matching the permissive original behavior.
const (
	maxUploadBytes   = 10 << 20 // 10 MiB per patch file
	maxMultipartMem  = 1 << 20
	groundTruthField = "ground_truth"
	candidateField   = "candidate"
)

var allowedExtensions = map[string]bool{
	".patch": true,
	".diff":  true,
	".txt":   true,
}

// requestFromForm assembles an EvaluationRequest from the multipart form.
func requestFromForm(r *http.Request) (model.EvaluationRequest, error) {
	var req model.EvaluationRequest

	if err := r.ParseMultipartForm(maxMultipartMem); err != nil {
		return req, &model.FileFormatError{Name: "form", Reason: "invalid multipart form: " + err.Error()}
	}

	groundTruth, err := readPatchUpload(r, groundTruthField)
	if err != nil {
		return req, err
	}
	candidate, err := readPatchUpload(r, candidateField)
	if err != nil {
		return req, err
	}

	req = model.EvaluationRequest{
		IssueStatement:   r.FormValue("issue_statement"),
		GroundTruthPatch: groundTruth,
		CandidatePatch:   candidate,
		Notes:            r.FormValue("notes"),
		RepoURL:          r.FormValue("repo_url"),
		Model:            r.FormValue("model"),
		APIKey:           r.FormValue("api_key"),
		BaseURL:          r.FormValue("base_url"),
	}
	return req, nil
}

// readPatchUpload reads one uploaded patch file, enforcing extension,
// size, and encoding checks.
func readPatchUpload(r *http.Request, field string) (string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return "", &model.FileFormatError{Name: field, Reason: "missing upload"}
	}
	defer file.Close()

	return readPatchFile(file, header)
}

func readPatchFile(file multipart.File, header *multipart.FileHeader) (string, error) {
	name := header.Filename

	ext := strings.ToLower(filepath.Ext(name))
	if !allowedExtensions[ext] {
		return "", &model.FileFormatError{
			Name:   name,
			Reason: "extension must be .patch, .diff, or .txt",
		}
	}
	if header.Size > maxUploadBytes {
		return "", &model.FileFormatError{Name: name, Reason: "file exceeds 10 MiB"}
	}

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		return "", &model.FileFormatError{Name: name, Reason: "reading upload: " + err.Error()}
	}
	if len(data) > maxUploadBytes {
		return "", &model.FileFormatError{Name: name, Reason: "file exceeds 10 MiB"}
	}
	if len(data) == 0 || strings.TrimSpace(string(data)) == "" {
		return "", &model.FileFormatError{Name: name, Reason: "file is empty"}
	}
	if !utf8.Valid(data) {
		return "", &model.FileFormatError{Name: name, Reason: "file is not valid UTF-8 text"}
	}

	return string(data), nil
}

package server

import (
	"io"
	"net/http"
	"os"

	"github.com/rs/zerolog/log"
)

const maxUploadSize = 32 << 20 // 32 MiB

// handleAnalyze accepts a multipart PDF upload, runs the clause and risk
// batteries against an ephemeral per-request index and returns the report.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	if header.Header.Get("Content-Type") != "application/pdf" {
		writeError(w, http.StatusBadRequest, "File must be a PDF.")
		return
	}

	tmp, err := os.CreateTemp("", "contract-*.pdf")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to store upload")
		return
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		writeError(w, http.StatusInternalServerError, "Failed to store upload")
		return
	}
	tmp.Close()

	report, err := s.analyzer.AnalyzeContract(r.Context(), tmp.Name())
	if err != nil {
		log.Error().Err(err).Str("file", header.Filename).Msg("Contract analysis failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if profile := ProfileFromContext(r.Context()); profile != nil {
		if err := s.accounts.Deduct(r.Context(), profile.ID); err != nil {
			log.Error().Err(err).Str("user", profile.ID).Msg("Credit deduction failed")
		}
	}

	writeJSON(w, http.StatusOK, report)
}

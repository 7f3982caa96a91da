package server

import (
	"encoding/json"
	"log"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/mikhail/check-split/internal/receipt"
	"github.com/mikhail/check-split/internal/splitting"
	"github.com/mikhail/check-split/internal/types"
)

// maxUploadBytes caps the in-memory portion of a multipart receipt upload.
const maxUploadBytes = 10 << 20

// handlePreprocessReceipt accepts a receipt photo, runs OCR, decides whether
// the photo is a restaurant check and, if so, extracts its line items and
// detected total. Non-check uploads are a successful response with
// is_restaurant=false, not an error.
func (s *Server) handlePreprocessReceipt(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid multipart form: "+err.Error())
		return
	}

	file, header, err := r.FormFile("receipt_image")
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "receipt_image file is required")
		return
	}
	defer file.Close()

	// Spool the upload to a uniquely named file so nothing lingers after
	// the request, whatever the outcome.
	tempPath := filepath.Join(s.uploadDir, uuid.New().String()+filepath.Ext(header.Filename))
	dst, err := os.Create(tempPath)
	if err != nil {
		log.Printf("Failed to create upload file: %v", err)
		s.errorResponse(w, http.StatusInternalServerError, "Failed to store upload")
		return
	}
	defer os.Remove(tempPath)

	if _, err := dst.ReadFrom(file); err != nil {
		dst.Close()
		log.Printf("Failed to write upload file: %v", err)
		s.errorResponse(w, http.StatusInternalServerError, "Failed to store upload")
		return
	}
	dst.Close()

	image, err := os.ReadFile(tempPath)
	if err != nil {
		log.Printf("Failed to read upload file: %v", err)
		s.errorResponse(w, http.StatusInternalServerError, "Failed to read upload")
		return
	}

	mimeHint := header.Header.Get("Content-Type")
	if mimeHint == "" {
		mimeHint = mime.TypeByExtension(filepath.Ext(header.Filename))
	}

	ctx := r.Context()

	text, err := s.gateway.ExtractText(ctx, image, mimeHint)
	if err != nil {
		log.Printf("OCR failed: %v", err)
		s.errorResponse(w, HTTPStatus(err), "Failed to read text from the image")
		return
	}

	response := types.PreprocessResponse{
		Items:         []receipt.LineItem{},
		ExtractedText: text,
	}

	if text == "" {
		s.jsonResponse(w, http.StatusOK, response)
		return
	}

	isCheck, err := s.gateway.ClassifyCheck(ctx, text)
	if err != nil {
		// A flaky classification downgrades to "not a check" rather than
		// failing the upload; the client still gets the extracted text.
		log.Printf("Classification failed, treating as non-check: %v", err)
		s.jsonResponse(w, http.StatusOK, response)
		return
	}
	if !isCheck {
		s.jsonResponse(w, http.StatusOK, response)
		return
	}
	response.IsRestaurant = true

	parsed, err := s.gateway.ExtractReceipt(ctx, text)
	if err != nil {
		log.Printf("Extraction failed: %v", err)
		s.errorResponse(w, HTTPStatus(err), "Failed to extract receipt items")
		return
	}

	response.Items = parsed.Items
	response.TotalAmountDetected = parsed.DetectedTotal

	s.jsonResponse(w, http.StatusOK, response)
}

// handleCalculateSplit recomputes the receipt from previously extracted text
// and allocates the bill across people under each strategy.
func (s *Server) handleCalculateSplit(w http.ResponseWriter, r *http.Request) {
	var req types.CalculateSplitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	gratuity, err := req.Gratuity()
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	parsed, err := s.gateway.ExtractReceipt(r.Context(), req.ExtractedText)
	if err != nil {
		log.Printf("Extraction failed: %v", err)
		s.errorResponse(w, HTTPStatus(err), "Failed to extract receipt items")
		return
	}

	result, err := splitting.Compute(parsed, req.NumPeople, gratuity, req.ItemAssignments)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, types.NewCalculateSplitResponse(result))
}

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikhail/check-split/internal/extraction"
	"github.com/mikhail/check-split/internal/receipt"
	"github.com/mikhail/check-split/internal/server/ratelimit"
)

// fakeGateway implements extractionGateway with canned results.
type fakeGateway struct {
	text        string
	textErr     error
	isCheck     bool
	classifyErr error
	parsed      receipt.ParsedReceipt
	extractErr  error

	gotMIME       string
	classifyCalls int
	extractCalls  int
}

func (f *fakeGateway) ExtractText(_ context.Context, _ []byte, mimeHint string) (string, error) {
	f.gotMIME = mimeHint
	return f.text, f.textErr
}

func (f *fakeGateway) ClassifyCheck(_ context.Context, _ string) (bool, error) {
	f.classifyCalls++
	return f.isCheck, f.classifyErr
}

func (f *fakeGateway) ExtractReceipt(_ context.Context, _ string) (receipt.ParsedReceipt, error) {
	f.extractCalls++
	return f.parsed, f.extractErr
}

func newTestServer(t *testing.T, gateway extractionGateway) *Server {
	t.Helper()
	s := &Server{
		gateway:     gateway,
		uploadDir:   t.TempDir(),
		rateLimiter: ratelimit.NewLimiter(&ratelimit.Config{Enabled: false}),
	}
	t.Cleanup(s.rateLimiter.Stop)
	return s
}

// uploadRequest builds a multipart POST with a receipt_image part.
func uploadRequest(t *testing.T, contentType string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	partHeader := textproto.MIMEHeader{}
	partHeader.Set("Content-Disposition", `form-data; name="receipt_image"; filename="check.jpg"`)
	if contentType != "" {
		partHeader.Set("Content-Type", contentType)
	}
	part, err := writer.CreatePart(partHeader)
	require.NoError(t, err)
	_, err = part.Write([]byte{0xFF, 0xD8, 0xFF})
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/preprocess_receipt", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t, &fakeGateway{})
	rec := httptest.NewRecorder()

	s.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[map[string]string](t, rec)
	assert.Equal(t, "ok", body["status"])
}

func TestHandlePreprocessReceipt_MissingFile(t *testing.T) {
	s := newTestServer(t, &fakeGateway{})

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	require.NoError(t, writer.WriteField("note", "no file here"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/preprocess_receipt", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()

	s.routes().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlePreprocessReceipt_Success(t *testing.T) {
	gateway := &fakeGateway{
		text:    "SOUP 300\nSALAD 200\nTOTAL 500",
		isCheck: true,
		parsed: receipt.ParsedReceipt{
			Items:         []receipt.LineItem{{Name: "Soup", Price: 300}, {Name: "Salad", Price: 200}},
			DetectedTotal: 500,
		},
	}
	s := newTestServer(t, gateway)
	rec := httptest.NewRecorder()

	s.routes().ServeHTTP(rec, uploadRequest(t, "image/jpeg"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/jpeg", gateway.gotMIME)

	var resp struct {
		Items               []receipt.LineItem `json:"items"`
		IsRestaurant        bool               `json:"is_restaurant"`
		ExtractedText       string             `json:"extracted_text"`
		TotalAmountDetected int                `json:"total_amount_detected"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.IsRestaurant)
	assert.Len(t, resp.Items, 2)
	assert.Equal(t, 500, resp.TotalAmountDetected)
	assert.Equal(t, gateway.text, resp.ExtractedText)
}

func TestHandlePreprocessReceipt_MIMEFallsBackToExtension(t *testing.T) {
	gateway := &fakeGateway{text: ""}
	s := newTestServer(t, gateway)
	rec := httptest.NewRecorder()

	s.routes().ServeHTTP(rec, uploadRequest(t, ""))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/jpeg", gateway.gotMIME, "filename extension supplies the hint")
}

func TestHandlePreprocessReceipt_EmptyTextSkipsClassification(t *testing.T) {
	gateway := &fakeGateway{text: ""}
	s := newTestServer(t, gateway)
	rec := httptest.NewRecorder()

	s.routes().ServeHTTP(rec, uploadRequest(t, "image/jpeg"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, gateway.classifyCalls)

	var resp struct {
		Items        []receipt.LineItem `json:"items"`
		IsRestaurant bool               `json:"is_restaurant"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.False(t, resp.IsRestaurant)
	assert.Empty(t, resp.Items)
}

func TestHandlePreprocessReceipt_NotARestaurant(t *testing.T) {
	gateway := &fakeGateway{text: "GROCERY STORE\nMILK 89", isCheck: false}
	s := newTestServer(t, gateway)
	rec := httptest.NewRecorder()

	s.routes().ServeHTTP(rec, uploadRequest(t, "image/jpeg"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, gateway.extractCalls, "non-checks must not reach extraction")

	var resp struct {
		IsRestaurant  bool   `json:"is_restaurant"`
		ExtractedText string `json:"extracted_text"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.False(t, resp.IsRestaurant)
	assert.Equal(t, gateway.text, resp.ExtractedText)
}

func TestHandlePreprocessReceipt_OCRFailure(t *testing.T) {
	gateway := &fakeGateway{textErr: &extraction.OCRError{Message: "upstream down"}}
	s := newTestServer(t, gateway)
	rec := httptest.NewRecorder()

	s.routes().ServeHTTP(rec, uploadRequest(t, "image/jpeg"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandlePreprocessReceipt_ClassificationFailureDowngrades(t *testing.T) {
	gateway := &fakeGateway{
		text:        "SOME TEXT",
		classifyErr: &extraction.ClassificationError{Message: "bad response"},
	}
	s := newTestServer(t, gateway)
	rec := httptest.NewRecorder()

	s.routes().ServeHTTP(rec, uploadRequest(t, "image/jpeg"))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		IsRestaurant  bool   `json:"is_restaurant"`
		ExtractedText string `json:"extracted_text"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.False(t, resp.IsRestaurant)
	assert.Equal(t, "SOME TEXT", resp.ExtractedText)
}

func TestHandlePreprocessReceipt_ExtractionFailure(t *testing.T) {
	gateway := &fakeGateway{
		text:       "CAFE\nSOUP 300",
		isCheck:    true,
		extractErr: &extraction.ExtractionError{Message: "malformed items"},
	}
	s := newTestServer(t, gateway)
	rec := httptest.NewRecorder()

	s.routes().ServeHTTP(rec, uploadRequest(t, "image/jpeg"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func calculateRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/calculate_split", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestHandleCalculateSplit_Success(t *testing.T) {
	gateway := &fakeGateway{
		parsed: receipt.ParsedReceipt{
			Items:         []receipt.LineItem{{Name: "Soup", Price: 300}, {Name: "Salad", Price: 200}},
			DetectedTotal: 500,
		},
	}
	s := newTestServer(t, gateway)
	rec := httptest.NewRecorder()

	s.routes().ServeHTTP(rec, calculateRequest(`{
		"extracted_text": "SOUP 300\nSALAD 200\nTOTAL 500",
		"num_people": 2,
		"tea_money": "50",
		"item_assignments": {"A": ["Soup"], "B": ["Salad"]}
	}`))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		PeoplesList []struct {
			Name   string `json:"name"`
			Shares struct {
				Equally                int `json:"equally"`
				WhoMoreCostThenMorePay int `json:"who_more_cost_then_more_pay"`
			} `json:"shares"`
		} `json:"peoples_list"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.PeoplesList, 2)
	assert.Equal(t, "A", resp.PeoplesList[0].Name)
	assert.Equal(t, 275, resp.PeoplesList[0].Shares.Equally)
	assert.Equal(t, 330, resp.PeoplesList[0].Shares.WhoMoreCostThenMorePay)
	assert.Equal(t, 220, resp.PeoplesList[1].Shares.WhoMoreCostThenMorePay)
}

func TestHandleCalculateSplit_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid JSON", `{"num_people": `},
		{"missing extracted text", `{"num_people": 2}`},
		{"zero people", `{"extracted_text": "SOUP 300"}`},
		{"bad tea money", `{"extracted_text": "SOUP 300", "num_people": 2, "tea_money": "lots"}`},
		{"negative tea money", `{"extracted_text": "SOUP 300", "num_people": 2, "tea_money": "-5"}`},
		{"assignments not an object", `{"extracted_text": "SOUP 300", "num_people": 2, "item_assignments": ["A"]}`},
		{"more names than people", `{"extracted_text": "SOUP 300", "num_people": 1, "item_assignments": {"A": [], "B": []}}`},
	}

	gateway := &fakeGateway{parsed: receipt.ParsedReceipt{Items: []receipt.LineItem{{Name: "Soup", Price: 300}}, DetectedTotal: 300}}
	s := newTestServer(t, gateway)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.routes().ServeHTTP(rec, calculateRequest(tt.body))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestHandleCalculateSplit_ExtractionFailure(t *testing.T) {
	gateway := &fakeGateway{extractErr: errors.New("model unavailable")}
	s := newTestServer(t, gateway)
	rec := httptest.NewRecorder()

	s.routes().ServeHTTP(rec, calculateRequest(`{"extracted_text": "SOUP 300", "num_people": 2}`))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

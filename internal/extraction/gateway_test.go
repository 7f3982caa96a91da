package extraction

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikhail/check-split/internal/llm"
	"github.com/mikhail/check-split/internal/receipt"
)

// fakeClient returns canned responses keyed by which call is made and
// records every invocation so short-circuit behavior can be asserted.
type fakeClient struct {
	jsonResponses  []string
	jsonErr        error
	visionResponse string
	visionErr      error

	jsonCalls   int
	visionCalls int
	prompts     []string
}

func (f *fakeClient) GenerateContent(_ context.Context, prompt string, _ llm.ModelTier) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return "", nil
}

func (f *fakeClient) GenerateJSON(_ context.Context, prompt string, _ llm.ModelTier, _ *genai.Schema) (string, error) {
	f.prompts = append(f.prompts, prompt)
	call := f.jsonCalls
	f.jsonCalls++
	if f.jsonErr != nil {
		return "", f.jsonErr
	}
	if call < len(f.jsonResponses) {
		return f.jsonResponses[call], nil
	}
	return "", errors.New("unexpected JSON call")
}

func (f *fakeClient) GenerateVision(_ context.Context, prompt string, _ llm.Image, _ llm.ModelTier) (string, error) {
	f.prompts = append(f.prompts, prompt)
	f.visionCalls++
	return f.visionResponse, f.visionErr
}

func (f *fakeClient) GetModel(llm.ModelTier) string { return "fake-model" }
func (f *fakeClient) Close() error                  { return nil }

func TestExtractText_Success(t *testing.T) {
	client := &fakeClient{visionResponse: "COFFEE 250\nTOTAL 250\n"}
	gw := NewGateway(client)

	text, err := gw.ExtractText(context.Background(), []byte{0xFF, 0xD8}, "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "COFFEE 250\nTOTAL 250", text)
	assert.Equal(t, 1, client.visionCalls)
}

func TestExtractText_EmptyResultIsNotAnError(t *testing.T) {
	client := &fakeClient{visionResponse: ""}
	gw := NewGateway(client)

	text, err := gw.ExtractText(context.Background(), []byte{0x00}, "image/png")
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestExtractText_NonImageMIMEStillAttempted(t *testing.T) {
	client := &fakeClient{visionResponse: "something"}
	gw := NewGateway(client)

	_, err := gw.ExtractText(context.Background(), []byte{0x00}, "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, 1, client.visionCalls, "non-image MIME hint must not reject locally")
}

func TestExtractText_Failure(t *testing.T) {
	client := &fakeClient{visionErr: errors.New("upstream exploded")}
	gw := NewGateway(client)

	_, err := gw.ExtractText(context.Background(), []byte{0x00}, "image/jpeg")
	var ocrErr *OCRError
	require.ErrorAs(t, err, &ocrErr)
}

func TestClassifyCheck_EmptyTextShortCircuits(t *testing.T) {
	client := &fakeClient{}
	gw := NewGateway(client)

	isCheck, err := gw.ClassifyCheck(context.Background(), "   ")
	require.NoError(t, err)
	assert.False(t, isCheck)
	assert.Zero(t, client.jsonCalls, "empty text must not invoke the service")
}

func TestClassifyCheck_True(t *testing.T) {
	client := &fakeClient{jsonResponses: []string{`{"is_restaurant": true}`}}
	gw := NewGateway(client)

	isCheck, err := gw.ClassifyCheck(context.Background(), "CAFE PUSHKIN\nBORSCH 450")
	require.NoError(t, err)
	assert.True(t, isCheck)
}

func TestClassifyCheck_FencedResponse(t *testing.T) {
	client := &fakeClient{jsonResponses: []string{"```json\n{\"is_restaurant\": false}\n```"}}
	gw := NewGateway(client)

	isCheck, err := gw.ClassifyCheck(context.Background(), "GROCERY STORE\nMILK 89")
	require.NoError(t, err)
	assert.False(t, isCheck)
}

func TestClassifyCheck_InvalidShapeFails(t *testing.T) {
	client := &fakeClient{jsonResponses: []string{`{"restaurant": "probably"}`}}
	gw := NewGateway(client)

	_, err := gw.ClassifyCheck(context.Background(), "some text")
	var classErr *ClassificationError
	require.ErrorAs(t, err, &classErr)
	assert.Equal(t, `{"restaurant": "probably"}`, classErr.Raw)
}

func TestClassifyCheck_ProseResponseFails(t *testing.T) {
	client := &fakeClient{jsonResponses: []string{"Yes, this looks like a restaurant check."}}
	gw := NewGateway(client)

	_, err := gw.ClassifyCheck(context.Background(), "some text")
	var classErr *ClassificationError
	require.ErrorAs(t, err, &classErr)
}

func TestExtractReceipt_EmptyTextShortCircuits(t *testing.T) {
	client := &fakeClient{}
	gw := NewGateway(client)

	parsed, err := gw.ExtractReceipt(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, parsed.Items)
	assert.Zero(t, parsed.DetectedTotal)
	assert.Zero(t, client.jsonCalls, "empty text must not invoke the service")
}

func TestExtractReceipt_Success(t *testing.T) {
	// Items and total are separate calls; the fake serves whichever prompt
	// arrives by inspecting it.
	client := &promptAwareClient{
		itemsResponse: `{"items": [{"name": "Soup", "price": 300}, {"name": "Salad", "price": 200}]}`,
		totalResponse: `{"total_amount": 500}`,
	}
	gw := NewGateway(client)

	parsed, err := gw.ExtractReceipt(context.Background(), "SOUP 300\nSALAD 200\nTOTAL 500")
	require.NoError(t, err)
	assert.Equal(t, []receipt.LineItem{
		{Name: "Soup", Price: 300},
		{Name: "Salad", Price: 200},
	}, parsed.Items)
	assert.Equal(t, 500, parsed.DetectedTotal)
}

func TestExtractReceipt_MalformedResponseSurfacesExtractionError(t *testing.T) {
	client := &promptAwareClient{
		itemsResponse: `here are your items: soup and salad`,
		totalResponse: `{"total_amount": 500}`,
	}
	gw := NewGateway(client)

	_, err := gw.ExtractReceipt(context.Background(), "SOUP 300")
	var extErr *ExtractionError
	require.ErrorAs(t, err, &extErr)
	assert.NotEmpty(t, extErr.Raw)
}

func TestExtractReceipt_MissingTotalFieldFails(t *testing.T) {
	client := &promptAwareClient{
		itemsResponse: `{"items": []}`,
		totalResponse: `{"grand_total": 500}`,
	}
	gw := NewGateway(client)

	_, err := gw.ExtractReceipt(context.Background(), "TOTAL 500")
	var extErr *ExtractionError
	require.ErrorAs(t, err, &extErr)
}

// promptAwareClient routes the two concurrent extraction calls by prompt
// content, since their order is not deterministic.
type promptAwareClient struct {
	fakeClient
	itemsResponse string
	totalResponse string
}

func (c *promptAwareClient) GenerateJSON(_ context.Context, prompt string, _ llm.ModelTier, _ *genai.Schema) (string, error) {
	if strings.Contains(prompt, "total_amount") {
		return c.totalResponse, nil
	}
	return c.itemsResponse, nil
}

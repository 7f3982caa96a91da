// Package extraction wraps every interaction with the external generative
// service behind three operations: image-to-text OCR, restaurant check
// classification, and structured receipt extraction. All non-determinism and
// failure handling for the external service lives here.
package extraction

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/mikhail/check-split/internal/llm"
	"github.com/mikhail/check-split/internal/prompts"
	"github.com/mikhail/check-split/internal/receipt"
	"github.com/mikhail/check-split/internal/schemas"
)

// Gateway isolates calls to the external OCR/classification/extraction
// service. The LLM client is injected; the gateway never reads ambient
// configuration itself.
type Gateway struct {
	client llm.Client
}

// NewGateway creates a gateway over the given LLM client.
func NewGateway(client llm.Client) *Gateway {
	return &Gateway{client: client}
}

// ExtractText performs OCR on raw image bytes. A MIME hint that is not an
// image type is downgraded to application/octet-stream and the call is still
// attempted: the external service is the final arbiter of what it can
// process. An empty string is a valid non-error result meaning the image
// contained no extractable text.
func (g *Gateway) ExtractText(ctx context.Context, image []byte, mimeHint string) (string, error) {
	mimeType := mimeHint
	if !strings.HasPrefix(mimeType, "image/") {
		log.Printf("Could not confirm image MIME type %q, sending as application/octet-stream", mimeHint)
		mimeType = "application/octet-stream"
	}

	prompt := prompts.MustGet("receipt.json", "ocr")

	text, err := g.client.GenerateVision(ctx, prompt, llm.Image{MIMEType: mimeType, Data: image}, llm.TierStandard)
	if err != nil {
		return "", &OCRError{Message: "failed to generate content from image", Cause: err}
	}

	return strings.TrimSpace(text), nil
}

// ClassifyCheck decides whether extracted text is a restaurant check.
// Empty input always yields false without a service call. Ambiguous or
// unparseable service output fails rather than defaulting; the caller owns
// the fallback policy.
func (g *Gateway) ClassifyCheck(ctx context.Context, text string) (bool, error) {
	if strings.TrimSpace(text) == "" {
		return false, nil
	}

	prompt := prompts.Format(prompts.MustGet("receipt.json", "classify-check"), map[string]string{
		"Text": text,
	})

	raw, err := g.client.GenerateJSON(ctx, prompt, llm.TierLite, classificationResponseSchema())
	if err != nil {
		return false, &ClassificationError{Message: "failed to generate content from LLM", Cause: err}
	}

	cleaned := llm.CleanJSONBlock(raw)
	if err := schemas.ValidateJSONString(classificationSchemaDoc, cleaned); err != nil {
		return false, &ClassificationError{
			Message: "response does not match the classification schema",
			Raw:     raw,
			Cause:   err,
		}
	}

	var result struct {
		IsRestaurant bool `json:"is_restaurant"`
	}
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return false, &ClassificationError{
			Message: "failed to parse JSON response",
			Raw:     raw,
			Cause:   err,
		}
	}

	return result.IsRestaurant, nil
}

// ExtractReceipt extracts line items and the detected total from receipt
// text. Empty input yields an empty receipt without a service call. Items
// and total are separate model calls and run concurrently.
func (g *Gateway) ExtractReceipt(ctx context.Context, text string) (receipt.ParsedReceipt, error) {
	if strings.TrimSpace(text) == "" {
		return receipt.Empty(), nil
	}

	var (
		items []receipt.LineItem
		total int
	)

	grp, grpCtx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		var err error
		items, err = g.extractItems(grpCtx, text)
		return err
	})
	grp.Go(func() error {
		var err error
		total, err = g.extractTotal(grpCtx, text)
		return err
	})

	if err := grp.Wait(); err != nil {
		return receipt.ParsedReceipt{}, err
	}

	return receipt.ParsedReceipt{Items: items, DetectedTotal: total}, nil
}

// extractItems asks the model for the ordered positions on the receipt.
func (g *Gateway) extractItems(ctx context.Context, text string) ([]receipt.LineItem, error) {
	prompt := prompts.Format(prompts.MustGet("receipt.json", "extract-items"), map[string]string{
		"Text": text,
	})

	raw, err := g.client.GenerateJSON(ctx, prompt, llm.TierStandard, itemsResponseSchema())
	if err != nil {
		return nil, &ExtractionError{Message: "failed to generate items from LLM", Cause: err}
	}

	cleaned := llm.CleanJSONBlock(raw)
	if err := schemas.ValidateJSONString(itemsSchemaDoc, cleaned); err != nil {
		return nil, &ExtractionError{
			Message: "items response does not match the schema",
			Raw:     raw,
			Cause:   err,
		}
	}

	items, err := receipt.DecodeItems([]byte(cleaned))
	if err != nil {
		return nil, &ExtractionError{
			Message: "failed to decode items response",
			Raw:     raw,
			Cause:   err,
		}
	}

	return items, nil
}

// extractTotal asks the model for the receipt's declared total.
func (g *Gateway) extractTotal(ctx context.Context, text string) (int, error) {
	prompt := prompts.Format(prompts.MustGet("receipt.json", "extract-total"), map[string]string{
		"Text": text,
	})

	raw, err := g.client.GenerateJSON(ctx, prompt, llm.TierStandard, totalResponseSchema())
	if err != nil {
		return 0, &ExtractionError{Message: "failed to generate total from LLM", Cause: err}
	}

	cleaned := llm.CleanJSONBlock(raw)
	if err := schemas.ValidateJSONString(totalSchemaDoc, cleaned); err != nil {
		return 0, &ExtractionError{
			Message: "total response does not match the schema",
			Raw:     raw,
			Cause:   err,
		}
	}

	total, err := receipt.DecodeTotal([]byte(cleaned))
	if err != nil {
		return 0, &ExtractionError{
			Message: "failed to decode total response",
			Raw:     raw,
			Cause:   err,
		}
	}

	return total, nil
}

package extraction

import "fmt"

// OCRError represents a failure to extract text from an uploaded image.
type OCRError struct {
	Message string
	Cause   error
}

func (e *OCRError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("OCR failed: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("OCR failed: %s", e.Message)
}

func (e *OCRError) Unwrap() error {
	return e.Cause
}

// ClassificationError represents a failure to decide whether extracted text
// is a restaurant check. Raw carries the unparsed model response for
// diagnostics.
type ClassificationError struct {
	Message string
	Raw     string
	Cause   error
}

func (e *ClassificationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("classification failed: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("classification failed: %s", e.Message)
}

func (e *ClassificationError) Unwrap() error {
	return e.Cause
}

// ExtractionError represents a failure to extract structured receipt data
// from text. Raw carries the unparsed model response for diagnostics.
type ExtractionError struct {
	Message string
	Raw     string
	Cause   error
}

func (e *ExtractionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("extraction failed: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("extraction failed: %s", e.Message)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}

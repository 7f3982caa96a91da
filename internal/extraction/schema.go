package extraction

import (
	"embed"

	"github.com/google/generative-ai-go/genai"
)

// Model responses are checked twice: a provider-side response schema
// constrains generation, and an embedded JSON Schema validates whatever
// actually came back before it is decoded. The JSON Schema is deliberately
// looser on numeric fields (it admits numeric strings) because providers do
// not always honor the integer constraint; coercion happens in the receipt
// package.

//go:embed schemas/*.json
var schemaFiles embed.FS

var (
	classificationSchemaDoc = mustReadSchema("schemas/check_classification.json")
	itemsSchemaDoc          = mustReadSchema("schemas/receipt_items.json")
	totalSchemaDoc          = mustReadSchema("schemas/receipt_total.json")
)

func mustReadSchema(name string) string {
	data, err := schemaFiles.ReadFile(name)
	if err != nil {
		panic("missing embedded schema " + name + ": " + err.Error())
	}
	return string(data)
}

// classificationResponseSchema is the provider-side constraint for the
// check classification call.
func classificationResponseSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"is_restaurant": {Type: genai.TypeBoolean},
		},
		Required: []string{"is_restaurant"},
	}
}

// itemsResponseSchema is the provider-side constraint for the line item
// extraction call.
func itemsResponseSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"items": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"name":  {Type: genai.TypeString},
						"price": {Type: genai.TypeInteger},
					},
					Required: []string{"name", "price"},
				},
			},
		},
		Required: []string{"items"},
	}
}

// totalResponseSchema is the provider-side constraint for the detected
// total extraction call.
func totalResponseSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"total_amount": {Type: genai.TypeInteger},
		},
		Required: []string{"total_amount"},
	}
}

// Package llm - schema.go describes structured outputs once and renders them for each consumer:
// the prompt text, the Gemini response/function schema, and a JSON Schema for validation.
package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
)

// FieldType is the shape of a schema field.
type FieldType string

// Supported field shapes.
const (
	FieldString     FieldType = "string"
	FieldStringList FieldType = "[]string"
	FieldObjectList FieldType = "[]object"
)

// ExtractionSchema defines the structure for LLM-based content extraction.
type ExtractionSchema struct {
	Name        string        // Schema name, also used as the function name in function-call mode
	Description string        // What the structured output represents
	Fields      []SchemaField // Expected output fields
}

// SchemaField defines a single field in the extraction output.
type SchemaField struct {
	Name        string        // JSON field name
	Type        FieldType     // Field shape
	Description string        // Description for the LLM
	Required    bool          // Whether the model is asked to always return this field
	Items       []SchemaField // Object properties for FieldObjectList
}

// CompanyPartialSchema is the partial company record both research strategies request.
func CompanyPartialSchema() ExtractionSchema {
	return ExtractionSchema{
		Name:        "update_company_info",
		Description: "Game company profile fields found by research. Omit fields you could not confirm.",
		Fields: []SchemaField{
			{Name: "description", Type: FieldString, Description: "Company overview, 300-500 characters", Required: true},
			{Name: "established", Type: FieldString, Description: "Founding date as YYYY-MM-DD, YYYY-MM when the day is unknown, or YYYY"},
			{Name: "country", Type: FieldString, Description: "Country of the headquarters"},
			{Name: "headquarters", Type: FieldString, Description: "Headquarters location"},
			{Name: "notableWorks", Type: FieldStringList, Description: "Titles of representative games", Required: true},
			{
				Name:        "history",
				Type:        FieldObjectList,
				Description: "Major events, one per year",
				Required:    true,
				Items: []SchemaField{
					{Name: "year", Type: FieldString, Description: "Four-digit year", Required: true},
					{Name: "event", Type: FieldString, Description: "What happened that year", Required: true},
				},
			},
			{Name: "website", Type: FieldString, Description: "Official website URL"},
			{Name: "relatedCompanies", Type: FieldStringList, Description: "Names of parent, subsidiary or partner companies"},
		},
	}
}

// BuildExtractionPrompt renders the schema as an instruction block, followed by inputText if any.
func BuildExtractionPrompt(schema ExtractionSchema, inputText string) string {
	var sb strings.Builder

	sb.WriteString("Return ONLY valid JSON matching this exact structure:\n{\n")
	for i, field := range schema.Fields {
		requiredHint := ""
		if field.Required {
			requiredHint = " (required)"
		}
		sb.WriteString(fmt.Sprintf("  \"%s\": %s%s", field.Name, typeHint(field), requiredHint))
		if field.Description != "" {
			sb.WriteString(fmt.Sprintf(" // %s", field.Description))
		}
		if i < len(schema.Fields)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("}\n\n")

	sb.WriteString("IMPORTANT:\n")
	sb.WriteString("- Do not invent facts. Leave a field out rather than guessing.\n")
	sb.WriteString("- Return ONLY the JSON object, no markdown, no explanation, no code blocks.\n")

	if inputText != "" {
		sb.WriteString("\nInput text:\n\"\"\"\n")
		sb.WriteString(inputText)
		sb.WriteString("\n\"\"\"\n")
	}

	return sb.String()
}

func typeHint(field SchemaField) string {
	switch field.Type {
	case FieldStringList:
		return `["string"]`
	case FieldObjectList:
		parts := make([]string, 0, len(field.Items))
		for _, item := range field.Items {
			parts = append(parts, fmt.Sprintf(`"%s": %s`, item.Name, typeHint(item)))
		}
		return "[{" + strings.Join(parts, ", ") + "}]"
	default:
		return `"string"`
	}
}

// GenaiSchema converts the schema into a Gemini schema object.
func (s ExtractionSchema) GenaiSchema() *genai.Schema {
	return objectSchema(s.Description, s.Fields)
}

// FunctionDeclaration exposes the schema as a callable function for function-call mode.
func (s ExtractionSchema) FunctionDeclaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        s.Name,
		Description: s.Description,
		Parameters:  s.GenaiSchema(),
	}
}

func objectSchema(description string, fields []SchemaField) *genai.Schema {
	props := make(map[string]*genai.Schema, len(fields))
	var required []string
	for _, f := range fields {
		props[f.Name] = fieldSchema(f)
		if f.Required {
			required = append(required, f.Name)
		}
	}
	return &genai.Schema{
		Type:        genai.TypeObject,
		Description: description,
		Properties:  props,
		Required:    required,
	}
}

func fieldSchema(f SchemaField) *genai.Schema {
	switch f.Type {
	case FieldStringList:
		return &genai.Schema{
			Type:        genai.TypeArray,
			Description: f.Description,
			Items:       &genai.Schema{Type: genai.TypeString},
		}
	case FieldObjectList:
		return &genai.Schema{
			Type:        genai.TypeArray,
			Description: f.Description,
			Items:       objectSchema("", f.Items),
		}
	default:
		return &genai.Schema{Type: genai.TypeString, Description: f.Description}
	}
}

// JSONSchema renders a draft-07 JSON Schema used to validate model output.
// Top-level fields are never required: the output is a partial record.
func (s ExtractionSchema) JSONSchema() string {
	doc := map[string]any{
		"$schema":    "http://json-schema.org/draft-07/schema#",
		"title":      s.Name,
		"type":       "object",
		"properties": jsonProperties(s.Fields),
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		// Only maps of strings and slices are marshalled here.
		panic(fmt.Sprintf("llm: cannot render JSON schema %s: %v", s.Name, err))
	}
	return string(data)
}

func jsonProperties(fields []SchemaField) map[string]any {
	props := make(map[string]any, len(fields))
	for _, f := range fields {
		switch f.Type {
		case FieldStringList:
			props[f.Name] = map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			}
		case FieldObjectList:
			var required []string
			for _, item := range f.Items {
				if item.Required {
					required = append(required, item.Name)
				}
			}
			itemSchema := map[string]any{
				"type":       "object",
				"properties": jsonProperties(f.Items),
			}
			if len(required) > 0 {
				itemSchema["required"] = required
			}
			props[f.Name] = map[string]any{
				"type":  "array",
				"items": itemSchema,
			}
		default:
			props[f.Name] = map[string]any{"type": "string"}
		}
	}
	return props
}

package llm

import (
	"encoding/base64"
	"fmt"
	"log"
	"strings"

	"github.com/llm-code-deploy/deploy-backend/internal/deploy/domain"
)

// buildGeneratePrompt constructs the prompt for a fresh build round.
func buildGeneratePrompt(brief string, checks []string, attachments []domain.Attachment) string {
	var attachmentContent strings.Builder
	for _, a := range attachments {
		content, err := decodeAttachment(a)
		if err != nil {
			log.Printf("Warning: skipping attachment %s: %v", a.Name, err)
			continue
		}
		fmt.Fprintf(&attachmentContent, "\n\n--- Attachment: %s ---\n%s\n--- End Attachment ---", a.Name, content)
	}

	return fmt.Sprintf(`You are an expert web developer. Your task is to create a complete, self-contained 'index.html' file.
All CSS and JavaScript must be included directly within the HTML file. Do not use external files.

**Project Brief:**
%s

**Attachments Content:**
%s

**Evaluation Checks:**
The final application will be evaluated against these checks. Make sure the generated code passes them:
- %s

**Instructions:**
1. Create a single `+"`index.html`"+` file.
2. Embed all necessary JavaScript and CSS within `+"`<script>`"+` and `+"`<style>`"+` tags.
3. Ensure the code is clean, functional, and directly addresses the brief and checks.
4. The final output should ONLY be the HTML code, nothing else. Start with `+"`<!DOCTYPE html>`"+` and end with `+"`</html>`"+`.`,
		brief, attachmentContent.String(), strings.Join(checks, "\n- "))
}

// buildRevisePrompt constructs the prompt for a revision round against existing code.
func buildRevisePrompt(brief string, checks []string, existingCode string) string {
	return fmt.Sprintf(`You are an expert web developer. Your task is to update an existing 'index.html' file based on new requirements.
The updated code must remain a single, self-contained HTML file.

**New Brief / Revision Request:**
%s

**Evaluation Checks for this Revision:**
The updated application will be evaluated against these checks. Ensure the code passes them:
- %s

**Existing `+"`index.html`"+` Code:**
`+"```html"+`
%s
`+"```"+`

**Instructions:**
1. Modify the provided HTML code to meet the new requirements.
2. Ensure the result is still a single, self-contained `+"`index.html`"+` file.
3. The final output should ONLY be the complete, updated HTML code. Start with `+"`<!DOCTYPE html>`"+` and end with `+"`</html>`"+`.`,
		brief, strings.Join(checks, "\n- "), existingCode)
}

// decodeAttachment decodes a base64 data URI into its text content.
func decodeAttachment(a domain.Attachment) (string, error) {
	_, encoded, found := strings.Cut(a.URL, ",")
	if !found {
		return "", fmt.Errorf("attachment %s: not a data URI", a.Name)
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("attachment %s: decode base64: %w", a.Name, err)
	}

	return string(data), nil
}

// stripFences removes a surrounding markdown code fence from LLM output.
func stripFences(code string) string {
	code = strings.TrimSpace(code)
	if strings.HasPrefix(code, "```") {
		if idx := strings.Index(code, "\n"); idx >= 0 {
			code = code[idx+1:]
		} else {
			code = strings.TrimPrefix(code, "```html")
			code = strings.TrimPrefix(code, "```")
		}
	}
	code = strings.TrimSuffix(strings.TrimSpace(code), "```")
	return strings.TrimSpace(code)
}

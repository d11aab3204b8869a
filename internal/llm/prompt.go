package llm

import (
	_ "embed"
	"strings"
)

//go:embed prompts/tailor.txt
var tailorTemplate string

// BuildPrompt composes the instruction text for one tailoring request.
// It is a pure function: identical inputs yield byte-identical output.
// The job description is embedded verbatim; sourceText, when available,
// carries the extracted resume text, otherwise the template tells the model
// to read the attached file.
func BuildPrompt(jobDescription, sourceText string) string {
	sourceSection := "The candidate's original resume is attached to this request as a file."
	if trimmed := strings.TrimSpace(sourceText); trimmed != "" {
		sourceSection = "Original Resume/CV:\n---\n" + trimmed + "\n---"
	}

	replacer := strings.NewReplacer(
		"{{JOB_DESCRIPTION}}", jobDescription,
		"{{SOURCE_SECTION}}", sourceSection,
	)
	return replacer.Replace(tailorTemplate)
}

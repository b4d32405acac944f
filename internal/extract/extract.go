package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/fieldops/workdesk/model"
)

// Extractor pulls work-order fields out of an attached document.
// Output values are raw strings; callers re-validate them against the
// field schema before persisting anything.
type Extractor interface {
	Extract(content []byte) (map[string]string, error)
}

// fieldPattern binds a field key to the labelled-line pattern that
// captures its value. Patterns are case-insensitive and anchored to
// line starts so free text in the description cannot shadow a label.
type fieldPattern struct {
	key     string
	pattern *regexp.Regexp
}

var patterns = []fieldPattern{
	{model.FieldNumber, regexp.MustCompile(`(?im)^\s*(?:work\s+)?order\s*(?:no\.?|number|#)?\s*[:#]?\s*(\d+)`)},
	{model.FieldCallRef, regexp.MustCompile(`(?im)^\s*call\s*(?:ref\.?|reference)?\s*[:#]?\s*(\S+)`)},
	{model.FieldBranch, regexp.MustCompile(`(?im)^\s*branch\s*[:#]?\s*(.+)$`)},
	{model.FieldDistance, regexp.MustCompile(`(?im)^\s*(?:distance|km)\s*(?:\(km\))?\s*[:#]?\s*([\d\s,.]+)$`)},
	{model.FieldDescription, regexp.MustCompile(`(?im)^\s*description\s*[:#]?\s*(.+)$`)},
	{model.FieldCriticality, regexp.MustCompile(`(?im)^\s*criticality\s*[:#]?\s*([a-z]+)`)},
	{model.FieldCategory, regexp.MustCompile(`(?im)^\s*category\s*[:#]?\s*([a-z]+)`)},
	{model.FieldDeadline, regexp.MustCompile(`(?im)^\s*deadline\s*[:#]?\s*(\d{2}/\d{2}/\d{4})`)},
}

// TextExtractor scans plain-text documents line by line for labelled
// field values.
type TextExtractor struct{}

// NewTextExtractor creates a text document extractor.
func NewTextExtractor() *TextExtractor {
	return &TextExtractor{}
}

// Extract returns every field whose label was found in the document.
// At minimum the order number must be present; a document without one
// is not a work order.
func (e *TextExtractor) Extract(content []byte) (map[string]string, error) {
	text := normalize(string(content))

	found := make(map[string]string)
	for _, fp := range patterns {
		m := fp.pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		value := strings.TrimSpace(m[1])
		if value == "" {
			continue
		}
		found[fp.key] = value
	}

	if _, ok := found[model.FieldNumber]; !ok {
		return nil, model.NewValidationError(model.FieldNumber,
			fmt.Sprintf("document does not contain an order number (%d fields recognized)", len(found)))
	}
	return found, nil
}

// normalize collapses runs of spaces and tabs within lines while
// preserving line breaks, which the patterns anchor on.
func normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	return strings.Join(lines, "\n")
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"sync"

	"go.yaml.in/yaml/v3"
)

// Assembler collects sub-call outputs keyed by the caller's index (a year,
// a niche position, a derivative position) and hands them back in key
// order, whatever order they arrived in. It is safe for concurrent Put.
type Assembler[K cmp.Ordered, V any] struct {
	mu     sync.Mutex
	values map[K]V
}

// NewAssembler returns an empty assembler.
func NewAssembler[K cmp.Ordered, V any]() *Assembler[K, V] {
	return &Assembler[K, V]{values: make(map[K]V)}
}

// Put stores v under k. A second Put for the same key is an error.
func (a *Assembler[K, V]) Put(k K, v V) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, dup := a.values[k]; dup {
		return fmt.Errorf("duplicate result for key %v", k)
	}
	a.values[k] = v
	return nil
}

// Len returns the number of values stored.
func (a *Assembler[K, V]) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.values)
}

// Keys returns the stored keys in ascending order.
func (a *Assembler[K, V]) Keys() []K {
	a.mu.Lock()
	defer a.mu.Unlock()
	keys := make([]K, 0, len(a.values))
	for k := range a.values {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Values returns the stored values in ascending key order.
func (a *Assembler[K, V]) Values() []V {
	keys := a.Keys()
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]V, len(keys))
	for i, k := range keys {
		out[i] = a.values[k]
	}
	return out
}

// Section is one labelled block of a synthesis prompt.
type Section struct {
	Label string
	Body  string
}

// RenderSections joins sections as "Label:\nBody" blocks separated by blank
// lines. Sections with an empty body are left out.
func RenderSections(sections ...Section) string {
	var b strings.Builder
	for _, s := range sections {
		body := strings.TrimSpace(s.Body)
		if body == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(s.Label)
		b.WriteString(":\n")
		b.WriteString(body)
	}
	return b.String()
}

// Bullets renders items as a dash list.
func Bullets(items []string) string {
	var b strings.Builder
	for _, it := range items {
		if strings.TrimSpace(it) == "" {
			continue
		}
		b.WriteString("- ")
		b.WriteString(it)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// ArtifactText serializes a report for the artifact store: a title line
// followed by the report as YAML, which keeps field names next to values
// when the text is cut into word chunks.
func ArtifactText(title string, report any) (string, error) {
	data, err := yaml.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("marshaling report: %w", err)
	}
	return title + "\n\n" + string(data), nil
}

// ReportContext serializes a prior-stage report for use as prompt context.
func ReportContext(report any) string {
	data, err := yaml.Marshal(report)
	if err != nil {
		return fmt.Sprintf("%+v", report)
	}
	return strings.TrimSpace(string(data))
}

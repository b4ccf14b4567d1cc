// Package testdata implements the optional test-instrumentation sink
// named in spec.md §6: a per-stage recorder that accumulates one JSON
// section per pipeline stage and flushes them to a single
// "{prefix}_test_data.json" document. The orchestrator treats it as a
// collaborator rather than a core algorithmic stage, matching
// sister_sto/utils/test_instrumentation.py's section-at-a-time shape.
package testdata

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// Recorder accumulates named sections during a pipeline run and writes
// them out once the run finishes.
type Recorder interface {
	// Section records data under name, overwriting any prior section of
	// the same name (a stage only ever completes once per run).
	Section(name string, data any)

	// Flush persists every recorded section. Orchestrator.Run calls it
	// once, after OnMetricsComplete; the run command calls it again after
	// a successful run, which rewrites the same file.
	Flush() error
}

// NoopRecorder discards every section, the default when a caller hasn't
// asked for test instrumentation.
type NoopRecorder struct{}

func (NoopRecorder) Section(string, any) {}
func (NoopRecorder) Flush() error        { return nil }

// JSONRecorder writes every recorded section to "{prefix}_test_data.json"
// as one JSON document, sections keyed by stage name (§6: "input/
// locate_labels/classify_layout/locate_icon_groups/locate_icon_slots/
// prefilter_icons/detect_icon_overlays/detect_icons/
// output_transformation").
type JSONRecorder struct {
	prefix   string
	mu       sync.Mutex
	sections map[string]any
}

// NewJSONRecorder builds a recorder that will write to
// "<prefix>_test_data.json" on Flush.
func NewJSONRecorder(prefix string) *JSONRecorder {
	return &JSONRecorder{prefix: prefix, sections: make(map[string]any)}
}

func (r *JSONRecorder) Section(name string, data any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sections[name] = data
}

// Flush marshals every recorded section and writes it to disk.
func (r *JSONRecorder) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	raw, err := json.MarshalIndent(r.sections, "", "  ")
	if err != nil {
		return fmt.Errorf("testdata: marshal sections: %w", err)
	}
	path := r.prefix + "_test_data.json"
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("testdata: write %s: %w", path, err)
	}
	return nil
}

package report

import (
	"encoding/json"
	"io"

	"github.com/mihaiandreineacsu/nmapclone/internal/model"
)

// JSONWriter outputs reports as JSON for other tools to consume.
type JSONWriter struct {
	baseWriter

	indent       bool
	indentPrefix string
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint is WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Document is the top-level JSON object: the report plus derived data that
// is convenient for consumers.
type Document struct {
	Version   string            `json:"version,omitempty"`
	Report    *model.ScanReport `json:"report"`
	Summary   model.Summary     `json:"summary"`
	OpenPorts []int             `json:"open_ports"`
}

// NewDocument wraps report with its summary and open port list.
func NewDocument(report *model.ScanReport, version string) *Document {
	return &Document{
		Version:   version,
		Report:    report,
		Summary:   report.Summary(),
		OpenPorts: report.OpenPortNumbers(),
	}
}

// Write outputs the report wrapped in a Document.
func (w *JSONWriter) Write(report *model.ScanReport) (int, error) {
	return w.writeJSON(NewDocument(report, ""))
}

// WriteComparison outputs the comparison as JSON.
func (w *JSONWriter) WriteComparison(c *model.Comparison) (int, error) {
	return w.writeJSON(c)
}

func (w *JSONWriter) writeJSON(v any) (int, error) {
	var (
		data []byte
		err  error
	)
	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}
	data = append(data, '\n')
	return w.output.Write(data)
}

// VersionedJSONWriter stamps every report with the tool version.
type VersionedJSONWriter struct {
	*JSONWriter
	version string
}

// NewVersionedJSONWriter creates a JSON writer that records version.
func NewVersionedJSONWriter(output io.Writer, version string, opts ...JSONWriterOption) *VersionedJSONWriter {
	return &VersionedJSONWriter{
		JSONWriter: NewJSONWriter(output, opts...),
		version:    version,
	}
}

// Write outputs the report wrapped in a versioned Document.
func (w *VersionedJSONWriter) Write(report *model.ScanReport) (int, error) {
	return w.writeJSON(NewDocument(report, w.version))
}

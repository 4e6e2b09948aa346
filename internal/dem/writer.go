package dem

import (
	"encoding/json"
	"io"
)

// Writer appends one serialized record per line to an underlying writer.
// It holds no more than the record currently being encoded; grouping and
// buffering live in TickGate. A write failure is fatal to the run and is
// returned to the caller verbatim.
type Writer struct {
	enc *json.Encoder
}

// NewWriter wraps w in a line-delimited JSON record sink.
func NewWriter(w io.Writer) *Writer {
	return &Writer{enc: json.NewEncoder(w)}
}

// Write serializes rec followed by a newline.
func (w *Writer) Write(rec Record) error {
	return w.enc.Encode(rec)
}

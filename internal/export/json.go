package export

import (
	"encoding/json"
	"io"
)

// JSONRenderer writes the reports as a pretty-printed array using the
// entity's own field names.
type JSONRenderer struct{}

func (JSONRenderer) ContentType() string { return "application/json" }

func (JSONRenderer) Render(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(doc.Reports)
}

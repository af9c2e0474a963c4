package cli

import (
	"encoding/json"
	"io"
	"os"

	"golang.org/x/term"
)

// outputFormat forces compact or pretty output: "auto", "pretty" or "compact".
var outputFormat = "auto"

// isTerminal is replaceable in tests.
var isTerminal = func(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// writeJSON prints v as JSON, indented when w is a terminal.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	pretty := outputFormat == "pretty" || (outputFormat == "auto" && isTerminal(w))
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

package registry

import (
	"strings"

	parser "github.com/gpustack/gguf-parser-go"
)

// Details is the descriptive metadata shown in model listings.
type Details struct {
	Format            string
	Family            string
	ParameterSize     string
	QuantizationLevel string
}

// ReadDetails parses the GGUF header of the blob at path. On failure the
// returned Details still carries the format so listings stay well-formed.
func ReadDetails(path string) (Details, error) {
	d := Details{Format: "gguf"}
	f, err := parser.ParseGGUFFile(path)
	if err != nil {
		return d, err
	}
	md := f.Metadata()
	d.Family = strings.TrimSpace(md.Architecture)
	d.ParameterSize = strings.ReplaceAll(strings.TrimSpace(md.Parameters.String()), " ", "")
	d.QuantizationLevel = strings.TrimSpace(md.FileType.String())
	return d, nil
}

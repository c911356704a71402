package styles

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// catalogFile is the YAML document shape used for style import/export.
type catalogFile struct {
	Styles []StyleDefinition `yaml:"styles"`
}

// LoadCatalog decodes a YAML style catalog.
func LoadCatalog(r io.Reader) ([]StyleDefinition, error) {
	var file catalogFile
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode style catalog: %w", err)
	}

	for i, style := range file.Styles {
		if style.ID == "" && style.Name == "" {
			return nil, fmt.Errorf("style at index %d has neither id nor name", i)
		}
	}
	return file.Styles, nil
}

// ExportCatalog writes the styles as a YAML catalog document.
func ExportCatalog(w io.Writer, styleSet []StyleDefinition) error {
	encoder := yaml.NewEncoder(w)
	defer encoder.Close()
	if err := encoder.Encode(catalogFile{Styles: styleSet}); err != nil {
		return fmt.Errorf("encode style catalog: %w", err)
	}
	return nil
}

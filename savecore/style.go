package savecore

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Style selects which memory regions a core file includes
type Style int

const (
	// StyleUnspecified leaves the choice to the writer; regions cannot be resolved
	StyleUnspecified Style = iota
	// StyleFull saves every readable region
	StyleFull
	// StyleDirtyPages saves regions holding modified pages
	StyleDirtyPages
	// StyleStackOnly saves the stacks of the selected threads
	StyleStackOnly
	// StyleCustomOnly saves exactly the regions added with AddMemoryRegionToSave
	StyleCustomOnly
)

var styleNames = map[Style]string{
	StyleUnspecified: "unspecified",
	StyleFull:        "full",
	StyleDirtyPages:  "dirty-pages",
	StyleStackOnly:   "stack-only",
	StyleCustomOnly:  "custom-only",
}

func (s Style) String() string {
	if name, ok := styleNames[s]; ok {
		return name
	}
	return fmt.Sprintf("style(%d)", int(s))
}

// ParseStyle converts a style name to a Style. Matching ignores case and
// accepts '_' in place of '-'.
func ParseStyle(name string) (Style, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "_", "-")
	if normalized == "" {
		return StyleUnspecified, nil
	}
	for style, styleName := range styleNames {
		if styleName == normalized {
			return style, nil
		}
	}
	return StyleUnspecified, fmt.Errorf("unknown core style %q", name)
}

func (s Style) MarshalYAML() (interface{}, error) {
	return s.String(), nil
}

func (s *Style) UnmarshalYAML(value *yaml.Node) error {
	var name string
	if err := value.Decode(&name); err != nil {
		return fmt.Errorf("decode style: %w", err)
	}
	style, err := ParseStyle(name)
	if err != nil {
		return err
	}
	*s = style
	return nil
}

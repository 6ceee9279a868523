package diagram

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrymomot/fsmkit/pkg/fsm"
)

// Export writes one diagram file per definition and format into dir, creating
// it if needed. File names follow <entity_type>_<column><ext>, so an order
// status machine exported as Mermaid lands in order_status.mmd.
func Export(dir string, defs []*fsm.RuntimeDefinition, formats ...Format) error {
	if len(formats) == 0 {
		formats = []Format{FormatMermaid}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create diagram dir: %w", err)
	}
	for _, def := range defs {
		for _, format := range formats {
			content, err := Render(def, format)
			if err != nil {
				return err
			}
			path := filepath.Join(dir, FileName(def, format))
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				return fmt.Errorf("write diagram %s: %w", path, err)
			}
		}
	}
	return nil
}

// FileName returns the export file name for a definition and format.
func FileName(def *fsm.RuntimeDefinition, format Format) string {
	base := strings.ToLower(def.EntityType) + "_" + strings.ToLower(def.Column)
	return ident(base) + format.Ext()
}

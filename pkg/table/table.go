package table

import (
	"github.com/pterm/pterm"
)

// PrintTableNoPad renders rows with pterm. The first row is the header when
// hasHeader is set.
func PrintTableNoPad(rows pterm.TableData, hasHeader bool) {
	if len(rows) == 0 {
		return
	}
	t := pterm.DefaultTable.WithData(rows).WithLeftAlignment()
	if hasHeader {
		t = t.WithHasHeader()
	}
	_ = t.Render()
}

package cli

import (
	"fmt"

	"github.com/mcdonaldj/epubtidy/internal/preview"
	"github.com/mcdonaldj/epubtidy/internal/walker"
)

// printDiff writes the changed lines of every change, followed by the
// declarations they lost.
func printDiff(c *CLI, changes []walker.Change) {
	for _, d := range preview.Changes(changes) {
		fmt.Fprintf(c.Out, "%s %s %s\n", c.cyan("==="), d.Path,
			c.gray(fmt.Sprintf("(+%d -%d)", d.Added(), d.Deleted())))
		if d.IsBinary {
			fmt.Fprintln(c.Out, c.gray("    binary content"))
			continue
		}
		for _, l := range preview.OnlyChanges(d.Lines) {
			switch l.Type {
			case '-':
				fmt.Fprintf(c.Out, "%s %4d %s\n", c.red("-"), l.LineNum1, c.red(l.Content))
			case '+':
				fmt.Fprintf(c.Out, "%s %4d %s\n", c.green("+"), l.LineNum2, c.green(l.Content))
			}
		}
		if len(d.Removed) > 0 {
			fmt.Fprintln(c.Out, c.gray("  removed:"))
			for _, r := range d.Removed {
				fmt.Fprintln(c.Out, c.gray(indent(r, "    ")))
			}
		}
		fmt.Fprintln(c.Out)
	}
}

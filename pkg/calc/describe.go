package calc

import (
	"strings"
)

// Describe renders the calc tree, one node per line, indented by depth.
func Describe(c Calc) string {
	var b strings.Builder
	describe(&b, c, 0)
	return b.String()
}

func describe(b *strings.Builder, c Calc, depth int) {
	b.WriteString(strings.Repeat("  ", depth))
	if c == nil {
		b.WriteString("<nil>\n")
		return
	}
	b.WriteString(c.Name())
	b.WriteString("(type=")
	if c.Type() != nil {
		b.WriteString(c.Type().String())
	}
	b.WriteString(", resultStyle=")
	b.WriteString(c.ResultStyle().String())
	b.WriteString(")\n")
	for _, child := range c.Children() {
		describe(b, child, depth+1)
	}
}

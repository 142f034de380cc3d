package ioc

import (
	"fmt"
	"strings"
)

// Render formats the set as an aligned plain-text table for terminal display.
// Empty contexts render as "N/A".
func (s *Set) Render() string {
	typeWidth, valueWidth := len("TYPE"), len("VALUE")
	for _, item := range s.IOCs {
		if len(item.Type) > typeWidth {
			typeWidth = len(item.Type)
		}
		if len(item.Value) > valueWidth {
			valueWidth = len(item.Value)
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%-*s  %-*s  %s\n", typeWidth, "TYPE", valueWidth, "VALUE", "CONTEXT")
	for _, item := range s.IOCs {
		context := strings.TrimSpace(item.Context)
		if context == "" {
			context = "N/A"
		}
		fmt.Fprintf(&sb, "%-*s  %-*s  %s\n", typeWidth, item.Type, valueWidth, item.Value, context)
	}
	return sb.String()
}

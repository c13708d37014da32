// Completion: 100% - Writer module complete
package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/xyproto/potter/internal/elfbuild"
)

// writeSymbols renders the stack frames, strings and labels of a compiled
// unit as tables
func writeSymbols(w io.Writer, u *unit) error {
	frames := table.NewWriter()
	frames.SetTitle("Stack frames")
	frames.AppendHeader(table.Row{"Function", "Kind", "Variable", "Slot", "Offset"})
	for _, f := range u.result.Frames {
		kind := "user"
		switch {
		case f.Builtin:
			kind = "standard I/O"
		case f.Void:
			kind = "void"
		}
		if len(f.Slots) == 0 {
			frames.AppendRow(table.Row{f.Function, kind, "-", "-", "-"})
			continue
		}
		for _, slot := range f.Slots {
			role := "local"
			if slot.Param {
				role = "param"
			}
			frames.AppendRow(table.Row{f.Function, kind, slot.Name, role, rbpOffset(slot.Offset)})
		}
	}
	if _, err := fmt.Fprintln(w, frames.Render()); err != nil {
		return err
	}

	strs := table.NewWriter()
	strs.SetTitle("Strings")
	strs.AppendHeader(table.Row{"Label", "Content", "Bytes"})
	for i, str := range u.table.Strings() {
		strs.AppendRow(table.Row{u.table.StringLabel(i), strconv.Quote(str.Content), len(str.Content) + 1})
	}
	if _, err := fmt.Fprintln(w, strs.Render()); err != nil {
		return err
	}

	labels := table.NewWriter()
	labels.SetTitle("Labels")
	labels.AppendHeader(table.Row{"Label", "Offset", "Address"})
	for _, l := range u.result.Labels {
		labels.AppendRow(table.Row{
			l.Qualified(),
			fmt.Sprintf("0x%x", l.Offset),
			fmt.Sprintf("0x%x", l.Offset+elfbuild.LoadBias),
		})
	}
	_, err := fmt.Fprintln(w, labels.Render())
	return err
}

func rbpOffset(off int32) string {
	if off < 0 {
		return fmt.Sprintf("rbp-%d", -off)
	}
	return fmt.Sprintf("rbp+%d", off)
}

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/Carmen-Shannon/oxy-fx/engine/parameter"
	"github.com/spf13/cobra"
)

func newParamsCommand(_ *app) *cobra.Command {
	return &cobra.Command{
		Use:   "params",
		Short: "List the parameter registry as a tree of groups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			writeParams(cmd.OutOrStdout(), parameter.Default(), parameter.NoParent, 0)
			return nil
		},
	}
}

func writeParams(w io.Writer, reg parameter.Registry, parent parameter.ID, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, e := range reg.Children(parent) {
		fmt.Fprintf(w, "%s%-4d %-24s %s\n", indent, e.ID, e.Name, describeRole(e))
		if e.Role.Kind() == parameter.RoleGroup {
			writeParams(w, reg, e.ID, depth+1)
		}
	}
}

func describeRole(e parameter.Entry) string {
	switch r := e.Role.(type) {
	case parameter.Scalar:
		return fmt.Sprintf("%q scalar [%g, %g] default %g", e.Label, r.Range.Min, r.Range.Max, r.Range.Default)
	case parameter.Toggle:
		return fmt.Sprintf("%q toggle default %t", e.Label, r.Default)
	case parameter.Enum:
		return fmt.Sprintf("%q enum %s default %q", e.Label, strings.Join(r.Options, " | "), r.Options[r.Default])
	default:
		return fmt.Sprintf("%q group", e.Label)
	}
}

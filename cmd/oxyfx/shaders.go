package main

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/shader"
	"github.com/spf13/cobra"
)

func newShadersCommand(_ *app) *cobra.Command {
	var validate bool
	cmd := &cobra.Command{
		Use:   "shaders",
		Short: "List the built-in WGSL shaders and optionally compile them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			var failed []error
			for _, name := range shader.BuiltinNames() {
				s, err := shader.Builtin(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%-16s %d uniform fields", name, len(s.UniformFields()))
				if validate {
					size, err := shader.Validate(s)
					if err != nil {
						failed = append(failed, err)
						fmt.Fprintf(out, "  invalid: %v", err)
					} else {
						fmt.Fprintf(out, "  ok (%d bytes SPIR-V)", size)
					}
				}
				fmt.Fprintln(out)
			}
			return errors.Join(failed...)
		},
	}
	cmd.Flags().BoolVar(&validate, "validate", false, "compile each shader to SPIR-V")
	return cmd
}

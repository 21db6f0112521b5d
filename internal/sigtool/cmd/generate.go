package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"sigtool/internal/workflow"
)

func newGenerateCmd(a *app) *cobra.Command {
	var (
		address  string
		function string
		showAsm  bool
	)

	cmd := &cobra.Command{
		Use:   "generate <binary>",
		Short: "Generate a unique signature for an address or function",
		Example: `
# Signature for the instruction at an address
sigtool generate ./libgame.so --address 1a2b40

# Signature for a function entry with the covered instructions
sigtool generate ./server --function main.main --asm
  `,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (address == "") == (function == "") {
				return errors.New("exactly one of --address and --function is required")
			}

			t, err := a.openELF(args[0], cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer t.Close()

			var res *workflow.Result
			if address != "" {
				addr, err := parseAddress(address)
				if err != nil {
					return err
				}
				res, err = t.session.GenerateAt(cmd.Context(), addr)
				if err != nil {
					return err
				}
			} else {
				fn, ok := t.index.ByName(function)
				if !ok {
					return fmt.Errorf("function %q not found", function)
				}
				res, err = t.session.GenerateForFunction(cmd.Context(), fn)
				if err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if a.jsonOut {
				return a.writeJSON(out, res)
			}

			if err := a.writeReport(out, generateMarkdown(res), generatePlain(res)); err != nil {
				return err
			}
			if showAsm {
				fmt.Fprint(out, "\n"+t.listing(res.Address, res.Length))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&address, "address", "a", "", "Address of the instruction to sign (hex)")
	cmd.Flags().StringVarP(&function, "function", "f", "", "Function to sign, by mangled or demangled name")
	cmd.Flags().BoolVar(&showAsm, "asm", false, "Also list the instructions the signature covers")
	return cmd
}

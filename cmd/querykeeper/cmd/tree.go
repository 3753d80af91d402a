package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/solatis/querykeeper/internal/registry"
	"github.com/solatis/querykeeper/internal/rules"
	"github.com/solatis/querykeeper/internal/types"
	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file|->",
		Short: "Check a rule-tree document for completeness",
		Long: `Print the validation report for a rule-tree document.
Exits non-zero when the tree is empty or has incomplete rules.`,
		Args: cobra.ExactArgs(1),
		RunE: runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	rt, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	reg, err := rt.registry()
	if err != nil {
		return err
	}
	tree, err := readTree(cmd, args[0])
	if err != nil {
		return err
	}

	report := rules.NewEngine(reg).Validate(tree)
	if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
		return err
	}
	return rules.CheckSave(tree)
}

func newAnnotateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "annotate <file|->",
		Short: "Print a rule-tree document with leaf datatypes attached",
		Args:  cobra.ExactArgs(1),
		RunE:  runAnnotate,
	}
}

func runAnnotate(cmd *cobra.Command, args []string) error {
	rt, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	reg, err := rt.registry()
	if err != nil {
		return err
	}
	tree, err := readTree(cmd, args[0])
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), rules.NewEngine(reg).Annotate(tree))
}

func newOperatorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "operators [field]",
		Short: "List configured fields, or the operators allowed for one field",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runOperators,
	}
}

// operatorInfo is one operator with the value editor it needs.
type operatorInfo struct {
	Name   string         `json:"name"`
	Editor string         `json:"valueEditorType"`
	Values []types.Option `json:"values,omitempty"`
}

func runOperators(cmd *cobra.Command, args []string) error {
	rt, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	reg, err := rt.registry()
	if err != nil {
		return err
	}

	if len(args) == 0 {
		return writeJSON(cmd.OutOrStdout(), reg.Fields())
	}

	field := args[0]
	if _, ok := reg.Lookup(field); !ok {
		return fmt.Errorf("unknown field %q", field)
	}
	return writeJSON(cmd.OutOrStdout(), describeOperators(reg, field))
}

func describeOperators(reg *registry.Registry, field string) []operatorInfo {
	ops := reg.OperatorsFor(field)
	out := make([]operatorInfo, 0, len(ops))
	for _, op := range ops {
		out = append(out, operatorInfo{
			Name:   op,
			Editor: reg.ValueEditorType(field, op),
			Values: reg.ValueOptions(field, op),
		})
	}
	return out
}

// readTree decodes a rule tree from path, or from stdin when path is "-".
func readTree(cmd *cobra.Command, path string) (*types.RuleGroup, error) {
	var r io.Reader
	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}

	data, err := io.ReadAll(io.LimitReader(r, types.MaxDocumentSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(data) > types.MaxDocumentSize {
		return nil, fmt.Errorf("%s exceeds %d bytes", path, types.MaxDocumentSize)
	}

	tree, err := types.DecodeTree(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return tree, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

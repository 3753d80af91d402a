package cmd

import (
	"fmt"

	"github.com/solatis/querykeeper/internal/core/auth"
	"github.com/solatis/querykeeper/internal/core/config"
	"github.com/solatis/querykeeper/internal/editor"
	"github.com/solatis/querykeeper/internal/persist"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newSaveCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "save <file|->",
		Short: "Validate, annotate and send a rule-tree document to the data endpoint",
		Long: `Send a rule-tree document to the configured data endpoint.
Empty or incomplete trees are rejected locally and nothing is sent.
Requests are signed when QK_HMAC_SECRET is set.`,
		Args: cobra.ExactArgs(1),
		RunE: runSave,
	}
	c.Flags().String("data-url", "", "data endpoint URL")
	return c
}

func runSave(cmd *cobra.Command, args []string) error {
	rt, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = rt.logger.Sync() }()

	session, err := rt.session()
	if err != nil {
		return err
	}
	tree, err := readTree(cmd, args[0])
	if err != nil {
		return err
	}

	session.Import(tree)
	if err := session.Save(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "saved %s to %s\n", args[0], rt.cfg.Client.DataURL)
	return nil
}

func newLoadCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "load",
		Short: "Fetch the stored rule-tree document from the data endpoint",
		Args:  cobra.NoArgs,
		RunE:  runLoad,
	}
	c.Flags().String("data-url", "", "data endpoint URL")
	return c
}

func runLoad(cmd *cobra.Command, args []string) error {
	rt, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = rt.logger.Sync() }()

	session, err := rt.session()
	if err != nil {
		return err
	}
	if err := session.Load(cmd.Context()); err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), session.Tree())
}

// session builds an editor session backed by the configured data endpoint.
func (rt *runtime) session() (*editor.Session, error) {
	reg, err := rt.registry()
	if err != nil {
		return nil, err
	}

	opts := []persist.Option{persist.WithLogger(rt.logger)}
	keyID, secret, ok, err := config.SigningSecret()
	if err != nil {
		return nil, fmt.Errorf("failed to load HMAC secret: %w", err)
	}
	if ok {
		opts = append(opts, persist.WithSigner(auth.NewSigner(keyID, secret)))
		rt.logger.Debug("signing requests", zap.String("key_id", keyID))
	}

	client, err := persist.NewClient(rt.cfg.Client.DataURL, rt.cfg.Client.Timeout, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return editor.NewSession(reg, client, rt.logger), nil
}

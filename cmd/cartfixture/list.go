package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/garunski/cartridge-fixture/pkg/framework/index"
	"github.com/garunski/cartridge-fixture/pkg/framework/repository"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the cartridge versions installed in the repository",
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	repo := repository.New(cfg.RepositoryPath, index.NewIndex(), logr.Discard())
	if err := repo.Load(cmd.Context()); err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tVERSION\tRELEASE")
	for _, id := range repo.List() {
		fmt.Fprintf(w, "%s\t%s\t%s\n", id.Name, id.Version, id.Release)
	}
	return w.Flush()
}

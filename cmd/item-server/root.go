package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/MRamiBalles/pickup-server/internal/domain/item"
	"github.com/MRamiBalles/pickup-server/internal/platform/config"
)

func newRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:           "item-server",
		Short:         "Authoritative server for mission items",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML, default: built-in defaults)")

	root.AddCommand(newServeCmd(&cfgFile))
	root.AddCommand(newTemplatesCmd(&cfgFile))
	return root
}

func newTemplatesCmd(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "List the loaded item templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgFile)
			if err != nil {
				return err
			}
			registry, err := loadRegistry(cfg)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, name := range registry.Names() {
				t, _ := registry.Get(name)
				maxInv := "-"
				if t.HasMaxInventory() {
					maxInv = fmt.Sprint(t.Max())
				}
				fmt.Fprintf(out, "%-20s max=%-6s pickup=%q\n", t.Name, maxInv, t.PickupName)
			}
			return nil
		},
	}
}

// loadRegistry builds the template registry from the built-ins plus the
// configured templates file.
func loadRegistry(cfg config.Config) (*item.Registry, error) {
	registry := item.NewRegistry()
	if cfg.TemplatesFile == "" {
		return registry, nil
	}
	raw, err := os.ReadFile(cfg.TemplatesFile)
	if err != nil {
		return nil, fmt.Errorf("read templates: %w", err)
	}
	if err := registry.LoadYAML(raw); err != nil {
		return nil, err
	}
	return registry, nil
}

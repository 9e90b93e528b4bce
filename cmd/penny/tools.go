package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/penny/internal/tools"
)

var toolsCatalogPath string

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tool catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog := tools.DefaultCatalog()
		if toolsCatalogPath != "" {
			loaded, err := tools.LoadCatalog(toolsCatalogPath)
			if err != nil {
				return fmt.Errorf("load catalog %s: %w", toolsCatalogPath, err)
			}
			catalog = loaded
		}

		bold := color.New(color.Bold)
		for _, name := range catalog.Names() {
			tool, _ := catalog.Get(name)
			bold.Println(tool.Signature())
			fmt.Printf("  %s\n", tool.Description)
		}
		return nil
	},
}

func init() {
	toolsCmd.Flags().StringVar(&toolsCatalogPath, "catalog", "", "Path to a tool catalog YAML file")
}

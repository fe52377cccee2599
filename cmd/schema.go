package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/greenlane/catalog-tagger/internal/schema"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Validate and summarize the approved tag schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := schema.Load(cfg.Schema.Path)
		if err != nil {
			return err
		}

		fmt.Printf("schema %s: %d categories, %d dimensions\n",
			cfg.Schema.Path, len(s.CategoryNames()), len(s.DimensionNames()))
		fmt.Println("categories (detection order):")
		for _, name := range s.CategoryNames() {
			fmt.Printf("  %s\n", name)
		}
		fmt.Println("dimensions:")
		for _, name := range s.DimensionNames() {
			d, _ := s.Dimension(name)
			if d.Range != nil {
				fmt.Printf("  %-20s range %g-%g %s (applies to %d categories)\n",
					name, d.Range.Min, d.Range.Max, d.Range.Unit, len(d.AppliesTo))
				continue
			}
			fmt.Printf("  %-20s %d tags (applies to %d categories)\n",
				name, len(d.Tags), len(d.AppliesTo))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}

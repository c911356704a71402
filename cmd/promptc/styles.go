package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/l2laihub/portrait-prompt-engine/internal/styles"
)

func newStylesCmd(root *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "styles",
		Short: "Query the built-in style catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newStylesListCmd(root))
	cmd.AddCommand(newStylesRecommendCmd(root))

	return cmd
}

func newStylesListCmd(root *rootFlags) *cobra.Command {
	var category string
	var featuredOnly bool
	var catalogPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List available styles by popularity",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := loadRegistry(root, catalogPath)
			if err != nil {
				return err
			}

			filter := &styles.ListFilter{Category: category}
			if featuredOnly {
				t := true
				filter.Featured = &t
			}

			for _, style := range reg.List(filter) {
				printStyle(cmd, style)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "Filter by category")
	cmd.Flags().BoolVar(&featuredOnly, "featured", false, "Only featured styles")
	cmd.Flags().StringVar(&catalogPath, "catalog", "", "Load styles from a YAML catalog instead of the built-in set")

	return cmd
}

func newStylesRecommendCmd(root *rootFlags) *cobra.Command {
	var prefs styles.Preferences
	var count int
	var catalogPath string

	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Recommend styles for a set of preferences",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := loadRegistry(root, catalogPath)
			if err != nil {
				return err
			}

			for _, style := range reg.Recommend(prefs, count) {
				printStyle(cmd, style)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&prefs.Mood, "mood", nil, "Preferred moods, e.g. romantic,warm")
	cmd.Flags().StringVar(&prefs.Category, "category", "", "Preferred category")
	cmd.Flags().StringSliceVar(&prefs.Tags, "tags", nil, "Preferred tags")
	cmd.Flags().StringVar(&prefs.Setting, "setting", "", "Preferred setting description")
	cmd.Flags().IntVarP(&count, "count", "n", 3, "Number of recommendations")
	cmd.Flags().StringVar(&catalogPath, "catalog", "", "Load styles from a YAML catalog instead of the built-in set")

	return cmd
}

func loadRegistry(root *rootFlags, catalogPath string) (*styles.Registry, error) {
	reg := styles.NewRegistry(styles.WithLogger(root.log))
	if catalogPath == "" {
		reg.Import(styles.DefaultCatalog())
		return reg, nil
	}

	f, err := os.Open(catalogPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	catalog, err := styles.LoadCatalog(f)
	if err != nil {
		return nil, err
	}
	reg.Import(catalog)
	return reg, nil
}

func printStyle(cmd *cobra.Command, style styles.StyleDefinition) {
	var marks []string
	if style.Featured {
		marks = append(marks, "featured")
	}
	if style.Premium {
		marks = append(marks, "premium")
	}
	suffix := ""
	if len(marks) > 0 {
		suffix = " [" + strings.Join(marks, ", ") + "]"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%-24s %s%s\n", style.ID, style.Name, suffix)
}

package cmd

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"golang-social-analytics-service/internal/models"
)

// Flags for the mapping subcommands
var (
	mappingCategory string
	mappingExternal string
	mappingInternal string
)

var mappingCmd = &cobra.Command{
	Use:   "mapping",
	Short: "Manage column mappings",
	Long: `Column mappings translate vendor export headers to internal field
names. Built-in defaults cover the Swedish and English export formats;
overrides set here take precedence and persist across runs.`,
}

var mappingShowCmd = &cobra.Command{
	Use:     "show",
	Short:   "Show the active mapping table for a category",
	PreRunE: validateMappingCategory,
	RunE:    runMappingShow,
}

var mappingSetCmd = &cobra.Command{
	Use:     "set",
	Short:   "Map an external column header to an internal field",
	PreRunE: validateMappingCategory,
	RunE:    runMappingSet,
}

var mappingResetCmd = &cobra.Command{
	Use:     "reset",
	Short:   "Restore the built-in default mapping for a category",
	PreRunE: validateMappingCategory,
	RunE:    runMappingReset,
}

func init() {
	rootCmd.AddCommand(mappingCmd)
	mappingCmd.AddCommand(mappingShowCmd)
	mappingCmd.AddCommand(mappingSetCmd)
	mappingCmd.AddCommand(mappingResetCmd)

	mappingCmd.PersistentFlags().StringVarP(&mappingCategory, "category", "c", "", "dataset category: daily-summary or per-item (required)")

	mappingSetCmd.Flags().StringVar(&mappingExternal, "external", "", "column header as it appears in the export file (required)")
	mappingSetCmd.Flags().StringVar(&mappingInternal, "internal", "", "internal field name (required)")
	mappingSetCmd.MarkFlagRequired("external")
	mappingSetCmd.MarkFlagRequired("internal")
}

func validateMappingCategory(cmd *cobra.Command, args []string) error {
	category := models.Category(mappingCategory)
	if !category.IsSupported() {
		return fmt.Errorf("invalid category '%s'. Valid categories: %s, %s",
			mappingCategory, models.CategoryDailySummary, models.CategoryPerItem)
	}
	return nil
}

func runMappingShow(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()

	table, err := e.mapper.Get(models.Category(mappingCategory))
	if err != nil {
		return err
	}

	externals := make([]string, 0, len(table))
	for external := range table {
		externals = append(externals, external)
	}
	sort.Strings(externals)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "EXTERNAL HEADER\tINTERNAL FIELD")
	for _, external := range externals {
		fmt.Fprintf(w, "%s\t%s\n", external, table[external])
	}
	return w.Flush()
}

func runMappingSet(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()

	if _, err := e.mapper.Set(models.Category(mappingCategory), mappingExternal, mappingInternal); err != nil {
		return err
	}

	fmt.Printf("Mapped '%s' to %s for %s\n", mappingExternal, mappingInternal, mappingCategory)
	return nil
}

func runMappingReset(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()

	if _, err := e.mapper.Reset(models.Category(mappingCategory)); err != nil {
		return err
	}

	fmt.Printf("Reset %s mapping to built-in defaults\n", mappingCategory)
	return nil
}

package main

import (
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/nbs-planner/internal/nbs"
)

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "Print the intervention coefficient table",
	Long:  "Prints the active coefficient table: the built-in defaults with planner.tables_path overrides applied.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		table := nbs.DefaultTable()
		if cfg.Planner.TablesPath != "" {
			t, err := nbs.LoadTable(cfg.Planner.TablesPath)
			if err != nil {
				return err
			}
			table = t
		}

		if asYAML, _ := cmd.Flags().GetBool("yaml"); asYAML {
			return writeTableYAML(table)
		}
		formatTable(os.Stdout, table)
		return nil
	},
}

// writeTableYAML prints the table in the override file layout, so the output
// can be edited and passed back as planner.tables_path.
func writeTableYAML(t nbs.Table) error {
	entries := make(map[string]nbs.ProfileOverride, len(t))
	for _, cat := range t.Categories() {
		entries[cat.Slug()] = nbs.OverrideOf(t[cat])
	}
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	defer enc.Close() //nolint:errcheck
	return enc.Encode(map[string]any{"interventions": entries})
}

func init() {
	tablesCmd.Flags().Bool("yaml", false, "print as an editable YAML override file")
	rootCmd.AddCommand(tablesCmd)
}

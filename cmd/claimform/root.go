package main

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/claimform/claimform/version"
)

var (
	cfgFile      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "claimform",
	Short: "Work-injury claim form extraction pipeline",
	Long: `Claimform extracts structured data from scanned Israeli National
Insurance work-injury claim forms (BL/250).

The pipeline includes:
  - File type detection (PDF or photographed JPG)
  - Azure Document Intelligence OCR with layout geometry
  - Azure OpenAI schema-guided field extraction
  - Deterministic ID, phone, date, and name correction
  - A validation report with completeness and correction details`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.claimform/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "json", "output format: json or yaml",
	)

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		// Credentials commonly live in a local .env during development.
		_ = godotenv.Load()
		setOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}

package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/claimform/claimform/internal/config"
	"github.com/claimform/claimform/internal/pipeline"
)

var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "Extract structured data from a claim form",
	Long: `Extract structured data from a scanned claim form.

The file may be a PDF scan or a photographed JPG. Photographed forms go
through a lenient validation mode with OCR-based ID correction.

Examples:
  claimform extract claim.pdf
  claimform extract photo.jpg -o yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))

		cfgMgr, err := config.NewManager(cfgFile)
		if err != nil {
			return err
		}
		cfg := cfgMgr.Get()
		if err := cfg.Validate(); err != nil {
			return err
		}

		doc, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}

		ocr, llm := cfg.BuildProviders()
		p := pipeline.New(ocr, llm, logger, pipeline.Options{
			MaxPages:            cfg.OCR.MaxPages,
			LayoutResultTimeout: cfg.OCR.ResultTimeout(),
		})

		result, err := p.Extract(cmd.Context(), doc)
		if err != nil {
			return err
		}
		return output(result)
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
}

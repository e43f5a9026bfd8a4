// Command dxctl runs the diagnosis pipeline from the shell against the local data directory.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/breast-dx-server/internal/config"
	"github.com/breast-dx-server/internal/domain"
	"github.com/breast-dx-server/internal/records"
	"github.com/breast-dx-server/internal/report"
	"github.com/breast-dx-server/internal/setup"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// predictOutput is what predict prints.
type predictOutput struct {
	PatientID     int64               `json:"patient_id"`
	Diagnosis     string              `json:"diagnosis"`
	Message       string              `json:"message"`
	Confidence    string              `json:"confidence"`
	MalignantProb string              `json:"malignant_prob"`
	BenignProb    string              `json:"benign_prob"`
	RiskScore     float64             `json:"risk_score"`
	RiskCategory  domain.RiskCategory `json:"risk_category"`
	TopFeatures   []domain.Feature    `json:"top_features"`
}

func newRootCmd() *cobra.Command {
	cfg := config.LoadLiteConfig()

	rootCmd := &cobra.Command{
		Use:          "dxctl",
		Short:        "Breast cancer diagnosis pipeline CLI",
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory holding patients.db and reports")
	flags.StringVar(&cfg.ModelPath, "model", cfg.ModelPath, "classifier artifact (default <data-dir>/breast_cancer_model.json)")
	flags.StringVar(&cfg.FontDir, "font-dir", cfg.FontDir, "directory with TTF fonts for PDF output")
	flags.StringVar(&cfg.LogLevel, "log-level", "warn", "log level written to stderr")

	rootCmd.AddCommand(predictCmd(cfg))
	rootCmd.AddCommand(showCmd(cfg))
	rootCmd.AddCommand(reportCmd(cfg))
	rootCmd.AddCommand(exportCmd(cfg))
	rootCmd.AddCommand(setupCmd(cfg))

	return rootCmd
}

func predictCmd(cfg *config.LiteConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "predict [file]",
		Short: "Classify one patient from a JSON object (file or stdin)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			dec := json.NewDecoder(in)
			dec.UseNumber()
			var raw map[string]any
			if err := dec.Decode(&raw); err != nil {
				return fmt.Errorf("input must be a JSON object: %w", err)
			}

			a, err := openApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.diagnoses.Diagnose(cmd.Context(), "", raw)
			if err != nil {
				var verr *domain.ValidationError
				if errors.As(err, &verr) {
					for _, name := range verr.Missing {
						fmt.Fprintf(cmd.ErrOrStderr(), "missing: %s\n", name)
					}
					for _, name := range verr.Invalid {
						fmt.Fprintf(cmd.ErrOrStderr(), "invalid: %s\n", name)
					}
				}
				return err
			}

			d := result.Record.Decision
			return writeJSON(cmd.OutOrStdout(), predictOutput{
				PatientID:     result.Record.ID,
				Diagnosis:     d.Diagnosis,
				Message:       d.Message(),
				Confidence:    d.ConfidenceText(),
				MalignantProb: d.MalignantProbabilityText(),
				BenignProb:    d.BenignProbabilityText(),
				RiskScore:     d.RiskScore,
				RiskCategory:  d.RiskCategory,
				TopFeatures:   result.TopFeatures,
			})
		},
	}
}

func showCmd(cfg *config.LiteConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "show [patient-id]",
		Short: "Print a stored diagnosis (latest when no id is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := optionalID(args)
			if err != nil {
				return err
			}

			a, err := openApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			var rec *domain.PatientRecord
			if id != nil {
				rec, err = a.diagnoses.Record(cmd.Context(), *id)
			} else {
				rec, err = a.diagnoses.Current(cmd.Context(), "")
			}
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), rec)
		},
	}
}

func reportCmd(cfg *config.LiteConfig) *cobra.Command {
	var (
		formatName string
		out        string
	)

	cmd := &cobra.Command{
		Use:   "report [patient-id]",
		Short: "Render the diagnostic report for a stored diagnosis",
		Long: "Render the diagnostic report. Markdown goes to stdout unless --out is set; " +
			"PDF defaults to the report directory under --data-dir.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := optionalID(args)
			if err != nil {
				return err
			}
			format, err := report.ParseFormat(formatName)
			if err != nil {
				return err
			}

			a, err := openApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			rendered, err := a.reports.Generate(cmd.Context(), "", id, format)
			if err != nil {
				return err
			}

			if out == "" && format == report.FormatMarkdown {
				_, err = cmd.OutOrStdout().Write(rendered.Body)
				return err
			}
			if out == "" {
				out = filepath.Join(cfg.ReportDir(), rendered.Filename)
			}
			if err := os.WriteFile(out, rendered.Body, 0644); err != nil {
				return fmt.Errorf("failed to write report: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&formatName, "format", "f", string(report.FormatPDF), "pdf or markdown")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file")
	return cmd
}

func exportCmd(cfg *config.LiteConfig) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every stored diagnosis as JSON, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			w := cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			return records.ExportJSON(cmd.Context(), a.store, w)
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	return cmd
}

func setupCmd(cfg *config.LiteConfig) *cobra.Command {
	var (
		binary     string
		configPath string
	)

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Register the MCP server with the desktop MCP client",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := setup.Register(setup.Options{
				ConfigPath: configPath,
				BinaryPath: binary,
				DataDir:    cfg.DataDir,
				ModelPath:  cfg.ModelPath,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s in %s\n", setup.ServerKey, path)
			return nil
		},
	}

	cmd.Flags().StringVar(&binary, "binary", "", "path to the mcp-server binary (default: search PATH)")
	cmd.Flags().StringVar(&configPath, "client-config", "", "client config file (default: OS location)")
	return cmd
}

func optionalID(args []string) (*int64, error) {
	if len(args) == 0 {
		return nil, nil
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("patient id must be a positive integer: %q", args[0])
	}
	return &id, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

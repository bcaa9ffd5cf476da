package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tsawler/redline"
	"github.com/tsawler/redline/grammar"
)

// newReviseCmd creates the "revise" command.
func newReviseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revise",
		Short: "Apply an operation list as tracked changes",
		Long:  "Revise reads a JSON operation list, applies each operation to the input document as a tracked change, and writes the revised document plus a summary of what landed.",
		RunE:  runRevise,
	}

	cmd.Flags().StringP("in", "i", "", "Input DOCX file (required)")
	cmd.Flags().StringP("out", "o", "", "Output DOCX file (required)")
	cmd.Flags().String("ops", "", "JSON operation list (required)")
	cmd.Flags().String("report", "", "Write an HTML report to this file")
	cmd.Flags().String("logo", "", "Image file for replace_with_logo operations")
	cmd.Flags().Float64("logo-width-mm", 40, "Logo display width in millimetres")
	cmd.Flags().Float64("logo-height-mm", 0, "Logo display height in millimetres (0 keeps aspect ratio)")
	cmd.MarkFlagRequired("in")
	cmd.MarkFlagRequired("out")
	cmd.MarkFlagRequired("ops")

	return cmd
}

// runRevise executes the revision pass.
func runRevise(cmd *cobra.Command, args []string) error {
	in, _ := cmd.Flags().GetString("in")
	out, _ := cmd.Flags().GetString("out")
	opsPath, _ := cmd.Flags().GetString("ops")
	reportPath, _ := cmd.Flags().GetString("report")
	logoPath, _ := cmd.Flags().GetString("logo")
	logoW, _ := cmd.Flags().GetFloat64("logo-width-mm")
	logoH, _ := cmd.Flags().GetFloat64("logo-height-mm")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	ed := redline.Open(in)
	if author := viper.GetString("author"); author != "" {
		ed = ed.Author(author)
	}
	if d := viper.GetString("date"); d != "" {
		parsed, err := time.Parse(time.RFC3339, d)
		if err != nil {
			return fmt.Errorf("parsing --date: %w", err)
		}
		ed = ed.Date(parsed)
	}
	if viper.GetBool("verbose") {
		ed = ed.Logger(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	}
	if logoPath != "" {
		data, err := os.ReadFile(logoPath)
		if err != nil {
			return fmt.Errorf("reading logo: %w", err)
		}
		ed = ed.Logo(data, logoW, logoH)
	}
	if model := viper.GetString("model"); model != "" {
		classifier, err := grammar.NewBedrockClassifier(ctx, grammar.BedrockConfig{
			ModelID: model,
			Region:  viper.GetString("region"),
			Profile: viper.GetString("profile"),
		})
		if err != nil {
			return fmt.Errorf("initializing classifier: %w", err)
		}
		ed = ed.Classifier(classifier)
	}

	opsFile, err := os.Open(opsPath)
	if err != nil {
		return fmt.Errorf("reading operations: %w", err)
	}
	defer opsFile.Close()

	manifest, _, err := ed.ApplyJSON(ctx, opsFile)
	if err != nil {
		return err
	}
	if err := ed.SaveAs(out); err != nil {
		return err
	}

	fmt.Print(ed.Summary(manifest))

	if reportPath != "" {
		f, err := os.Create(reportPath)
		if err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
		defer f.Close()
		if err := ed.WriteReport(f, manifest); err != nil {
			return err
		}
	}

	if manifest.Failed() > 0 {
		return fmt.Errorf("%d of %d operations failed", manifest.Failed(), len(manifest.Results))
	}
	return nil
}

// newResolveCmd creates the "accept" or "reject" command.
func newResolveCmd(name, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   name,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, _ := cmd.Flags().GetString("in")
			out, _ := cmd.Flags().GetString("out")

			ed := redline.Open(in)
			if name == "accept" {
				ed = ed.AcceptAll()
			} else {
				ed = ed.RejectAll()
			}
			if err := ed.SaveAs(out); err != nil {
				return err
			}
			fmt.Printf("%sed all tracked changes: %s -> %s\n", name, in, out)
			return nil
		},
	}
	cmd.Flags().StringP("in", "i", "", "Input DOCX file (required)")
	cmd.Flags().StringP("out", "o", "", "Output DOCX file (required)")
	cmd.MarkFlagRequired("in")
	cmd.MarkFlagRequired("out")
	return cmd
}

// newVersionCmd creates the "version" command.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print redline version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("redline %s\n", version)
		},
	}
}

package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/gcbaptista/go-document-repository/internal/extract"
	"github.com/gcbaptista/go-document-repository/internal/similarity"
	"github.com/gcbaptista/go-document-repository/model"
	"github.com/gcbaptista/go-document-repository/services"
)

func newExtractCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "extract <file>",
		Short: "Print the normalized text extracted from a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			extractor, err := extract.New(a.cfg.Extractor.Mode, a.logger)
			if err != nil {
				return err
			}
			text, err := extractFile(extractor, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
}

func newCompareCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "compare <fileA> <fileB>",
		Short: "Print the similarity breakdown of two files",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			extractor, err := extract.New(a.cfg.Extractor.Mode, a.logger)
			if err != nil {
				return err
			}
			textA, err := extractFile(extractor, args[0])
			if err != nil {
				return err
			}
			textB, err := extractFile(extractor, args[1])
			if err != nil {
				return err
			}

			calc := similarity.NewCalculator(similarity.Weights{
				Cosine:  a.cfg.Versioning.CosineWeight,
				Jaccard: a.cfg.Versioning.JaccardWeight,
			})
			return printScores(cmd.OutOrStdout(), calc.Breakdown(textA, textB), asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the breakdown as JSON")
	return cmd
}

// extractFile runs the extractor on path. Unsupported formats are an error
// here, unlike in the upload workflow.
func extractFile(extractor services.TextExtractor, path string) (string, error) {
	format := model.FormatFromFilename(path)
	if format == "" || !extractor.Supports(format) {
		return "", fmt.Errorf("%s: format not supported by the %s extractor", path, extractor.Name())
	}
	return extractor.Extract(path, format), nil
}

func printScores(w io.Writer, scores similarity.Scores, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(scores)
	}
	fmt.Fprintf(w, "cosine:     %.4f\n", scores.Cosine)
	fmt.Fprintf(w, "jaccard:    %.4f\n", scores.Jaccard)
	fmt.Fprintf(w, "combined:   %.4f\n", scores.Combined)
	fmt.Fprintf(w, "similarity: %.1f%%\n", scores.Percentage)
	return nil
}

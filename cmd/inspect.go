package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"pdf_minimizer/logger"
	"pdf_minimizer/pdf"
)

func newInspectCommand(opts *rootOptions) *cobra.Command {
	var (
		asJSON     bool
		extractDir string
	)

	cmd := &cobra.Command{
		Use:   "inspect <input.pdf>",
		Short: "List embedded images and how much of the file they take",
		Args:  inputArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig(cmd, opts); err != nil {
				return err
			}
			analysis, err := pdf.AnalyzeImages(args[0])
			if err != nil {
				return err
			}
			if extractDir != "" {
				if err := extractPreviews(cmd.ErrOrStderr(), args[0], extractDir, analysis); err != nil {
					return err
				}
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(analysis)
			}
			printAnalysis(cmd.OutOrStdout(), analysis)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the analysis as JSON")
	cmd.Flags().StringVar(&extractDir, "extract", "", "Write a PNG preview of every image into this directory")
	return cmd
}

// extractPreviews writes one PNG per image object. Images that cannot be
// decoded are reported and skipped.
func extractPreviews(w io.Writer, input, dir string, a *pdf.ImageAnalysis) error {
	seen := make(map[int]bool)
	for _, img := range a.Images {
		if seen[img.ObjNr] || img.ImageMask {
			continue
		}
		seen[img.ObjNr] = true

		path, err := pdf.ExtractImagePreview(input, dir, img.Page, img.Name)
		if errors.Is(err, pdf.ErrImageDecode) {
			logger.Warn("no preview", slog.Int("page", img.Page), slog.String("name", img.Name), slog.Any("error", err))
			continue
		}
		if err != nil {
			return err
		}
		printInfo(w, "preview: "+path)
	}
	return nil
}

func printAnalysis(w io.Writer, a *pdf.ImageAnalysis) {
	fmt.Fprintf(w, "Pages:  %d\n", a.TotalPages)
	fmt.Fprintf(w, "Size:   %s\n", FormatBytes(a.FileSize))
	fmt.Fprintf(w, "Images: %d (%s, %.0f%% of the file)\n", len(a.Images), FormatBytes(a.ImageBytes), a.ImageShare()*100)

	if len(a.Images) > 0 {
		fmt.Fprintln(w)
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "PAGE\tNAME\tOBJ\tSIZE\tDIMENSIONS\tCOLOR\tFILTER")
		for _, img := range a.Images {
			cs := img.ColorSpace
			if img.ImageMask {
				cs = "stencil"
			}
			filter := img.Filter
			if filter == "" {
				filter = "-"
			}
			fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%dx%d\t%s\t%s\n",
				img.Page, img.Name, img.ObjNr, FormatBytes(img.Size), img.Width, img.Height, cs, filter)
		}
		tw.Flush()
	}

	if len(a.Recommendations) > 0 {
		fmt.Fprintln(w)
		for _, rec := range a.Recommendations {
			printInfo(w, "- "+rec)
		}
	}
}

package pdf

import (
	"fmt"
	"log/slog"
	"os"
)

// PassResult records the outcome of one pass.
type PassResult struct {
	Index            int   `json:"index"`
	Pass             Pass  `json:"pass"`
	Size             int64 `json:"size"`
	ImagesTranscoded int   `json:"images_transcoded"`
	ImagesSkipped    int   `json:"images_skipped"`
}

// Result is the outcome of Reduce. OutputPath always names the artifact
// written by the last pass that ran, whether or not TargetMet.
type Result struct {
	InputPath    string       `json:"input_path"`
	OutputPath   string       `json:"output_path"`
	OriginalSize int64        `json:"original_size"`
	FinalSize    int64        `json:"final_size"`
	TargetSize   int64        `json:"target_size"`
	TargetMet    bool         `json:"target_met"`
	Passes       []PassResult `json:"passes"`
}

// ReductionPercent returns how much smaller the artifact is than the input.
func (r *Result) ReductionPercent() float64 {
	if r.OriginalSize <= 0 {
		return 0
	}
	return float64(r.OriginalSize-r.FinalSize) / float64(r.OriginalSize) * 100
}

// Minimize reduces inputPath towards targetBytes with the default passes and
// returns the path of the artifact.
func Minimize(inputPath string, targetBytes int64) (string, error) {
	opts := DefaultOptions()
	opts.TargetSize = targetBytes
	res, err := Reduce(inputPath, opts)
	if err != nil {
		return "", err
	}
	return res.OutputPath, nil
}

// Reduce runs the passes of opts against inputPath, each one starting again
// from the original file, and stops at the first artifact that fits
// opts.TargetSize. Missing the target is not an error.
func Reduce(inputPath string, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()
	log := opts.Logger.With(slog.String("input", inputPath))

	fi, err := os.Stat(inputPath)
	if err != nil {
		return nil, unreadable(inputPath, err)
	}
	if fi.IsDir() {
		return nil, unreadable(inputPath, fmt.Errorf("is a directory"))
	}

	res := &Result{
		InputPath:    inputPath,
		OutputPath:   OutputPath(inputPath, opts.OutputPrefix),
		OriginalSize: fi.Size(),
		TargetSize:   opts.TargetSize,
	}

	for i, p := range opts.Passes {
		pr, err := runPass(inputPath, res.OutputPath, p, opts, log)
		if err != nil {
			return nil, err
		}
		pr.Index = i
		res.Passes = append(res.Passes, pr)
		res.FinalSize = pr.Size

		log.Info("pass complete",
			slog.Int("pass", i),
			slog.String("mode", p.String()),
			slog.Int64("size", pr.Size),
			slog.Int("images_transcoded", pr.ImagesTranscoded),
			slog.Int("images_skipped", pr.ImagesSkipped))

		if pr.Size <= opts.TargetSize {
			res.TargetMet = true
			break
		}
	}

	if !res.TargetMet {
		log.Warn("could not reduce below target size",
			slog.Int64("size", res.FinalSize),
			slog.Int64("target", opts.TargetSize))
	}

	return res, nil
}

// runPass opens a fresh copy of the input, applies p and saves it to
// outputPath. The page selection is checked before anything is written.
func runPass(inputPath, outputPath string, p Pass, opts Options, log *slog.Logger) (PassResult, error) {
	pr := PassResult{Pass: p}

	doc, err := OpenDocument(inputPath)
	if err != nil {
		return pr, err
	}
	defer doc.Close()

	pages, err := selectPages(opts.Pages, doc.PageCount())
	if err != nil {
		return pr, err
	}

	if p.Lossy() {
		pr.ImagesTranscoded, pr.ImagesSkipped, err = transcodeImages(doc, pages, p, opts, log)
		if err != nil {
			return pr, err
		}
	}

	if pr.Size, err = doc.Save(outputPath); err != nil {
		return pr, err
	}
	return pr, nil
}

// transcodeImages re-encodes every image on pages. An image
// object shared by several pages is transcoded once.
func transcodeImages(doc *Document, pages []int, p Pass, opts Options, log *slog.Logger) (transcoded, skipped int, err error) {
	done := make(map[int]bool)
	for _, pageNr := range pages {
		images, err := doc.Images(pageNr)
		if err != nil {
			return transcoded, skipped, unreadable(doc.path, err)
		}

		for _, img := range images {
			if done[img.ObjNr] {
				continue
			}
			done[img.ObjNr] = true

			if img.ImageMask {
				skipped++
				continue
			}

			if err := transcodeImage(doc, img, p); err != nil {
				if opts.FailFast || !isDecodeError(err) {
					return transcoded, skipped, err
				}
				log.Warn("leaving image unmodified",
					slog.Int("page", img.Page),
					slog.String("name", img.Name),
					slog.Any("error", err))
				skipped++
				continue
			}
			transcoded++
		}
	}

	return transcoded, skipped, nil
}

func transcodeImage(doc *Document, img Image, p Pass) error {
	src, err := doc.DecodeImage(img)
	if err != nil {
		return &ImageError{Page: img.Page, Name: img.Name, ObjNr: img.ObjNr, Err: err}
	}
	enc, err := Transcode(src, p)
	if err != nil {
		return &ImageError{Page: img.Page, Name: img.Name, ObjNr: img.ObjNr, Err: err}
	}
	return doc.ReplaceImage(img, enc)
}

// selectPages returns the pages to transcode, defaulting to all of them.
func selectPages(pages []int, pageCount int) ([]int, error) {
	if len(pages) == 0 {
		all := make([]int, pageCount)
		for i := range all {
			all[i] = i + 1
		}
		return all, nil
	}
	if err := ValidatePageNumbers(pages, pageCount); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	return pages, nil
}

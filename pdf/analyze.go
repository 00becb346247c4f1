package pdf

import (
	"fmt"
	"os"
	"sort"
)

// SharedImage is an image object referenced from more than one page.
type SharedImage struct {
	ObjNr int   `json:"obj_nr"`
	Pages []int `json:"pages"`
}

// ImageAnalysis summarises how much of a document is raster image data.
type ImageAnalysis struct {
	TotalPages      int           `json:"total_pages"`
	FileSize        int64         `json:"file_size"`
	Images          []Image       `json:"images"`
	ImageBytes      int64         `json:"image_bytes"`
	SharedImages    []SharedImage `json:"shared_images"`
	Recommendations []string      `json:"recommendations"`
}

// ImageShare returns the fraction of the file taken by image streams.
func (a *ImageAnalysis) ImageShare() float64 {
	if a.FileSize <= 0 {
		return 0
	}
	return float64(a.ImageBytes) / float64(a.FileSize)
}

// AnalyzeImages lists every page image of filename. Images shared between
// pages are listed once per page but counted once in ImageBytes.
func AnalyzeImages(filename string) (*ImageAnalysis, error) {
	fi, err := os.Stat(filename)
	if err != nil {
		return nil, unreadable(filename, err)
	}

	doc, err := OpenDocument(filename)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	analysis := &ImageAnalysis{
		TotalPages:      doc.PageCount(),
		FileSize:        fi.Size(),
		Images:          []Image{},
		SharedImages:    []SharedImage{},
		Recommendations: []string{},
	}

	pagesByObj := make(map[int][]int)
	for pageNr := 1; pageNr <= analysis.TotalPages; pageNr++ {
		images, err := doc.Images(pageNr)
		if err != nil {
			return nil, unreadable(filename, err)
		}
		for _, img := range images {
			if len(pagesByObj[img.ObjNr]) == 0 {
				analysis.ImageBytes += img.Size
			}
			pagesByObj[img.ObjNr] = append(pagesByObj[img.ObjNr], pageNr)
			analysis.Images = append(analysis.Images, img)
		}
	}

	for objNr, pages := range pagesByObj {
		if len(pages) > 1 {
			analysis.SharedImages = append(analysis.SharedImages, SharedImage{ObjNr: objNr, Pages: pages})
		}
	}
	sort.Slice(analysis.SharedImages, func(i, j int) bool {
		return analysis.SharedImages[i].ObjNr < analysis.SharedImages[j].ObjNr
	})

	analysis.Recommendations = recommend(analysis)
	return analysis, nil
}

func recommend(a *ImageAnalysis) []string {
	var recs []string
	switch {
	case len(a.Images) == 0:
		recs = append(recs, "No embedded images found - only structural compression can reduce this document")
	case a.ImageShare() >= ImageDominanceThreshold:
		recs = append(recs, fmt.Sprintf("Images make up %.0f%% of the file - lossy image passes will be effective", a.ImageShare()*100))
	default:
		recs = append(recs, fmt.Sprintf("Images make up only %.0f%% of the file - expect limited gains from image passes", a.ImageShare()*100))
	}
	if len(a.SharedImages) > 0 {
		recs = append(recs, fmt.Sprintf("%d image(s) are shared between pages and will be transcoded once", len(a.SharedImages)))
	}
	for _, img := range a.Images {
		if img.ImageMask {
			recs = append(recs, "Stencil mask images are left unmodified")
			break
		}
	}
	return recs
}

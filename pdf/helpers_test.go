package pdf

import "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

func pipeline(names ...string) []types.PDFFilter {
	fpl := make([]types.PDFFilter, len(names))
	for i, n := range names {
		fpl[i] = types.PDFFilter{Name: n}
	}
	return fpl
}

func flatePipeline() []types.PDFFilter {
	return pipeline(filterFlate)
}

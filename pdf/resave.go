package pdf

// ResavePDF rewrites inFile to outFile with stream compression and object
// streams, leaving page content and images untouched. It returns the size
// of outFile.
func ResavePDF(inFile, outFile string) (int64, error) {
	doc, err := OpenDocument(inFile)
	if err != nil {
		return 0, err
	}
	defer doc.Close()

	return doc.Save(outFile)
}

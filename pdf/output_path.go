package pdf

import "path/filepath"

// OutputPath returns where the artifact for inputPath is written: the same
// directory, the filename carrying prefix.
//
//	/data/report.pdf -> /data/minimized_report.pdf
func OutputPath(inputPath, prefix string) string {
	dir, file := filepath.Split(inputPath)
	return filepath.Join(dir, prefix+file)
}

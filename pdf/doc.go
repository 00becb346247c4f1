// Package pdf shrinks PDF documents towards a byte budget.
//
// Reduce runs an ordered list of passes against the original file. The
// first pass only recompresses the container; later passes also downscale
// every page image and re-encode it as low quality JPEG. Each pass starts
// again from the original and overwrites the same artifact, and the run
// stops at the first artifact that fits the target.
package pdf

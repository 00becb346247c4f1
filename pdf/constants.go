package pdf

const (
	// DefaultTargetSize is the default size budget for a minimized document (1MB)
	DefaultTargetSize = 1024 * 1024

	// DefaultOutputPrefix is prepended to the input filename to form the artifact name
	DefaultOutputPrefix = "minimized_"

	// MaxImageDimension caps width/height of an image we are willing to decode
	MaxImageDimension = 32768

	// MaxImagePixels bounds the pixel count of a decoded image (64MP)
	MaxImagePixels int64 = 64 * 1024 * 1024

	// MaxJPEGQuality is the upper bound accepted for a pass quality
	MaxJPEGQuality = 100

	// MaxPageNumber bounds page numbers accepted in a page selection
	MaxPageNumber = 100000

	// ImageDominanceThreshold is the share of file size above which images are
	// considered to dominate a document
	ImageDominanceThreshold = 0.5
)

// PDF filter and color space names used when reading and rewriting image XObjects.
const (
	filterFlate     = "FlateDecode"
	filterLZW       = "LZWDecode"
	filterASCII85   = "ASCII85Decode"
	filterASCIIHex  = "ASCIIHexDecode"
	filterRunLength = "RunLengthDecode"
	filterDCT       = "DCTDecode"
	filterJPX       = "JPXDecode"
	filterJBIG2     = "JBIG2Decode"
	filterCCITTFax  = "CCITTFaxDecode"

	csDeviceGray = "DeviceGray"
	csDeviceRGB  = "DeviceRGB"
	csDeviceCMYK = "DeviceCMYK"
	csCalGray    = "CalGray"
	csCalRGB     = "CalRGB"
	csICCBased   = "ICCBased"
	csIndexed    = "Indexed"
)

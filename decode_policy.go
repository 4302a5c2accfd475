package subtile

// RLEObject is the compressed data of one subpicture along with its declared size. Fields
// holds one buffer per interlaced field, a single one for PGS. Fields is empty when the
// parser was told not to read object data.
type RLEObject struct {
	Fields [][]byte
	Height int
	Width  int

	codec     rleCodec
	maxPixels int
}

// Decode runs the container's RLE decoder over the object data
func (o *RLEObject) Decode() (*IndexedImage, error) {
	return decodeRLE(o.Width, o.Height, o.Fields, o.codec, o.maxPixels)
}

// DecodePolicy lets a caller choose whether pixels are materialized. Parsers run the same
// state machine and framing checks whatever the policy.
type DecodePolicy interface {
	// ReadsObjectData reports whether RLE bytes must be read. When false, parsers seek over
	// them wherever the container allows it.
	ReadsObjectData() bool
	// DecodeObject returns the image of a complete object, or nil to leave the event without
	// image
	DecodeObject(o *RLEObject) (*IndexedImage, error)
}

// Decode policies
var (
	DecodeFull       DecodePolicy = fullDecodePolicy{}
	DecodeTimingOnly DecodePolicy = timingOnlyDecodePolicy{}
)

type fullDecodePolicy struct{}

func (fullDecodePolicy) ReadsObjectData() bool { return true }

func (fullDecodePolicy) DecodeObject(o *RLEObject) (*IndexedImage, error) {
	return o.Decode()
}

type timingOnlyDecodePolicy struct{}

func (timingOnlyDecodePolicy) ReadsObjectData() bool { return false }

func (timingOnlyDecodePolicy) DecodeObject(*RLEObject) (*IndexedImage, error) {
	return nil, nil
}

package image

import (
	"io"

	"github.com/xaionaro-go/bytesextra"
)

// Stream returns an io.ReadWriteSeeker over the image's backing buffer, for
// handing off to callers that want to treat the whole image as a seekable
// stream (e.g. to copy it to or from a file) without an intermediate copy.
func (img *Image) Stream() io.ReadWriteSeeker {
	return bytesextra.NewReadWriteSeeker(img.bytes)
}

// Export writes the entire image, verbatim, to w.
func (img *Image) Export(w io.Writer) error {
	_, err := w.Write(img.bytes)
	return err
}

// Import overwrites the image in place with exactly Size bytes read from r.
func (img *Image) Import(r io.Reader) error {
	_, err := io.ReadFull(r, img.bytes)
	return err
}

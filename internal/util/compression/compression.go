// Package compression provides the codecs used for blobs stored in the database.
package compression

type Compressor interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
}

var _ Compressor = ZstdCompressor{}

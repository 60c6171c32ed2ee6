package disk

import (
	"fmt"

	"github.com/golang/snappy"
	"github.com/pierrec/lz4/v4"
	"github.com/pkg/errors"

	"govetachun/go-page-db/internal/config"
	"govetachun/go-page-db/internal/storage"
)

// codec identifies how a frame payload is encoded.
type codec uint8

const (
	codecRaw    codec = 0
	codecSnappy codec = 1
	codecLZ4    codec = 2
)

func (c codec) String() string {
	switch c {
	case codecRaw:
		return "raw"
	case codecSnappy:
		return "snappy"
	case codecLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("codec(%d)", uint8(c))
	}
}

func parseCodec(name string) (codec, error) {
	switch name {
	case config.CompressionNone, "":
		return codecRaw, nil
	case config.CompressionSnappy:
		return codecSnappy, nil
	case config.CompressionLZ4:
		return codecLZ4, nil
	default:
		return codecRaw, fmt.Errorf("unknown compression %q", name)
	}
}

// compressPage encodes a full page with c. Pages that do not shrink are stored raw.
func compressPage(c codec, page []byte) (codec, []byte) {
	switch c {
	case codecSnappy:
		out := snappy.Encode(nil, page)
		if len(out) < len(page) {
			return codecSnappy, out
		}
	case codecLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(page)))
		n, err := lz4.CompressBlock(page, buf, nil)
		if err == nil && n > 0 && n < len(page) {
			return codecLZ4, buf[:n]
		}
	}
	return codecRaw, page
}

// decompressPage reverses compressPage and checks the result is one page.
func decompressPage(c codec, payload []byte) ([]byte, error) {
	switch c {
	case codecRaw:
		if len(payload) != storage.PageSize {
			return nil, fmt.Errorf("raw payload is %d bytes", len(payload))
		}
		return payload, nil
	case codecSnappy:
		page, err := snappy.Decode(nil, payload)
		if err != nil {
			return nil, errors.Wrap(err, "snappy decode")
		}
		if len(page) != storage.PageSize {
			return nil, fmt.Errorf("snappy payload decoded to %d bytes", len(page))
		}
		return page, nil
	case codecLZ4:
		page := storage.ZeroPage()
		n, err := lz4.UncompressBlock(payload, page)
		if err != nil {
			return nil, errors.Wrap(err, "lz4 decode")
		}
		if n != storage.PageSize {
			return nil, fmt.Errorf("lz4 payload decoded to %d bytes", n)
		}
		return page, nil
	default:
		return nil, fmt.Errorf("unknown frame codec %d", c)
	}
}

package artifact

import (
	"encoding/json"
	"fmt"

	"github.com/klauspost/compress/zstd"

	"github.com/cognicore/cvclass/pkg/cvclass/internalerr"
	"github.com/cognicore/cvclass/pkg/cvclass/store"
)

// Codec is the blob encoding written by this package.
const Codec = "json+zstd"

var (
	zenc, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	zdec, _ = zstd.NewReader(nil)
)

func encodeBlob(kind string, v any) (store.Blob, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return store.Blob{}, fmt.Errorf("encode %s: %w", kind, err)
	}
	return store.Blob{
		Kind:    kind,
		Codec:   Codec,
		RawSize: len(raw),
		Data:    zenc.EncodeAll(raw, make([]byte, 0, len(raw)/4)),
	}, nil
}

func decodeBlob(b store.Blob, v any) error {
	var raw []byte
	switch b.Codec {
	case Codec:
		var err error
		raw, err = zdec.DecodeAll(b.Data, make([]byte, 0, b.RawSize))
		if err != nil {
			return fmt.Errorf("decompress %s: %v: %w", b.Kind, err, internalerr.ErrIncompatibleArtifacts)
		}
	case "json":
		raw = b.Data
	default:
		return fmt.Errorf("blob %s: codec %q: %w", b.Kind, b.Codec, internalerr.ErrIncompatibleArtifacts)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", b.Kind, err)
	}
	return nil
}

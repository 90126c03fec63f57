package modelstore

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// ManifestCodec encodes manifests deterministically, so equal manifests
// encode to equal bytes.
type ManifestCodec struct {
	encMode cbor.EncMode
	decMode cbor.DecMode
}

func NewManifestCodec() (ManifestCodec, error) {
	encOpts := cbor.CoreDetEncOptions()
	encOpts.Time = cbor.TimeRFC3339Nano

	var err error
	c := ManifestCodec{}
	c.encMode, err = encOpts.EncMode()
	if err != nil {
		return ManifestCodec{}, err
	}
	c.decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		return ManifestCodec{}, err
	}
	return c, nil
}

func (c ManifestCodec) Encode(m Manifest) ([]byte, error) {
	return c.encMode.Marshal(m)
}

func (c ManifestCodec) Decode(data []byte) (Manifest, error) {
	var m Manifest
	if err := c.decMode.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("%w: %v", ErrBadManifest, err)
	}
	return m, nil
}

package lm

import "errors"

// Symbol is a dense alphabet symbol id.
type Symbol int32

const (
	// SymbolUnknown is the reserved id for input the alphabet cannot encode.
	SymbolUnknown Symbol = 0
	// SymbolEnd marks the end of a symbol stream.
	SymbolEnd Symbol = -1
)

// ModelID tags the model kind in persisted files.
type ModelID uint16

const (
	ModelPPM     ModelID = 2
	ModelCTW     ModelID = 5
	ModelUnigram ModelID = 7
	ModelMixture ModelID = 8
)

func (id ModelID) String() string {
	switch id {
	case ModelPPM:
		return "ppm"
	case ModelCTW:
		return "ctw"
	case ModelUnigram:
		return "unigram"
	case ModelMixture:
		return "mixture"
	}
	return "unknown"
}

const (
	// Magic opens every persisted model file. There is no trailing NUL.
	Magic = "%DLF"

	// HeaderVersion is the only header layout this package reads or writes.
	HeaderVersion uint16 = 1

	// HeaderFixedBytes is the size of the header before the alphabet name.
	HeaderFixedBytes = 16

	// UniformScale is the denominator of the uniform argument to GetProbs.
	UniformScale = 1000

	// DefaultUniform is the default uniform share, per UniformScale.
	DefaultUniform uint32 = 50
)

var (
	ErrBadMagic            = errors.New("lm: model file magic invalid")
	ErrBadHeaderVersion    = errors.New("lm: model file header version unsupported")
	ErrBadHeaderSize       = errors.New("lm: model file header size invalid")
	ErrWrongModel          = errors.New("lm: model file is for a different model kind")
	ErrIncompatibleVersion = errors.New("lm: model file version incompatible")
	ErrAlphabetMismatch    = errors.New("lm: alphabet mismatch")
	ErrAlphabetTooLarge    = errors.New("lm: alphabet too large for model file header")
	ErrBadWeight           = errors.New("lm: mixture weight must be a percentage")
	ErrNotPersistable      = errors.New("lm: model cannot be persisted")
)

package hydrotwin

import (
	"crypto/sha1"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"hash"
	"io"
)

// Fingerprint computes a content hash over the features and payload of m.
//
// Two models with the same features, in the same order, and the same payload
// have the same fingerprint. Key order within properties does not matter, key
// order within demands, demand profiles and live data does, since it affects
// compiled output.
func Fingerprint(m *Model) (ModelHash, error) {
	h := sha1.New()
	if err := writeLenPrefixed(h, "hydrotwin.Model"); err != nil {
		return ModelHash{}, err
	}
	for i, f := range m.Features {
		fh, err := FeatureFingerprint(f)
		if err != nil {
			return ModelHash{}, fmt.Errorf("feature %d: %w", i, err)
		}
		h.Write(fh[:])
	}
	payload, err := json.Marshal(&Model{
		Demands:        m.Demands,
		DemandProfiles: m.DemandProfiles,
		LiveData:       m.LiveData,
		RunTime:        m.RunTime,
		Calibrations:   m.Calibrations,
		Extra:          m.Extra,
	})
	if err != nil {
		return ModelHash{}, fmt.Errorf("payload: %w", err)
	}
	if err := writeLenPrefixed(h, string(payload)); err != nil {
		return ModelHash{}, err
	}
	return ModelHash(h.Sum(nil)), nil
}

// MustFingerprint is like Fingerprint but panics on error.
func MustFingerprint(m *Model) ModelHash {
	h, err := Fingerprint(m)
	if err != nil {
		panic(fmt.Sprintf("hydrotwin: un-hashable model: %v", err))
	}
	return h
}

// FeatureFingerprint computes a content hash over a single feature.
func FeatureFingerprint(f Feature) (FeatureHash, error) {
	b, err := json.Marshal(f)
	if err != nil {
		return FeatureHash{}, err
	}
	h := sha1.New()
	if err := writeLenPrefixed(h, "hydrotwin.Feature"); err != nil {
		return FeatureHash{}, err
	}
	h.Write(b)
	return FeatureHash(h.Sum(nil)), nil
}

// writeLenPrefixed keeps adjacent strings from running into each other.
func writeLenPrefixed(h hash.Hash, s string) error {
	if err := binary.Write(h, binary.BigEndian, uint64(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(h, s)
	return err
}

// ModelHash is the content address of a Model.
type ModelHash contentAddress

func (h ModelHash) MarshalText() ([]byte, error)     { return contentAddress(h).MarshalText() }
func (h *ModelHash) UnmarshalText(text []byte) error { return (*contentAddress)(h).UnmarshalText(text) }
func (h ModelHash) String() string                   { return "model(" + contentAddress(h).String() + ")" }
func (h ModelHash) IsZero() bool                     { return contentAddress(h).IsZero() }

// FeatureHash is the content address of a Feature.
type FeatureHash contentAddress

func (h FeatureHash) MarshalText() ([]byte, error) { return contentAddress(h).MarshalText() }
func (h *FeatureHash) UnmarshalText(text []byte) error {
	return (*contentAddress)(h).UnmarshalText(text)
}
func (h FeatureHash) String() string { return "feature(" + contentAddress(h).String() + ")" }
func (h FeatureHash) IsZero() bool   { return contentAddress(h).IsZero() }

// contentAddress is a consistent hash primitive serving as the base for
// strongly typed hashes, like ModelHash and FeatureHash.
type contentAddress [sha1.Size]byte

func (h contentAddress) MarshalText() ([]byte, error) {
	text := make([]byte, hex.EncodedLen(len(h)))
	hex.Encode(text, h[:]) // always returns hex.EncodedLen(len(h)) (see hex.Encode)
	return text, nil
}

func (h *contentAddress) UnmarshalText(text []byte) error {
	n, err := hex.Decode(h[:], text)
	if err != nil {
		return fmt.Errorf("decode hex: %w", err)
	}
	if n != len(h) { // always n <= len(h[:]) (see hex.Decode)
		return fmt.Errorf("not enough bytes: %w", io.ErrUnexpectedEOF)
	}
	return nil
}

func (h contentAddress) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether h is the zero value of the type.
func (h contentAddress) IsZero() bool {
	return h == contentAddress{}
}

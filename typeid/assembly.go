package typeid

import (
	"github.com/graphwire/graphwire/wire"
)

// Assembly is the spec §3 assembly identity: either a well-known 8-byte
// hash from a trusted list, or a name plus a four-part version quad. Go
// has no runtime assembly-version metadata, so the version quad is
// whatever the Codec's configured PackageVersions table supplies for the
// package path (zero if nothing was configured — version is then purely
// informational, never load-bearing for resolution).
type Assembly struct {
	WellKnown bool
	Hash      uint64 // meaningful iff WellKnown

	Name                           string // meaningful iff !WellKnown: the Go package path
	Major, Minor, Build, Revision int64
}

// Encode writes the assembly identity: one bool (well-known?), then
// either a u64 hash or a length-prefixed name plus four signed varints
// (spec §6).
func (a Assembly) Encode(w *wire.Writer) error {
	if err := w.WriteBool(a.WellKnown); err != nil {
		return err
	}
	if a.WellKnown {
		return w.WriteUint64(a.Hash)
	}
	if err := w.WriteString(a.Name); err != nil {
		return err
	}
	if err := w.WriteVarInt(a.Major); err != nil {
		return err
	}
	if err := w.WriteVarInt(a.Minor); err != nil {
		return err
	}
	if err := w.WriteVarInt(a.Build); err != nil {
		return err
	}
	return w.WriteVarInt(a.Revision)
}

// DecodeAssembly reads an assembly identity written by Encode.
func DecodeAssembly(r *wire.Reader) (Assembly, error) {
	wellKnown, err := r.ReadBool()
	if err != nil {
		return Assembly{}, err
	}
	if wellKnown {
		hash, err := r.ReadUint64()
		if err != nil {
			return Assembly{}, err
		}
		return Assembly{WellKnown: true, Hash: hash}, nil
	}

	name, err := r.ReadString()
	if err != nil {
		return Assembly{}, err
	}
	major, err := r.ReadVarInt()
	if err != nil {
		return Assembly{}, err
	}
	minor, err := r.ReadVarInt()
	if err != nil {
		return Assembly{}, err
	}
	build, err := r.ReadVarInt()
	if err != nil {
		return Assembly{}, err
	}
	revision, err := r.ReadVarInt()
	if err != nil {
		return Assembly{}, err
	}
	if name == "" {
		return Assembly{}, kerr.Malformed(r.Offset(), "assembly identity has empty name and is not well-known")
	}
	return Assembly{Name: name, Major: major, Minor: minor, Build: build, Revision: revision}, nil
}

package typeid

import (
	"errors"
	"reflect"

	"github.com/graphwire/graphwire/kerr"
	"github.com/graphwire/graphwire/wire"
)

// MethodKind is the method-identity tag byte's discriminator (spec §4.D).
type MethodKind uint8

const (
	MethodConstructorDef MethodKind = iota
	MethodConstructedGeneric
	MethodMemberDef
	MethodModuleDef
)

// Method is the spec §4.D method identity. graphwire only ever needs this
// to name the declaring-scope/method-name pair for a non-generic method
// reference (MethodConstructorDef / MethodMemberDef / MethodModuleDef);
// MethodConstructedGeneric is represented on the wire for completeness but
// always fails to resolve on decode (see Matcher below and the package
// doc comment) because Go exposes no open-generic-method reflection to
// resolve it against.
type Method struct {
	Kind MethodKind

	// MethodConstructorDef / MethodMemberDef / MethodModuleDef
	DeclaringType reflect.Type
	Name          string

	// MethodConstructedGeneric
	Matcher *Matcher
}

// MatcherKind discriminates the symbolic parameter-type description used
// to re-identify an open generic method's parameter list (spec §4.D).
type MatcherKind uint8

const (
	MatcherSZArray MatcherKind = iota
	MatcherArray
	MatcherTypeParam
	MatcherMethodParam
	MatcherConstructed
)

// Matcher is the matcher-tree node. Like MethodConstructedGeneric above,
// graphwire represents this tree shape on the wire but has no Go-side
// candidate-method search to run it against, since Go has no open generic
// method reflection; DecodeMethod raises ErrMissingFormatter for any
// MethodConstructedGeneric it meets, per spec §9's explicit allowance
// ("a port that lacks method reflection omits method identity altogether
// and raises missing-formatter when asked").
type Matcher struct {
	Kind MatcherKind

	Elem *Matcher // MatcherSZArray / MatcherArray element
	Rank int       // MatcherArray

	ParamIndex int      // MatcherTypeParam / MatcherMethodParam
	ParentType *Matcher // MatcherTypeParam

	DefType reflect.Type // MatcherConstructed
	Args    []Matcher    // MatcherConstructed
}

// EncodeMethod writes a method identity's tag byte and operands.
func (c *Codec) EncodeMethod(w *wire.Writer, m *Method) error {
	if err := w.WriteUint8(uint8(m.Kind)); err != nil {
		return err
	}
	switch m.Kind {
	case MethodConstructorDef, MethodMemberDef, MethodModuleDef:
		if err := c.EncodeType(w, m.DeclaringType); err != nil {
			return err
		}
		return w.WriteString(m.Name)
	case MethodConstructedGeneric:
		return c.encodeMatcher(w, m.Matcher)
	default:
		return kerr.Malformed(-1, "unknown method kind %d", m.Kind)
	}
}

// DecodeMethod reads a method identity written by EncodeMethod.
func (c *Codec) DecodeMethod(r *wire.Reader) (*Method, error) {
	kindByte, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	kind := MethodKind(kindByte)
	switch kind {
	case MethodConstructorDef, MethodMemberDef, MethodModuleDef:
		declType, err := c.DecodeType(r)
		if err != nil {
			return nil, err
		}
		name, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		return &Method{Kind: kind, DeclaringType: declType, Name: name}, nil
	case MethodConstructedGeneric:
		// An unresolvable type inside the matcher does not change the
		// outcome: the method itself can never be resolved.
		if _, err := c.decodeMatcher(r); err != nil && !errors.Is(err, kerr.ErrTypeNotFound) {
			return nil, err
		}
		return nil, kerr.MissingFormatterNamed("open generic method (matcher-based candidate search has no Go reflection equivalent)")
	default:
		return nil, kerr.Malformed(r.Offset(), "unknown method kind %d", kind)
	}
}

func (c *Codec) encodeMatcher(w *wire.Writer, m *Matcher) error {
	if err := w.WriteUint8(uint8(m.Kind)); err != nil {
		return err
	}
	switch m.Kind {
	case MatcherSZArray:
		return c.encodeMatcher(w, m.Elem)
	case MatcherArray:
		if err := w.WriteVarUint(uint64(m.Rank)); err != nil {
			return err
		}
		return c.encodeMatcher(w, m.Elem)
	case MatcherTypeParam:
		if err := w.WriteVarUint(uint64(m.ParamIndex)); err != nil {
			return err
		}
		return c.encodeMatcher(w, m.ParentType)
	case MatcherMethodParam:
		return w.WriteVarUint(uint64(m.ParamIndex))
	case MatcherConstructed:
		if err := c.EncodeType(w, m.DefType); err != nil {
			return err
		}
		if err := w.WriteVarUint(uint64(len(m.Args))); err != nil {
			return err
		}
		for i := range m.Args {
			if err := c.encodeMatcher(w, &m.Args[i]); err != nil {
				return err
			}
		}
		return nil
	default:
		return kerr.Malformed(-1, "unknown matcher kind %d", m.Kind)
	}
}

func (c *Codec) decodeMatcher(r *wire.Reader) (*Matcher, error) {
	kindByte, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	kind := MatcherKind(kindByte)
	m := &Matcher{Kind: kind}
	switch kind {
	case MatcherSZArray:
		elem, err := c.decodeMatcher(r)
		if err != nil {
			return nil, err
		}
		m.Elem = elem
	case MatcherArray:
		rank, err := r.ReadVarUint()
		if err != nil {
			return nil, err
		}
		m.Rank = int(rank)
		elem, err := c.decodeMatcher(r)
		if err != nil {
			return nil, err
		}
		m.Elem = elem
	case MatcherTypeParam:
		idx, err := r.ReadVarUint()
		if err != nil {
			return nil, err
		}
		m.ParamIndex = int(idx)
		parent, err := c.decodeMatcher(r)
		if err != nil {
			return nil, err
		}
		m.ParentType = parent
	case MatcherMethodParam:
		idx, err := r.ReadVarUint()
		if err != nil {
			return nil, err
		}
		m.ParamIndex = int(idx)
	case MatcherConstructed:
		def, err := c.DecodeType(r)
		if err != nil {
			return nil, err
		}
		m.DefType = def
		count, err := r.ReadVarUint()
		if err != nil {
			return nil, err
		}
		args := make([]Matcher, count)
		for i := range args {
			arg, err := c.decodeMatcher(r)
			if err != nil {
				return nil, err
			}
			args[i] = *arg
		}
		m.Args = args
	default:
		return nil, kerr.Malformed(r.Offset(), "unknown matcher kind %d", kind)
	}
	return m, nil
}

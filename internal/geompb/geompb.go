// Package geompb is the wire-message counterpart of internal/pairio: the
// same pair-list rows, framed as length-prefixed protobuf instead of CSV,
// for when overlap-checker and overlap-imprinter run as separate processes
// connected by a pipe rather than a shared file. Pair is written by hand in
// the gogo/protobuf style the teacher's biopb package uses for its
// generated messages (Marshal/Unmarshal/Size, implementing the gogo
// Message interface directly), not by a protoc run, since no .proto
// toolchain runs in this build.
package geompb

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/gogo/protobuf/proto"
	"github.com/pkg/errors"
)

// Status is the wire form of pairio.Status.
type Status int32

const (
	Status_TOUCH       Status = 0
	Status_OVERLAP     Status = 1
	Status_BAD_OVERLAP Status = 2
)

func (s Status) String() string {
	switch s {
	case Status_TOUCH:
		return "touch"
	case Status_OVERLAP:
		return "overlap"
	case Status_BAD_OVERLAP:
		return "bad_overlap"
	default:
		return fmt.Sprintf("Status(%d)", int32(s))
	}
}

// Pair mirrors one pairio.Row: field numbers below are the wire contract,
// not to be renumbered once a binary has shipped reading them.
//
//	1: i           varint
//	2: j           varint
//	3: status      varint (Status)
//	4: vol_common  fixed64 (float64 bits)
//	5: vol_i       fixed64
//	6: vol_j       fixed64
type Pair struct {
	I         int64
	J         int64
	Status    Status
	VolCommon float64
	VolI      float64
	VolJ      float64
}

func (p *Pair) Reset()      { *p = Pair{} }
func (*Pair) ProtoMessage() {}
func (p *Pair) String() string {
	return fmt.Sprintf("Pair{I:%d J:%d Status:%s VolCommon:%v VolI:%v VolJ:%v}",
		p.I, p.J, p.Status, p.VolCommon, p.VolI, p.VolJ)
}

var _ proto.Message = (*Pair)(nil)

func init() {
	proto.RegisterType((*Pair)(nil), "geompb.Pair")
}

const (
	wireVarint  = 0
	wireFixed64 = 1
)

func tag(field int, wire int) uint64 { return uint64(field)<<3 | uint64(wire) }

// Size returns the encoded length of p, matching what Marshal writes.
func (p *Pair) Size() int {
	n := 0
	n += sovField(tag(1, wireVarint)) + sovUint64(uint64(p.I))
	n += sovField(tag(2, wireVarint)) + sovUint64(uint64(p.J))
	if p.Status != 0 {
		n += sovField(tag(3, wireVarint)) + sovUint64(uint64(p.Status))
	}
	if p.VolCommon != 0 {
		n += sovField(tag(4, wireFixed64)) + 8
	}
	if p.VolI != 0 {
		n += sovField(tag(5, wireFixed64)) + 8
	}
	if p.VolJ != 0 {
		n += sovField(tag(6, wireFixed64)) + 8
	}
	return n
}

func sovField(t uint64) int { return sovUint64(t) }

func sovUint64(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

// Marshal encodes p into a freshly allocated buffer.
func (p *Pair) Marshal() ([]byte, error) {
	buf := make([]byte, 0, p.Size())
	buf = appendVarint(buf, tag(1, wireVarint))
	buf = appendVarint(buf, uint64(p.I))
	buf = appendVarint(buf, tag(2, wireVarint))
	buf = appendVarint(buf, uint64(p.J))
	if p.Status != 0 {
		buf = appendVarint(buf, tag(3, wireVarint))
		buf = appendVarint(buf, uint64(p.Status))
	}
	if p.VolCommon != 0 {
		buf = appendVarint(buf, tag(4, wireFixed64))
		buf = appendFixed64(buf, p.VolCommon)
	}
	if p.VolI != 0 {
		buf = appendVarint(buf, tag(5, wireFixed64))
		buf = appendFixed64(buf, p.VolI)
	}
	if p.VolJ != 0 {
		buf = appendVarint(buf, tag(6, wireFixed64))
		buf = appendFixed64(buf, p.VolJ)
	}
	return buf, nil
}

// Unmarshal decodes data into p, clearing any prior contents first.
func (p *Pair) Unmarshal(data []byte) error {
	p.Reset()
	i := 0
	for i < len(data) {
		t, n, err := readVarint(data[i:])
		if err != nil {
			return errors.Wrap(err, "geompb: Pair: tag")
		}
		i += n
		field, wire := int(t>>3), int(t&0x7)
		switch field {
		case 1, 2, 3:
			if wire != wireVarint {
				return errors.Errorf("geompb: Pair: field %d: unexpected wire type %d", field, wire)
			}
			v, n, err := readVarint(data[i:])
			if err != nil {
				return errors.Wrap(err, "geompb: Pair: value")
			}
			i += n
			switch field {
			case 1:
				p.I = int64(v)
			case 2:
				p.J = int64(v)
			case 3:
				p.Status = Status(v)
			}
		case 4, 5, 6:
			if wire != wireFixed64 {
				return errors.Errorf("geompb: Pair: field %d: unexpected wire type %d", field, wire)
			}
			if i+8 > len(data) {
				return errors.Errorf("geompb: Pair: field %d: truncated fixed64", field)
			}
			v := readFixed64(data[i : i+8])
			i += 8
			switch field {
			case 4:
				p.VolCommon = v
			case 5:
				p.VolI = v
			case 6:
				p.VolJ = v
			}
		default:
			return errors.Errorf("geompb: Pair: unknown field %d", field)
		}
	}
	return nil
}

func appendVarint(buf []byte, v uint64) []byte {
	for v >= 0x80 {
		buf = append(buf, byte(v)|0x80)
		v >>= 7
	}
	return append(buf, byte(v))
}

func readVarint(data []byte) (uint64, int, error) {
	var v uint64
	var shift uint
	for i, b := range data {
		if shift >= 64 {
			return 0, 0, errors.New("geompb: varint overflow")
		}
		v |= uint64(b&0x7f) << shift
		if b < 0x80 {
			return v, i + 1, nil
		}
		shift += 7
	}
	return 0, 0, errors.New("geompb: truncated varint")
}

func appendFixed64(buf []byte, f float64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(f))
	return append(buf, b[:]...)
}

func readFixed64(data []byte) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(data))
}

// WriteDelimited writes p as a varint length prefix followed by its
// encoded bytes, the framing overlap-checker and overlap-imprinter use to
// exchange a stream of pairs over a pipe.
func WriteDelimited(w io.Writer, p *Pair) error {
	buf, err := p.Marshal()
	if err != nil {
		return err
	}
	lenBuf := appendVarint(nil, uint64(len(buf)))
	if _, err := w.Write(lenBuf); err != nil {
		return errors.Wrap(err, "geompb: write length prefix")
	}
	if _, err := w.Write(buf); err != nil {
		return errors.Wrap(err, "geompb: write message")
	}
	return nil
}

// ReadDelimited reads one length-prefixed Pair from r. io.EOF at the start
// of a frame is returned unwrapped, signalling a clean end of stream.
func ReadDelimited(r io.Reader) (*Pair, error) {
	size, err := readUvarintFromReader(r)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, errors.Wrap(err, "geompb: read message body")
	}
	p := &Pair{}
	if err := p.Unmarshal(buf); err != nil {
		return nil, err
	}
	return p, nil
}

func readUvarintFromReader(r io.Reader) (uint64, error) {
	var v uint64
	var shift uint
	var b [1]byte
	for {
		if _, err := io.ReadFull(r, b[:]); err != nil {
			if shift == 0 {
				return 0, err
			}
			return 0, errors.Wrap(err, "geompb: truncated length prefix")
		}
		if shift >= 64 {
			return 0, errors.New("geompb: length prefix overflow")
		}
		v |= uint64(b[0]&0x7f) << shift
		if b[0] < 0x80 {
			return v, nil
		}
		shift += 7
	}
}

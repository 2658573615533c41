package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Entry is one record in a directory listing. Name carries a trailing "/"
// when IsDir is true, so the same string suffices as a hyperlink; this is
// appended by the helper when it builds the listing, not by the decoder.
type Entry struct {
	Name  string
	IsDir bool
}

// Listing is an ordered sequence of directory entries in the order the OS
// returned them; there is no sorting contract.
type Listing []Entry

// Encode serializes a listing as: u64 LE entry count, then per entry a
// u64 LE name-byte-length, the name bytes, and one byte 0x00/0x01 for
// IsDir. This is the default wire encoding named in spec §6; both sides
// of the process boundary must agree on it exactly, so it is implemented
// directly with encoding/binary rather than a general-purpose codec (see
// DESIGN.md for why).
func (l Listing) Encode() []byte {
	var buf bytes.Buffer
	var lenBuf [8]byte

	binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(l)))
	buf.Write(lenBuf[:])

	for _, e := range l {
		nameBytes := []byte(e.Name)
		binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(nameBytes)))
		buf.Write(lenBuf[:])
		buf.Write(nameBytes)
		if e.IsDir {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	}
	return buf.Bytes()
}

// DecodeListing parses the encoding produced by Listing.Encode. The byte
// stream is self-delimiting: exactly one serialized listing followed by
// EOF, per spec invariant.
func DecodeListing(raw []byte) (Listing, error) {
	r := bytes.NewReader(raw)

	var count uint64
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("decode listing length: %w", err)
	}

	listing := make(Listing, 0, count)
	for i := uint64(0); i < count; i++ {
		var nameLen uint64
		if err := binary.Read(r, binary.LittleEndian, &nameLen); err != nil {
			return nil, fmt.Errorf("decode entry %d name length: %w", i, err)
		}
		nameBytes := make([]byte, nameLen)
		if _, err := io.ReadFull(r, nameBytes); err != nil {
			return nil, fmt.Errorf("decode entry %d name: %w", i, err)
		}
		var isDirByte byte
		var isDirBuf [1]byte
		if _, err := io.ReadFull(r, isDirBuf[:]); err != nil {
			return nil, fmt.Errorf("decode entry %d is_dir flag: %w", i, err)
		}
		isDirByte = isDirBuf[0]
		listing = append(listing, Entry{
			Name:  string(nameBytes),
			IsDir: isDirByte != 0,
		})
	}
	return listing, nil
}

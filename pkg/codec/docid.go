package codec

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

// ErrInvalidDocumentID is returned when parsing a malformed document id.
var ErrInvalidDocumentID = errors.New("invalid document id")

// DocumentID is a 12-byte document identifier: a 4-byte big-endian unix
// timestamp, 5 random process bytes and a 3-byte counter. Its canonical form
// is 24 lowercase hex characters.
type DocumentID [12]byte

var (
	processUnique = func() [5]byte {
		var b [5]byte
		if _, err := rand.Read(b[:]); err != nil {
			panic(fmt.Sprintf("codec: read process entropy: %v", err))
		}
		return b
	}()
	idCounter = func() *atomic.Uint32 {
		var b [4]byte
		if _, err := rand.Read(b[:]); err != nil {
			panic(fmt.Sprintf("codec: read counter seed: %v", err))
		}
		c := new(atomic.Uint32)
		c.Store(binary.BigEndian.Uint32(b[:]))
		return c
	}()
)

// NewDocumentID generates a new identifier for the current time.
func NewDocumentID() DocumentID {
	return newDocumentIDAt(time.Now())
}

func newDocumentIDAt(t time.Time) DocumentID {
	var id DocumentID
	binary.BigEndian.PutUint32(id[0:4], uint32(t.Unix()))
	copy(id[4:9], processUnique[:])

	n := idCounter.Add(1)
	id[9] = byte(n >> 16)
	id[10] = byte(n >> 8)
	id[11] = byte(n)
	return id
}

// ParseDocumentID parses the 24-character hex form of an identifier.
func ParseDocumentID(s string) (DocumentID, error) {
	var id DocumentID
	if len(s) != 24 {
		return id, fmt.Errorf("%w: %q", ErrInvalidDocumentID, s)
	}
	if _, err := hex.Decode(id[:], []byte(s)); err != nil {
		return id, fmt.Errorf("%w: %q", ErrInvalidDocumentID, s)
	}
	return id, nil
}

// Hex returns the canonical string form.
func (id DocumentID) Hex() string {
	return hex.EncodeToString(id[:])
}

func (id DocumentID) String() string {
	return id.Hex()
}

// Timestamp returns the creation time encoded in the identifier.
func (id DocumentID) Timestamp() time.Time {
	return time.Unix(int64(binary.BigEndian.Uint32(id[0:4])), 0).UTC()
}

// IsZero reports whether id is the zero value.
func (id DocumentID) IsZero() bool {
	return id == DocumentID{}
}

// MarshalText implements encoding.TextMarshaler.
func (id DocumentID) MarshalText() ([]byte, error) {
	return []byte(id.Hex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *DocumentID) UnmarshalText(b []byte) error {
	parsed, err := ParseDocumentID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

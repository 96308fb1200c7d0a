package dataprocessing

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var errBIFFRecord = errors.New("malformed workbook record")

// BIFF record identifiers the legacy decoder interprets.
const (
	recEOF        = 0x000A
	recContinue   = 0x003C
	recFont       = 0x0031
	recBoundSheet = 0x0085
	recSST        = 0x00FC
	recMulRK      = 0x00BD
	recMulBlank   = 0x00BE
	recFormula    = 0x0006
	recBlank      = 0x0201
	recNumber     = 0x0203
	recLabel      = 0x0204
	recRow        = 0x0208
	recRK         = 0x027E
	recLabelSST   = 0x00FD
	recHyperlink  = 0x01B8
	recBOF        = 0x0809
	recFormat     = 0x041E

	// recIgnored replaces records the decoder should skip by size.
	recIgnored = 0x0000

	biff8Version = 0x0600
)

// biffCursor reads a byte slice with the semantics of binary.Read and
// bytes.Reader.Read: fixed-size reads are all-or-nothing and consume what is
// left on failure.
type biffCursor struct {
	b   []byte
	pos int
}

func (c *biffCursor) full(n int) ([]byte, error) {
	left := len(c.b) - c.pos
	switch {
	case n == 0:
		return nil, nil
	case left <= 0:
		return nil, io.EOF
	case left < n:
		c.pos = len(c.b)
		return nil, io.ErrUnexpectedEOF
	}
	out := c.b[c.pos : c.pos+n]
	c.pos += n
	return out, nil
}

func (c *biffCursor) partial(n int) (int, error) {
	if c.pos >= len(c.b) {
		return 0, io.EOF
	}
	read := min(n, len(c.b)-c.pos)
	c.pos += read
	return read, nil
}

func (c *biffCursor) uint16() (uint16, error) {
	b, err := c.full(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (c *biffCursor) uint32() (uint32, error) {
	b, err := c.full(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// biffScan replays how the legacy decoder walks a Workbook stream: the global
// records in stream order, then the first sheet's substream from its BOUNDSHEET
// offset. It rejects length fields the decoder would trust with an allocation and
// hides hyperlink records, whose variable-length parts are not needed.
type biffScan struct {
	stream     []byte
	biff5      bool
	sstLen     int
	contUTF16  uint16
	contRich   uint16
	contApsb   uint32
	firstSheet int64
	hidden     int
}

// sanitizeBIFF checks stream in place. Hiding a hyperlink changes bytes the
// global walk may read, so the scan repeats until nothing more is hidden.
func sanitizeBIFF(stream []byte) error {
	for {
		s := &biffScan{stream: stream, firstSheet: -1}
		if err := s.globals(); err != nil {
			return err
		}
		if err := s.sheet(); err != nil {
			return err
		}
		if s.hidden == 0 {
			return nil
		}
	}
}

func (s *biffScan) globals() error {
	c := &biffCursor{b: s.stream}
	preSST := false
	offset := 0
	for {
		head, err := c.full(4)
		if err != nil {
			return nil
		}
		id := binary.LittleEndian.Uint16(head)
		size := int(binary.LittleEndian.Uint16(head[2:]))
		body, err := c.full(size)
		if err != nil {
			body = make([]byte, size)
		}
		item := &biffCursor{b: body}

		switch id {
		case recBOF:
			if ver, err := item.uint16(); err != nil || len(body) < 16 || ver != biff8Version {
				s.biff5 = true
			}
		case recContinue:
			if preSST {
				if offset, err = s.continueSST(item, offset); err != nil {
					return err
				}
			}
			continue
		case recSST:
			if offset, err = s.sst(item); err != nil {
				return err
			}
		case recBoundSheet:
			var pos uint32
			var nameLen byte
			if len(body) >= 7 {
				pos, nameLen = binary.LittleEndian.Uint32(body), body[6]
				item.pos = 7
			} else {
				item.pos = len(body)
			}
			if s.firstSheet < 0 {
				s.firstSheet = int64(pos)
			}
			if err := s.str(item, uint16(nameLen)); errors.Is(err, errBIFFRecord) {
				return err
			}
		case recFont:
			var nameLen byte
			if len(body) >= 15 {
				nameLen = body[14]
				item.pos = 15
			} else {
				item.pos = len(body)
			}
			if err := s.str(item, uint16(nameLen)); errors.Is(err, errBIFFRecord) {
				return err
			}
		case recFormat:
			var strLen uint16
			if len(body) >= 4 {
				strLen = binary.LittleEndian.Uint16(body[2:])
				item.pos = 4
			} else {
				item.pos = len(body)
			}
			if err := s.str(item, strLen); errors.Is(err, errBIFFRecord) {
				return err
			}
		}
		preSST = id == recSST
		if !preSST {
			offset = 0
		}
	}
}

func (s *biffScan) sst(item *biffCursor) (int, error) {
	var count uint32
	if len(item.b) >= 8 {
		count = binary.LittleEndian.Uint32(item.b[4:])
		item.pos = 8
	}
	// Every shared string takes at least three bytes.
	if int64(count) > int64(len(s.stream)/3) {
		return 0, fmt.Errorf("%w: shared string table declares %d strings", errBIFFRecord, count)
	}
	s.sstLen = int(count)

	i := 0
	for ; i < s.sstLen; i++ {
		size, err := item.uint16()
		if err != nil {
			continue
		}
		err = s.str(item, size)
		if errors.Is(err, errBIFFRecord) {
			return 0, err
		}
		if err == io.EOF {
			break
		}
	}
	return i, nil
}

func (s *biffScan) continueSST(item *biffCursor, offset int) (int, error) {
	var (
		size uint16
		err  error
	)
	if s.contUTF16 >= 1 {
		size, s.contUTF16 = s.contUTF16, 0
	} else {
		size, err = item.uint16()
	}
	for err == nil && offset < s.sstLen {
		if size > 0 {
			if serr := s.str(item, size); errors.Is(serr, errBIFFRecord) {
				return 0, serr
			}
		}
		offset++
		size, err = item.uint16()
	}
	return offset, nil
}

// str consumes one string the way the decoder does. Phonetic blocks larger than
// the whole stream are rejected.
func (s *biffScan) str(c *biffCursor, size uint16) error {
	if s.biff5 {
		_, err := c.partial(int(size))
		return err
	}

	var (
		rich     uint16
		phonetic uint32
		flag     byte
	)
	b, err := c.full(1)
	if err == nil {
		flag = b[0]
	}
	if flag&0x8 != 0 {
		rich, err = c.uint16()
	} else if s.contRich > 0 {
		rich, s.contRich = s.contRich, 0
	}
	if flag&0x4 != 0 {
		phonetic, err = c.uint32()
	} else if s.contApsb > 0 {
		phonetic, s.contApsb = s.contApsb, 0
	}

	if flag&0x1 != 0 {
		i := uint16(0)
		for ; i < size && err == nil; i++ {
			_, err = c.full(2)
		}
		if i < size {
			s.contUTF16 = size - i + 1
		}
	} else {
		var n int
		n, err = c.partial(int(size))
		if n < int(size) {
			s.contUTF16 = size - uint16(n)
			err = io.EOF
		}
	}

	if rich > 0 {
		if _, err = c.full(4 * int(rich)); err == io.EOF {
			s.contRich = rich
		}
	}
	if phonetic > 0 {
		if int64(phonetic) > int64(len(s.stream)) {
			return fmt.Errorf("%w: phonetic block of %d bytes", errBIFFRecord, phonetic)
		}
		if _, err = c.full(int(phonetic)); err == io.EOF {
			s.contApsb = phonetic
		}
	}
	return err
}

// sheet walks the first sheet's substream from its BOUNDSHEET offset. Cell
// records are read from the stream by their layout, not their declared size, so
// the walk follows the same consumption.
func (s *biffScan) sheet() error {
	if s.firstSheet < 0 {
		return errNoSheets
	}
	if s.firstSheet >= int64(len(s.stream)) {
		return fmt.Errorf("%w: sheet offset %d past the end of the stream", errBIFFRecord, s.firstSheet)
	}

	c := &biffCursor{b: s.stream, pos: int(s.firstSheet)}
	for {
		at := c.pos
		head, err := c.full(4)
		if err != nil {
			return fmt.Errorf("%w: sheet substream is not terminated", errBIFFRecord)
		}
		id := binary.LittleEndian.Uint16(head)
		size := binary.LittleEndian.Uint16(head[2:])

		switch id {
		case recEOF:
			return nil
		case recRow:
			c.full(16)
		case recMulRK:
			c.full(4 + 6*int((size-6)/6) + 2)
		case recMulBlank:
			c.full(4 + 2*int((size-6)/2) + 2)
		case recNumber:
			c.full(14)
		case recFormula:
			c.full(20)
			c.full(int(size - 20))
		case recRK, recLabelSST:
			c.full(10)
		case recBlank:
			c.full(6)
		case recLabel:
			c.full(6)
			count, _ := c.uint16()
			if err := s.str(c, count); errors.Is(err, errBIFFRecord) {
				return err
			}
		case recHyperlink:
			binary.LittleEndian.PutUint16(s.stream[at:], recIgnored)
			s.hidden++
			c.partial(int(size))
		default:
			c.partial(int(size))
		}
	}
}

package dataprocessing

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"unicode/utf16"

	"github.com/richardlehane/mscfb"
)

// Legacy .xls workbooks are BIFF record streams stored inside an OLE2 compound
// file. The compound file reader inside the legacy decoder follows sector chains
// without bounds checks and exits the process on a broken chain, so the source
// container is read with mscfb and its Workbook stream re-packed into a canonical
// container before the decoder sees it.

var compoundSignature = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

var errCompoundFile = errors.New("malformed compound file")

const (
	cfbHeaderSize     = 512
	cfbSectorSize     = 512
	cfbEntrySize      = 128
	cfbHeaderFATSlots = 109
	cfbIDsPerSector   = cfbSectorSize / 4
	cfbMiniCutoff     = 4096

	sectorFree       uint32 = 0xFFFFFFFF
	sectorEndOfChain uint32 = 0xFFFFFFFE
	sectorFAT        uint32 = 0xFFFFFFFD

	entryStream = 2
	entryRoot   = 5
)

// isLegacyWorkbook reports whether data starts with the compound file signature.
func isLegacyWorkbook(data []byte) bool {
	return bytes.HasPrefix(data, compoundSignature)
}

// workbookStream extracts the top-level Workbook stream, or the BIFF5 "Book"
// stream, of a compound file.
func workbookStream(data []byte) ([]byte, error) {
	doc, err := mscfb.New(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errCompoundFile, err)
	}

	var book *mscfb.File
	for entry, err := doc.Next(); err == nil; entry, err = doc.Next() {
		if len(entry.Path) > 0 || entry.FileInfo().IsDir() {
			continue
		}
		if entry.Name == "Workbook" || (entry.Name == "Book" && book == nil) {
			book = entry
		}
	}
	if book == nil {
		return nil, fmt.Errorf("%w: no workbook stream", errCompoundFile)
	}
	if book.Size < 0 || book.Size > maxLegacyStreamBytes {
		return nil, fmt.Errorf("%w: workbook stream of %d bytes", errCompoundFile, book.Size)
	}

	stream := make([]byte, book.Size)
	if _, err := io.ReadFull(book, stream); err != nil {
		return nil, fmt.Errorf("%w: workbook stream: %v", errCompoundFile, err)
	}
	return stream, nil
}

// packedStreamSize rounds a stream up to whole sectors and to at least the mini
// stream cutoff, so the packed stream is always stored in regular sectors.
func packedStreamSize(n int) int {
	if n < cfbMiniCutoff {
		return cfbMiniCutoff
	}
	return (n + cfbSectorSize - 1) / cfbSectorSize * cfbSectorSize
}

// packCompoundFile builds a compound file holding stream as its only "Workbook"
// stream. Layout: allocation sectors, one directory sector, then the stream.
// stream must already be padded with packedStreamSize.
func packCompoundFile(stream []byte) ([]byte, error) {
	streamSectors := uint32(len(stream) / cfbSectorSize)
	fatSectors := uint32(1)
	for fatSectors*cfbIDsPerSector < fatSectors+1+streamSectors {
		fatSectors++
	}
	if fatSectors > cfbHeaderFATSlots {
		return nil, fmt.Errorf("%w: workbook stream too large", errCompoundFile)
	}
	dirSector := fatSectors
	firstStream := dirSector + 1
	total := firstStream + streamSectors

	le := binary.LittleEndian
	out := make([]byte, cfbHeaderSize+int(total)*cfbSectorSize)

	header := out[:cfbHeaderSize]
	copy(header, compoundSignature)
	le.PutUint16(header[0x18:], 0x3E)
	le.PutUint16(header[0x1A:], 3)
	le.PutUint16(header[0x1C:], 0xFFFE)
	le.PutUint16(header[0x1E:], 9)
	le.PutUint16(header[0x20:], 6)
	le.PutUint32(header[0x2C:], fatSectors)
	le.PutUint32(header[0x30:], dirSector)
	le.PutUint32(header[0x38:], cfbMiniCutoff)
	le.PutUint32(header[0x3C:], sectorEndOfChain)
	le.PutUint32(header[0x44:], sectorEndOfChain)
	for i := uint32(0); i < cfbHeaderFATSlots; i++ {
		slot := sectorFree
		if i < fatSectors {
			slot = i
		}
		le.PutUint32(header[0x4C+4*i:], slot)
	}

	fat := out[cfbHeaderSize : cfbHeaderSize+int(fatSectors)*cfbSectorSize]
	for sid := uint32(0); sid < fatSectors*cfbIDsPerSector; sid++ {
		next := sectorFree
		switch {
		case sid < fatSectors:
			next = sectorFAT
		case sid == dirSector, sid == total-1:
			next = sectorEndOfChain
		case sid > dirSector && sid < total:
			next = sid + 1
		}
		le.PutUint32(fat[4*sid:], next)
	}

	dir := out[cfbHeaderSize+int(dirSector)*cfbSectorSize:]
	putDirEntry(dir[0:cfbEntrySize], "Root Entry", entryRoot, 1, sectorEndOfChain, 0)
	putDirEntry(dir[cfbEntrySize:2*cfbEntrySize], "Workbook", entryStream, sectorFree, firstStream, uint32(len(stream)))

	copy(out[cfbHeaderSize+int(firstStream)*cfbSectorSize:], stream)
	return out, nil
}

func putDirEntry(e []byte, name string, kind byte, child, start, size uint32) {
	le := binary.LittleEndian
	units := utf16.Encode([]rune(name))
	for i, u := range units {
		le.PutUint16(e[2*i:], u)
	}
	le.PutUint16(e[64:], uint16(2*len(units)+2))
	e[66] = kind
	e[67] = 1
	le.PutUint32(e[68:], sectorFree)
	le.PutUint32(e[72:], sectorFree)
	le.PutUint32(e[76:], child)
	le.PutUint32(e[116:], start)
	le.PutUint32(e[120:], size)
}

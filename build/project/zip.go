package project

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"math"
	"time"

	"github.com/klauspost/compress/flate"

	"moria.us/lymei/build/mei"
)

// dosEpoch is the earliest time a zip file can record.
var dosEpoch = time.Date(1980, 1, 1, 0, 0, 0, 0, time.Local)

type dosDate struct {
	date uint16
	time uint16
}

func toDOSDate(t time.Time) dosDate {
	y, m, d := t.Date()
	hh, mm, ss := t.Clock()
	return dosDate{
		date: uint16(((y - 1980) << 9) | (int(m) << 5) | d),
		time: uint16((hh << 11) | (mm << 5) | (ss >> 1)),
	}
}

type slicewriter []byte

func (s *slicewriter) write(d []byte) {
	copy(*s, d)
	*s = (*s)[len(d):]
}

func (s *slicewriter) skip(n int) {
	*s = (*s)[n:]
}

func (s *slicewriter) u16(x uint16) {
	binary.LittleEndian.PutUint16(*s, x)
	*s = (*s)[2:]
}

func (s *slicewriter) u32(x uint32) {
	binary.LittleEndian.PutUint32(*s, x)
	*s = (*s)[4:]
}

// done panics unless the record was filled exactly.
func (s slicewriter) done() {
	if len(s) != 0 {
		panic("mismatch")
	}
}

// Zip record signatures and sizes, without the variable-length name.
const (
	localSignature   = 0x04034b50
	centralSignature = 0x02014b50
	endSignature     = 0x06054b50

	localSize   = 30
	centralSize = 46
	endSize     = 22

	zipVersion    = 20
	methodDeflate = 8
	maxEntries    = 0xffff
)

// A zipEntry is a file stored in an archive.
type zipEntry struct {
	name   string
	mtime  dosDate
	crc    uint32
	csize  uint32
	size   uint32
	offset uint32
}

// putFields writes the fields which the local header and the central
// directory have in common, from the version needed to the name length.
func (e *zipEntry) putFields(b *slicewriter) {
	b.u16(zipVersion)
	b.u16(0) // flags
	b.u16(methodDeflate)
	b.u16(e.mtime.time)
	b.u16(e.mtime.date)
	b.u32(e.crc)
	b.u32(e.csize)
	b.u32(e.size)
	b.u16(uint16(len(e.name)))
}

// An archive accumulates deflated files and writes them out as a zip file.
type archive struct {
	body    []byte
	entries []zipEntry
}

// compress returns the raw deflate stream for data.
func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	fw, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(data); err != nil {
		return nil, err
	}
	if err := fw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (a *archive) add(name string, mtime time.Time, data []byte) error {
	if len(a.entries) >= maxEntries {
		return errors.New("too many files for zip archive")
	}
	cdata, err := compress(data)
	if err != nil {
		return err
	}
	if int64(len(a.body))+localSize+int64(len(name))+int64(len(cdata)) > math.MaxUint32 {
		return errors.New("zip archive too large")
	}
	e := zipEntry{
		name:   name,
		mtime:  toDOSDate(mtime),
		crc:    crc32.ChecksumIEEE(data),
		csize:  uint32(len(cdata)),
		size:   uint32(len(data)),
		offset: uint32(len(a.body)),
	}
	var hdr [localSize]byte
	b := slicewriter(hdr[:])
	b.u32(localSignature)
	e.putFields(&b)
	b.u16(0) // extra field length
	b.done()
	a.body = append(a.body, hdr[:]...)
	a.body = append(a.body, name...)
	a.body = append(a.body, cdata...)
	a.entries = append(a.entries, e)
	return nil
}

// bytes returns the archive: file bodies, then the central directory, then
// the end record.
func (a *archive) bytes() []byte {
	var dirSize int
	for _, e := range a.entries {
		dirSize += centralSize + len(e.name)
	}
	data := make([]byte, len(a.body)+dirSize+endSize)
	b := slicewriter(data)
	b.write(a.body)
	for _, e := range a.entries {
		b.u32(centralSignature)
		b.u16(zipVersion) // made by
		e.putFields(&b)
		b.skip(12) // extra, comment, disk, attributes
		b.u32(e.offset)
		b.write([]byte(e.name))
	}
	b.u32(endSignature)
	b.skip(4) // disk numbers
	b.u16(uint16(len(a.entries)))
	b.u16(uint16(len(a.entries)))
	b.u32(uint32(dirSize))
	b.u32(uint32(len(a.body)))
	b.u16(0) // comment length
	b.done()
	return data
}

// BuildZip creates a zip file containing an MEI file for each document which
// was converted successfully.
func BuildZip(ctx context.Context, docs []*Document) ([]byte, error) {
	var a archive
	for _, d := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if d.Result == nil {
			continue
		}
		data, err := mei.MarshalXML(d.Result.Section, "")
		if err != nil {
			return nil, fmt.Errorf("%s: %w", d.Source, err)
		}
		mtime := d.ModTime
		if mtime.Before(dosEpoch) {
			mtime = dosEpoch
		}
		if err := a.add(d.Name+".mei", mtime, data); err != nil {
			return nil, err
		}
	}
	if len(a.entries) == 0 {
		return nil, errors.New("no documents to archive")
	}
	return a.bytes(), nil
}

package metadata

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
)

// xmpAPP1Header identifies an APP1 segment carrying an XMP packet.
var xmpAPP1Header = []byte("http://ns.adobe.com/xap/1.0/\x00")

const (
	markerSOI  = 0xD8
	markerAPP0 = 0xE0
	markerAPP1 = 0xE1
	markerSOS  = 0xDA

	// An APP1 segment length field is 16 bits and includes itself.
	maxSegmentPayload = 0xFFFF - 2
)

var errNotJPEG = errors.New("not a JPEG file")

// extractJPEGXMP returns the XMP packet from a JPEG's APP1 segment, or nil
// if the data is not a JPEG or carries no XMP.
func extractJPEGXMP(data []byte) []byte {
	segs, _, err := scanSegments(data)
	if err != nil {
		return nil
	}
	for _, s := range segs {
		if s.marker == markerAPP1 && bytes.HasPrefix(s.payload, xmpAPP1Header) {
			return s.payload[len(xmpAPP1Header):]
		}
	}
	return nil
}

// embedJPEG rewrites the file at path with packet stored in an XMP APP1
// segment, replacing any existing one. The rewrite goes through a temporary
// file so a failure leaves the original untouched.
func embedJPEG(path string, packet []byte) error {
	if len(xmpAPP1Header)+len(packet) > maxSegmentPayload {
		return fmt.Errorf("XMP packet too large for APP1 segment (%d bytes)", len(packet))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	segs, rest, err := scanSegments(data)
	if err != nil {
		return err
	}

	var out bytes.Buffer
	out.Write([]byte{0xFF, markerSOI})

	// Keep leading APP0/APP1 segments (minus any old XMP) ahead of the new
	// packet so Exif stays first, as the JPEG/XMP packaging rules require.
	inserted := false
	for _, s := range segs {
		if s.marker == markerAPP1 && bytes.HasPrefix(s.payload, xmpAPP1Header) {
			continue // drop the old XMP segment
		}
		if !inserted && s.marker != markerAPP0 && s.marker != markerAPP1 {
			writeXMPSegment(&out, packet)
			inserted = true
		}
		s.writeTo(&out)
	}
	if !inserted {
		writeXMPSegment(&out, packet)
	}
	out.Write(rest)

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, out.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace file: %w", err)
	}
	return nil
}

type segment struct {
	marker  byte
	payload []byte
}

func (s segment) writeTo(buf *bytes.Buffer) {
	buf.Write([]byte{0xFF, s.marker})
	var length [2]byte
	binary.BigEndian.PutUint16(length[:], uint16(len(s.payload)+2))
	buf.Write(length[:])
	buf.Write(s.payload)
}

func writeXMPSegment(buf *bytes.Buffer, packet []byte) {
	s := segment{
		marker:  markerAPP1,
		payload: append(append([]byte{}, xmpAPP1Header...), packet...),
	}
	s.writeTo(buf)
}

// scanSegments parses marker segments up to (not including) the start of
// scan, returning them plus the untouched remainder of the file.
func scanSegments(data []byte) ([]segment, []byte, error) {
	if len(data) < 4 || data[0] != 0xFF || data[1] != markerSOI {
		return nil, nil, errNotJPEG
	}

	var segs []segment
	i := 2
	for {
		if i+4 > len(data) || data[i] != 0xFF {
			return nil, nil, fmt.Errorf("malformed JPEG segment at offset %d", i)
		}
		marker := data[i+1]
		if marker == markerSOS {
			// Entropy-coded data follows; keep it verbatim.
			return segs, data[i:], nil
		}
		length := int(binary.BigEndian.Uint16(data[i+2 : i+4]))
		end := i + 2 + length
		if length < 2 || end > len(data) {
			return nil, nil, fmt.Errorf("truncated JPEG segment at offset %d", i)
		}
		segs = append(segs, segment{marker: marker, payload: data[i+4 : end]})
		i = end
	}
}

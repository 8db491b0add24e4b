/*
Copyright 2023 The Tempoproj Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package store

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"time"
)

const (
	IEEE = 0xedb88320
	// 1 valid byte, 3 int64 fields, 1 uint32 checksum
	entryHeaderSize = 29
)

// entryPreamble is the fixed-size header preceding the entry body.
type entryPreamble struct {
	Valid      uint8
	CreatedAt  int64
	FnIDLen    int64
	PayloadLen int64
	Checksum   uint32
}

// EncodeEntry encodes an entry. The format is as follows.
//
//	+-------------+------------------+------------------+--------------------+--------------+--------------+----------------+
//	| valid (u8)  | created-at (i64) | fn-id-len (i64)  | payload-len (i64)  | CRC (uint32) | fn-id []byte | payload []byte |
//	+-------------+------------------+------------------+--------------------+--------------+--------------+----------------+
//
// CRC covers the body and will be used for detecting entry corruptions.
func EncodeEntry(entry *Entry) ([]byte, error) {
	if entry == nil {
		return nil, fmt.Errorf("entry is required")
	}
	body := make([]byte, 0, len(entry.FnID)+len(entry.Payload))
	body = append(body, entry.FnID...)
	body = append(body, entry.Payload...)

	p := entryPreamble{
		CreatedAt:  entry.CreatedAt.UnixMilli(),
		FnIDLen:    int64(len(entry.FnID)),
		PayloadLen: int64(len(entry.Payload)),
		Checksum:   calculateChecksum(body),
	}
	if entry.Valid {
		p.Valid = 1
	}

	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, p); err != nil {
		return nil, fmt.Errorf("entry header encountered encode err: %w", err)
	}
	if _, err := buf.Write(body); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeEntry decodes an encoded entry. Any structural damage, a truncated
// buffer, inconsistent lengths or a checksum mismatch, is reported as
// ErrEntryCorrupt.
func DecodeEntry(b []byte) (*Entry, error) {
	if len(b) < entryHeaderSize {
		return nil, fmt.Errorf("%w: truncated header", ErrEntryCorrupt)
	}
	var p entryPreamble
	if err := binary.Read(bytes.NewReader(b[:entryHeaderSize]), binary.LittleEndian, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEntryCorrupt, err)
	}
	if p.FnIDLen < 0 || p.PayloadLen < 0 || int64(len(b)-entryHeaderSize) != p.FnIDLen+p.PayloadLen {
		return nil, fmt.Errorf("%w: body length mismatch", ErrEntryCorrupt)
	}
	body := b[entryHeaderSize:]
	if calculateChecksum(body) != p.Checksum {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrEntryCorrupt)
	}
	entry := &Entry{
		FnID:      string(body[:p.FnIDLen]),
		Payload:   append([]byte{}, body[p.FnIDLen:]...),
		Valid:     p.Valid == 1,
		CreatedAt: time.UnixMilli(p.CreatedAt).UTC(),
	}
	return entry, nil
}

func calculateChecksum(data []byte) uint32 {
	crc32q := crc32.MakeTable(IEEE)
	return crc32.Checksum(data, crc32q)
}

package cache

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"

	"github.com/rzpsarthak13/tabular/internal/core"
)

const (
	headerRaw  byte = 0
	headerZstd byte = 1
)

// ResultSet is a fully read statement result.
type ResultSet struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Collect drains and closes rows into a ResultSet.
func Collect(rows core.Rows) (*ResultSet, error) {
	defer rows.Close()

	rs := &ResultSet{Columns: append([]string(nil), rows.Columns()...), Rows: [][]any{}}
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, err
		}
		rs.Rows = append(rs.Rows, append([]any(nil), vals...))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rs, nil
}

// Replay returns a fresh row stream over the set.
func (rs *ResultSet) Replay() core.Rows {
	return core.NewStaticRows(rs.Columns, rs.Rows)
}

var (
	zstdOnce sync.Once
	encoder  *zstd.Encoder
	decoder  *zstd.Decoder
	zstdErr  error
)

func codecs() (*zstd.Encoder, *zstd.Decoder, error) {
	zstdOnce.Do(func() {
		encoder, zstdErr = zstd.NewWriter(nil)
		if zstdErr != nil {
			return
		}
		decoder, zstdErr = zstd.NewReader(nil)
	})
	return encoder, decoder, zstdErr
}

// Encode serializes rs as JSON behind a one-byte header. Payloads of at least
// threshold bytes are zstd-compressed; threshold <= 0 disables compression.
func Encode(rs *ResultSet, threshold int) ([]byte, error) {
	payload, err := json.Marshal(rs)
	if err != nil {
		return nil, fmt.Errorf("encode result set: %w", err)
	}

	if threshold <= 0 || len(payload) < threshold {
		return append([]byte{headerRaw}, payload...), nil
	}

	enc, _, err := codecs()
	if err != nil {
		return nil, fmt.Errorf("init zstd: %w", err)
	}
	return enc.EncodeAll(payload, []byte{headerZstd}), nil
}

// Decode reverses Encode. Numbers decode as json.Number so integer and
// float values keep their precision.
func Decode(data []byte) (*ResultSet, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("decode result set: empty payload")
	}

	payload := data[1:]
	switch data[0] {
	case headerRaw:
	case headerZstd:
		_, dec, err := codecs()
		if err != nil {
			return nil, fmt.Errorf("init zstd: %w", err)
		}
		payload, err = dec.DecodeAll(payload, nil)
		if err != nil {
			return nil, fmt.Errorf("decompress result set: %w", err)
		}
	default:
		return nil, fmt.Errorf("decode result set: unknown header %#x", data[0])
	}

	var rs ResultSet
	d := json.NewDecoder(bytes.NewReader(payload))
	d.UseNumber()
	if err := d.Decode(&rs); err != nil {
		return nil, fmt.Errorf("decode result set: %w", err)
	}
	return &rs, nil
}

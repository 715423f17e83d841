package model

import (
	"bufio"
	"bytes"
	"encoding/gob"
	"io"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/zstd"
)

// zstdMagic は zstd フレームの先頭4バイト
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// Bundle はダウンロード可能な学習済みモデルの成果物
//
// Estimator は具象型を gob.Register 済みである必要がある。
// 各モデルパッケージの init で登録している。
type Bundle struct {
	Name        string
	ProblemType string
	Target      string
	Features    []string
	Params      map[string]string
	CreatedAt   time.Time
	Estimator   Estimator
}

// CodecOption は成果物のエンコード設定
type CodecOption func(*codecConfig)

type codecConfig struct {
	compress bool
	level    int
}

// WithCompression は zstd 圧縮を有効にする。level は zstd の圧縮レベル (1-22)。
func WithCompression(level int) CodecOption {
	return func(c *codecConfig) {
		c.compress = true
		c.level = level
	}
}

// SaveModelToWriter はバンドルを w に書き出す
//
// 使用例:
//
//	var buf bytes.Buffer
//	err := model.SaveModelToWriter(&model.Bundle{Name: "Random Forest", Estimator: rf}, &buf,
//	    model.WithCompression(3))
func SaveModelToWriter(b *Bundle, w io.Writer, opts ...CodecOption) error {
	cfg := codecConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	if !cfg.compress {
		if err := gob.NewEncoder(w).Encode(b); err != nil {
			return errors.Wrap(err, "failed to encode model")
		}
		return nil
	}

	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(cfg.level)))
	if err != nil {
		return errors.Wrap(err, "failed to create zstd encoder")
	}
	if err := gob.NewEncoder(enc).Encode(b); err != nil {
		_ = enc.Close()
		return errors.Wrap(err, "failed to encode model")
	}
	if err := enc.Close(); err != nil {
		return errors.Wrap(err, "failed to flush zstd stream")
	}
	return nil
}

// LoadModelFromReader はバンドルを読み込む。zstd 圧縮は先頭のマジックで判定する。
func LoadModelFromReader(r io.Reader) (*Bundle, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(zstdMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "failed to read model header")
	}

	var src io.Reader = br
	if bytes.Equal(head, zstdMagic) {
		dec, err := zstd.NewReader(br)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create zstd decoder")
		}
		defer dec.Close()
		src = dec
	}

	var b Bundle
	if err := gob.NewDecoder(src).Decode(&b); err != nil {
		return nil, errors.Wrap(err, "failed to decode model")
	}
	return &b, nil
}

// Marshal はバンドルをバイト列にする
func Marshal(b *Bundle, opts ...CodecOption) ([]byte, error) {
	var buf bytes.Buffer
	if err := SaveModelToWriter(b, &buf, opts...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/Giulio2002/filemap"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"go.uber.org/zap"
)

// codec is stored in the first byte of a compressed file.
type codec byte

const (
	codecZstd codec = 1
	codecLZ4  codec = 2
)

func (c codec) String() string {
	switch c {
	case codecZstd:
		return "zstd"
	case codecLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("codec(%d)", byte(c))
	}
}

func parseCodec(s string) (codec, error) {
	switch s {
	case "zstd":
		return codecZstd, nil
	case "lz4":
		return codecLZ4, nil
	default:
		return 0, fmt.Errorf("unknown codec %q", s)
	}
}

var errUnknownCodec = errors.New("unknown codec in header")

func newEncoder(c codec, w io.Writer) (io.WriteCloser, error) {
	switch c {
	case codecZstd:
		return zstd.NewWriter(w)
	case codecLZ4:
		return lz4.NewWriter(w), nil
	default:
		return nil, errUnknownCodec
	}
}

func newDecoder(c codec, r io.Reader) (io.Reader, func(), error) {
	switch c {
	case codecZstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return dec, dec.Close, nil
	case codecLZ4:
		return lz4.NewReader(r), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("%w: %d", errUnknownCodec, byte(c))
	}
}

// minGrow is the smallest length a mappedWriter grows its file to.
const minGrow = 64 << 10

// mappedWriter appends to a read-write mapping, growing the file with Resize
// as needed. Close trims the file to the bytes written.
type mappedWriter struct {
	f   *filemap.ReadWrite
	off int64
}

func (w *mappedWriter) Write(p []byte) (int, error) {
	end := w.off + int64(len(p))
	if size := int64(w.f.Size()); end > size {
		if err := w.f.Resize(max(end, 2*size, minGrow)); err != nil {
			return 0, err
		}
	}
	n, err := w.f.WriteAt(p, w.off)
	w.off += int64(n)
	return n, err
}

func (w *mappedWriter) Close() error {
	return w.f.Resize(w.off)
}

// createEmpty creates path, or truncates it if it exists.
func createEmpty(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	return f.Close()
}

func runCompress(logger *zap.Logger, stdout io.Writer, args []string) error {
	fs := flag.NewFlagSet("compress", flag.ContinueOnError)
	codecName := fs.String("codec", "zstd", "Compression codec: zstd or lz4")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("%w: compress [-codec zstd|lz4] <in> <out>", errUsage)
	}
	c, err := parseCodec(*codecName)
	if err != nil {
		return err
	}
	inPath, outPath := fs.Arg(0), fs.Arg(1)

	if err := createEmpty(outPath); err != nil {
		return err
	}

	return filemap.WithReadOnly(inPath, func(src *filemap.ReadOnly) error {
		if err := src.Advise(filemap.AccessSequential); err != nil {
			logger.Debug("Ignoring advise failure", zap.String("path", inPath), zap.Error(err))
		}

		return filemap.WithReadWrite(outPath, func(dst *filemap.ReadWrite) error {
			w := &mappedWriter{f: dst}
			if _, err := w.Write([]byte{byte(c)}); err != nil {
				return err
			}

			enc, err := newEncoder(c, w)
			if err != nil {
				return err
			}
			if _, err := src.WriteTo(enc); err != nil {
				enc.Close()
				return err
			}
			if err := enc.Close(); err != nil {
				return err
			}
			if err := w.Close(); err != nil {
				return err
			}

			logger.Info("Compressed file",
				zap.String("in", inPath),
				zap.String("out", outPath),
				zap.Stringer("codec", c),
				zap.Int("inBytes", src.Size()),
				zap.Int("outBytes", dst.Size()),
			)
			return dst.Sync()
		})
	})
}

func runDecompress(logger *zap.Logger, stdout io.Writer, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: decompress <in> <out>", errUsage)
	}
	inPath, outPath := args[0], args[1]

	return filemap.WithReadOnly(inPath, func(src *filemap.ReadOnly) error {
		if src.Size() < 1 {
			return fmt.Errorf("%s: missing codec header", inPath)
		}
		c := codec(src.At(0))

		r, closeDecoder, err := newDecoder(c, io.NewSectionReader(src, 1, int64(src.Size()-1)))
		if err != nil {
			return err
		}
		defer closeDecoder()

		if err := createEmpty(outPath); err != nil {
			return err
		}

		return filemap.WithReadWrite(outPath, func(dst *filemap.ReadWrite) error {
			w := &mappedWriter{f: dst}
			if _, err := io.Copy(w, r); err != nil {
				return err
			}
			if err := w.Close(); err != nil {
				return err
			}

			logger.Info("Decompressed file",
				zap.String("in", inPath),
				zap.String("out", outPath),
				zap.Stringer("codec", c),
				zap.Int("outBytes", dst.Size()),
			)
			return dst.Sync()
		})
	})
}

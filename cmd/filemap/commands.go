package main

import (
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"

	"github.com/Giulio2002/filemap"
	"go.uber.org/zap"
	"lukechampine.com/blake3"
)

type command func(logger *zap.Logger, stdout io.Writer, args []string) error

var commands = map[string]command{
	"info":       runInfo,
	"cat":        runCat,
	"dump":       runDump,
	"resize":     runResize,
	"poke":       runPoke,
	"compress":   runCompress,
	"decompress": runDecompress,
}

var errUsage = errors.New("usage")

func runInfo(logger *zap.Logger, stdout io.Writer, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: info <path>", errUsage)
	}
	return filemap.WithReadOnly(args[0], func(f *filemap.ReadOnly) error {
		if err := f.Advise(filemap.AccessSequential); err != nil {
			logger.Debug("Ignoring advise failure", zap.String("path", f.Path()), zap.Error(err))
		}

		h := blake3.New(32, nil)
		if _, err := f.WriteTo(h); err != nil {
			return err
		}
		_, err := fmt.Fprintf(stdout, "%s\t%d\t%x\n", f.Path(), f.Size(), h.Sum(nil))
		return err
	})
}

func runCat(logger *zap.Logger, stdout io.Writer, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: cat <path>", errUsage)
	}
	return filemap.WithReadOnly(args[0], func(f *filemap.ReadOnly) error {
		n, err := f.WriteTo(stdout)
		logger.Debug("Wrote file to stdout", zap.String("path", f.Path()), zap.Int64("bytes", n))
		return err
	})
}

func runDump(logger *zap.Logger, stdout io.Writer, args []string) error {
	fs := flag.NewFlagSet("dump", flag.ContinueOnError)
	n := fs.Int64("n", 256, "Number of bytes to dump. Negative dumps the whole file.")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: dump [-n N] <path>", errUsage)
	}

	return filemap.WithReadOnly(fs.Arg(0), func(f *filemap.ReadOnly) error {
		size := int64(f.Size())
		if *n >= 0 && *n < size {
			size = *n
		}

		d := hex.Dumper(stdout)
		if _, err := io.Copy(d, io.NewSectionReader(f, 0, size)); err != nil {
			return err
		}
		return d.Close()
	})
}

func runResize(logger *zap.Logger, stdout io.Writer, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: resize <path> <size>", errUsage)
	}
	size, err := strconv.ParseInt(args[1], 0, 64)
	if err != nil {
		return fmt.Errorf("invalid size %q: %w", args[1], err)
	}

	return filemap.WithReadWrite(args[0], func(f *filemap.ReadWrite) error {
		from := f.Size()
		if err := f.Resize(size); err != nil {
			return err
		}
		logger.Info("Resized file",
			zap.String("path", args[0]),
			zap.Int("from", from),
			zap.Int64("to", size),
		)
		return nil
	})
}

func runPoke(logger *zap.Logger, stdout io.Writer, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("%w: poke <path> <offset> <byte>", errUsage)
	}
	off, err := strconv.ParseInt(args[1], 0, 64)
	if err != nil {
		return fmt.Errorf("invalid offset %q: %w", args[1], err)
	}
	v, err := strconv.ParseUint(args[2], 0, 8)
	if err != nil {
		return fmt.Errorf("invalid byte %q: %w", args[2], err)
	}

	return filemap.WithReadWrite(args[0], func(f *filemap.ReadWrite) error {
		if off < 0 || off >= int64(f.Size()) {
			return fmt.Errorf("offset %d: %w", off, filemap.ErrOutOfRange)
		}
		old := f.At(int(off))
		f.Set(int(off), byte(v))
		logger.Info("Wrote byte",
			zap.String("path", args[0]),
			zap.Int64("offset", off),
			zap.Uint8("old", old),
			zap.Uint8("new", byte(v)),
		)
		return f.Sync()
	})
}

// filemap inspects and edits files through memory mappings.
//
// Usage:
//
//	filemap [flags] <command> [args]
//
// Commands:
//
//	info <path>                              Print size and BLAKE3 digest
//	cat <path>                               Write the file to stdout
//	dump [-n N] <path>                       Hex dump the first N bytes
//	resize <path> <size>                     Truncate or extend the file
//	poke <path> <offset> <byte>              Write one byte
//	compress [-codec zstd|lz4] <in> <out>    Compress in into out
//	decompress <in> <out>                    Decompress in into out
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/Giulio2002/filemap/internal/logging"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	zapConf  string
	logLevel zapcore.Level
)

func init() {
	flag.StringVar(&zapConf, "zapConf", "console", "Preset name or path to the JSON configuration file for building the zap logger.\nAvailable presets: console, console-nocolor, console-notime, systemd, production, development")
	flag.TextVar(&logLevel, "logLevel", zapcore.InfoLevel, "Log level for the console and systemd presets.\nAvailable levels: debug, info, warn, error, dpanic, panic, fatal")
	flag.Usage = usage
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintln(out, "Usage: filemap [flags] <command> [args]")
	fmt.Fprintln(out, "\nCommands: info, cat, dump, resize, poke, compress, decompress")
	fmt.Fprintln(out, "\nFlags:")
	flag.PrintDefaults()
}

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	logger, err := logging.NewZapLogger(zapConf, logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to build logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	name, args := flag.Arg(0), flag.Args()[1:]
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command %q\n", name)
		flag.Usage()
		os.Exit(2)
	}

	if err = cmd(logger, os.Stdout, args); err != nil {
		logger.Fatal("Command failed",
			zap.String("command", name),
			zap.Strings("args", args),
			zap.Error(err),
		)
	}
}

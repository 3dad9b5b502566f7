// rtcmdump reads RTCM3 bytes from a file (or stdin, given "-") and writes
// a human-readable decode of every message it finds to stdout, for
// troubleshooting a base station feed.
//
// Usage:
//
//	rtcmdump file
//	rtcmdump -
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/goblimey/rtcm2rinex/parser"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s file\n", os.Args[0])
		os.Exit(2)
	}

	reader, err := openFile(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: cannot open %s - %v\n", os.Args[0], os.Args[1], err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := dump(reader, os.Stdout, logger); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", os.Args[0], err)
		os.Exit(1)
	}
}

// openFile opens the given file, or returns stdin if the name is "-".
func openFile(name string) (io.Reader, error) {
	if name == "-" {
		return os.Stdin, nil
	}
	return os.Open(name)
}

func dump(r io.Reader, w io.Writer, logger *slog.Logger) error {
	fmt.Fprintln(w, "RTCM data")

	p := parser.New(logger)
	buf := make([]byte, 4096)
	for {
		n, readErr := r.Read(buf)
		if n > 0 {
			for _, result := range p.FeedBytes(buf[:n]) {
				fmt.Fprint(w, result.String())
			}
		}
		if readErr != nil {
			if readErr == io.EOF {
				break
			}
			return readErr
		}
	}

	for _, result := range p.Flush() {
		fmt.Fprint(w, result.String())
	}
	return nil
}

// Command textclean is the default external text processor. It reads all
// of stdin and prints it with every run of whitespace collapsed to a
// single space.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

func main() {
	if err := run(os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(in io.Reader, out io.Writer) error {
	data, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	w := bufio.NewWriter(out)
	if _, err := fmt.Fprintln(w, clean(string(data))); err != nil {
		return err
	}
	return w.Flush()
}

func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

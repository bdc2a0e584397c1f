package extract

import (
	"bufio"
	"fmt"
	"io"

	"github.com/modoterra/clippyd/pkg/core"
)

// maxLineSize bounds a single log line; rustc calls with many --extern flags run long.
const maxLineSize = 16 * 1024 * 1024

// Match is the parsed target invocation and where it was found.
type Match struct {
	Envs    string
	Command string
	// Line is the 1-based line number of the match.
	Line int
}

// Scan reads r line by line and stops at the first invocation for pkgName.
// Reaching the end of r without a match returns core.ErrTargetInvocationNotFound.
func Scan(r io.Reader, pkgName string) (Match, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	n := 0
	for scanner.Scan() {
		n++
		if envs, cmd, ok := ParseLine(scanner.Text(), pkgName); ok {
			return Match{Envs: envs, Command: cmd, Line: n}, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return Match{}, fmt.Errorf("read cargo output after line %d: %w", n, err)
	}
	return Match{}, fmt.Errorf("%w: no `Running` line for package %q in %d lines (log format changed or the crate was not rebuilt)",
		core.ErrTargetInvocationNotFound, pkgName, n)
}

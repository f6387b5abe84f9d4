// FILE: internal/engine/serve.go
package engine

import (
	"bufio"
	"fmt"
	"io"

	"go.uber.org/zap"
)

// Serve runs the scorer side of the line protocol until quit or EOF
func Serve(r io.Reader, w io.Writer, scorer Scorer, log *zap.SugaredLogger) error {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if scorer == nil {
		scorer = Greedy
	}

	out := bufio.NewWriter(w)
	if _, err := fmt.Fprintln(out, cmdReady); err != nil {
		return err
	}
	if err := out.Flush(); err != nil {
		return err
	}

	in := bufio.NewScanner(r)
	for in.Scan() {
		line := in.Text()
		if line == cmdQuit {
			return nil
		}

		q, err := ParseQuery(line)
		if err != nil {
			log.Warnw("ignoring malformed input", "line", line, "error", err)
			continue
		}

		a := Respond(q, scorer)
		fmt.Fprintln(out, a.Line())
		if err := out.Flush(); err != nil {
			return err
		}
	}
	return in.Err()
}

package utils

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
)

// HighlightJSON writes a JSON document to w with terminal syntax highlighting.
// Output stops between lines once ctx is cancelled.
func HighlightJSON(ctx context.Context, w io.Writer, document []byte, theme string) error {
	lines := strings.SplitAfter(string(document), "\n")

	for i, line := range lines {
		if i%64 == 0 {
			select {
			case <-ctx.Done():
				fmt.Fprintf(w, "\n\n🔄 Output interrupted...\n")
				return ctx.Err()
			default:
			}
		}

		var buf bytes.Buffer
		if err := quick.Highlight(&buf, line, "json", "terminal256", theme); err != nil {
			return err
		}
		if _, err := w.Write(buf.Bytes()); err != nil {
			return err
		}
	}

	return nil
}

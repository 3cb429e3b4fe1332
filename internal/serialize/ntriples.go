package serialize

import (
	"bufio"
	"io"

	"github.com/helixir/research-graph/internal/store"
)

// WriteNTriples writes one statement per line in insertion order.
func WriteNTriples(w io.Writer, g *store.Graph) error {
	bw := bufio.NewWriter(w)
	for _, t := range g.Triples() {
		bw.WriteString(t.String())
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

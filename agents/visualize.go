package agents

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cloudwego/eino/compose"
	"github.com/curtisnewbie/miso/flow"
	"github.com/curtisnewbie/miso/util/strutil"
)

// MermaidGenerator writes the topology of a compiled graph to <dir>/<graph_name>.md as a Mermaid flowchart.
//
// Lambda nodes are rendered with rounded shapes, nested graphs as sub-graphs, and branches as decision diamonds.
//
// Usage:
//
//	_, _ = g.Compile(ctx, compose.WithGraphCompileCallbacks(NewMermaidGenerator(dir)), compose.WithGraphName("MyGraph"))
type MermaidGenerator struct {
	outDir string
}

func NewMermaidGenerator(dir string) *MermaidGenerator {
	return &MermaidGenerator{outDir: dir}
}

// OnFinish is invoked by eino after graph compilation.
func (m *MermaidGenerator) OnFinish(c context.Context, info *compose.GraphInfo) {
	rail := flow.NewRail(c)
	b := strutil.NewBuilder()
	b.Println("flowchart TD")
	m.render(b, info, "", "  ")

	name := "topology"
	if info.Name != "" {
		name = sanitize(info.Name)
	}
	dir := m.outDir
	if dir == "" {
		dir = "."
	}
	path := filepath.Join(dir, name+".md")
	if err := os.WriteFile(path, []byte("```mermaid\n"+b.String()+"```\n"), 0644); err != nil {
		rail.Errorf("Visualize graph failed, %v", err)
		return
	}
	rail.Debugf("Graph topology written to %v", path)
}

func (m *MermaidGenerator) render(b *strutil.Builder, info *compose.GraphInfo, prefix string, indent string) {
	keys := make([]string, 0, len(info.Nodes))
	for k := range info.Nodes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	b.Printlnf("%s%s([START])", indent, mermaidID(prefix, compose.START))
	b.Printlnf("%s%s([END])", indent, mermaidID(prefix, compose.END))

	for _, k := range keys {
		n := info.Nodes[k]
		id := mermaidID(prefix, k)
		switch {
		case n.GraphInfo != nil:
			b.Printlnf("%ssubgraph %s [\"%s (%s)\"]", indent, id, k, n.Component)
			m.render(b, n.GraphInfo, id+"_", indent+"  ")
			b.Printlnf("%send", indent)
		case n.Component == compose.ComponentOfLambda:
			b.Printlnf("%s%s(\"%s\")", indent, id, k)
		default:
			b.Printlnf("%s%s[\"%s<br/>(%s)\"]", indent, id, k, n.Component)
		}
	}

	for _, from := range sortedKeys(info.Edges) {
		for _, to := range info.Edges[from] {
			b.Printlnf("%s%s --> %s", indent, mermaidID(prefix, from), mermaidID(prefix, to))
		}
	}

	for _, from := range sortedKeys(info.Branches) {
		for i, br := range info.Branches[from] {
			decision := fmt.Sprintf("%s_branch_%d", mermaidID(prefix, from), i)
			b.Printlnf("%s%s{\"branch\"}", indent, decision)
			b.Printlnf("%s%s --> %s", indent, mermaidID(prefix, from), decision)
			ends := make([]string, 0, len(br.GetEndNode()))
			for e := range br.GetEndNode() {
				ends = append(ends, e)
			}
			sort.Strings(ends)
			for _, e := range ends {
				b.Printlnf("%s%s --> %s", indent, decision, mermaidID(prefix, e))
			}
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// START and END are mermaid keywords.
func mermaidID(prefix, key string) string {
	switch key {
	case compose.START:
		key = "start_node"
	case compose.END:
		key = "end_node"
	}
	r := strings.NewReplacer(" ", "_", "-", "_", ".", "_")
	return prefix + r.Replace(key)
}

func sanitize(s string) string {
	s = strings.TrimSpace(s)
	r := strings.NewReplacer(" ", "_", "/", "_", "\\", "_")
	return r.Replace(s)
}

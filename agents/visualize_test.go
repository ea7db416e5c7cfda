package agents

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cloudwego/eino/compose"
	"github.com/curtisnewbie/miso/miso"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMermaidGenerator(t *testing.T) {
	dir := t.TempDir()
	rail := miso.EmptyRail()
	g := compose.NewGraph[string, string]()
	_ = g.AddLambdaNode("trim", compose.InvokableLambda(func(ctx context.Context, in string) (string, error) { return in, nil }))
	_ = g.AddLambdaNode("echo-back", compose.InvokableLambda(func(ctx context.Context, in string) (string, error) { return in, nil }))
	_ = g.AddEdge(compose.START, "trim")
	_ = g.AddEdge("trim", "echo-back")
	_ = g.AddEdge("echo-back", compose.END)

	genops := NewGenericOps()
	genops.VisualizeDir = dir
	r, err := CompileGraph(rail, genops, g, compose.WithGraphName("Echo Graph"))
	require.NoError(t, err)

	out, err := r.Invoke(rail, "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", out)

	buf, err := os.ReadFile(filepath.Join(dir, "Echo_Graph.md"))
	require.NoError(t, err)
	s := string(buf)
	assert.Contains(t, s, "flowchart TD")
	assert.Contains(t, s, "start_node --> trim")
	assert.Contains(t, s, "trim --> echo_back")
	assert.Contains(t, s, "echo_back --> end_node")
}

func TestMemorySummarizerCompiles(t *testing.T) {
	genops := NewGenericOps()
	genops.RepeatPrompt = true
	genops.VisualizeDir = t.TempDir()
	f := &fakeChatModel{replies: []string{"the user asked about tavily"}}
	s, err := NewMemorySummarizer(miso.EmptyRail(), f, NewMemorySummarizerOps(genops))
	require.NoError(t, err)

	out, err := s.Execute(miso.EmptyRail(), MemorySummarizerInput{Conversation: "User: who is the ceo of tavily?"})
	require.NoError(t, err)
	assert.Equal(t, "the user asked about tavily", out.Summary)
	assert.Len(t, f.lastInput(), 4)

	_, err = os.Stat(filepath.Join(genops.VisualizeDir, "MemorySummarizer.md"))
	assert.NoError(t, err)
}

package testapi

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/curtisnewbie/miso-webagent/agents"
	"github.com/curtisnewbie/miso-webagent/config"
	"github.com/curtisnewbie/miso-webagent/webagent"
	"github.com/curtisnewbie/miso/miso"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Compile every graph with fake credentials, topology of each graph is written to VISUALIZE_DIR (or a temp dir).
func TestCompileGraphs(t *testing.T) {
	rail := miso.EmptyRail()
	dir := os.Getenv("VISUALIZE_DIR")
	if dir == "" {
		dir = t.TempDir()
	}

	model, err := agents.NewOpenAIChatModel("mymodel", "mykey")
	require.NoError(t, err)
	gop := agents.NewGenericOps()
	gop.RepeatPrompt = true
	gop.VisualizeDir = dir
	_, err = agents.NewMemorySummarizer(rail, model, agents.NewMemorySummarizerOps(gop))
	require.NoError(t, err)

	cfg := config.Default()
	cfg.OpenAIAPIKey = "mykey"
	cfg.TavilyAPIKey = "mykey"
	cfg.EnableSummarization = true
	cfg.EnableResearch = true
	cfg.VisualizeDir = dir
	a, err := webagent.NewWebAgent(rail, cfg)
	require.NoError(t, err)
	_, err = a.BuildGraph(rail)
	require.NoError(t, err)

	for _, name := range []string{"MemorySummarizer.md", "WebAgent.md"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}
}

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/cloudwego/eino/schema"
	"github.com/curtisnewbie/miso-webagent/certs"
	"github.com/curtisnewbie/miso-webagent/config"
	"github.com/curtisnewbie/miso-webagent/memory"
	"github.com/curtisnewbie/miso-webagent/webagent"
	"github.com/curtisnewbie/miso/miso"
	"github.com/curtisnewbie/miso/util/strutil"
	"github.com/google/uuid"
)

type CLI struct {
	Query string `arg:"" optional:"" default:"who is the ceo of tavily?" help:"Question to ask."`

	EnvFile       string `default:".env" help:"Env file to load before reading the environment."`
	Thread        string `help:"Conversation thread id, a new thread is created if empty."`
	OpenAIAPIKey  string `name:"openai-api-key" env:"OPENAI_API_KEY" help:"OpenAI API key."`
	TavilyAPIKey  string `name:"tavily-api-key" env:"TAVILY_API_KEY" help:"Tavily API key."`
	OpenAIBaseURL string `name:"openai-base-url" env:"OPENAI_BASE_URL" help:"OpenAI compatible API base URL."`
	PromptFile    string `type:"existingfile" help:"YAML file overriding the system prompt."`
	Summarization bool   `help:"Summarize earlier messages when the conversation gets long."`
	Research      bool   `help:"Enable the tavily research tool."`
	Tiktoken      bool   `help:"Count tokens with tiktoken."`
	MaxSteps      int    `default:"12" help:"Max steps of the agent."`
	VisualizeDir  string `type:"path" help:"Write graph topology as mermaid diagrams to this directory."`
	Stream        bool   `help:"Stream the final answer instead of printing every step."`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("webagent"),
		kong.Description("Answer questions with a ReAct agent using Tavily web search, extract and crawl."),
	)
	ctx.FatalIfErrorf(run(cli))
}

func run(cli CLI) error {
	rail := miso.EmptyRail()

	cfg, err := config.Load(cli.EnvFile)
	if err != nil {
		return err
	}
	if cli.OpenAIAPIKey != "" {
		cfg.OpenAIAPIKey = cli.OpenAIAPIKey
	}
	if cli.TavilyAPIKey != "" {
		cfg.TavilyAPIKey = cli.TavilyAPIKey
	}
	if cli.OpenAIBaseURL != "" {
		cfg.OpenAIBaseURL = cli.OpenAIBaseURL
	}
	if cli.PromptFile != "" {
		p, err := config.LoadPromptFile(cli.PromptFile)
		if err != nil {
			return err
		}
		cfg.ApplyPromptFile(p)
	}
	cfg.EnableSummarization = cli.Summarization
	cfg.EnableResearch = cli.Research
	cfg.UseTiktoken = cli.Tiktoken
	cfg.MaxSteps = cli.MaxSteps
	cfg.VisualizeDir = cli.VisualizeDir

	// process-wide, before any client is created
	cfg.HTTPClient = certs.Setup(rail, certs.CertifiPool)

	agent, err := webagent.NewWebAgent(rail, cfg)
	if err != nil {
		return err
	}
	graph, err := agent.BuildGraph(rail)
	if err != nil {
		return err
	}

	if cli.Thread == "" {
		cli.Thread = uuid.NewString()
	}
	rail.Infof("Thread: %v", cli.Thread)

	inputs := []*schema.Message{schema.UserMessage(cli.Query)}
	if cli.Stream {
		return streamAnswer(rail, graph, cli.Thread, inputs)
	}
	printed := 0
	return graph.StreamValues(rail, cli.Thread, inputs, func(st memory.ConversationState) error {
		for ; printed < len(st.Messages); printed++ {
			prettyPrint(st.Messages[printed])
		}
		return nil
	})
}

func streamAnswer(rail miso.Rail, graph *webagent.Graph, thread string, inputs []*schema.Message) error {
	sr, err := graph.Stream(rail, thread, inputs)
	if err != nil {
		return err
	}
	defer sr.Close()
	for {
		chunk, err := sr.Recv()
		if err != nil {
			fmt.Println()
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		fmt.Print(chunk.Content)
	}
}

func prettyPrint(m *schema.Message) {
	if m == nil {
		return
	}
	b := strutil.NewBuilder()
	title := fmt.Sprintf(" %v Message ", m.Role)
	if m.ToolName != "" {
		title = fmt.Sprintf(" Tool Message (%v) ", m.ToolName)
	}
	b.Println(padTitle(title))
	if m.Content != "" {
		b.Println(m.Content)
	}
	for _, tc := range m.ToolCalls {
		b.Printlnf("Tool Call: %v (%v)", tc.Function.Name, tc.ID)
		b.Printlnf("  Args: %v", tc.Function.Arguments)
	}
	fmt.Fprint(os.Stdout, b.String())
}

func padTitle(title string) string {
	const width = 80
	n := max((width-len(title))/2, 0)
	pad := strings.Repeat("=", n)
	return pad + title + pad
}

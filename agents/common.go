package agents

type GenericOps struct {
	Language     string
	VisualizeDir string
	LogOnStart   bool
	LogInputs    bool

	// Send the prompt twice, helps some smaller models to follow the instructions.
	RepeatPrompt bool

	// Max steps of a single graph execution, 0 means eino's default.
	MaxRunSteps int
}

func NewGenericOps() *GenericOps {
	return &GenericOps{
		Language:   "English",
		LogOnStart: true,
		LogInputs:  false,
	}
}

package llms

type StructuredPromptOptions struct {
	Instructions string
	Turns        []Turn
	Temperature  *float64
}

type StructuredPromptOption func(*StructuredPromptOptions)

// WithInstructions replaces the system prompt.
func WithInstructions(instructions string) StructuredPromptOption {
	return func(o *StructuredPromptOptions) { o.Instructions = instructions }
}

// WithTurns prepends earlier turns to the prompt.
func WithTurns(turns ...Turn) StructuredPromptOption {
	return func(o *StructuredPromptOptions) { o.Turns = append(o.Turns, turns...) }
}

func WithTemperature(temperature float64) StructuredPromptOption {
	return func(o *StructuredPromptOptions) { o.Temperature = &temperature }
}

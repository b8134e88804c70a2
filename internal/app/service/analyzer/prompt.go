package analyzer

import _ "embed"

//go:embed system_prompt.md
var systemPrompt string

//go:embed mock_result.json
var mockResult []byte

const userInstruction = "Analyze this tongue image according to Traditional Chinese Medicine diagnostic principles. " +
	"Provide a comprehensive analysis following the exact JSON structure specified in your instructions. " +
	"Include confidence scores (0-1) for all classifications, detailed pattern differentiation with evidence, " +
	"Eight Principles diagnosis, Zang-Fu organ analysis, and specific treatment recommendations including herbal formulas with modifications."

const (
	temperature = 0.3
	maxTokens   = 4000
)

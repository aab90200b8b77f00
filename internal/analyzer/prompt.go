package analyzer

import (
	"fmt"

	"vulnviper/internal/llm"
)

const systemPrompt = "You are an expert security auditor."

const promptTemplate = `You are a secure code auditor. Analyze the following Python code chunk for security vulnerabilities.
Provide your answer as a JSON object with keys:
- "summary": short description of what the code does
- "vulnerabilities": list of found vulnerabilities or concerns
- "recommendations": list of suggested fixes or mitigations
- "dependencies": list of modules, packages or external services the code relies on
### Code Chunk:
` + "```python\n%s\n```\n"

// buildMessages returns the conversation sent for one unit of code.
func buildMessages(code string) []llm.Message {
	return []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: fmt.Sprintf(promptTemplate, code)},
	}
}

package llm

import (
	"fmt"
	"os"
	"strings"
)

const languageSuffix = " Generate responses only in English"

const DigestPrompt = `
You are an expert HTML editor and newsletter summariser with a deep understanding of Finance, Technology, and Geopolitics. I will provide a newsletter in raw HTML format, which may include advertisements, promotional sections, tracking/affiliate links, and technical jargon. Your job is to transform this newsletter into a clean, simplified, and insightful version suitable for a general but curious Business Student in India.

Please do the following:

1. Clean Up HTML
Remove all advertisements, sponsored content, email footers, promotions, and irrelevant sections (like unsubscribe links, social share buttons, etc.).
Strip out tracking links, UTM parameters, and affiliate links. If a reference link is valuable, replace it with a clean version of the same link.

2. Simplify the Content
Rewrite dense or technical text into simple, clear language.
Break up long paragraphs, add headings/subheadings where necessary, and make the newsletter reader-friendly.

3. Add a TL;DR Summary
At the top of the newsletter, insert a "TL;DR" section that summarises the key points in a paragraph of 5-6 lines.

4. Add Key Trends & Takeaways
At the end, add a "Key Trends Noticed" section.
Provide deep, analytical insights that compare snippets across newsletters and domains, not generic summaries or truisms (like "AI is the future" or "the US is becoming protectionist").
Explain in detail why a particular trend matters and how it connects to broader macroeconomic, policy, political or technology shifts.

5. Add Explanations for Jargon
After each major section, add a "Jargon Explained" box where you:
Briefly define any complex or uncommon financial, tech, or geopolitical term used in that section.
Keep it concise (1-2 lines per term), written in simple language.

6. Add Ideas for Business Section with a light bulb emoji.
After a section, if there is any business opportunity that you see, add a "Business Idea" box where you:
Briefly lay out a business opportunity in this sector with a clearly defined problem statement. Focus on problems which can be solved with software alone, or small MicroSaaS products.

7. Final Output
Return only well-formed, valid HTML.

Preserve useful formatting (like headings, lists, bold text, images, infographics etc.)

Now, here's the HTML input:
`

// BuildPrompt appends the newsletter HTML to the instruction prompt.
func BuildPrompt(prompt, html string) string {
	if prompt == "" {
		prompt = DigestPrompt
	}
	return prompt + html + languageSuffix
}

// LoadPrompt reads a prompt override from disk. An empty path yields the
// built-in prompt.
func LoadPrompt(path string) (string, error) {
	if path == "" {
		return DigestPrompt, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read prompt file: %w", err)
	}
	return string(data), nil
}

// cleanHTMLResponse removes the Markdown code fence models like to wrap HTML in.
func cleanHTMLResponse(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}

	content = strings.TrimPrefix(content, "```html")
	content = strings.TrimPrefix(content, "```HTML")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}

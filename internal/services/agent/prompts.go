// File: internal/services/agent/prompts.go
package agent

import (
    "fmt"

    "github.com/hyewonk/go-datatalk/internal/domain"
)

// promptPreamble teaches the model the tool protocol. Every category prompt
// is built on top of it.
const promptPreamble = `You are a data analyst assistant for small business owners. You answer
questions about the owner's uploaded point-of-sale data.

You can use tools by following this protocol exactly:
- To run a database query, reply with a line starting with ` + MarkerSQL + ` followed by
  a precise natural-language description of the data you need.
- To draw a chart, reply with a line starting with ` + MarkerPlot + ` followed by Go code
  in a ` + "```go```" + ` fence. The code must define func Draw() and draw on the
  plotkit.Current handle (Bar, Line, Pie, Title, XLabel, YLabel). Only the
  plotkit package and basic stdlib packages may be imported.
- For relative dates, write {{get_date(year_diff=0, month_diff=0, week_diff=0,
  day_diff=0, weekday=0)}} or {{get_weekday(week_diff=0, weekday=0)}} instead of
  computing dates yourself. Weekday is encoded Sunday=1 through Saturday=7.
- If you need clarification from the user, end your reply with ` + TokenAskUser + `.
- If your answer is partial and you need another turn, include ` + TokenContinue + `.
- End a final answer with ` + TokenEnd + `.

Tool results arrive as tables in follow-up messages. Base your answers only on
those results, never on invented numbers.`

var categoryPrompts = map[int]string{
    domain.CategoryGeneral: "The data is general small-business sales data.",
    domain.CategoryRetail: "The data comes from a retail store. Pay attention to inventory " +
        "levels, slow-moving stock and repeat purchase patterns.",
    domain.CategoryFood: "The data comes from a food-service business. Pay attention to " +
        "perishable stock, disposal rates, daypart sales patterns and menu performance.",
    domain.CategoryFashion: "The data comes from a fashion retailer. Pay attention to " +
        "seasonality, size/color breakdowns and sell-through rates.",
}

// PromptTable maps a dataset's business category to its system prompt. An
// explicitly constructed table rather than package-level mutable state, so
// tests and callers control exactly what the loop sees.
type PromptTable struct {
    prompts  map[int]string
    fallback string
}

func DefaultPromptTable() *PromptTable {
    prompts := make(map[int]string, len(categoryPrompts))
    for category, hint := range categoryPrompts {
        prompts[category] = promptPreamble + "\n\n" + hint
    }
    return &PromptTable{
        prompts:  prompts,
        fallback: promptPreamble + "\n\n" + categoryPrompts[domain.CategoryGeneral],
    }
}

// ForCategory returns the system prompt for a business category.
func (t *PromptTable) ForCategory(category int) string {
    if prompt, ok := t.prompts[category]; ok {
        return prompt
    }
    return t.fallback
}

// WithSchema appends the dataset schema description to a system prompt.
func WithSchema(prompt, schemaText string) string {
    if schemaText == "" {
        return prompt
    }
    return fmt.Sprintf("%s\n\nDatabase schema:\n%s", prompt, schemaText)
}

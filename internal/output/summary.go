package output

import (
	"fmt"

	"github.com/tyemirov/ctree/internal/services/stream"
	"github.com/tyemirov/ctree/internal/types"
	"github.com/tyemirov/ctree/internal/utils"
)

type summaryAccumulator struct {
	files  int
	errors int
	bytes  int64
	tokens int
	model  string
}

func (accumulator *summaryAccumulator) add(data *stream.SummaryEvent) {
	if data == nil {
		return
	}
	accumulator.files += data.Files
	accumulator.errors += data.Errors
	accumulator.bytes += data.Bytes
	accumulator.tokens += data.Tokens
	if accumulator.model == "" && data.Model != "" && data.Tokens > 0 {
		accumulator.model = data.Model
	}
}

func (accumulator *summaryAccumulator) outputSummary() *types.OutputSummary {
	return &types.OutputSummary{
		TotalFiles:  accumulator.files,
		TotalErrors: accumulator.errors,
		TotalSize:   utils.FormatFileSize(accumulator.bytes),
		TotalTokens: accumulator.tokens,
		Model:       accumulator.model,
	}
}

// FormatSummaryLine formats an OutputSummary into the raw summary line.
func FormatSummaryLine(summary *types.OutputSummary) string {
	if summary == nil {
		summary = &types.OutputSummary{}
	}
	label := "files"
	if summary.TotalFiles == 1 {
		label = "file"
	}
	extra := ""
	if summary.TotalTokens > 0 {
		extra = fmt.Sprintf(", %d tokens", summary.TotalTokens)
	}
	if summary.TotalErrors > 0 {
		errorLabel := "errors"
		if summary.TotalErrors == 1 {
			errorLabel = "error"
		}
		extra += fmt.Sprintf(", %d %s", summary.TotalErrors, errorLabel)
	}
	modelSuffix := ""
	if summary.Model != "" {
		modelSuffix = fmt.Sprintf(" (model: %s)", summary.Model)
	}
	return fmt.Sprintf("Summary: %d %s, %s%s%s", summary.TotalFiles, label, summary.TotalSize, extra, modelSuffix)
}

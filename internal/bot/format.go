package bot

import (
	"fmt"
	"strings"

	"github.com/example/wordace/internal/ingest"
	"github.com/example/wordace/internal/quiz"
	"github.com/example/wordace/internal/study"
)

// Report lines quoted in a failed import message
const maxReportLines = 5

func listButtonText(l study.ListSummary) string {
	text := fmt.Sprintf("%s (%d)", l.Title, l.EntryCount)
	if l.IsPriority {
		text = "⭐ " + text
	}
	if l.Learned > 0 {
		text += fmt.Sprintf(" %d%%", l.MasteryPercent)
	}
	return text
}

func formatQuestion(index, total int, q quiz.Question) string {
	return fmt.Sprintf("❓ %d/%d\n\n%s", index+1, total, q.Target.Term)
}

func formatVerdict(correct bool, q quiz.Question) string {
	if correct {
		return "✅ Correct: " + q.Target.Definition
	}
	return "❌ The answer was: " + q.Target.Definition
}

func formatResult(res *study.AnswerResult) string {
	text := fmt.Sprintf("🏁 Quiz complete: %d/%d (%d%%)", res.Score, res.Total, res.Percent)
	if res.PersistError != "" {
		text += "\n⚠️ Your score could not be fully saved. It may be missing from your progress."
	}
	return text
}

func formatProgress(progress []study.ListProgress) string {
	if len(progress) == 0 {
		return "📊 You have not completed a quiz yet. Use /lists to start."
	}
	var sb strings.Builder
	sb.WriteString("📊 Your progress\n")
	for _, p := range progress {
		fmt.Fprintf(&sb, "\n%s: %d/%d words (%d%%)", p.Title, len(p.LearnedEntryIDs), p.EntryCount, p.MasteryPercent)
	}
	return sb.String()
}

func formatReport(name string, report *ingest.Report, err error) string {
	if err == nil && report != nil {
		text := fmt.Sprintf("✅ %s imported: %d lists, %d entries", name, report.Lists, report.Entries)
		if report.Skipped > 0 {
			text += fmt.Sprintf(", %d rows skipped", report.Skipped)
		}
		return text
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "❌ %s failed: %v", name, err)
	if report != nil {
		lines := report.Lines
		if len(lines) > maxReportLines {
			lines = lines[len(lines)-maxReportLines:]
		}
		for _, line := range lines {
			sb.WriteString("\n" + line)
		}
	}
	return sb.String()
}

package notifier

import (
	"fmt"
	"html"
	"math"
	"strings"

	"github.com/dustin/go-humanize"

	"FundRadar/internal/model"
	"FundRadar/internal/recorder"
)

// FormatRunSummary formats the head of a ranked snapshot into a Telegram message.
func FormatRunSummary(snap *model.Snapshot, top int) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>FundRadar</b> | %s\n", snap.AsOf))
	b.WriteString(fmt.Sprintf("Fon sayısı: %s\n\n", humanize.Comma(int64(snap.RecordCount))))

	counts := map[model.Signal]int{}
	for _, r := range snap.Records {
		counts[r.Signal]++
	}
	b.WriteString(fmt.Sprintf("🟢 AL: %d | 🔴 SAT: %d | ⚪ TUT: %d\n\n",
		counts[model.SignalBuy], counts[model.SignalSell], counts[model.SignalHold]))

	if top > len(snap.Records) {
		top = len(snap.Records)
	}
	if top > 0 {
		b.WriteString("🏆 <b>1 aylık getiri sıralaması:</b>\n")
		for i, r := range snap.Records[:top] {
			b.WriteString(fmt.Sprintf("%d. <b>%s</b> %s | risk %d | %s\n",
				i+1, r.Code, formatPct(r.Return30dPct), r.RiskTier, r.Signal))
		}
	}
	return b.String()
}

// FormatFund formats one fund's record.
func FormatFund(m *model.DerivedMetrics) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("💼 <b>%s</b> %s\n", m.Code, html.EscapeString(m.Title)))
	b.WriteString(fmt.Sprintf("Kategori: %s\n", m.Category))
	b.WriteString(fmt.Sprintf("Fiyat: %s (%s)\n", humanize.FormatFloat("#,###.######", m.LatestPrice), formatPct(m.DailyChangePct)))
	b.WriteString(fmt.Sprintf("Getiri 1H: %s | 1A: %s | 3A: %s | YB: %s\n",
		formatPct(m.Return7dPct), formatPct(m.Return30dPct), formatPct(m.Return90dPct), formatPct(m.ReturnYTDPct)))
	b.WriteString(fmt.Sprintf("Risk: %d/5 | Sinyal: %s\n", m.RiskTier, m.Signal))
	b.WriteString(fmt.Sprintf("Yatırımcı: %s\n", humanize.Comma(m.InvestorCount)))
	b.WriteString(fmt.Sprintf("Portföy: ₺%s\n", humanize.Comma(int64(math.Round(m.PortfolioValue)))))
	return b.String()
}

// FormatRunFailure formats a failed or empty run.
func FormatRunFailure(runID string, err error) string {
	return fmt.Sprintf("❌ <b>FundRadar çalışması başarısız</b>\nrun: %s\n%s", runID, html.EscapeString(err.Error()))
}

// FormatRecentRuns lists run history, newest first.
func FormatRecentRuns(runs []recorder.RunRecord) string {
	if len(runs) == 0 {
		return "Kayıtlı çalışma yok."
	}
	var b strings.Builder
	b.WriteString("🗂 <b>Son çalışmalar</b>\n")
	for _, r := range runs {
		icon := "✅"
		switch r.Status {
		case recorder.StatusEmpty:
			icon = "⚠️"
		case recorder.StatusFailed:
			icon = "❌"
		}
		b.WriteString(fmt.Sprintf("%s %s | %s kayıt | %s\n",
			icon, r.StartedAt.Format("2006-01-02 15:04"), humanize.Comma(int64(r.Records)), r.Status))
	}
	return b.String()
}

func formatPct(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%+.2f%%", *v)
}

package notifier

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"ETFPal/internal/model"
)

var cadenceLabel = map[model.Cadence]string{
	model.CadenceDaily:   "每日",
	model.CadenceWeekly:  "每周",
	model.CadenceMonthly: "每月",
}

// FormatAdvice formats one evaluation into a Telegram message.
// Instruments fix the order in which prices and trends are listed.
func FormatAdvice(adv *model.Advice, instruments []model.Instrument) string {
	var b strings.Builder

	title := "定投建议"
	if adv.TriggerType == model.TriggerReminder {
		title = "今日定投提醒"
	}
	fmt.Fprintf(&b, "📊 <b>ETFPal %s</b> | %s\n\n", title, adv.Date)

	for _, inst := range instruments {
		p, ok := adv.Prices[inst.Name]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "%s (%s): %s\n", inst.Name, inst.Symbol, p.StringFixed(2))
		for _, c := range adv.Trends[inst.Name] {
			if !c.HasPrior {
				continue
			}
			fmt.Fprintf(&b, "  %s %s (%s%%)\n", c.PeriodStart.Format("01-02"), signed(c.Change, 2), signed(c.Percent, 2))
		}
	}

	b.WriteString("\n📉 <b>信号明细:</b>\n")
	for _, f := range adv.Factors {
		fmt.Fprintf(&b, "  %s: %d × %s%% = +%s%%\n", f.Name, f.Periods, f.Rate.String(), f.Boost.String())
	}
	fmt.Fprintf(&b, "  连续上涨月数: %d\n", adv.Metrics.UpMonths)

	fmt.Fprintf(&b, "\n💰 <b>建议投入:</b> %s%% × ¥%s = ¥%s\n",
		adv.Percentage.String(), adv.BaseAmount.StringFixed(2), adv.Amount.StringFixed(2))

	b.WriteString(FormatSchedule(adv.Cadence, adv.LastDate, adv.NextDate, adv.Due))

	if adv.WarningMsg != "" {
		fmt.Fprintf(&b, "\n%s\n", adv.WarningMsg)
	}
	return b.String()
}

// FormatSchedule formats the last and next investment dates.
func FormatSchedule(cadence model.Cadence, last, next string, due bool) string {
	var b strings.Builder
	if last == "" {
		last = "无"
	}
	fmt.Fprintf(&b, "\n🗓 定投周期: %s\n", cadenceLabel[cadence])
	fmt.Fprintf(&b, "上次定投: %s\n", last)
	fmt.Fprintf(&b, "下次定投: %s", next)
	if due {
		b.WriteString(" ✅ 今日可投")
	}
	b.WriteString("\n")
	return b.String()
}

// FormatEvent confirms a recorded investment.
func FormatEvent(evt *model.InvestmentEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✅ <b>已记录定投</b> | %s\n\n", evt.Date)
	fmt.Fprintf(&b, "金额: ¥%s (%s%%)\n", evt.Amount.StringFixed(2), evt.Percentage.String())
	for _, name := range slices.Sorted(maps.Keys(evt.Prices)) {
		fmt.Fprintf(&b, "%s: %s\n", name, evt.Prices[name].StringFixed(2))
	}
	fmt.Fprintf(&b, "编号: <code>%s</code>\n", evt.ID)
	return b.String()
}

// FormatHistory lists ledger events, newest first, with their total.
func FormatHistory(events []model.InvestmentEvent) string {
	if len(events) == 0 {
		return "📒 暂无定投记录"
	}
	var b strings.Builder
	total := decimal.Zero
	b.WriteString("📒 <b>定投记录</b>\n\n")
	for _, e := range events {
		fmt.Fprintf(&b, "%s  ¥%s (%s%%)\n", e.Date, e.Amount.StringFixed(2), e.Percentage.String())
		total = total.Add(e.Amount)
	}
	fmt.Fprintf(&b, "\n合计 %d 笔: ¥%s\n", len(events), total.StringFixed(2))
	return b.String()
}

// FormatError reports a failed task.
func FormatError(task string, err error) string {
	return fmt.Sprintf("❌ %s失败: %v", task, err)
}

func signed(d decimal.Decimal, places int32) string {
	s := d.StringFixed(places)
	if d.IsPositive() {
		return "+" + s
	}
	return s
}

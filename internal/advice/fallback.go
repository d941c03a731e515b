package advice

import (
	"context"
	"fmt"
	"strings"

	"github.com/julianstephens/habitbot/internal/metrics"
)

// FallbackAdvisor serves generic tips without any remote call
type FallbackAdvisor struct{}

func NewFallback() *FallbackAdvisor {
	return &FallbackAdvisor{}
}

func (FallbackAdvisor) Advise(_ context.Context, req Request) string {
	metrics.RecordAdvice(string(ClassFallback))

	var b strings.Builder
	b.WriteString("AI advice is not configured right now, so here are a few general tips:\n\n")
	fmt.Fprintf(&b, "1. Tie \"%s\" to something you already do every day.\n", req.Habit)
	b.WriteString("2. Make the first step so small it takes under two minutes.\n")
	b.WriteString("3. Mark every completion right away so progress stays visible.\n")

	if req.Stats != nil && req.Stats.Total > 0 {
		ratio := req.Stats.Ratio()
		switch {
		case ratio >= 80:
			fmt.Fprintf(&b, "4. You are at %.0f%%. Keep the streak and consider raising the bar slightly.\n", ratio)
		default:
			fmt.Fprintf(&b, "4. You are at %.0f%%. Pick a fixed time of day and protect it.\n", ratio)
		}
	} else {
		b.WriteString("4. Start today and record it, even if it feels trivial.\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

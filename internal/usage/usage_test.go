package usage

import "testing"

func TestAddUseAccumulates(t *testing.T) {
	tr := NewTracker()
	tr.AddUse("anthropic:claude-sonnet-4-5-20250929", 100, 50)
	tr.AddUse("anthropic:claude-sonnet-4-5-20250929", 10, 5)
	tr.AddUse("openai:gpt-4o", 7, 3)

	got := tr.GetUsage()
	if got["anthropic:claude-sonnet-4-5-20250929"].InputTokens != 110 {
		t.Fatalf("input tokens = %d, want 110", got["anthropic:claude-sonnet-4-5-20250929"].InputTokens)
	}
	if got["anthropic:claude-sonnet-4-5-20250929"].OutputTokens != 55 {
		t.Fatalf("output tokens = %d, want 55", got["anthropic:claude-sonnet-4-5-20250929"].OutputTokens)
	}
	if got["openai:gpt-4o"].InputTokens != 7 {
		t.Fatalf("openai input tokens = %d, want 7", got["openai:gpt-4o"].InputTokens)
	}
}

func TestGetUsageSnapshotIsolated(t *testing.T) {
	tr := NewTracker()
	tr.AddUse("m", 1, 1)
	snap := tr.GetUsage()
	snap["m"] = Totals{InputTokens: 999}
	if tr.GetUsage()["m"].InputTokens != 1 {
		t.Fatalf("mutating a snapshot must not affect the tracker")
	}
}

func TestCost(t *testing.T) {
	// 1,000,000 input tokens at 3,000,000 units/10M, 500,000 output at 15,000,000 units/10M.
	got := Cost(1_000_000, 500_000, 3_000_000, 15_000_000)
	want := 1_000_000.0*3_000_000/10_000_000 + 500_000.0*15_000_000/10_000_000
	if got != want {
		t.Fatalf("Cost() = %v, want %v", got, want)
	}
}

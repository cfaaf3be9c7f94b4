package sla

import (
	"testing"
	"time"

	"fixit/backend/config"
	"fixit/backend/internal/model"
)

func testEngine() *Engine {
	return NewEngine(&config.SLAConfig{
		CriticalHours: 2,
		HighHours:     8,
		MediumHours:   24,
		LowHours:      72,
	})
}

var baseTime = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

// ── SLAHours / DueBy ──

func TestEngine_SLAHours(t *testing.T) {
	e := testEngine()

	cases := []struct {
		priority model.Priority
		hours    int
	}{
		{model.PriorityCritical, 2},
		{model.PriorityHigh, 8},
		{model.PriorityMedium, 24},
		{model.PriorityLow, 72},
	}
	for _, c := range cases {
		if got := e.SLAHours(c.priority); got != c.hours {
			t.Errorf("%s 期望 %d 小时，实际 %d", c.priority, c.hours, got)
		}
	}
}

func TestEngine_DueBy_ExactOffset(t *testing.T) {
	e := testEngine()

	// 所有优先级下 dueBy - createdAt 必须精确等于配置的 SLA 小时数
	for _, p := range []model.Priority{
		model.PriorityCritical, model.PriorityHigh, model.PriorityMedium, model.PriorityLow,
	} {
		dueBy := e.DueBy(p, baseTime)
		want := time.Duration(e.SLAHours(p)) * time.Hour
		if got := dueBy.Sub(baseTime); got != want {
			t.Errorf("%s 期望偏移 %v，实际 %v", p, want, got)
		}
	}
}

func TestEngine_DueBy_Critical(t *testing.T) {
	e := testEngine()

	dueBy := e.DueBy(model.PriorityCritical, baseTime)
	want := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	if !dueBy.Equal(want) {
		t.Errorf("期望 %v，实际 %v", want, dueBy)
	}
}

func TestEngine_SLAHours_UnknownFallsBackToMedium(t *testing.T) {
	e := testEngine()

	if got := e.SLAHours(model.Priority("bogus")); got != 24 {
		t.Errorf("未知优先级应按 medium=24 处理，实际 %d", got)
	}
}

// ── IsOverdue ──

func TestEngine_IsOverdue(t *testing.T) {
	e := testEngine()

	past := baseTime.Add(-time.Hour)
	future := baseTime.Add(time.Hour)

	if e.IsOverdue(nil, baseTime) {
		t.Error("无截止时间不应超期")
	}
	if e.IsOverdue(&future, baseTime) {
		t.Error("截止时间在未来不应超期")
	}
	if !e.IsOverdue(&past, baseTime) {
		t.Error("截止时间已过应超期")
	}
	// 恰好等于截止时间不算超期（严格大于判定）
	if e.IsOverdue(&baseTime, baseTime) {
		t.Error("恰好到期时刻不应超期")
	}
}

// ── TimeRemaining ──

func TestEngine_TimeRemaining(t *testing.T) {
	e := testEngine()

	if got := e.TimeRemaining(nil, baseTime); got != 0 {
		t.Errorf("无截止时间应返回 0，实际 %v", got)
	}

	future := baseTime.Add(2 * time.Hour)
	if got := e.TimeRemaining(&future, baseTime); got != 2*time.Hour {
		t.Errorf("期望剩余 2h，实际 %v", got)
	}

	past := baseTime.Add(-2 * time.Hour)
	if got := e.TimeRemaining(&past, baseTime); got != -2*time.Hour {
		t.Errorf("超期应返回负值，实际 %v", got)
	}
}

// ── UrgencyLevel ──

func TestEngine_UrgencyLevel(t *testing.T) {
	e := testEngine()

	cases := []struct {
		name      string
		remaining time.Duration
		want      UrgencyLevel
	}{
		{"超期", -time.Minute, UrgencyOverdue},
		{"剩余30分钟", 30 * time.Minute, UrgencyCritical},
		{"恰好1小时", time.Hour, UrgencyCritical},
		{"剩余2小时", 2 * time.Hour, UrgencyWarning},
		{"恰好4小时", 4 * time.Hour, UrgencyWarning},
		{"剩余5小时", 5 * time.Hour, UrgencyNormal},
	}
	for _, c := range cases {
		dueBy := baseTime.Add(c.remaining)
		if got := e.UrgencyLevel(&dueBy, baseTime); got != c.want {
			t.Errorf("%s: 期望 %s，实际 %s", c.name, c.want, got)
		}
	}
}

func TestEngine_UrgencyLevel_NoDeadline(t *testing.T) {
	e := testEngine()

	if got := e.UrgencyLevel(nil, baseTime); got != UrgencyNormal {
		t.Errorf("无截止时间应为 normal，实际 %s", got)
	}
}

// 紧迫程度随剩余时间单调变化，阈值不重叠
func TestEngine_UrgencyLevel_Monotonic(t *testing.T) {
	e := testEngine()

	rank := map[UrgencyLevel]int{
		UrgencyOverdue:  0,
		UrgencyCritical: 1,
		UrgencyWarning:  2,
		UrgencyNormal:   3,
	}

	prev := -1
	for remaining := -2 * time.Hour; remaining <= 6*time.Hour; remaining += 10 * time.Minute {
		dueBy := baseTime.Add(remaining)
		level := e.UrgencyLevel(&dueBy, baseTime)
		if rank[level] < prev {
			t.Fatalf("剩余 %v 时级别 %s 逆序出现", remaining, level)
		}
		prev = rank[level]
	}
}

// ── EscalationTime ──

func TestEngine_EscalationTime_Formula(t *testing.T) {
	e := testEngine()

	// escalationTime == dueBy - 0.25 × (dueBy - createdAt)
	for _, p := range []model.Priority{
		model.PriorityCritical, model.PriorityHigh, model.PriorityMedium, model.PriorityLow,
	} {
		dueBy := e.DueBy(p, baseTime)
		want := dueBy.Add(-dueBy.Sub(baseTime) / 4)
		if got := e.EscalationTime(p, baseTime); !got.Equal(want) {
			t.Errorf("%s: 期望 %v，实际 %v", p, want, got)
		}
	}
}

func TestEngine_EscalationTime_Critical(t *testing.T) {
	e := testEngine()

	// critical 窗口 2h，75% 处即 createdAt + 1.5h
	got := e.EscalationTime(model.PriorityCritical, baseTime)
	want := baseTime.Add(90 * time.Minute)
	if !got.Equal(want) {
		t.Errorf("期望 %v，实际 %v", want, got)
	}
}

package notify

import (
	"encoding/json"
	"fmt"
	"strings"
)

var icons = map[string]string{
	"task_complete":    "✅",
	"task_start":       "🔄",
	"error":            "⚠️",
	"project_complete": "🎉",
	"budget_warning":   "💰",
	"help_needed":      "🆘",
}

const defaultIcon = "📋"

// Format renders a notification of the given type as Markdown. Unknown types
// print the raw data.
func Format(typ string, data map[string]interface{}) string {
	icon, ok := icons[typ]
	if !ok {
		icon = defaultIcon
	}
	f := func(key string) string { return field(data, key) }

	var b strings.Builder
	switch typ {
	case "task_complete":
		fmt.Fprintf(&b, "%s *Task Complete*\n\n", icon)
		fmt.Fprintf(&b, "Task: `%s`\nTitle: %s\nModel: %s\nTime: %s\nStatus: Completed ✅",
			f("task_id"), f("title"), f("model"), f("time"))
	case "task_start":
		fmt.Fprintf(&b, "%s *Task Started*\n\n", icon)
		fmt.Fprintf(&b, "Task: `%s`\nTitle: %s\nModel: %s\nEstimated: %s",
			f("task_id"), f("title"), f("model"), f("estimated_time"))
	case "error":
		fmt.Fprintf(&b, "%s *Error Occurred*\n\n", icon)
		fmt.Fprintf(&b, "Task: `%s`\nError: %s\nLogged in: PRD_NOTES.md\n\nAction needed: Please check logs",
			f("task_id"), f("error"))
	case "project_complete":
		fmt.Fprintf(&b, "%s *Project Complete!*\n\n", icon)
		fmt.Fprintf(&b, "✅ %s tasks completed\n⏱️ Time: %s\n💰 Cost: $%s\n\nTest checklist ready!",
			f("tasks_completed"), f("total_time"), f("total_cost"))
	case "budget_warning":
		fmt.Fprintf(&b, "%s *Budget Warning*\n\n", icon)
		fmt.Fprintf(&b, "Spent: $%s of $%s\nRemaining: $%s\nTasks left: %s\n\nApproaching budget limit",
			f("spent"), f("budget"), f("remaining"), f("tasks_remaining"))
	case "help_needed":
		fmt.Fprintf(&b, "%s *Need Help*\n\n", icon)
		fmt.Fprintf(&b, "Task: `%s`\nIssue: %s\n\nWaiting for your decision", f("task_id"), f("issue"))
	default:
		raw, err := json.MarshalIndent(data, "", "    ")
		if err != nil {
			raw = []byte(fmt.Sprint(data))
		}
		fmt.Fprintf(&b, "%s *Notification*\n\n%s", icon, raw)
	}
	return b.String()
}

// field prints data[key], or nothing when it is missing.
func field(data map[string]interface{}, key string) string {
	v, ok := data[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	}
	return fmt.Sprint(v)
}

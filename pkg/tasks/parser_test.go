package tasks

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name   string
		text   string
		expect []Task
	}{
		{
			name: "lists and tasks",
			text: "1.Work,1.1.Buy milk,1.2.Call Bob,2.Home,2.1.Clean",
			expect: []Task{
				{Title: "Buy milk", ListName: "Work", ListNumber: 1, TaskNumber: 1, Valid: true},
				{Title: "Call Bob", ListName: "Work", ListNumber: 1, TaskNumber: 2, Valid: true},
				{Title: "Clean", ListName: "Home", ListNumber: 2, TaskNumber: 1, Valid: true},
			},
		},
		{name: "no tasks", text: "NO_TASKS"},
		{name: "empty", text: ""},
		{name: "blank", text: " \t "},
		{
			name: "whitespace around tokens",
			text: " 1.Work ,\t1.1.Buy milk\t, 1.12.Call Bob ",
			expect: []Task{
				{Title: "Buy milk", ListName: "Work", ListNumber: 1, TaskNumber: 1, Valid: true},
				{Title: "Call Bob", ListName: "Work", ListNumber: 1, TaskNumber: 12, Valid: true},
			},
		},
		{
			name: "title keeps further dots",
			text: "3.Shop,3.1.Buy 2.5kg flour. Then bake.",
			expect: []Task{
				{Title: "Buy 2.5kg flour. Then bake.", ListName: "Shop", ListNumber: 3, TaskNumber: 1, Valid: true},
			},
		},
		{
			name: "task before any list",
			text: "4.2.Orphan",
			expect: []Task{
				{Title: "Orphan", ListNumber: 4, TaskNumber: 2, Valid: true},
			},
		},
		{
			name: "list context wins over task token",
			text: "2.Home,5.1.Clean",
			expect: []Task{
				{Title: "Clean", ListName: "Home", ListNumber: 2, TaskNumber: 1, Valid: true},
			},
		},
		{
			name: "garbage tokens skipped",
			text: "Work,,0.Zero,x.1.y,1.Work,1.x.No number,1.0.Zero,1.1.Ok",
			expect: []Task{
				{Title: "Ok", ListName: "Work", ListNumber: 1, TaskNumber: 1, Valid: true},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expect, Parse(tc.text, 0))
		})
	}
}

func TestParseCapacity(t *testing.T) {
	tokens := []string{"1.L"}
	for i := 1; i <= MaxTasks+5; i++ {
		tokens = append(tokens, fmt.Sprintf("1.%d.T%d", i, i))
	}
	text := strings.Join(tokens, ",")

	result := Parse(text, 0)
	require.Len(t, result, MaxTasks)
	require.Equal(t, MaxTasks, result[MaxTasks-1].TaskNumber)

	require.Len(t, Parse(text, 3), 3)
}

func TestParseTruncates(t *testing.T) {
	name := strings.Repeat("n", MaxListNameLen+1)
	title := strings.Repeat("é", MaxTitleLen)
	result := Parse("1."+name+",1.1."+title, 0)
	require.Len(t, result, 1)
	require.Len(t, result[0].ListName, MaxListNameLen)
	require.LessOrEqual(t, len(result[0].Title), MaxTitleLen)
	require.True(t, strings.HasPrefix(title, result[0].Title))
	require.Equal(t, "é", result[0].Title[len(result[0].Title)-2:])
}

func TestTaskRef(t *testing.T) {
	task := Task{Title: "Clean", ListName: "Home", ListNumber: 2, TaskNumber: 3}
	require.Equal(t, "2.3", task.Ref())
	require.Equal(t, "2.3 Clean [Home]", task.String())
}

package tasks

import (
	"strings"
	"unicode/utf8"

	"github.com/golang/glog"
)

// NoTasks is the payload sent when the device has no tasks.
const NoTasks = "NO_TASKS"

// TokenDelimiter separates tokens of a task list payload.
const TokenDelimiter = ","

// Parse decodes a task list payload, e.g.
//
//	1.Work,1.1.Buy milk,1.2.Call Bob,2.Home,2.1.Clean
//
// "N.Name" starts list N, "N.M.Title" is task M of the current list.
// At most capacity tasks are returned (MaxTasks if capacity <= 0).
func Parse(text string, capacity int) []Task {
	if capacity <= 0 {
		capacity = MaxTasks
	}
	text = strings.TrimSpace(text)
	if text == "" || text == NoTasks {
		return nil
	}

	var (
		result   []Task
		listName string
		listNum  int
	)
	for _, token := range strings.Split(text, TokenDelimiter) {
		if len(result) >= capacity {
			glog.Warningf("task list truncated at %d tasks", capacity)
			break
		}
		token = strings.Trim(token, " \t")
		if len(token) < 2 || token[0] < '1' || token[0] > '9' || token[1] != '.' {
			if token != "" {
				glog.V(2).Infof("skip token %q", token)
			}
			continue
		}
		rest := token[2:]
		dot := strings.IndexByte(rest, '.')
		if dot < 0 {
			listNum, listName = int(token[0]-'0'), truncate(rest, MaxListNameLen)
			continue
		}
		taskNum := atoi(rest[:dot])
		if taskNum < 1 {
			glog.V(2).Infof("skip token %q: invalid task number", token)
			continue
		}
		task := Task{
			Title:      truncate(rest[dot+1:], MaxTitleLen),
			ListName:   listName,
			ListNumber: listNum,
			TaskNumber: taskNum,
			Valid:      true,
		}
		if task.ListNumber == 0 {
			task.ListNumber = int(token[0] - '0')
		}
		result = append(result, task)
	}
	return result
}

// atoi parses the leading decimal digits of s.
func atoi(s string) (n int) {
	for i := 0; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		n = n*10 + int(s[i]-'0')
		if n > 1<<24 {
			return 0
		}
	}
	return
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

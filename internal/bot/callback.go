package bot

import (
	"fmt"
	"strconv"
	"strings"
)

// Telegram rejects callback data longer than this
const maxCallbackBytes = 64

// Callback actions
const (
	actionMenu     = "menu"
	actionLists    = "lists"
	actionProgress = "progress"
	actionQuiz     = "quiz"
	actionAnswer   = "ans"
	actionExample  = "ex"
)

// callback is the decoded payload of an inline button. Options are sent by
// position, so the data stays short whatever the entry ids look like.
type callback struct {
	Action    string
	ListID    string
	SessionID string
	Question  int
	Option    int
}

func (c callback) encode() (string, error) {
	var data string
	switch c.Action {
	case actionMenu, actionLists, actionProgress:
		data = c.Action
	case actionQuiz:
		data = actionQuiz + ":" + c.ListID
	case actionAnswer:
		data = fmt.Sprintf("%s:%s:%d:%d", actionAnswer, c.SessionID, c.Question, c.Option)
	case actionExample:
		data = fmt.Sprintf("%s:%s:%d", actionExample, c.SessionID, c.Question)
	default:
		return "", fmt.Errorf("unknown callback action %q", c.Action)
	}
	if len(data) > maxCallbackBytes {
		return "", fmt.Errorf("callback data %q exceeds %d bytes", data, maxCallbackBytes)
	}
	return data, nil
}

func parseCallback(data string) (callback, error) {
	parts := strings.Split(data, ":")
	c := callback{Action: parts[0]}

	switch c.Action {
	case actionMenu, actionLists, actionProgress:
		if len(parts) != 1 {
			return callback{}, fmt.Errorf("malformed callback %q", data)
		}
	case actionQuiz:
		if len(parts) != 2 || parts[1] == "" {
			return callback{}, fmt.Errorf("malformed callback %q", data)
		}
		c.ListID = parts[1]
	case actionAnswer, actionExample:
		want := 3
		if c.Action == actionAnswer {
			want = 4
		}
		if len(parts) != want || parts[1] == "" {
			return callback{}, fmt.Errorf("malformed callback %q", data)
		}
		c.SessionID = parts[1]
		var err error
		if c.Question, err = strconv.Atoi(parts[2]); err != nil || c.Question < 0 {
			return callback{}, fmt.Errorf("malformed question in callback %q", data)
		}
		if c.Action == actionAnswer {
			if c.Option, err = strconv.Atoi(parts[3]); err != nil || c.Option < 0 {
				return callback{}, fmt.Errorf("malformed option in callback %q", data)
			}
		}
	default:
		return callback{}, fmt.Errorf("unknown callback %q", data)
	}
	return c, nil
}

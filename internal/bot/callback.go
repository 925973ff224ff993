package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedPayload is returned for callback data the bot did not produce.
var ErrMalformedPayload = errors.New("malformed callback payload")

// Action names an inline-button action.
type Action string

const (
	ActProjects          Action = "projects"
	ActProject           Action = "project"
	ActTasks             Action = "tasks"
	ActCompleted         Action = "done"
	ActAddTask           Action = "addtask"
	ActRename            Action = "rename"
	ActDeleteProject     Action = "delete"
	ActConfirmDelProject Action = "confirmdel"
	ActTask              Action = "task"
	ActCheck             Action = "check"
	ActToggle            Action = "toggle"
	ActProgress          Action = "progress"
	ActDeadline          Action = "deadline"
	ActDeleteTask        Action = "deltask"
	ActConfirmDeleteTask Action = "deltaskok"
)

// argCount is the number of numeric arguments each action carries.
var argCount = map[Action]int{
	ActProjects:          0,
	ActProject:           1,
	ActTasks:             2, // project id, page
	ActCompleted:         1,
	ActAddTask:           1,
	ActRename:            1,
	ActDeleteProject:     1,
	ActConfirmDelProject: 1,
	ActTask:              1,
	ActCheck:             2, // task id, page of the list to return to
	ActToggle:            1,
	ActProgress:          1,
	ActDeadline:          1,
	ActDeleteTask:        1,
	ActConfirmDeleteTask: 1,
}

// Callback is a decoded inline-button payload.
type Callback struct {
	Action Action
	ID     uint
	Page   int
}

func (c Callback) String() string {
	switch argCount[c.Action] {
	case 0:
		return string(c.Action)
	case 1:
		return fmt.Sprintf("%s:%d", c.Action, c.ID)
	}
	return fmt.Sprintf("%s:%d:%d", c.Action, c.ID, c.Page)
}

func cb(action Action, id uint) string {
	return Callback{Action: action, ID: id}.String()
}

func cbPage(action Action, id uint, page int) string {
	return Callback{Action: action, ID: id, Page: page}.String()
}

// ParseCallback decodes "action[:id[:page]]". Unknown actions, wrong
// argument counts and non-numeric or zero ids are rejected.
func ParseCallback(data string) (Callback, error) {
	parts := strings.Split(data, ":")
	action := Action(parts[0])
	want, ok := argCount[action]
	if !ok {
		return Callback{}, fmt.Errorf("%w: unknown action %q", ErrMalformedPayload, parts[0])
	}
	if len(parts)-1 != want {
		return Callback{}, fmt.Errorf("%w: %q wants %d args", ErrMalformedPayload, action, want)
	}

	c := Callback{Action: action}
	if want >= 1 {
		id, err := strconv.ParseUint(parts[1], 10, 32)
		if err != nil || id == 0 {
			return Callback{}, fmt.Errorf("%w: bad id %q", ErrMalformedPayload, parts[1])
		}
		c.ID = uint(id)
	}
	if want == 2 {
		page, err := strconv.Atoi(parts[2])
		if err != nil || page < 0 {
			return Callback{}, fmt.Errorf("%w: bad page %q", ErrMalformedPayload, parts[2])
		}
		c.Page = page
	}
	return c, nil
}

package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jwebster45206/npc-builder/pkg/edit"
)

type actionKind int

const (
	actionNone actionKind = iota
	actionHelp
	actionEdit
	actionRename
	actionRenameNow
	actionCopy
	actionExport
	actionImport
	actionValidate
	actionQuit
)

// action is one parsed console command.
type action struct {
	kind actionKind
	cmd  edit.Command
	// rename key and text, or the path argument of /export and /import
	key  string
	text string
}

var errUsage = errors.New("usage")

const helpText = `Commands:
• /set <Field> <value>                       top-level member, e.g. /set StartState Sleep
• /param add | rm <key>
• /param mv <key> <name>                     debounced like typing; mv! commits now
• /param set <key> Value|Description <text>
• /transition add | rm <i>
• /transition set <i> fromStates|toStates <a, b>
• /transition action add <i> | rm <i> <j> | set <i> <j> <field> <text>
• /instruction add [path] | rm <path>
• /instruction set <path> <field> <text>     sensor fields: sensorType, sensorState, sensorRange
• /instruction action add <path> | rm <path> <j> | set <path> <j> <field> <text>
• /validate   /copy   /export [dir]   /import <file>   /quit
Paths address nested instructions as 0.2.1`

// parseCommand turns a slash command into an action.
func parseCommand(input string) (action, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return action{kind: actionNone}, nil
	}
	if !strings.HasPrefix(input, "/") {
		return action{}, fmt.Errorf("commands start with /, try /help")
	}

	name, rest := cut(input[1:])
	switch strings.ToLower(name) {
	case "help", "h", "?":
		return action{kind: actionHelp}, nil
	case "quit", "q", "exit":
		return action{kind: actionQuit}, nil
	case "copy":
		return action{kind: actionCopy}, nil
	case "validate":
		return action{kind: actionValidate}, nil
	case "export":
		return action{kind: actionExport, text: strings.TrimSpace(rest)}, nil
	case "import":
		if strings.TrimSpace(rest) == "" {
			return action{}, fmt.Errorf("%w: /import <file>", errUsage)
		}
		return action{kind: actionImport, text: strings.TrimSpace(rest)}, nil
	case "set":
		field, text := cut(rest)
		if field == "" {
			return action{}, fmt.Errorf("%w: /set <Field> <value>", errUsage)
		}
		return editAction(edit.Command{Op: edit.OpSetField, Field: field}, text), nil
	case "param", "p":
		return parseParam(rest)
	case "transition", "t":
		return parseTransition(rest)
	case "instruction", "i":
		return parseInstruction(rest)
	default:
		return action{}, fmt.Errorf("unknown command /%s, try /help", name)
	}
}

func parseParam(args string) (action, error) {
	sub, rest := cut(args)
	switch sub {
	case "add":
		return action{kind: actionEdit, cmd: edit.Command{Op: edit.OpAddParameter}}, nil
	case "rm":
		key, _ := cut(rest)
		if key == "" {
			return action{}, fmt.Errorf("%w: /param rm <key>", errUsage)
		}
		return action{kind: actionEdit, cmd: edit.Command{Op: edit.OpRemoveParameter, Key: key}}, nil
	case "mv", "mv!":
		key, name := cut(rest)
		if key == "" {
			return action{}, fmt.Errorf("%w: /param mv <key> <name>", errUsage)
		}
		kind := actionRename
		if sub == "mv!" {
			kind = actionRenameNow
		}
		return action{kind: kind, key: key, text: strings.TrimSpace(name)}, nil
	case "set":
		key, rest := cut(rest)
		field, text := cut(rest)
		if key == "" || field == "" {
			return action{}, fmt.Errorf("%w: /param set <key> Value|Description <text>", errUsage)
		}
		return editAction(edit.Command{Op: edit.OpUpdateParameter, Key: key, Field: field}, text), nil
	default:
		return action{}, fmt.Errorf("%w: /param add|rm|mv|set", errUsage)
	}
}

func parseTransition(args string) (action, error) {
	sub, rest := cut(args)
	switch sub {
	case "add":
		return action{kind: actionEdit, cmd: edit.Command{Op: edit.OpAddStateTransition}}, nil
	case "rm":
		i, _, err := index(rest)
		if err != nil {
			return action{}, fmt.Errorf("%w: /transition rm <i>", errUsage)
		}
		return action{kind: actionEdit, cmd: edit.Command{Op: edit.OpRemoveStateTransition, Index: i}}, nil
	case "set":
		i, rest, err := index(rest)
		field, text := cut(rest)
		if err != nil || field == "" {
			return action{}, fmt.Errorf("%w: /transition set <i> fromStates|toStates <a, b>", errUsage)
		}
		return editAction(edit.Command{Op: edit.OpUpdateStateTransition, Index: i, Field: field}, text), nil
	case "action", "a":
		return parseTransitionAction(rest)
	default:
		return action{}, fmt.Errorf("%w: /transition add|rm|set|action", errUsage)
	}
}

func parseTransitionAction(args string) (action, error) {
	sub, rest := cut(args)
	i, rest, err := index(rest)
	if err != nil {
		return action{}, fmt.Errorf("%w: /transition action add|rm|set <i> ...", errUsage)
	}
	switch sub {
	case "add":
		return action{kind: actionEdit, cmd: edit.Command{Op: edit.OpAddActionToTransition, Index: i}}, nil
	case "rm":
		j, _, err := index(rest)
		if err != nil {
			return action{}, fmt.Errorf("%w: /transition action rm <i> <j>", errUsage)
		}
		return action{kind: actionEdit, cmd: edit.Command{Op: edit.OpRemoveActionFromTransition, Index: i, ActionIndex: j}}, nil
	case "set":
		j, rest, err := index(rest)
		field, text := cut(rest)
		if err != nil || field == "" {
			return action{}, fmt.Errorf("%w: /transition action set <i> <j> <field> <text>", errUsage)
		}
		return editAction(edit.Command{Op: edit.OpUpdateTransitionAction, Index: i, ActionIndex: j, Field: field}, text), nil
	default:
		return action{}, fmt.Errorf("%w: /transition action add|rm|set", errUsage)
	}
}

func parseInstruction(args string) (action, error) {
	sub, rest := cut(args)
	switch sub {
	case "add":
		p, _, err := optionalPath(rest)
		if err != nil {
			return action{}, fmt.Errorf("%w: /instruction add [path]", errUsage)
		}
		return action{kind: actionEdit, cmd: edit.Command{Op: edit.OpAddInstruction, Path: p}}, nil
	case "rm":
		p, _, err := path(rest)
		if err != nil {
			return action{}, fmt.Errorf("%w: /instruction rm <path>", errUsage)
		}
		return action{kind: actionEdit, cmd: edit.Command{Op: edit.OpRemoveInstruction, Path: p}}, nil
	case "set":
		p, rest, err := path(rest)
		field, text := cut(rest)
		if err != nil || field == "" {
			return action{}, fmt.Errorf("%w: /instruction set <path> <field> <text>", errUsage)
		}
		return editAction(edit.Command{Op: edit.OpUpdateInstruction, Path: p, Field: field}, text), nil
	case "action", "a":
		return parseInstructionAction(rest)
	default:
		return action{}, fmt.Errorf("%w: /instruction add|rm|set|action", errUsage)
	}
}

func parseInstructionAction(args string) (action, error) {
	sub, rest := cut(args)
	p, rest, err := path(rest)
	if err != nil {
		return action{}, fmt.Errorf("%w: /instruction action add|rm|set <path> ...", errUsage)
	}
	switch sub {
	case "add":
		return action{kind: actionEdit, cmd: edit.Command{Op: edit.OpAddActionToInstruction, Path: p}}, nil
	case "rm":
		j, _, err := index(rest)
		if err != nil {
			return action{}, fmt.Errorf("%w: /instruction action rm <path> <j>", errUsage)
		}
		return action{kind: actionEdit, cmd: edit.Command{Op: edit.OpRemoveActionFromInstruction, Path: p, ActionIndex: j}}, nil
	case "set":
		j, rest, err := index(rest)
		field, text := cut(rest)
		if err != nil || field == "" {
			return action{}, fmt.Errorf("%w: /instruction action set <path> <j> <field> <text>", errUsage)
		}
		return editAction(edit.Command{Op: edit.OpUpdateInstructionAction, Path: p, ActionIndex: j, Field: field}, text), nil
	default:
		return action{}, fmt.Errorf("%w: /instruction action add|rm|set", errUsage)
	}
}

// editAction attaches text as raw widget input so the edit package coerces it
// for the addressed field.
func editAction(cmd edit.Command, text string) action {
	text = strings.TrimSpace(text)
	cmd.Text = &text
	return action{kind: actionEdit, cmd: cmd}
}

// cut splits off the first whitespace-separated word.
func cut(s string) (string, string) {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, " \t"); i >= 0 {
		return s[:i], strings.TrimSpace(s[i+1:])
	}
	return s, ""
}

func index(s string) (int, string, error) {
	word, rest := cut(s)
	i, err := strconv.Atoi(word)
	if err != nil || i < 0 {
		return 0, rest, fmt.Errorf("bad index %q", word)
	}
	return i, rest, nil
}

// path parses an instruction path written as 0.2.1.
func path(s string) ([]int, string, error) {
	word, rest := cut(s)
	if word == "" {
		return nil, rest, errors.New("missing path")
	}
	parts := strings.Split(word, ".")
	out := make([]int, len(parts))
	for k, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return nil, rest, fmt.Errorf("bad path %q", word)
		}
		out[k] = n
	}
	return out, rest, nil
}

func optionalPath(s string) ([]int, string, error) {
	if strings.TrimSpace(s) == "" {
		return nil, "", nil
	}
	return path(s)
}

package editor

import "fmt"

// Command is a serializable editor instruction, as sent by the admin console.
type Command struct {
	Name  string `json:"name"`
	Block int    `json:"block,omitempty"`
	Start int    `json:"start,omitempty"`
	End   int    `json:"end,omitempty"`
	Level int    `json:"level,omitempty"`
	Text  string `json:"text,omitempty"`
	URL   string `json:"url,omitempty"`
	Alt   string `json:"alt,omitempty"`
}

// Apply runs cmd and reports whether it changed anything. Only an unknown
// command name is an error; inapplicable commands are no-ops.
func (e *Editor) Apply(cmd Command) (bool, error) {
	switch cmd.Name {
	case "select":
		return e.Select(cmd.Block, cmd.Start, cmd.End), nil
	case "clearSelection":
		e.ClearSelection()
		return true, nil
	case "bold":
		return e.ToggleBold(), nil
	case "italic":
		return e.ToggleItalic(), nil
	case "heading":
		return e.ToggleHeading(cmd.Level), nil
	case "bulletList":
		return e.ToggleBulletList(), nil
	case "orderedList":
		return e.ToggleOrderedList(), nil
	case "blockquote":
		return e.ToggleBlockquote(), nil
	case "paragraph":
		return e.InsertParagraph(cmd.Text), nil
	case "image":
		return e.InsertImage(cmd.URL, cmd.Alt), nil
	case "undo":
		return e.Undo(), nil
	case "redo":
		return e.Redo(), nil
	default:
		return false, fmt.Errorf("unknown editor command %q", cmd.Name)
	}
}

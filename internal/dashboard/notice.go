package dashboard

import "fmt"

// Level is the severity of a Notice.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is a short user-facing signal about something that happened.
type Notice struct {
	Level Level
	Title string
	Text  string
	Event string
}

func (n Notice) String() string {
	if n.Text == "" {
		return fmt.Sprintf("[%s] %s", n.Level, n.Title)
	}
	return fmt.Sprintf("[%s] %s: %s", n.Level, n.Title, n.Text)
}

func info(title string) Notice    { return Notice{Level: LevelInfo, Title: title} }
func success(title string) Notice { return Notice{Level: LevelSuccess, Title: title} }
func warning(title string) Notice { return Notice{Level: LevelWarning, Title: title} }

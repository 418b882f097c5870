package cli

import (
	"fmt"
	"slices"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/buger/goterm"
	"github.com/charmbracelet/glamour"
	"github.com/chzyer/readline"
	"github.com/fatih/color"
)

var (
	userInputColor = color.New(color.FgWhite)
	botOutputColor = color.New(color.FgCyan)
	statusColor    = color.New(color.FgHiYellow)
	errorColor     = color.New(color.FgRed)
	titleColor     = color.New(color.FgMagenta, color.Bold)
	separatorColor = color.New(color.FgHiBlack)
	promptColor    = color.New(color.FgHiBlue)

	width = terminalWidth()
)

// defaultWidth is used when stdout is not a terminal.
const defaultWidth = 80

func terminalWidth() int {
	if width := goterm.Width(); width > 0 {
		return width
	}
	return defaultWidth
}

// Separator printed to cli.
func Separator() {
	separatorColor.Println(strings.Repeat("-", width))
}

// Title printed to cli.
func Title(text string, args ...any) {
	title := "      " + fmt.Sprintf(text, args...) + "      "
	leftWidth := max((width-len(title))/2, 0)
	separator1 := strings.Repeat("-", leftWidth)
	separator2 := strings.Repeat("-", max(width-len(title)-leftWidth, 0))
	titleColor.Println(separator1 + title + separator2)
}

// UserInput printed to cli.
func UserInput(text string, args ...any) {
	userInputColor.Printf(text, args...)
}

// BotOutput printed to cli, rendered as markdown when possible.
func BotOutput(text string) {
	rendered, err := RenderMarkdown(text)
	if err != nil {
		botOutputColor.Println(text)
		return
	}
	fmt.Print(rendered)
}

// Status overwrites the current line with a transient status.
func Status(text string, progress int) {
	line := fmt.Sprintf("[%3d%%] %s", progress, text)
	if len(line) > width && width > 3 {
		line = line[:width-3] + "..."
	}
	statusColor.Printf("\r\033[K%s", line)
}

// ClearStatus erases the transient status line.
func ClearStatus() {
	fmt.Print("\r\033[K")
}

// Error printed to cli.
func Error(text string, args ...any) {
	errorColor.Printf(text+"\n", args...)
}

// RenderMarkdown renders markdown for the terminal.
func RenderMarkdown(text string) (string, error) {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}
	return renderer.Render(text)
}

// PromptUser for input. A trailing backslash continues the input on the next line.
func PromptUser(historyFile string) (string, error) {
	config := &readline.Config{
		Prompt:            promptColor.Sprint("> "),
		InterruptPrompt:   "^C",
		HistoryFile:       historyFile,
		HistorySearchFold: true,
	}
	rl, err := readline.NewEx(config)
	if err != nil {
		return "", err
	}
	defer rl.Close()
	var lines []string
	for {
		line, err := rl.Readline()
		if err != nil {
			return "", err
		}
		if !strings.HasSuffix(line, "\\") {
			lines = append(lines, line)
			break
		}
		lines = append(lines, strings.TrimSuffix(line, "\\"))
		rl.SetPrompt("")
	}
	return strings.Join(lines, "\n"), nil
}

// QueryUser a yes/no question.
func QueryUser(question string) bool {
	surveyQuestion := &survey.Confirm{
		Message: question,
	}
	confirm := false
	survey.AskOne(surveyQuestion, &confirm)
	return confirm
}

// Select one of the options, starting on defaultOption. Returns the selected index.
func Select(message string, options []string, defaultOption string) (int, error) {
	question := newSelect(message, options, defaultOption)
	var index int
	if err := survey.AskOne(question, &index); err != nil {
		return 0, err
	}
	return index, nil
}

func newSelect(message string, options []string, defaultOption string) *survey.Select {
	question := &survey.Select{
		Message: message,
		Options: options,
	}
	if slices.Contains(options, defaultOption) {
		question.Default = defaultOption
	}
	return question
}

// FILE: internal/cli/cli.go
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"reversi/internal/core"

	"github.com/chzyer/readline"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

type CommandType int

const (
	CmdNone CommandType = iota
	CmdNew
	CmdResume
	CmdMove
	CmdUndo
	CmdColor
	CmdVerbose
	CmdHistory
	CmdShare
	CmdHelp
	CmdQuit
)

type Command struct {
	Type CommandType
	Args []string
	Raw  string
}

type ColorTheme string

const (
	ThemeOff   ColorTheme = "off"
	ThemeGreen ColorTheme = "green"
	ThemeGray  ColorTheme = "gray"
)

type themeColors struct {
	board string // Square background
	alt   string // Checker background for readability
	black string
	white string
	hint  string
}

var themes = map[ColorTheme]themeColors{
	ThemeGreen: {board: "#1b6e3a", alt: "#1f7a41", black: "#000000", white: "#ffffff", hint: "#a8d5b5"},
	ThemeGray:  {board: "#5a5a5a", alt: "#636363", black: "#000000", white: "#f0f0f0", hint: "#b0b0b0"},
}

// LineReader is the subset of readline.Instance the view uses
type LineReader interface {
	Readline() (string, error)
	SetPrompt(prompt string)
}

type CLI struct {
	input   LineReader
	output  *termenv.Output
	theme   ColorTheme
	verbose bool
}

// New builds a view on w. Colours start enabled only when w is a terminal.
func New(input LineReader, w io.Writer) *CLI {
	profile := termenv.Ascii
	theme := ThemeOff
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		profile = termenv.EnvColorProfile()
		if profile != termenv.Ascii {
			theme = ThemeGreen
		}
	}
	return &CLI{
		input:  input,
		output: termenv.NewOutput(w, termenv.WithProfile(profile)),
		theme:  theme,
	}
}

// GetCommand reads one command. EOF and interrupt read as quit.
func (c *CLI) GetCommand(prompt string) (*Command, error) {
	line, err := c.readLine(prompt)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, readline.ErrInterrupt) {
			return &Command{Type: CmdQuit}, nil
		}
		return nil, err
	}
	if line == "" {
		return &Command{Type: CmdNone}, nil
	}
	return ParseCommand(line), nil
}

func (c *CLI) readLine(prompt string) (string, error) {
	c.input.SetPrompt(prompt)
	line, err := c.input.Readline()
	return strings.TrimSpace(line), err
}

// Ask prompts for a single answer
func (c *CLI) Ask(prompt string) string {
	line, _ := c.readLine(prompt)
	return line
}

// ParseCommand maps a line to a command, treating unknown words as moves
func ParseCommand(input string) *Command {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return &Command{Type: CmdNone}
	}

	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "new":
		return &Command{Type: CmdNew, Args: args}
	case "resume":
		return &Command{Type: CmdResume, Args: args, Raw: input}
	case "undo":
		return &Command{Type: CmdUndo, Args: args}
	case "color":
		return &Command{Type: CmdColor, Args: args}
	case "verbose":
		return &Command{Type: CmdVerbose}
	case "history":
		return &Command{Type: CmdHistory}
	case "share":
		return &Command{Type: CmdShare, Args: args}
	case "help", "?":
		return &Command{Type: CmdHelp}
	case "quit", "exit":
		return &Command{Type: CmdQuit}
	default:
		return &Command{Type: CmdMove, Args: []string{cmd}}
	}
}

func (c *CLI) SetTheme(theme ColorTheme) error {
	if _, ok := themes[theme]; !ok && theme != ThemeOff {
		return fmt.Errorf("invalid theme: %s (use: off, green, gray)", theme)
	}
	if theme != ThemeOff && c.output.Profile == termenv.Ascii {
		return errors.New("terminal does not support colours")
	}
	c.theme = theme
	return nil
}

func (c *CLI) ToggleVerbose() bool {
	c.verbose = !c.verbose
	return c.verbose
}

func (c *CLI) IsVerbose() bool {
	return c.verbose
}

func (c *CLI) ShowMessage(msg string) {
	fmt.Fprintln(c.output, msg)
}

func (c *CLI) ShowError(err error) {
	c.ShowMessage(fmt.Sprintf("Error: %v", err))
}

// DisplayBoard renders rows as returned by the API, marking valid moves with '*'
func (c *CLI) DisplayBoard(rows []string, validMoves []string) {
	hints := make(map[string]bool, len(validMoves))
	for _, m := range validMoves {
		hints[m] = true
	}

	var sb strings.Builder
	sb.WriteString("\n  a b c d e f g h\n")
	for r, row := range rows {
		sb.WriteString(fmt.Sprintf("%d ", r+1))
		for col := 0; col < len(row); col++ {
			square := fmt.Sprintf("%c%d", 'a'+col, r+1)
			sb.WriteString(c.cell(row[col], hints[square], (r+col)%2 == 0))
		}
		sb.WriteString(fmt.Sprintf(" %d\n", r+1))
	}
	sb.WriteString("  a b c d e f g h\n")

	c.ShowMessage(sb.String())
}

func (c *CLI) cell(v byte, hint, even bool) string {
	colors, ok := themes[c.theme]
	if !ok {
		switch {
		case v == 'B', v == 'W':
			return string(v) + " "
		case hint:
			return "* "
		}
		return ". "
	}

	bg := colors.board
	if even {
		bg = colors.alt
	}
	style := c.output.String("  ")
	switch {
	case v == 'B':
		style = c.output.String("● ").Foreground(c.output.Color(colors.black)).Bold()
	case v == 'W':
		style = c.output.String("● ").Foreground(c.output.Color(colors.white)).Bold()
	case hint:
		style = c.output.String("· ").Foreground(c.output.Color(colors.hint))
	}
	return style.Background(c.output.Color(bg)).String()
}

func (c *CLI) ShowHelp() {
	help := `Commands:
  new              - Start a new game with player type selection
  resume <token>   - Resume from a share token
  <move>           - Place a stone (e.g., d3, c4)
  undo [count]     - Undo last move(s), default 1
  share [b|w]      - Print the share link of the current game
  color <theme>    - Set board color theme (off|green|gray)
  verbose          - Toggle engine details
  history          - Show game move history
  quit/exit        - Exit the program
  help/?           - Show this help message

Passes are automatic. Press ENTER to let the computer move on its turn.`

	c.ShowMessage(help)
}

func (c *CLI) ShowWelcome() {
	c.ShowMessage("Welcome to Reversi!")
	c.ShowMessage("Commands: new, resume <token>, <move>, undo, share, quit/exit, verbose, history, help/?")
	c.ShowMessage("")
}

// ShowGameHistory prints the move list in numbered pairs
func (c *CLI) ShowGameHistory(g core.GameResponse) {
	if len(g.Moves) == 0 {
		c.ShowMessage("No moves yet.")
	}
	for i := 0; i < len(g.Moves); i += 2 {
		if i+1 < len(g.Moves) {
			c.ShowMessage(fmt.Sprintf("%2d. %s %s", i/2+1, g.Moves[i], g.Moves[i+1]))
		} else {
			c.ShowMessage(fmt.Sprintf("%2d. %s", i/2+1, g.Moves[i]))
		}
	}
	c.ShowMessage(fmt.Sprintf("Token: %s", g.Token))
	c.ShowMessage(fmt.Sprintf("Game state: %s", g.State))
}

func (c *CLI) ShowMove(info *core.MoveInfo) {
	if info == nil {
		return
	}
	side, _ := core.ParseSide(info.PlayerColor)
	msg := fmt.Sprintf("%s: %s", side.Name(), info.Move)
	if c.verbose && info.Source != "" {
		msg += fmt.Sprintf(" (%s, value=%d)", info.Source, info.Value)
	}
	c.ShowMessage(msg)
	if info.Passed {
		c.ShowMessage(fmt.Sprintf("%s has no move and passes.", side.Opposite().Name()))
	}
}

func (c *CLI) ShowScore(score core.ScoreResponse) {
	c.ShowMessage(fmt.Sprintf("Black %d - White %d", score.Black, score.White))
}

func (c *CLI) ShowGameOver(g core.GameResponse) {
	c.ShowMessage(fmt.Sprintf("\nGame Over: %s (%s)", g.State, g.EndReason))
	c.ShowScore(g.Score)
	c.ShowMessage("Start a new game with 'new' or 'resume'.")
}

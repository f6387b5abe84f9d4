// FILE: internal/transport/cli/handler.go
package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"reversi/internal/cli"
	"reversi/internal/core"
	"reversi/internal/processor"
	"reversi/internal/service"
)

// engineWait bounds how long the terminal waits for a computer turn sequence
const engineWait = 2 * time.Minute

type CLIHandler struct {
	proc     *processor.Processor
	svc      *service.Service
	view     *cli.CLI
	gameID   string
	shareURL string
}

// New builds a terminal handler. shareURL prefixes printed share links.
func New(proc *processor.Processor, svc *service.Service, view *cli.CLI, shareURL string) *CLIHandler {
	return &CLIHandler{
		proc:     proc,
		svc:      svc,
		view:     view,
		shareURL: shareURL,
	}
}

// Run is the main loop, returning on quit or input failure
func (h *CLIHandler) Run() {
	for {
		cmd, err := h.view.GetCommand(h.getPrompt())
		if err != nil {
			h.view.ShowError(err)
			return
		}
		if !h.ProcessCommand(cmd) {
			return
		}
	}
}

func (h *CLIHandler) current() (core.GameResponse, bool) {
	if h.gameID == "" {
		return core.GameResponse{}, false
	}
	resp := h.proc.Execute(processor.NewGetGameCommand(h.gameID))
	if !resp.Success {
		return core.GameResponse{}, false
	}
	return resp.Data.(core.GameResponse), true
}

func (h *CLIHandler) computerToMove(g core.GameResponse) bool {
	side, _ := core.ParseSide(g.Turn)
	p := g.Players.Black
	if side == core.SideWhite {
		p = g.Players.White
	}
	return p.IsComputer()
}

func (h *CLIHandler) getPrompt() string {
	g, ok := h.current()
	if !ok || g.State != core.StateOngoing.String() {
		return "> "
	}
	prompt := fmt.Sprintf("[%s]> ", g.Turn)
	if h.computerToMove(g) {
		prompt = "(ENTER for computer move) " + prompt
	}
	return prompt
}

// ProcessCommand handles one command and returns false to exit
func (h *CLIHandler) ProcessCommand(cmd *cli.Command) bool {
	switch cmd.Type {
	case cli.CmdQuit:
		return false

	case cli.CmdNone:
		if g, ok := h.current(); ok && g.State == core.StateOngoing.String() && h.computerToMove(g) {
			h.execute(processor.NewMakeMoveCommand(h.gameID, core.MoveRequest{Move: "cccc"}), false)
		}

	case cli.CmdNew:
		h.handleNewGame("")

	case cli.CmdResume:
		if len(cmd.Args) != 1 {
			h.view.ShowMessage("Usage: resume <token>")
			return true
		}
		h.handleNewGame(cmd.Args[0])

	case cli.CmdMove:
		if h.gameID == "" {
			h.view.ShowMessage("No active game. Use 'new' or 'resume <token>'.")
			return true
		}
		h.execute(processor.NewMakeMoveCommand(h.gameID, core.MoveRequest{Move: cmd.Args[0]}), true)

	case cli.CmdUndo:
		if h.gameID == "" {
			h.view.ShowMessage("No active game.")
			return true
		}
		count := 1
		if len(cmd.Args) > 0 {
			n, err := strconv.Atoi(cmd.Args[0])
			if err != nil || n <= 0 {
				h.view.ShowMessage("Invalid undo count. Usage: undo [count]")
				return true
			}
			count = n
		}
		resp := h.proc.Execute(processor.NewUndoMoveCommand(h.gameID, core.UndoRequest{Count: count}))
		if !resp.Success {
			h.view.ShowMessage(fmt.Sprintf("Error: %s", resp.Error.Error))
			return true
		}
		if count == 1 {
			h.view.ShowMessage("Move undone")
		} else {
			h.view.ShowMessage(fmt.Sprintf("%d moves undone", count))
		}
		h.showGame(resp.Data.(core.GameResponse))

	case cli.CmdShare:
		if h.gameID == "" {
			h.view.ShowMessage("No active game.")
			return true
		}
		side := ""
		if len(cmd.Args) > 0 {
			side = cmd.Args[0]
		}
		resp := h.proc.Execute(processor.NewGetShareCommand(h.gameID, side))
		if !resp.Success {
			h.view.ShowMessage(fmt.Sprintf("Error: %s", resp.Error.Error))
			return true
		}
		share := resp.Data.(core.ShareResponse)
		h.view.ShowMessage(h.shareURL + share.Path)

	case cli.CmdColor:
		if len(cmd.Args) < 1 {
			h.view.ShowMessage("Usage: color <off|green|gray>")
			return true
		}
		theme := cli.ColorTheme(cmd.Args[0])
		if err := h.view.SetTheme(theme); err != nil {
			h.view.ShowError(err)
			return true
		}
		h.view.ShowMessage(fmt.Sprintf("Color theme set to: %s", theme))
		if g, ok := h.current(); ok {
			h.view.DisplayBoard(g.Board, g.ValidMoves)
		}

	case cli.CmdVerbose:
		h.view.ShowMessage(fmt.Sprintf("Verbose mode: %t", h.view.ToggleVerbose()))

	case cli.CmdHistory:
		g, ok := h.current()
		if !ok {
			h.view.ShowMessage("No active game.")
			return true
		}
		h.view.ShowGameHistory(g)

	case cli.CmdHelp:
		h.view.ShowHelp()
	}

	return true
}

// execute runs a move command and follows any engine turns it starts
func (h *CLIHandler) execute(cmd processor.Command, echo bool) {
	resp := h.proc.Execute(cmd)
	if !resp.Success {
		h.view.ShowMessage(fmt.Sprintf("Error: %s", resp.Error.Error))
		return
	}
	g := resp.Data.(core.GameResponse)
	if echo {
		h.view.ShowMove(g.LastMove)
	}

	if resp.Pending {
		h.view.ShowMessage("Computer is thinking...")
		var err error
		g, err = h.awaitEngine(len(g.Moves))
		if err != nil {
			h.view.ShowError(err)
			return
		}
	}
	h.showGame(g)
}

// awaitEngine blocks on the wait registry until the game leaves the pending state,
// echoing every engine move as it lands
func (h *CLIHandler) awaitEngine(seen int) (core.GameResponse, error) {
	ctx, cancel := context.WithTimeout(context.Background(), engineWait)
	defer cancel()

	for {
		notify := h.svc.RegisterWait(h.gameID, seen, ctx)

		g, ok := h.current()
		if !ok {
			return g, fmt.Errorf("game %s disappeared", h.gameID)
		}
		if len(g.Moves) != seen {
			h.view.ShowMove(g.LastMove)
			seen = len(g.Moves)
			continue
		}
		if g.State != core.StatePending.String() {
			return g, nil
		}

		select {
		case <-notify:
		case <-ctx.Done():
			return g, fmt.Errorf("computer did not move within %s", engineWait)
		}
	}
}

func (h *CLIHandler) showGame(g core.GameResponse) {
	h.view.DisplayBoard(g.Board, g.ValidMoves)
	if g.State != core.StateOngoing.String() && g.State != core.StatePending.String() {
		h.view.ShowGameOver(g)
		return
	}
	h.view.ShowScore(g.Score)
}

// handleNewGame asks for player types and starts a game, optionally from a token
func (h *CLIHandler) handleNewGame(token string) {
	black := h.askPlayer("Black")
	white := h.askPlayer("White")

	resp := h.proc.Execute(processor.NewCreateGameCommand(core.CreateGameRequest{
		Black: black,
		White: white,
		Token: token,
	}))
	if !resp.Success {
		msg := resp.Error.Error
		if resp.Error.Details != "" {
			msg += ": " + resp.Error.Details
		}
		h.view.ShowMessage(fmt.Sprintf("Could not start the game: %s", msg))
		return
	}

	if h.gameID != "" {
		h.proc.Execute(processor.NewDeleteGameCommand(h.gameID))
	}
	g := resp.Data.(core.GameResponse)
	h.gameID = g.GameID
	h.view.ShowMessage("Game started.")

	if resp.Pending {
		h.view.ShowMessage("Computer is thinking...")
		var err error
		if g, err = h.awaitEngine(len(g.Moves)); err != nil {
			h.view.ShowError(err)
			return
		}
	}
	h.showGame(g)
}

func (h *CLIHandler) askPlayer(side string) core.PlayerConfig {
	answer := h.view.Ask(fmt.Sprintf("Select %s player (h/c): ", side))
	if answer == "c" || answer == "computer" {
		return core.PlayerConfig{Type: core.PlayerComputer}
	}
	return core.PlayerConfig{Type: core.PlayerHuman}
}

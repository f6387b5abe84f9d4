package main

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"reversi/internal/cli"
	"reversi/internal/client/api"
	"reversi/internal/core"
)

// requestTimeout bounds plain calls; polls get the server wait plus slack
const requestTimeout = 10 * time.Second

type session struct {
	client *api.Client
	view   *cli.CLI
	game   *core.GameResponse
}

func (s *session) gameID() (string, error) {
	if s.game == nil {
		return "", fmt.Errorf("no current game, use 'new' or 'join <id>'")
	}
	return s.game.GameID, nil
}

func (s *session) show(g *core.GameResponse) {
	s.game = g
	s.view.ShowMove(g.LastMove)
	s.view.DisplayBoard(g.Board, g.ValidMoves)
	s.view.ShowScore(g.Score)
	s.view.ShowMessage(fmt.Sprintf("State: %s, turn: %s", g.State, g.Turn))
	if g.EndReason != "" {
		s.view.ShowMessage("Reason: " + g.EndReason)
	}
}

type Command struct {
	Name        string
	ShortName   string
	Description string
	Usage       string
	Handler     func(s *session, args []string) error
}

type Registry struct {
	commands map[string]*Command
	session  *session
}

func NewRegistry(s *session) *Registry {
	r := &Registry{
		commands: make(map[string]*Command),
		session:  s,
	}
	r.registerGameCommands()
	r.registerUtilCommands()
	return r
}

func (r *Registry) Register(cmd *Command) {
	r.commands[cmd.Name] = cmd
	if cmd.ShortName != "" {
		r.commands[cmd.ShortName] = cmd
	}
}

// Execute runs one input line, reporting failures on the view
func (r *Registry) Execute(input string) {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return
	}

	cmd, ok := r.commands[strings.ToLower(parts[0])]
	if !ok {
		r.session.view.ShowMessage(fmt.Sprintf("Unknown command: %s (type 'help')", parts[0]))
		return
	}
	r.session.client.Verbose = r.session.view.IsVerbose()
	if err := cmd.Handler(r.session, parts[1:]); err != nil {
		r.session.view.ShowError(err)
	}
}

func (r *Registry) registerGameCommands() {
	r.Register(&Command{Name: "new", ShortName: "n", Description: "Create a game", Usage: "new [h|c] [h|c] [token]", Handler: newGameHandler})
	r.Register(&Command{Name: "join", ShortName: "j", Description: "Switch to an existing game", Usage: "join <gameId>", Handler: joinHandler})
	r.Register(&Command{Name: "move", ShortName: "m", Description: "Place a stone", Usage: "move <square>", Handler: moveHandler})
	r.Register(&Command{Name: "computer", ShortName: "c", Description: "Ask the engine to move", Usage: "computer", Handler: computerHandler})
	r.Register(&Command{Name: "undo", ShortName: "u", Description: "Undo moves", Usage: "undo [count]", Handler: undoHandler})
	r.Register(&Command{Name: "show", ShortName: "s", Description: "Show the current game", Usage: "show", Handler: showHandler})
	r.Register(&Command{Name: "poll", ShortName: "p", Description: "Wait for the engine to finish", Usage: "poll", Handler: pollHandler})
	r.Register(&Command{Name: "share", Description: "Print the share path", Usage: "share [b|w]", Handler: shareHandler})
	r.Register(&Command{Name: "replay", ShortName: "r", Description: "Open a share link", Usage: "replay <b|w> <token>", Handler: replayHandler})
	r.Register(&Command{Name: "delete", ShortName: "d", Description: "Delete the current game", Usage: "delete", Handler: deleteHandler})
}

func (r *Registry) registerUtilCommands() {
	r.Register(&Command{Name: "health", ShortName: ".", Description: "Server health", Usage: "health", Handler: healthHandler})
	r.Register(&Command{Name: "url", ShortName: "/", Description: "Show or set the server URL", Usage: "url [base]", Handler: urlHandler})
	r.Register(&Command{Name: "verbose", ShortName: "v", Description: "Toggle request logging", Usage: "verbose", Handler: verboseHandler})
	r.Register(&Command{Name: "help", ShortName: "?", Description: "List commands", Usage: "help [command]", Handler: r.helpHandler})
}

func (r *Registry) helpHandler(s *session, args []string) error {
	if len(args) > 0 {
		cmd, ok := r.commands[args[0]]
		if !ok {
			return fmt.Errorf("unknown command: %s", args[0])
		}
		s.view.ShowMessage(fmt.Sprintf("%s - %s\nUsage: %s", cmd.Name, cmd.Description, cmd.Usage))
		return nil
	}

	seen := make(map[string]bool)
	var lines []string
	for _, cmd := range r.commands {
		if seen[cmd.Name] {
			continue
		}
		seen[cmd.Name] = true
		short := "   "
		if cmd.ShortName != "" {
			short = "[" + cmd.ShortName + "]"
		}
		lines = append(lines, fmt.Sprintf("  %s %-9s %s", short, cmd.Name, cmd.Description))
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i][6:] < lines[j][6:] })
	s.view.ShowMessage("Commands:\n" + strings.Join(lines, "\n") + "\n  exit/quit")
	return nil
}

func ctx(d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), d)
}

func playerArg(args []string, i int, def core.PlayerType) core.PlayerConfig {
	if i < len(args) {
		switch strings.ToLower(args[i]) {
		case "h", "human":
			return core.PlayerConfig{Type: core.PlayerHuman}
		case "c", "computer":
			return core.PlayerConfig{Type: core.PlayerComputer}
		}
	}
	return core.PlayerConfig{Type: def}
}

func newGameHandler(s *session, args []string) error {
	req := core.CreateGameRequest{
		Black: playerArg(args, 0, core.PlayerHuman),
		White: playerArg(args, 1, core.PlayerComputer),
	}
	if len(args) > 2 {
		req.Token = args[2]
	}

	c, cancel := ctx(requestTimeout)
	defer cancel()
	g, err := s.client.CreateGame(c, req)
	if err != nil {
		return err
	}
	s.view.ShowMessage("Game " + g.GameID)
	return s.settle(g)
}

func joinHandler(s *session, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: join <gameId>")
	}
	c, cancel := ctx(requestTimeout)
	defer cancel()
	g, err := s.client.GetGame(c, args[0])
	if err != nil {
		return err
	}
	s.show(g)
	return nil
}

func moveHandler(s *session, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: move <square>")
	}
	return s.play(args[0])
}

func computerHandler(s *session, args []string) error {
	return s.play("cccc")
}

func (s *session) play(move string) error {
	id, err := s.gameID()
	if err != nil {
		return err
	}
	c, cancel := ctx(requestTimeout)
	defer cancel()
	g, err := s.client.MakeMove(c, id, move)
	if err != nil {
		return err
	}
	return s.settle(g)
}

// settle shows g, following engine turns while the game is pending
func (s *session) settle(g *core.GameResponse) error {
	for g.State == core.StatePending.String() {
		s.view.ShowMove(g.LastMove)
		s.view.ShowMessage("Computer is thinking...")
		c, cancel := ctx(s.client.HTTPClient.Timeout)
		next, err := s.client.GetGameWithPoll(c, g.GameID, len(g.Moves))
		cancel()
		if err != nil {
			s.game = g
			return err
		}
		g = next
	}
	s.show(g)
	return nil
}

func undoHandler(s *session, args []string) error {
	id, err := s.gameID()
	if err != nil {
		return err
	}
	count := 1
	if len(args) > 0 {
		if count, err = strconv.Atoi(args[0]); err != nil || count <= 0 {
			return fmt.Errorf("invalid undo count: %s", args[0])
		}
	}
	c, cancel := ctx(requestTimeout)
	defer cancel()
	g, err := s.client.UndoMoves(c, id, count)
	if err != nil {
		return err
	}
	s.show(g)
	return nil
}

func showHandler(s *session, args []string) error {
	id, err := s.gameID()
	if err != nil {
		return err
	}
	return joinHandler(s, []string{id})
}

func pollHandler(s *session, args []string) error {
	id, err := s.gameID()
	if err != nil {
		return err
	}
	c, cancel := ctx(s.client.HTTPClient.Timeout)
	defer cancel()
	g, err := s.client.GetGameWithPoll(c, id, -1)
	if err != nil {
		return err
	}
	return s.settle(g)
}

func shareHandler(s *session, args []string) error {
	id, err := s.gameID()
	if err != nil {
		return err
	}
	side := ""
	if len(args) > 0 {
		side = args[0]
	}
	c, cancel := ctx(requestTimeout)
	defer cancel()
	share, err := s.client.GetShare(c, id, side)
	if err != nil {
		return err
	}
	s.view.ShowMessage("/share/" + share.Path)
	return nil
}

func replayHandler(s *session, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: replay <b|w> <token>")
	}
	c, cancel := ctx(requestTimeout)
	defer cancel()
	share, err := s.client.Replay(c, args[0], args[1])
	if err != nil {
		return err
	}
	s.view.DisplayBoard(share.Board, nil)
	if !share.Valid {
		s.view.ShowMessage("Invalid share: " + share.Error)
		return nil
	}
	s.view.ShowScore(share.Score)
	s.view.ShowMessage(fmt.Sprintf("Moves: %s", share.Notation))
	if share.Winner != core.WinnerNone.String() {
		s.view.ShowMessage(fmt.Sprintf("Result: %s (%s)", share.Winner, share.EndReason))
	}
	return nil
}

func deleteHandler(s *session, args []string) error {
	id, err := s.gameID()
	if err != nil {
		return err
	}
	c, cancel := ctx(requestTimeout)
	defer cancel()
	if err := s.client.DeleteGame(c, id); err != nil {
		return err
	}
	s.game = nil
	s.view.ShowMessage("Game deleted")
	return nil
}

func healthHandler(s *session, args []string) error {
	c, cancel := ctx(requestTimeout)
	defer cancel()
	health, err := s.client.Health(c)
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(health))
	for k := range health {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		s.view.ShowMessage(fmt.Sprintf("%-8s %v", k, health[k]))
	}
	return nil
}

func urlHandler(s *session, args []string) error {
	if len(args) > 0 {
		s.client.SetBaseURL(args[0])
		s.game = nil
	}
	s.view.ShowMessage("API: " + s.client.BaseURL)
	return nil
}

func verboseHandler(s *session, args []string) error {
	s.view.ShowMessage(fmt.Sprintf("Verbose mode: %t", s.view.ToggleVerbose()))
	return nil
}

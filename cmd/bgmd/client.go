package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/austinkregel/local-media/bgmd/internal/bgm"
	"github.com/austinkregel/local-media/bgmd/internal/ipc"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

const clientTimeout = 10 * time.Second

type callParams struct {
	Fn     string   `pos:"true" required:"true" help:"Function to call, e.g. LoadModule or GetAttrById"`
	Args   []string `pos:"true" optional:"true" help:"Function arguments"`
	Socket string   `short:"s" optional:"true" help:"IPC socket path"`
	Config string   `short:"c" optional:"true" help:"Configuration directory"`
}

type listParams struct {
	Socket string `short:"s" optional:"true" help:"IPC socket path"`
	Config string `short:"c" optional:"true" help:"Configuration directory"`
}

func callCmd() *cobra.Command {
	return boa.CmdT[callParams]{
		Use:   "call",
		Short: "Invoke one function on a running daemon",
		Long:  "call sends one function call to the daemon and prints its result. Numeric arguments may be given as text.",
		RunFunc: func(params *callParams, cmd *cobra.Command, args []string) {
			os.Exit(withClient(params.Socket, params.Config, func(ctx context.Context, c *ipc.Client) error {
				return runCall(ctx, c, params, os.Stdout)
			}))
		},
	}.ToCobra()
}

func songsCmd() *cobra.Command {
	return boa.CmdT[listParams]{
		Use:   "songs",
		Short: "List the songs held by a running daemon",
		RunFunc: func(params *listParams, cmd *cobra.Command, args []string) {
			os.Exit(withClient(params.Socket, params.Config, func(ctx context.Context, c *ipc.Client) error {
				songs, err := c.Songs(ctx)
				if err != nil {
					return err
				}
				renderSongs(os.Stdout, songs)
				return nil
			}))
		},
	}.ToCobra()
}

func funcsCmd() *cobra.Command {
	return boa.CmdT[boa.NoParams]{
		Use:   "funcs",
		Short: "List the callable functions",
		RunFunc: func(_ *boa.NoParams, cmd *cobra.Command, args []string) {
			renderFuncs(os.Stdout, bgm.Funcs())
		},
	}.ToCobra()
}

// withClient connects to the daemon, runs fn and returns an exit code
func withClient(socket, configDir string, fn func(ctx context.Context, c *ipc.Client) error) int {
	if socket == "" {
		if mgr, err := loadConfig(configDir); err == nil {
			socket = resolveSocket("", mgr.Get())
		} else {
			socket = defaultSocketPath()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), clientTimeout)
	defer cancel()

	client, err := ipc.Dial(ctx, socket)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bgmd: %v (is the daemon running?)\n", err)
		return 1
	}
	defer client.Close()

	if err := fn(ctx, client); err != nil {
		fmt.Fprintf(os.Stderr, "bgmd: %v\n", err)
		return 1
	}
	return 0
}

func runCall(ctx context.Context, c *ipc.Client, params *callParams, out io.Writer) error {
	args := lo.Map(params.Args, func(a string, _ int) any { return a })
	resp, err := c.Call(ctx, params.Fn, args...)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, formatResult(resp.Result))
	if resp.Failed {
		fmt.Fprintln(out, "error:", resp.LastError)
	}
	return nil
}

func formatResult(v any) string {
	switch x := v.(type) {
	case nil:
		return "nil"
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

func renderSongs(out io.Writer, songs []bgm.SongInfo) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.Style().Format.Header = text.FormatDefault
	t.AppendHeader(table.Row{"ID", "Source", "Type", "Loaded", "Quick Play"})
	for _, s := range songs {
		source := s.Source
		if s.QuickPlay && source == "" {
			source = "(empty)"
		}
		t.AppendRow(table.Row{s.ID, source, s.Type, yesNo(s.Loaded), yesNo(s.QuickPlay)})
	}
	t.Render()
}

func renderFuncs(out io.Writer, funcs []bgm.Func) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.Style().Format.Header = text.FormatDefault
	t.AppendHeader(table.Row{"Function", "Arguments"})
	for _, f := range funcs {
		args := lo.Map(f.Args, func(k bgm.ArgKind, _ int) string { return k.String() })
		t.AppendRow(table.Row{f.Name, strings.Join(args, ", ")})
	}
	t.Render()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

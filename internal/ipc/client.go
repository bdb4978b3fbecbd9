package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/austinkregel/local-media/bgmd/internal/bgm"
)

// ErrIDMismatch means a response answered a different request
var ErrIDMismatch = errors.New("response id does not match request")

// Client sends requests to a running server. A Client is not safe for
// concurrent use.
type Client struct {
	conn   net.Conn
	reader *bufio.Reader
}

// Dial connects to the server socket
func Dial(ctx context.Context, socketPath string) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", socketPath, err)
	}
	return &Client{conn: conn, reader: bufio.NewReader(conn)}, nil
}

// Close closes the connection
func (c *Client) Close() error {
	return c.conn.Close()
}

// Do sends one request and waits for its response
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	if deadline, ok := ctx.Deadline(); ok {
		c.conn.SetDeadline(deadline)
	} else {
		c.conn.SetDeadline(time.Time{})
	}

	data, err := EncodeRequest(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	if _, err := c.conn.Write(append(data, '\n')); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	line, err := c.reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	resp, err := DecodeResponse(line)
	if err != nil {
		return nil, err
	}
	if resp.ID != req.ID {
		return nil, fmt.Errorf("%w: sent %s, got %s", ErrIDMismatch, req.ID, resp.ID)
	}
	return resp, nil
}

func (c *Client) request(ctx context.Context, cmd CommandType, data, out interface{}) error {
	req, err := NewRequest(cmd, data)
	if err != nil {
		return err
	}
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("%s failed: %s", cmd, resp.Error)
	}
	if out == nil || resp.Data == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", cmd, err)
	}
	return nil
}

// Ping checks that the server answers
func (c *Client) Ping(ctx context.Context) error {
	return c.request(ctx, CmdPing, nil, nil)
}

// Call invokes one call surface function by name
func (c *Client) Call(ctx context.Context, fn string, args ...any) (CallResponse, error) {
	var out CallResponse
	err := c.request(ctx, CmdCall, CallRequest{Fn: fn, Args: args}, &out)
	return out, err
}

// Songs lists the server's registry
func (c *Client) Songs(ctx context.Context) ([]bgm.SongInfo, error) {
	var out []bgm.SongInfo
	err := c.request(ctx, CmdSongs, nil, &out)
	return out, err
}

// Funcs lists the callable functions
func (c *Client) Funcs(ctx context.Context) ([]FuncInfo, error) {
	var out []FuncInfo
	err := c.request(ctx, CmdFuncs, nil, &out)
	return out, err
}

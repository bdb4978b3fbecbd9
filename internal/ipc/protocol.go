// Package ipc exposes the call surface to other processes over a unix socket.
package ipc

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// CommandType represents the type of command
type CommandType string

const (
	CmdPing  CommandType = "ping"
	CmdCall  CommandType = "call"
	CmdSongs CommandType = "songs"
	CmdFuncs CommandType = "funcs"
)

// Request represents a client request. ID is echoed in the response.
type Request struct {
	ID   string          `json:"id,omitempty"`
	Cmd  CommandType     `json:"cmd"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Response represents a server response
type Response struct {
	ID      string          `json:"id,omitempty"`
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// CallRequest is the data for a call command
type CallRequest struct {
	Fn   string `json:"fn"`
	Args []any  `json:"args,omitempty"`
}

// CallResponse is the response to a call command. Failed is set when the
// call recorded an error, and LastError then holds its message.
type CallResponse struct {
	Result    any    `json:"result"`
	Failed    bool   `json:"failed,omitempty"`
	LastError string `json:"lastError,omitempty"`
}

// FuncInfo describes one callable function
type FuncInfo struct {
	Name string   `json:"name"`
	Args []string `json:"args"`
}

// NewRequest creates a request with a fresh id
func NewRequest(cmd CommandType, data interface{}) (*Request, error) {
	req := &Request{
		ID:  uuid.NewString(),
		Cmd: cmd,
	}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request data: %w", err)
		}
		req.Data = raw
	}
	return req, nil
}

// EncodeRequest encodes a request to JSON
func EncodeRequest(req *Request) ([]byte, error) {
	return json.Marshal(req)
}

// DecodeRequest decodes a request from JSON
func DecodeRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to decode request: %w", err)
	}
	return &req, nil
}

// EncodeResponse encodes a response to JSON
func EncodeResponse(resp *Response) ([]byte, error) {
	return json.Marshal(resp)
}

// DecodeResponse decodes a response from JSON
func DecodeResponse(data []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &resp, nil
}

// NewSuccessResponse creates a successful response
func NewSuccessResponse(data interface{}) (*Response, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, err
		}
	}
	return &Response{
		Success: true,
		Data:    rawData,
	}, nil
}

// NewErrorResponse creates an error response
func NewErrorResponse(err string) *Response {
	return &Response{
		Success: false,
		Error:   err,
	}
}

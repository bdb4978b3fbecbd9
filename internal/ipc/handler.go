package ipc

import (
	"encoding/json"
	"time"

	"github.com/austinkregel/local-media/bgmd/internal/bgm"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

func (s *Server) handleRequest(req *Request) *Response {
	var resp *Response
	switch req.Cmd {
	case CmdPing:
		resp, _ = NewSuccessResponse(nil)
	case CmdCall:
		resp = s.handleCall(req)
	case CmdSongs:
		resp = s.respond(s.sys.ListSongs())
	case CmdFuncs:
		resp = s.respond(lo.Map(bgm.Funcs(), func(f bgm.Func, _ int) FuncInfo {
			return FuncInfo{
				Name: f.Name,
				Args: lo.Map(f.Args, func(k bgm.ArgKind, _ int) string { return k.String() }),
			}
		}))
	default:
		resp = NewErrorResponse("unknown command")
	}
	resp.ID = req.ID
	return resp
}

func (s *Server) handleCall(req *Request) *Response {
	var callReq CallRequest
	if err := json.Unmarshal(req.Data, &callReq); err != nil {
		return NewErrorResponse("invalid call request")
	}

	fn, ok := bgm.LookupFunc(callReq.Fn)
	if !ok {
		return NewErrorResponse("unknown function: " + callReq.Fn)
	}

	// Calls from other connections may interleave with the count, so a
	// concurrent failure can be attributed to this call.
	before := s.sys.Failures()
	result, err := fn.Call(s.sys, callReq.Args)
	if err != nil {
		return NewErrorResponse(err.Error())
	}

	resp := CallResponse{Result: result}
	if s.sys.Failures() != before {
		resp.Failed = true
		resp.LastError = s.sys.Error()
	}
	return s.respond(resp)
}

func (s *Server) respond(data interface{}) *Response {
	resp, err := NewSuccessResponse(data)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode response")
		return NewErrorResponse("internal error")
	}
	return resp
}

func logRequest(logger zerolog.Logger, req *Request) {
	logger.Debug().Str("id", req.ID).Str("cmd", string(req.Cmd)).Msg("Request")
}

func logResponse(logger zerolog.Logger, resp *Response, duration time.Duration) {
	if resp.Success {
		logger.Debug().Str("id", resp.ID).Dur("duration", duration).Msg("Response: success")
	} else {
		logger.Debug().Str("id", resp.ID).Str("error", resp.Error).Dur("duration", duration).Msg("Response: error")
	}
}

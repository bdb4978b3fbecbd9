package load

import "github.com/austinkregel/local-media/bgmd/internal/engine"

// Strategy is one of the four ways a source becomes a channel
type Strategy int

const (
	StrategyModule Strategy = iota
	StrategySample
	StrategyFileStream
	StrategyNetworkStream
)

func (s Strategy) String() string {
	switch s {
	case StrategyModule:
		return "module"
	case StrategySample:
		return "sample"
	case StrategyFileStream:
		return "file stream"
	case StrategyNetworkStream:
		return "network stream"
	}
	return "unknown"
}

func (s Strategy) context() string {
	switch s {
	case StrategyModule:
		return "Failed to load module"
	case StrategySample:
		return "Failed to load sample"
	case StrategyFileStream:
		return "Failed to create file stream"
	}
	return "Failed to create internet stream"
}

const unknownMessage = "Unknown error occured."

var messages = map[Strategy]map[engine.Code]string{
	StrategyModule: {
		engine.CodeInit:     "BASS not initialized.",
		engine.CodeFileOpen: "Could not open file.",
		engine.CodeFileForm: "Unknown file format.",
		engine.CodeFormat:   "Sample format not supported by current device.",
		engine.CodeSpeaker:  "Device does not support the speaker(s).",
		engine.CodeMem:      "Out of memory.",
		engine.CodeNo3D:     "3D support initialization failed.",
	},
	StrategySample: {
		engine.CodeInit:     "BASS not initialized.",
		engine.CodeNotAvail: "Cannot load samples with dummy device.",
		engine.CodeIllParam: "Invalid parameter.",
		engine.CodeFileOpen: "Could not open file.",
		engine.CodeFileForm: "Unknown file format.",
		engine.CodeCodec:    "Codec not supported.",
		engine.CodeFormat:   "Sample format not supported by current device.",
		engine.CodeMem:      "Out of memory.",
		engine.CodeNo3D:     "3D support initialization failed.",
	},
	StrategyFileStream: {
		engine.CodeInit:     "BASS not initialized.",
		engine.CodeNotAvail: "Stream not available.",
		engine.CodeIllParam: "Invalid parameter.",
		engine.CodeFileOpen: "Could not open file.",
		engine.CodeFileForm: "Unknown file format.",
		engine.CodeCodec:    "Codec not supported.",
		engine.CodeFormat:   "Sample format not supported by current device.",
		engine.CodeSpeaker:  "Device does not support the speaker(s).",
		engine.CodeMem:      "Out of memory.",
		engine.CodeNo3D:     "3D support initialization failed.",
	},
	StrategyNetworkStream: {
		engine.CodeInit:     "BASS not initialized.",
		engine.CodeNotAvail: "Stream not available.",
		engine.CodeNoNet:    "No connection.",
		engine.CodeIllParam: "Invalid URL.",
		engine.CodeTimeout:  "Server is not responding.",
		engine.CodeFileOpen: "Could not open file.",
		engine.CodeFileForm: "Unknown file format.",
		engine.CodeCodec:    "Codec not supported.",
		engine.CodeFormat:   "Sample format not supported by current device.",
		engine.CodeSpeaker:  "Device does not support the speaker(s).",
		engine.CodeMem:      "Out of memory.",
		engine.CodeNo3D:     "3D support initialization failed.",
	},
}

// Message translates an engine failure during a load into text
func Message(s Strategy, err error) string {
	if msg, ok := messages[s][engine.CodeOf(err)]; ok {
		return msg
	}
	return unknownMessage
}

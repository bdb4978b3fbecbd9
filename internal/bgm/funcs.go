package bgm

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/samber/lo"
)

// ArgKind is the type of one call surface parameter
type ArgKind int

const (
	ArgNumber ArgKind = iota
	ArgString
)

func (k ArgKind) String() string {
	if k == ArgString {
		return "string"
	}
	return "number"
}

// ErrBadCall is returned by Func.Call when the arguments do not fit
var ErrBadCall = errors.New("bad call")

// Func is one entry of the call surface, callable by name from the IPC
// server and the script host.
type Func struct {
	Name string
	Args []ArgKind
	call func(s *System, a args) any
}

type args []any

func (a args) num(i int) float64 { return a[i].(float64) }
func (a args) str(i int) string  { return a[i].(string) }

// Signature renders the function as Name(number, string, ...)
func (f Func) Signature() string {
	sig := f.Name + "("
	for i, k := range f.Args {
		if i > 0 {
			sig += ", "
		}
		sig += k.String()
	}
	return sig + ")"
}

// Call checks values against the parameter list and invokes the function.
// Strings are accepted for numeric parameters when they parse as numbers.
func (f Func) Call(s *System, values []any) (any, error) {
	if len(values) != len(f.Args) {
		return nil, fmt.Errorf("%w: %s takes %d arguments, got %d", ErrBadCall, f.Name, len(f.Args), len(values))
	}

	converted := make(args, len(values))
	for i, kind := range f.Args {
		v, err := coerce(kind, values[i])
		if err != nil {
			return nil, fmt.Errorf("%w: %s argument %d: %v", ErrBadCall, f.Name, i+1, err)
		}
		converted[i] = v
	}
	return f.call(s, converted), nil
}

func coerce(kind ArgKind, v any) (any, error) {
	switch kind {
	case ArgString:
		switch x := v.(type) {
		case string:
			return x, nil
		case float64:
			return strconv.FormatFloat(x, 'f', -1, 64), nil
		}
	case ArgNumber:
		switch x := v.(type) {
		case float64:
			return x, nil
		case int:
			return float64(x), nil
		case bool:
			if x {
				return 1.0, nil
			}
			return 0.0, nil
		case string:
			f, err := strconv.ParseFloat(x, 64)
			if err != nil {
				return nil, fmt.Errorf("%q is not a number", x)
			}
			return f, nil
		}
	}
	return nil, fmt.Errorf("expected %s, got %T", kind, v)
}

const (
	num  = ArgNumber
	text = ArgString
)

var funcs = map[string]Func{}

func register(name string, kinds []ArgKind, call func(s *System, a args) any) {
	funcs[name] = Func{Name: name, Args: kinds, call: call}
}

func init() {
	register("Init", []ArgKind{num, num, num, num, num}, func(s *System, a args) any {
		return s.Init(InitParams{
			Device:     int(a.num(0)),
			SampleRate: int(a.num(1)),
			BitDepth:   int(a.num(2)),
			Mono:       truthy(a.num(3)),
			Window:     uintptr(a.num(4)),
		})
	})
	register("Close", nil, func(s *System, _ args) any { return s.Close() })
	register("Error", nil, func(s *System, _ args) any { return s.Error() })
	register("SetReportErrors", []ArgKind{num}, func(s *System, a args) any {
		return s.SetReportErrors(truthy(a.num(0)))
	})
	register("GetAttrTypeLast", nil, func(s *System, _ args) any { return s.GetAttrTypeLast() })

	register("Load", []ArgKind{text, num, num}, func(s *System, a args) any {
		return s.Load(a.str(0), a.num(1), a.num(2))
	})
	register("LoadModule", []ArgKind{text, num}, func(s *System, a args) any {
		return s.LoadModule(a.str(0), a.num(1))
	})
	register("LoadSample", []ArgKind{text, num}, func(s *System, a args) any {
		return s.LoadSample(a.str(0), a.num(1))
	})
	register("LoadFileStream", []ArgKind{text, num}, func(s *System, a args) any {
		return s.LoadFileStream(a.str(0), a.num(1))
	})
	register("LoadNetworkStream", []ArgKind{text, num}, func(s *System, a args) any {
		return s.LoadNetworkStream(a.str(0), a.num(1))
	})

	pair("Unload", "BySourceName", idBool((*System).UnloadByID), nameBool((*System).UnloadBySource))
	pair("IsLoaded", "BySourceName", idBool((*System).IsLoadedByID), nameBool((*System).IsLoadedBySource))
	pair("Stop", "BySourceName", idBool((*System).StopByID), nameBool((*System).StopBySource))
	register("StopByName", []ArgKind{text}, nameBool((*System).StopBySource))
	pair("Pause", "ByName", idBool((*System).PauseByID), nameBool((*System).PauseBySource))
	pair("Unpause", "ByName", idBool((*System).UnpauseByID), nameBool((*System).UnpauseBySource))
	pair("VolIsFading", "ByName", idBool((*System).VolIsFadingByID), nameBool((*System).VolIsFadingBySource))
	pair("IsPlaying", "ByName", idInt((*System).IsPlayingByID), nameInt((*System).IsPlayingBySource))
	pair("GetOrder", "ByName", idInt((*System).GetOrderByID), nameInt((*System).GetOrderBySource))
	pair("GetRow", "ByName", idInt((*System).GetRowByID), nameInt((*System).GetRowBySource))
	pair("GetLen", "ByName", idNum((*System).GetLenByID), nameNum((*System).GetLenBySource))
	pair("GetPos", "ByName", idNum((*System).GetPosByID), nameNum((*System).GetPosBySource))

	register("PlayById", []ArgKind{num, num}, func(s *System, a args) any {
		return s.PlayByID(a.num(0), a.num(1))
	})
	register("PlayBySourceName", []ArgKind{text, num}, func(s *System, a args) any {
		return s.PlayBySource(a.str(0), a.num(1))
	})
	register("GetAttrById", []ArgKind{num, text}, func(s *System, a args) any {
		return s.GetAttrByID(a.num(0), a.str(1))
	})
	register("GetAttrByName", []ArgKind{text, text}, func(s *System, a args) any {
		return s.GetAttrBySource(a.str(0), a.str(1))
	})
	register("SetAttrById", []ArgKind{num, text, text}, func(s *System, a args) any {
		return s.SetAttrByID(a.num(0), a.str(1), a.str(2))
	})
	register("SetAttrByName", []ArgKind{text, text, text}, func(s *System, a args) any {
		return s.SetAttrBySource(a.str(0), a.str(1), a.str(2))
	})
	register("FadeVolById", []ArgKind{num, num, num}, func(s *System, a args) any {
		return s.FadeVolByID(a.num(0), a.num(1), a.num(2))
	})
	register("FadeVolByName", []ArgKind{text, num, num}, func(s *System, a args) any {
		return s.FadeVolBySource(a.str(0), a.num(1), a.num(2))
	})
}

// pair registers the by-id and by-name forms of a one-argument call
func pair(base, nameSuffix string, byID, byName func(s *System, a args) any) {
	register(base+"ById", []ArgKind{num}, byID)
	register(base+nameSuffix, []ArgKind{text}, byName)
}

func idBool(f func(*System, float64) bool) func(*System, args) any {
	return func(s *System, a args) any { return f(s, a.num(0)) }
}

func nameBool(f func(*System, string) bool) func(*System, args) any {
	return func(s *System, a args) any { return f(s, a.str(0)) }
}

func idInt(f func(*System, float64) int) func(*System, args) any {
	return func(s *System, a args) any { return f(s, a.num(0)) }
}

func nameInt(f func(*System, string) int) func(*System, args) any {
	return func(s *System, a args) any { return f(s, a.str(0)) }
}

func idNum(f func(*System, float64) float64) func(*System, args) any {
	return func(s *System, a args) any { return f(s, a.num(0)) }
}

func nameNum(f func(*System, string) float64) func(*System, args) any {
	return func(s *System, a args) any { return f(s, a.str(0)) }
}

// LookupFunc finds a call surface function by name
func LookupFunc(name string) (Func, bool) {
	f, ok := funcs[name]
	return f, ok
}

// Funcs returns every call surface function sorted by name
func Funcs() []Func {
	out := lo.Values(funcs)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

package attr

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/austinkregel/local-media/bgmd/internal/engine"
	"github.com/austinkregel/local-media/bgmd/internal/errs"
	"github.com/austinkregel/local-media/bgmd/internal/song"
)

// GetFailed is the value Get returns when it fails
const GetFailed = "-1000000"

const accessContext = "Failed to access attribute"

var (
	ErrUnknownAttribute   = errors.New("unknown attribute")
	ErrQuickPlayNotLoaded = errors.New("quick play song not loaded")
	ErrReadOnly           = errors.New("attribute is read-only")
	ErrOutOfRange         = errors.New("value out of range")
	ErrNotModule          = errors.New("song is not a module")
	ErrBadValue           = errors.New("value is not a number")
	ErrNotAvailable       = errors.New("data not available")
)

// Settings exposes the process-wide settings global attributes act on
type Settings interface {
	StreamByDefault() bool
	SetStreamByDefault(bool)
}

// Dispatcher resolves attribute names against songs and applies get/set
type Dispatcher struct {
	eng      engine.Engine
	settings Settings
	lastType ValueType
}

// NewDispatcher creates a dispatcher over an engine
func NewDispatcher(eng engine.Engine, settings Settings) *Dispatcher {
	return &Dispatcher{
		eng:      eng,
		settings: settings,
		lastType: Unset,
	}
}

// LastType returns the type of the value most recently returned by Get
func (d *Dispatcher) LastType() ValueType {
	return d.lastType
}

// Resolve finds the catalog entry addressed by name for s and parses its
// index. s may be nil, which fails with song.ErrInvalidTarget.
func (d *Dispatcher) Resolve(s *song.Song, name string) (Descriptor, int, error) {
	if s == nil {
		return Descriptor{}, 0, errs.Wrap(errs.Validation, accessContext, song.ErrInvalidTarget, "Invalid song ID or filename.")
	}

	base, index := ParseName(name)
	desc, ok := Lookup(base)
	if !ok {
		return Descriptor{}, 0, errs.Wrap(errs.Validation, accessContext, ErrUnknownAttribute,
			strconv.Quote(name)+" is not a valid attribute name.")
	}

	// Global attributes are reachable through an empty quick play slot too.
	if s.IsQuickPlay() && !s.Loaded() && !desc.Has(QuickPlaySafe) && !desc.Has(Global) {
		return Descriptor{}, 0, errs.Wrap(errs.State, accessContext, ErrQuickPlayNotLoaded, "No Quick play song loaded.")
	}

	return desc, index, nil
}

// Get returns the value of the named attribute. On failure it returns
// GetFailed along with the error and records the value type as numeric.
func (d *Dispatcher) Get(s *song.Song, name string) (string, error) {
	desc, index, err := d.Resolve(s, name)
	if err != nil {
		d.lastType = Numeric
		return GetFailed, err
	}

	value, vt, err := d.get(s, desc, index)
	if err != nil {
		d.lastType = Numeric
		return GetFailed, err
	}
	d.lastType = vt
	return value, nil
}

// Set parses value and applies it to the named attribute. A failed set
// leaves engine and backup state unchanged.
func (d *Dispatcher) Set(s *song.Song, name, value string) error {
	desc, index, err := d.Resolve(s, name)
	if err != nil {
		d.lastType = Numeric
		return err
	}
	return d.set(s, desc, index, value)
}

func numeric(v int) (string, ValueType, error) {
	return strconv.Itoa(v), Numeric, nil
}

func (d *Dispatcher) get(s *song.Song, desc Descriptor, index int) (string, ValueType, error) {
	ctx := desc.GetContext

	switch {
	case isModuleAttr(desc.Kind):
		if err := d.requireModule(s, ctx); err != nil {
			return "", Numeric, err
		}
		v, err := d.eng.MusicAttribute(s.ID, desc.Music, index)
		if err != nil {
			return "", Numeric, errs.Wrap(errs.Engine, ctx, err, "Invalid attribute number.")
		}
		return numeric(v)

	case isTag(desc.Kind):
		text, err := d.eng.Tag(s.ID, desc.Tag, index)
		if err != nil {
			return "", Numeric, errs.Wrap(errs.Engine, ctx, ErrNotAvailable, "Data not available.")
		}
		return text, Text, nil
	}

	switch desc.Kind {
	case ChannelFreq, ChannelPan, ChannelVolume:
		attrs, err := d.channelAttributes(s, ctx)
		if err != nil {
			return "", Numeric, err
		}
		switch desc.Kind {
		case ChannelFreq:
			return numeric(attrs.Freq)
		case ChannelPan:
			return numeric(attrs.Pan)
		default:
			return numeric(attrs.Volume)
		}

	case Filename:
		return s.Source, Text, nil

	case ID:
		return numeric(int(s.ID))

	case Loop:
		info, err := d.eng.ChannelInfo(s.ID)
		if err != nil {
			return "", Numeric, errs.Wrap(errs.Engine, ctx, err, "Song may have corrupt ID.")
		}
		return numeric(boolToInt(info.Loop))

	case Type:
		info, err := d.eng.ChannelInfo(s.ID)
		if err != nil {
			return numeric(-1)
		}
		return numeric(typeCode(info.Type))

	case Stream:
		return numeric(boolToInt(d.settings.StreamByDefault()))

	case Volume:
		return numeric(d.eng.GlobalVolume())
	}

	return "", Numeric, errs.Wrap(errs.Validation, ctx, ErrUnknownAttribute, "Attribute cannot be read.")
}

func (d *Dispatcher) set(s *song.Song, desc Descriptor, index int, value string) error {
	ctx := desc.SetContext

	if desc.ReadOnly {
		return errs.Wrap(errs.State, ctx, ErrReadOnly, "Attribute is read-only.")
	}

	v, err := parseValue(ctx, value)
	if err != nil {
		return err
	}

	if isModuleAttr(desc.Kind) {
		if err := d.requireModule(s, ctx); err != nil {
			return err
		}
		if err := checkRange(ctx, v, desc.Min, desc.Max); err != nil {
			return err
		}
		if err := d.eng.SetMusicAttribute(s.ID, desc.Music, index, v); err != nil {
			return errs.Wrap(errs.Engine, ctx, err, "Invalid attribute number.")
		}
		return nil
	}

	switch desc.Kind {
	case ChannelFreq:
		if v != 0 {
			if err := checkRange(ctx, v, desc.Min, desc.Max); err != nil {
				return err
			}
		}
		return d.updateChannel(s, ctx, func(a *engine.Attributes) { a.Freq = v })

	case ChannelPan:
		if err := checkRange(ctx, v, desc.Min, desc.Max); err != nil {
			return err
		}
		return d.updateChannel(s, ctx, func(a *engine.Attributes) { a.Pan = v })

	case ChannelVolume:
		if err := checkRange(ctx, v, desc.Min, desc.Max); err != nil {
			return err
		}
		return d.updateChannel(s, ctx, func(a *engine.Attributes) { a.Volume = v })

	case Loop:
		if err := d.eng.SetLoop(s.ID, v != 0); err != nil {
			return errs.Wrap(errs.Engine, ctx, err, "Song may have corrupt ID.")
		}
		return nil

	case Stream:
		d.settings.SetStreamByDefault(v != 0)
		return nil

	case Volume:
		if err := checkRange(ctx, v, desc.Min, desc.Max); err != nil {
			return err
		}
		if err := d.eng.SetGlobalVolume(v); err != nil {
			return errs.Wrap(errs.Engine, ctx, err, "Unknown error occured.")
		}
		return nil
	}

	return errs.Wrap(errs.State, ctx, ErrReadOnly, "Attribute is read-only.")
}

func (d *Dispatcher) requireModule(s *song.Song, ctx string) error {
	info, err := d.eng.ChannelInfo(s.ID)
	if err != nil || info.Type != engine.TypeModule {
		return errs.Wrap(errs.State, ctx, ErrNotModule, "Song is not a module.")
	}
	return nil
}

// channelAttributes reads the channel settings, or the quick play backup
// while the quick play slot is unloaded.
func (d *Dispatcher) channelAttributes(s *song.Song, ctx string) (engine.Attributes, error) {
	if !s.Loaded() {
		return s.Backup, nil
	}
	attrs, err := d.eng.Attributes(s.ID)
	if err != nil {
		return engine.Attributes{}, errs.Wrap(errs.Engine, ctx, err, "Song may have corrupt ID.")
	}
	return attrs, nil
}

func (d *Dispatcher) updateChannel(s *song.Song, ctx string, apply func(*engine.Attributes)) error {
	if !s.Loaded() {
		apply(&s.Backup)
		return nil
	}
	attrs, err := d.eng.Attributes(s.ID)
	if err != nil {
		return errs.Wrap(errs.Engine, ctx, err, "Song may have corrupt ID.")
	}
	apply(&attrs)
	if err := d.eng.SetAttributes(s.ID, attrs); err != nil {
		return errs.Wrap(errs.Engine, ctx, err, "Song may have corrupt ID.")
	}
	return nil
}

// parseValue reads an attribute value. Decimal forms such as "50.000000"
// are accepted and truncated toward zero.
func parseValue(ctx, value string) (int, error) {
	trimmed := strings.TrimSpace(value)
	if n, err := strconv.Atoi(trimmed); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > math.MaxInt32 {
		return 0, errs.Wrap(errs.Validation, ctx, ErrBadValue, "Value ("+value+") is not a number.")
	}
	return int(f), nil
}

func checkRange(ctx string, v, min, max int) error {
	if v < min || v > max {
		return errs.Wrap(errs.Validation, ctx, ErrOutOfRange,
			"Value ("+strconv.Itoa(v)+") not between "+strconv.Itoa(min)+" and "+strconv.Itoa(max)+".")
	}
	return nil
}

func typeCode(t engine.ChannelType) int {
	switch t {
	case engine.TypeSample:
		return 0
	case engine.TypeStream:
		return 1
	case engine.TypeModule:
		return 2
	}
	return -1
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

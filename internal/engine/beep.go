//go:build (linux && cgo) || windows || darwin

package engine

import (
	"errors"
	"io"
	"math"
	"net"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
)

// AudioAvailable reports whether this build can produce sound.
const AudioAvailable = true

const resampleQuality = 4

// Beep is the audio engine used by the daemon: beep decodes and mixes,
// oto writes the mix to the device.
type Beep struct {
	mu          sync.Mutex
	initialized bool
	rate        beep.SampleRate
	mixer       *beep.Mixer
	output      *deviceOutput
	channels    map[Handle]*beepChannel
	samples     map[SampleHandle]*beepSample
	nextHandle  Handle
	nextSample  SampleHandle
	globalVol   int
	dummy       bool
	client      *http.Client
}

type beepSample struct {
	buffer   *beep.Buffer
	channels []Handle
}

type beepChannel struct {
	engine    *Beep
	kind      ChannelType
	format    beep.Format
	src       beep.StreamSeeker
	closer    io.Closer
	sample    SampleHandle
	loop      bool
	attrs     Attributes
	resampler *beep.Resampler
	pan       *effects.Pan
	volume    *effects.Volume
	ctrl      *beep.Ctrl
	voice     *voice
	slide     *volumeSlide
}

type volumeSlide struct {
	from, to int
	start    time.Time
	dur      time.Duration
}

// NewBeep creates an uninitialized beep engine
func NewBeep() *Beep {
	return &Beep{
		channels:  make(map[Handle]*beepChannel),
		samples:   make(map[SampleHandle]*beepSample),
		globalVol: 100,
		client:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (e *Beep) Init(opts InitOptions) error {
	e.mu.Lock()
	if e.initialized {
		e.mu.Unlock()
		return newError("Init", CodeAlready, nil)
	}
	if opts.Device < -1 || opts.Device > 1 {
		e.mu.Unlock()
		return newError("Init", CodeDevice, nil)
	}
	if opts.SampleRate <= 0 {
		opts.SampleRate = 44100
	}

	e.rate = beep.SampleRate(opts.SampleRate)
	e.mixer = &beep.Mixer{}
	e.dummy = opts.Device == 0
	e.initialized = true
	e.mu.Unlock()

	if e.dummy {
		return nil
	}

	channels := 2
	if opts.Mono {
		channels = 1
	}
	bitDepth := 2
	if opts.EightBit {
		bitDepth = 1
	}

	out, err := newDeviceOutput(&e.mu, e.mixer, opts.SampleRate, channels, bitDepth)
	if err != nil {
		e.mu.Lock()
		e.initialized = false
		e.mu.Unlock()
		if otoContext != nil {
			return newError("Init", CodeFormat, err)
		}
		return newError("Init", CodeDriver, err)
	}

	e.mu.Lock()
	e.output = out
	e.mu.Unlock()
	return nil
}

func (e *Beep) Free() error {
	e.mu.Lock()
	out := e.output
	e.output = nil
	for h, ch := range e.channels {
		ch.stop()
		if ch.closer != nil {
			ch.closer.Close()
		}
		delete(e.channels, h)
	}
	e.samples = make(map[SampleHandle]*beepSample)
	if e.mixer != nil {
		e.mixer.Clear()
	}
	e.initialized = false
	e.mu.Unlock()

	if out != nil {
		return out.Close()
	}
	return nil
}

// LoadModule always fails: no tracker decoder is available.
func (e *Beep) LoadModule(p string) (Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized {
		return 0, newError("LoadModule", CodeInit, nil)
	}
	if _, err := os.Stat(p); err != nil {
		return 0, newError("LoadModule", CodeFileOpen, err)
	}
	return 0, newError("LoadModule", CodeFileForm, nil)
}

func decode(name string, rc io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error) {
	switch strings.ToLower(path.Ext(name)) {
	case ".mp3", ".mp2", ".mp1":
		return mp3.Decode(rc)
	case ".ogg":
		return vorbis.Decode(rc)
	case ".wav":
		return wav.Decode(rc)
	}
	return nil, beep.Format{}, errUnsupportedCodec
}

var errUnsupportedCodec = errors.New("no decoder for extension")

func decodeCode(err error) Code {
	if errors.Is(err, errUnsupportedCodec) {
		return CodeCodec
	}
	return CodeFileForm
}

func (e *Beep) openFile(op, p string) (beep.StreamSeekCloser, beep.Format, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, beep.Format{}, newError(op, CodeFileOpen, err)
	}
	s, format, err := decode(filepath.Base(p), f)
	if err != nil {
		f.Close()
		return nil, beep.Format{}, newError(op, decodeCode(err), err)
	}
	return s, format, nil
}

func (e *Beep) LoadSample(p string) (SampleHandle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized {
		return 0, newError("LoadSample", CodeInit, nil)
	}
	if e.dummy {
		return 0, newError("LoadSample", CodeNotAvail, nil)
	}

	s, format, err := e.openFile("LoadSample", p)
	if err != nil {
		return 0, err
	}
	defer s.Close()

	buffer := beep.NewBuffer(format)
	buffer.Append(s)
	if err := s.Err(); err != nil {
		return 0, newError("LoadSample", CodeFileForm, err)
	}

	e.nextSample++
	e.samples[e.nextSample] = &beepSample{buffer: buffer}
	return e.nextSample, nil
}

func (e *Beep) SampleChannel(s SampleHandle) (Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	sample, ok := e.samples[s]
	if !ok {
		return 0, newError("SampleChannel", CodeHandle, nil)
	}
	buf := sample.buffer
	h := e.addChannel(TypeSample, buf.Format(), buf.Streamer(0, buf.Len()), nil)
	e.channels[h].sample = s
	sample.channels = append(sample.channels, h)
	return h, nil
}

func (e *Beep) FreeSample(s SampleHandle) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	sample, ok := e.samples[s]
	if !ok {
		return newError("FreeSample", CodeHandle, nil)
	}
	for _, h := range sample.channels {
		if ch, ok := e.channels[h]; ok {
			ch.stop()
			delete(e.channels, h)
		}
	}
	delete(e.samples, s)
	return nil
}

func (e *Beep) StreamFile(p string) (Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized {
		return 0, newError("StreamFile", CodeInit, nil)
	}
	s, format, err := e.openFile("StreamFile", p)
	if err != nil {
		return 0, err
	}
	return e.addChannel(TypeStream, format, s, s), nil
}

func (e *Beep) StreamURL(rawURL string) (Handle, error) {
	e.mu.Lock()
	initialized := e.initialized
	e.mu.Unlock()
	if !initialized {
		return 0, newError("StreamURL", CodeInit, nil)
	}

	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return 0, newError("StreamURL", CodeIllParam, err)
	}

	// The request runs without the lock so playback continues meanwhile
	resp, err := e.client.Get(u.String())
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return 0, newError("StreamURL", CodeTimeout, err)
		}
		return 0, newError("StreamURL", CodeNoNet, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return 0, newError("StreamURL", CodeFileOpen, errors.New(resp.Status))
	}

	s, format, err := decode(u.Path, resp.Body)
	if err != nil {
		resp.Body.Close()
		return 0, newError("StreamURL", decodeCode(err), err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.addChannel(TypeStream, format, s, s), nil
}

func (e *Beep) addChannel(kind ChannelType, format beep.Format, src beep.StreamSeeker, closer io.Closer) Handle {
	ch := &beepChannel{
		engine: e,
		kind:   kind,
		format: format,
		src:    src,
		closer: closer,
		attrs:  DefaultAttributes(),
	}
	ch.resampler = beep.ResampleRatio(resampleQuality, ch.ratio(), &looper{ch: ch})
	ch.pan = &effects.Pan{Streamer: ch.resampler}
	ch.volume = &effects.Volume{Streamer: ch.pan, Base: 2}
	ch.ctrl = &beep.Ctrl{Streamer: ch.volume}
	ch.applyVolume()

	e.nextHandle++
	e.channels[e.nextHandle] = ch
	return e.nextHandle
}

func (e *Beep) FreeChannel(h Handle) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	ch, ok := e.channels[h]
	if !ok {
		return newError("FreeChannel", CodeHandle, nil)
	}
	ch.stop()
	if ch.closer != nil {
		ch.closer.Close()
	}
	delete(e.channels, h)
	return nil
}

func (e *Beep) channel(op string, h Handle) (*beepChannel, error) {
	ch, ok := e.channels[h]
	if !ok {
		return nil, newError(op, CodeHandle, nil)
	}
	return ch, nil
}

func (e *Beep) ChannelInfo(h Handle) (ChannelInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ch, err := e.channel("ChannelInfo", h)
	if err != nil {
		return ChannelInfo{}, err
	}
	return ChannelInfo{Type: ch.kind, Loop: ch.loop, Rate: int(ch.format.SampleRate)}, nil
}

func (e *Beep) SetLoop(h Handle, loop bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	ch, err := e.channel("SetLoop", h)
	if err != nil {
		return err
	}
	ch.loop = loop
	return nil
}

func (e *Beep) Attributes(h Handle) (Attributes, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ch, err := e.channel("Attributes", h)
	if err != nil {
		return Attributes{}, err
	}
	ch.tick()
	attrs := ch.attrs
	if attrs.Freq == 0 {
		attrs.Freq = int(ch.format.SampleRate)
	}
	return attrs, nil
}

func (e *Beep) SetAttributes(h Handle, attrs Attributes) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	ch, err := e.channel("SetAttributes", h)
	if err != nil {
		return err
	}
	ch.slide = nil
	ch.attrs = attrs
	ch.resampler.SetRatio(ch.ratio())
	ch.pan.Pan = float64(attrs.Pan) / 100
	ch.applyVolume()
	return nil
}

func (e *Beep) Play(h Handle, restart bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized {
		return newError("Play", CodeInit, nil)
	}
	ch, err := e.channel("Play", h)
	if err != nil {
		return err
	}
	if restart {
		ch.stop()
		// Network streams cannot seek; they continue from where they are
		_ = ch.src.Seek(0)
	}
	ch.ctrl.Paused = false
	if ch.voice == nil {
		ch.voice = &voice{ch: ch}
		e.mixer.Add(ch.voice)
	}
	return nil
}

func (e *Beep) Stop(h Handle) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	ch, err := e.channel("Stop", h)
	if err != nil {
		return err
	}
	ch.stop()
	return nil
}

func (e *Beep) Pause(h Handle) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	ch, err := e.channel("Pause", h)
	if err != nil {
		return err
	}
	if ch.voice == nil {
		return newError("Pause", CodeNotAvail, nil)
	}
	ch.ctrl.Paused = true
	return nil
}

func (e *Beep) Active(h Handle) (Activity, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ch, err := e.channel("Active", h)
	if err != nil {
		return Stopped, err
	}
	switch {
	case ch.voice == nil:
		return Stopped, nil
	case ch.ctrl.Paused:
		return Paused, nil
	default:
		return Playing, nil
	}
}

func (e *Beep) Length(h Handle) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ch, err := e.channel("Length", h)
	if err != nil {
		return 0, err
	}
	n := ch.src.Len()
	if n < 0 {
		return 0, newError("Length", CodeNotAvail, nil)
	}
	return int64(n) * 4, nil
}

func (e *Beep) Position(h Handle) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ch, err := e.channel("Position", h)
	if err != nil {
		return 0, err
	}
	return int64(ch.src.Position()) * 4, nil
}

func (e *Beep) BytesToSeconds(h Handle, n int64) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ch, err := e.channel("BytesToSeconds", h)
	if err != nil {
		return 0, err
	}
	if n < 0 || ch.format.SampleRate <= 0 {
		return 0, newError("BytesToSeconds", CodeNotAvail, nil)
	}
	return float64(n) / float64(BytesPerSecond(int(ch.format.SampleRate))), nil
}

func (e *Beep) MusicAttribute(h Handle, attr MusicAttr, index int) (int, error) {
	return 0, newError("MusicAttribute", CodeHandle, nil)
}

func (e *Beep) SetMusicAttribute(h Handle, attr MusicAttr, index int, value int) error {
	return newError("SetMusicAttribute", CodeHandle, nil)
}

func (e *Beep) Tag(h Handle, kind TagKind, index int) (string, error) {
	return "", newError("Tag", CodeNotAvail, nil)
}

func (e *Beep) OrderPosition(h Handle) (uint32, error) {
	return 0, newError("OrderPosition", CodeHandle, nil)
}

func (e *Beep) GlobalVolume() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.globalVol
}

func (e *Beep) SetGlobalVolume(vol int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.globalVol = vol
	for _, ch := range e.channels {
		ch.applyVolume()
	}
	return nil
}

func (e *Beep) SlideVolume(h Handle, vol int, d time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	ch, err := e.channel("SlideVolume", h)
	if err != nil {
		return err
	}
	if d <= 0 {
		ch.slide = nil
		ch.attrs.Volume = vol
		ch.applyVolume()
		return nil
	}
	ch.slide = &volumeSlide{from: ch.attrs.Volume, to: vol, start: time.Now(), dur: d}
	return nil
}

func (e *Beep) IsSliding(h Handle) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	ch, ok := e.channels[h]
	if !ok {
		return false
	}
	ch.tick()
	return ch.slide != nil
}

// ratio is the resampling ratio that plays the source at its channel
// frequency on the device.
func (ch *beepChannel) ratio() float64 {
	freq := ch.attrs.Freq
	if freq == 0 {
		freq = int(ch.format.SampleRate)
	}
	return float64(freq) / float64(ch.engine.rate)
}

func (ch *beepChannel) applyVolume() {
	level := float64(ch.attrs.Volume) / 100 * float64(ch.engine.globalVol) / 100
	if level <= 0 {
		ch.volume.Silent = true
		return
	}
	ch.volume.Silent = false
	ch.volume.Volume = math.Log2(level)
}

// tick advances a running volume slide
func (ch *beepChannel) tick() {
	if ch.slide == nil {
		return
	}
	elapsed := time.Since(ch.slide.start)
	if elapsed >= ch.slide.dur {
		ch.attrs.Volume = ch.slide.to
		ch.slide = nil
	} else {
		frac := float64(elapsed) / float64(ch.slide.dur)
		ch.attrs.Volume = ch.slide.from + int(math.Round(float64(ch.slide.to-ch.slide.from)*frac))
	}
	ch.applyVolume()
}

func (ch *beepChannel) stop() {
	if ch.voice != nil {
		ch.voice.done = true
		ch.voice = nil
	}
	ch.ctrl.Paused = false
}

// looper restarts the source at its end while the channel loop flag is set.
type looper struct {
	ch *beepChannel
}

func (l *looper) Stream(samples [][2]float64) (int, bool) {
	n := 0
	restarted := false
	for n < len(samples) {
		sn, ok := l.ch.src.Stream(samples[n:])
		n += sn
		if ok && sn > 0 {
			restarted = false
			continue
		}
		if !l.ch.loop || restarted || l.ch.src.Seek(0) != nil {
			return n, n > 0
		}
		restarted = true
	}
	return n, true
}

func (l *looper) Err() error {
	return l.ch.src.Err()
}

// voice is a channel's presence in the mixer. A stopped voice drains so the
// mixer drops it.
type voice struct {
	ch   *beepChannel
	done bool
}

func (v *voice) Stream(samples [][2]float64) (int, bool) {
	if v.done {
		return 0, false
	}
	v.ch.tick()
	n, ok := v.ch.ctrl.Stream(samples)
	if !ok {
		v.done = true
		if v.ch.voice == v {
			v.ch.voice = nil
		}
	}
	return n, ok
}

func (v *voice) Err() error {
	return nil
}

var _ Engine = (*Beep)(nil)

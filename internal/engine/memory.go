package engine

import (
	"sort"
	"strings"
	"sync"
	"time"
)

const memoryRate = 44100

type memChannel struct {
	kind     ChannelType
	source   string
	loop     bool
	attrs    Attributes
	activity Activity
	length   int64
	position int64
	sample   SampleHandle
	music    map[MusicAttr]map[int]int
	tags     map[TagKind]map[int]string
	order    uint32
	slideEnd time.Time
}

type memSample struct {
	source   string
	length   int64
	channels []Handle
}

// Memory is an engine that keeps all channel state in memory and produces no
// sound. It backs the test suites and the daemon's dry-run mode, and supports
// fault injection per operation or per source.
type Memory struct {
	mu          sync.Mutex
	initialized bool
	opts        InitOptions
	nextHandle  Handle
	nextSample  SampleHandle
	channels    map[Handle]*memChannel
	samples     map[SampleHandle]*memSample
	globalVol   int
	faults      map[string]Code
	pathFaults  map[string]Code
	durations   map[string]time.Duration
	now         func() time.Time
}

// NewMemory creates an uninitialized memory engine
func NewMemory() *Memory {
	return &Memory{
		channels:   make(map[Handle]*memChannel),
		samples:    make(map[SampleHandle]*memSample),
		globalVol:  100,
		faults:     make(map[string]Code),
		pathFaults: make(map[string]Code),
		durations:  make(map[string]time.Duration),
		now:        time.Now,
	}
}

// Fail makes the next call of op fail with code.
func (m *Memory) Fail(op string, code Code) {
	m.mu.Lock()
	m.faults[op] = code
	m.mu.Unlock()
}

// FailPath makes every load of path fail with code.
func (m *Memory) FailPath(path string, code Code) {
	m.mu.Lock()
	m.pathFaults[path] = code
	m.mu.Unlock()
}

// SetDuration sets the length reported for channels loaded from path.
func (m *Memory) SetDuration(path string, d time.Duration) {
	m.mu.Lock()
	m.durations[path] = d
	m.mu.Unlock()
}

// SetTag sets a text tag on a channel
func (m *Memory) SetTag(h Handle, kind TagKind, index int, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ch, ok := m.channels[h]; ok {
		if ch.tags[kind] == nil {
			ch.tags[kind] = make(map[int]string)
		}
		ch.tags[kind][index] = text
	}
}

// SetOrderPosition sets the order and row reported for a module channel
func (m *Memory) SetOrderPosition(h Handle, order, row int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ch, ok := m.channels[h]; ok {
		ch.order = uint32(order&0xffff) | uint32(row&0xffff)<<16
	}
}

// Advance moves a channel's position forward
func (m *Memory) Advance(h Handle, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ch, ok := m.channels[h]; ok {
		ch.position += int64(d.Seconds() * float64(BytesPerSecond(memoryRate)))
		if ch.length > 0 && ch.position > ch.length {
			ch.position = ch.length
		}
	}
}

// Live returns the handles of all live channels in ascending order.
func (m *Memory) Live() []Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	handles := make([]Handle, 0, len(m.channels))
	for h := range m.channels {
		handles = append(handles, h)
	}
	sort.Slice(handles, func(i, j int) bool { return handles[i] < handles[j] })
	return handles
}

// SampleCount returns the number of live samples
func (m *Memory) SampleCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.samples)
}

// Initialized reports whether Init has succeeded and Free has not been called
func (m *Memory) Initialized() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initialized
}

func (m *Memory) fault(op string) error {
	if code, ok := m.faults[op]; ok {
		delete(m.faults, op)
		return newError(op, code, nil)
	}
	return nil
}

func (m *Memory) pathFault(op, path string) error {
	if err := m.fault(op); err != nil {
		return err
	}
	if code, ok := m.pathFaults[path]; ok {
		return newError(op, code, nil)
	}
	return nil
}

func (m *Memory) Init(opts InitOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fault("Init"); err != nil {
		return err
	}
	if m.initialized {
		return newError("Init", CodeAlready, nil)
	}
	if opts.Device < -1 || opts.Device > 1 {
		return newError("Init", CodeDevice, nil)
	}
	m.opts = opts
	m.initialized = true
	return nil
}

func (m *Memory) Free() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.channels = make(map[Handle]*memChannel)
	m.samples = make(map[SampleHandle]*memSample)
	m.initialized = false
	return nil
}

func (m *Memory) lengthOf(path string) int64 {
	d, ok := m.durations[path]
	if !ok {
		return 0
	}
	return int64(d.Seconds() * float64(BytesPerSecond(memoryRate)))
}

func (m *Memory) newChannel(kind ChannelType, source string) Handle {
	m.nextHandle++
	m.channels[m.nextHandle] = &memChannel{
		kind:   kind,
		source: source,
		attrs:  Attributes{Freq: memoryRate, Volume: 100},
		length: m.lengthOf(source),
		music:  make(map[MusicAttr]map[int]int),
		tags:   make(map[TagKind]map[int]string),
	}
	return m.nextHandle
}

func (m *Memory) LoadModule(path string) (Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return 0, newError("LoadModule", CodeInit, nil)
	}
	if err := m.pathFault("LoadModule", path); err != nil {
		return 0, err
	}
	h := m.newChannel(TypeModule, path)
	ch := m.channels[h]
	ch.music[MusicAmplify] = map[int]int{0: 50}
	ch.music[MusicBPM] = map[int]int{0: 125}
	ch.music[MusicPanSep] = map[int]int{0: 50}
	ch.music[MusicSpeed] = map[int]int{0: 6}
	ch.music[MusicGlobalVolume] = map[int]int{0: 64}
	ch.music[MusicTrackVolume] = make(map[int]int)
	ch.music[MusicInstrumentVolume] = make(map[int]int)
	return h, nil
}

func (m *Memory) LoadSample(path string) (SampleHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return 0, newError("LoadSample", CodeInit, nil)
	}
	if m.opts.Device == 0 {
		return 0, newError("LoadSample", CodeNotAvail, nil)
	}
	if err := m.pathFault("LoadSample", path); err != nil {
		return 0, err
	}
	m.nextSample++
	m.samples[m.nextSample] = &memSample{source: path, length: m.lengthOf(path)}
	return m.nextSample, nil
}

func (m *Memory) SampleChannel(s SampleHandle) (Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fault("SampleChannel"); err != nil {
		return 0, err
	}
	sample, ok := m.samples[s]
	if !ok {
		return 0, newError("SampleChannel", CodeHandle, nil)
	}
	h := m.newChannel(TypeSample, sample.source)
	m.channels[h].sample = s
	m.channels[h].length = sample.length
	sample.channels = append(sample.channels, h)
	return h, nil
}

func (m *Memory) FreeSample(s SampleHandle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sample, ok := m.samples[s]
	if !ok {
		return newError("FreeSample", CodeHandle, nil)
	}
	for _, h := range sample.channels {
		delete(m.channels, h)
	}
	delete(m.samples, s)
	return nil
}

func (m *Memory) StreamFile(path string) (Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return 0, newError("StreamFile", CodeInit, nil)
	}
	if err := m.pathFault("StreamFile", path); err != nil {
		return 0, err
	}
	return m.newChannel(TypeStream, path), nil
}

func (m *Memory) StreamURL(url string) (Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return 0, newError("StreamURL", CodeInit, nil)
	}
	if err := m.pathFault("StreamURL", url); err != nil {
		return 0, err
	}
	if !strings.Contains(url, "://") {
		return 0, newError("StreamURL", CodeIllParam, nil)
	}
	return m.newChannel(TypeStream, url), nil
}

func (m *Memory) FreeChannel(h Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.channels[h]; !ok {
		return newError("FreeChannel", CodeHandle, nil)
	}
	delete(m.channels, h)
	return nil
}

func (m *Memory) channel(op string, h Handle) (*memChannel, error) {
	if err := m.fault(op); err != nil {
		return nil, err
	}
	ch, ok := m.channels[h]
	if !ok {
		return nil, newError(op, CodeHandle, nil)
	}
	return ch, nil
}

func (m *Memory) ChannelInfo(h Handle) (ChannelInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch, err := m.channel("ChannelInfo", h)
	if err != nil {
		return ChannelInfo{}, err
	}
	return ChannelInfo{Type: ch.kind, Loop: ch.loop, Rate: memoryRate}, nil
}

func (m *Memory) SetLoop(h Handle, loop bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch, err := m.channel("SetLoop", h)
	if err != nil {
		return err
	}
	ch.loop = loop
	return nil
}

func (m *Memory) Attributes(h Handle) (Attributes, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch, err := m.channel("Attributes", h)
	if err != nil {
		return Attributes{}, err
	}
	return ch.attrs, nil
}

func (m *Memory) SetAttributes(h Handle, attrs Attributes) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch, err := m.channel("SetAttributes", h)
	if err != nil {
		return err
	}
	if attrs.Freq == 0 {
		attrs.Freq = memoryRate
	}
	ch.attrs = attrs
	return nil
}

func (m *Memory) Play(h Handle, restart bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch, err := m.channel("Play", h)
	if err != nil {
		return err
	}
	if restart {
		ch.position = 0
	}
	ch.activity = Playing
	return nil
}

func (m *Memory) Stop(h Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch, err := m.channel("Stop", h)
	if err != nil {
		return err
	}
	ch.activity = Stopped
	return nil
}

func (m *Memory) Pause(h Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch, err := m.channel("Pause", h)
	if err != nil {
		return err
	}
	if ch.activity == Playing || ch.activity == Stalled {
		ch.activity = Paused
	}
	return nil
}

func (m *Memory) Active(h Handle) (Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch, err := m.channel("Active", h)
	if err != nil {
		return Stopped, err
	}
	return ch.activity, nil
}

func (m *Memory) Length(h Handle) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch, err := m.channel("Length", h)
	if err != nil {
		return 0, err
	}
	return ch.length, nil
}

func (m *Memory) Position(h Handle) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch, err := m.channel("Position", h)
	if err != nil {
		return 0, err
	}
	return ch.position, nil
}

func (m *Memory) BytesToSeconds(h Handle, n int64) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.channel("BytesToSeconds", h); err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, newError("BytesToSeconds", CodeNotAvail, nil)
	}
	return float64(n) / float64(BytesPerSecond(memoryRate)), nil
}

func (m *Memory) module(op string, h Handle) (*memChannel, error) {
	ch, err := m.channel(op, h)
	if err != nil {
		return nil, err
	}
	if ch.kind != TypeModule {
		return nil, newError(op, CodeHandle, nil)
	}
	return ch, nil
}

func (m *Memory) MusicAttribute(h Handle, attr MusicAttr, index int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch, err := m.module("MusicAttribute", h)
	if err != nil {
		return 0, err
	}
	values, ok := ch.music[attr]
	if !ok {
		return 0, newError("MusicAttribute", CodeIllParam, nil)
	}
	if v, ok := values[index]; ok {
		return v, nil
	}
	if attr == MusicTrackVolume || attr == MusicInstrumentVolume {
		return 100, nil
	}
	return 0, newError("MusicAttribute", CodeIllParam, nil)
}

func (m *Memory) SetMusicAttribute(h Handle, attr MusicAttr, index int, value int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch, err := m.module("SetMusicAttribute", h)
	if err != nil {
		return err
	}
	values, ok := ch.music[attr]
	if !ok {
		return newError("SetMusicAttribute", CodeIllParam, nil)
	}
	values[index] = value
	return nil
}

func (m *Memory) Tag(h Handle, kind TagKind, index int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch, err := m.channel("Tag", h)
	if err != nil {
		return "", err
	}
	text, ok := ch.tags[kind][index]
	if !ok {
		return "", newError("Tag", CodeNotAvail, nil)
	}
	return text, nil
}

func (m *Memory) OrderPosition(h Handle) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch, err := m.module("OrderPosition", h)
	if err != nil {
		return 0, err
	}
	return ch.order, nil
}

func (m *Memory) GlobalVolume() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.globalVol
}

func (m *Memory) SetGlobalVolume(vol int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fault("SetGlobalVolume"); err != nil {
		return err
	}
	m.globalVol = vol
	return nil
}

// SlideVolume applies the target volume immediately and reports the channel
// as sliding until d has elapsed.
func (m *Memory) SlideVolume(h Handle, vol int, d time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch, err := m.channel("SlideVolume", h)
	if err != nil {
		return err
	}
	ch.attrs.Volume = vol
	ch.slideEnd = m.now().Add(d)
	return nil
}

func (m *Memory) IsSliding(h Handle) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch, ok := m.channels[h]
	if !ok {
		return false
	}
	return m.now().Before(ch.slideEnd)
}

var _ Engine = (*Memory)(nil)

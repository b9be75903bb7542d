package sequencer

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"go-beatgrid/debug"
	"go-beatgrid/pattern"
)

// Session wires one grid, transport, scheduler, publisher and capture buffer
// to a TimeSource and a SoundDispatcher. Sessions share nothing.
type Session struct {
	clock      TimeSource
	dispatcher SoundDispatcher

	grid      *Grid
	sched     *Scheduler
	transport *Transport
	publisher *Publisher
	captures  *CaptureBuffer

	tapEcho bool
	kit     pattern.Kit

	mu         sync.RWMutex
	binders    []Binder
	voiceNames []string
	pattern    string
}

type sessionConfig struct {
	steps     int
	voices    int
	lookahead time.Duration
	capacity  int
	divisions int
	tempo     float64
	tapEcho   bool
	kit       string
}

// Option configures a Session.
type Option func(*sessionConfig)

func WithStepsPerLoop(n int) Option        { return func(c *sessionConfig) { c.steps = n } }
func WithVoices(n int) Option              { return func(c *sessionConfig) { c.voices = n } }
func WithLookahead(d time.Duration) Option { return func(c *sessionConfig) { c.lookahead = d } }
func WithCaptureCapacity(n int) Option     { return func(c *sessionConfig) { c.capacity = n } }
func WithRefreshDivisions(n int) Option    { return func(c *sessionConfig) { c.divisions = n } }
func WithTempo(bpm float64) Option         { return func(c *sessionConfig) { c.tempo = bpm } }

// WithKit selects the kit used to bind voices without an explicit target.
func WithKit(name string) Option { return func(c *sessionConfig) { c.kit = name } }

// WithTapEcho makes Tap also trigger the voice immediately.
func WithTapEcho(on bool) Option { return func(c *sessionConfig) { c.tapEcho = on } }

// NewSession builds a stopped session. A nil dispatcher logs triggers.
func NewSession(clock TimeSource, dispatcher SoundDispatcher, opts ...Option) *Session {
	cfg := sessionConfig{
		steps:     DefaultStepsPerLoop,
		voices:    DefaultVoices,
		lookahead: DefaultLookahead,
		capacity:  DefaultCaptureCapacity,
		divisions: DefaultRefreshDivisions,
		tempo:     DefaultTempo,
		kit:       pattern.DefaultKit,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if dispatcher == nil {
		dispatcher = &LogDispatcher{}
	}

	s := &Session{
		clock:      clock,
		dispatcher: dispatcher,
		tapEcho:    cfg.tapEcho,
		kit:        pattern.GetKit(cfg.kit),
	}
	if b, ok := dispatcher.(Binder); ok {
		s.binders = append(s.binders, b)
	}
	s.grid = NewGrid(cfg.voices, cfg.steps)
	s.sched = NewScheduler(s.grid, dispatcher, s.grid.Voices(), s.grid.Steps())
	s.transport = NewTransport(clock, s.sched, s.grid.Steps(), cfg.lookahead)
	s.transport.SetTempo(cfg.tempo)
	s.publisher = NewPublisher(clock, s.transport, s.sched, s.grid, cfg.divisions)
	s.captures = NewCaptureBuffer(s.grid.Voices(), cfg.capacity)

	if s.grid.Voices() == len(pattern.DefaultVoices) {
		s.voiceNames = append([]string(nil), pattern.DefaultVoices...)
	} else {
		s.voiceNames = make([]string, s.grid.Voices())
	}
	return s
}

// Init starts UI publishing.
func (s *Session) Init() {
	s.publisher.Start()
	debug.Log("session", "init %dx%d", s.grid.Voices(), s.grid.Steps())
}

// Close stops playback and publishing.
func (s *Session) Close() {
	s.transport.Stop()
	s.publisher.Stop()
	debug.Log("session", "closed")
}

func (s *Session) Start() error {
	if err := s.transport.Start(); err != nil {
		return err
	}
	s.publisher.Publish()
	return nil
}

func (s *Session) Stop() {
	s.transport.Stop()
	s.publisher.Publish()
}

func (s *Session) Running() bool                { return s.transport.Running() }
func (s *Session) SetTempo(bpm float64) float64 { return s.transport.SetTempo(bpm) }
func (s *Session) Tempo() float64               { return s.transport.Tempo() }
func (s *Session) Position() Position           { return s.transport.Position() }
func (s *Session) Cursor() int                  { return s.sched.Cursor() }
func (s *Session) Snapshot() *Snapshot          { return s.grid.Snapshot() }
func (s *Session) Errors() <-chan error         { return s.sched.Errors() }
func (s *Session) Latest() Frame                { return s.publisher.Latest() }
func (s *Session) Voices() int                  { return s.grid.Voices() }
func (s *Session) Steps() int                   { return s.grid.Steps() }

// Subscribe delivers UI frames until the returned cancel func is called.
func (s *Session) Subscribe() (<-chan Frame, func()) { return s.publisher.Subscribe() }

// Toggle flips one step.
func (s *Session) Toggle(voice, step int) (*Snapshot, error) {
	return s.grid.Toggle(voice, step)
}

// ClearVoice switches off every step of one voice.
func (s *Session) ClearVoice(voice int) error {
	_, err := s.grid.ClearRow(voice)
	return err
}

// Tap records a free-timed hit at the current position. Taps need a running
// transport.
func (s *Session) Tap(voice int) (CapturedNote, error) {
	at, ok := s.transport.PositionIfRunning()
	if !ok {
		return CapturedNote{}, ErrNotRunning
	}
	if err := s.captures.Capture(voice, at); err != nil {
		return CapturedNote{}, err
	}
	if s.tapEcho {
		if err := s.dispatcher.Trigger(voice, s.clock.Now()); err != nil {
			debug.Warn("session", "tap echo voice %d: %v", voice, err)
		}
	}
	return CapturedNote{Voice: voice, At: at}, nil
}

// Captures returns every voice's taps, most recent first.
func (s *Session) Captures() [][]CapturedNote { return s.captures.All() }

// ClearCaptures forgets all taps.
func (s *Session) ClearCaptures() { s.captures.Clear() }

// LoadPattern rebinds the dispatcher to p, replaces the grid with p and
// applies the pattern's tempo clamped to the editable range. Playback keeps
// going. The new rows are published only once the bindings are in place.
func (s *Session) LoadPattern(p pattern.Pattern) error {
	rows := p.Rows()
	if err := s.grid.CheckShape(rows); err != nil {
		return errors.WithMessagef(err, "load pattern %q", p.Name)
	}

	targets := p.Targets(s.kit)
	s.mu.RLock()
	binders := append([]Binder(nil), s.binders...)
	s.mu.RUnlock()
	for _, b := range binders {
		b.Bind(targets)
	}

	if _, err := s.grid.LoadPattern(rows); err != nil {
		return errors.WithMessagef(err, "load pattern %q", p.Name)
	}

	if p.Tempo > 0 {
		applied := s.transport.SetTempo(p.Tempo)
		if applied != p.Tempo {
			debug.Warn("session", "pattern %q tempo %.1f clamped to %.1f", p.Name, p.Tempo, applied)
		}
	}

	s.mu.Lock()
	s.voiceNames = p.VoiceNames()
	s.pattern = p.Name
	s.mu.Unlock()

	debug.Log("session", "loaded pattern %q tempo=%.1f", p.Name, s.transport.Tempo())
	return nil
}

// AddBinder registers another collaborator to rebind on every pattern load.
func (s *Session) AddBinder(b Binder) {
	s.mu.Lock()
	s.binders = append(s.binders, b)
	s.mu.Unlock()
}

// PatternName is the name of the last loaded pattern.
func (s *Session) PatternName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pattern
}

// VoiceNames returns the names of the grid rows.
func (s *Session) VoiceNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.voiceNames...)
}

// CurrentPattern captures the grid as it is now, under name, at the current
// tempo. Voices are unbound so the kit fills them on load.
func (s *Session) CurrentPattern(name string) pattern.Pattern {
	snap := s.grid.Snapshot()
	names := s.VoiceNames()
	p := pattern.Pattern{Name: name, Tempo: s.transport.Tempo()}
	for v := 0; v < snap.Voices(); v++ {
		voice := pattern.Voice{Steps: pattern.Steps(snap.Row(v))}
		if v < len(names) {
			voice.Name = names[v]
		}
		p.Voices = append(p.Voices, voice)
	}
	return p
}

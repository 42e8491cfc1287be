package native

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/thesyncim/videoio/engine"
)

const memScheme = "mem://"

// memTimeBase is the stream time base of memory containers.
var memTimeBase = engine.NewRational(1, 90000)

// interleaveDepth is how many packets an interleaving output holds back to
// reorder them by DTS.
const interleaveDepth = 16

type memContainer struct {
	streams []engine.Stream
	packets []*Packet
}

var memStore = struct {
	sync.RWMutex
	containers map[string]*memContainer
}{
	containers: make(map[string]*memContainer),
}

func lookupContainer(name string) (*memContainer, error) {
	memStore.RLock()
	defer memStore.RUnlock()
	c, ok := memStore.containers[name]
	if !ok {
		return nil, fmt.Errorf("native: no memory container %q", name)
	}
	return c, nil
}

func storeContainer(name string, c *memContainer) {
	memStore.Lock()
	memStore.containers[name] = c
	memStore.Unlock()
}

// Remove deletes a memory container.
func Remove(name string) {
	memStore.Lock()
	delete(memStore.containers, name)
	memStore.Unlock()
}

// URL returns the url of the memory container called name.
func URL(name string) string { return memScheme + name }

// PacketCount returns the number of packets stored in a memory container.
func PacketCount(name string) (int, error) {
	c, err := lookupContainer(name)
	if err != nil {
		return 0, err
	}
	return len(c.packets), nil
}

// memOutput writes into a memory container. The container becomes visible
// to inputs when the header is written and is complete after the trailer.
type memOutput struct {
	name    string
	streams []engine.Stream
	c       *memContainer
	pending []*Packet
}

func newMemOutput(name string) *memOutput {
	return &memOutput{name: name}
}

func (o *memOutput) AddStream(params engine.CodecParameters) (int, error) {
	if o.c != nil {
		return 0, fmt.Errorf("native: stream added after header")
	}
	o.streams = append(o.streams, engine.Stream{
		Index:    len(o.streams),
		TimeBase: memTimeBase,
		Duration: engine.NoPTS,
		Params:   copyParameters(params),
	})
	return len(o.streams) - 1, nil
}

func (o *memOutput) AddEncoderStream(enc engine.Encoder) (int, error) {
	i, err := o.AddStream(enc.Parameters())
	if err != nil {
		return 0, err
	}
	// Encoder streams keep the encoder time base until the header is
	// written.
	o.streams[i].TimeBase = enc.TimeBase()
	return i, nil
}

func (o *memOutput) NeedsGlobalHeader() bool { return true }

func (o *memOutput) StreamCount() int { return len(o.streams) }

func (o *memOutput) StreamTimeBase(i int) engine.Rational {
	if i < 0 || i >= len(o.streams) {
		return engine.Rational{}
	}
	return o.streams[i].TimeBase
}

func (o *memOutput) StreamParameters(i int) engine.CodecParameters {
	if i < 0 || i >= len(o.streams) {
		return nil
	}
	return o.streams[i].Params
}

func (o *memOutput) WriteHeader() error {
	if o.c != nil {
		return fmt.Errorf("native: header already written")
	}
	for i := range o.streams {
		o.streams[i].TimeBase = memTimeBase
	}
	o.c = &memContainer{streams: o.streams}
	storeContainer(o.name, o.c)
	return nil
}

func (o *memOutput) WritePacket(p engine.Packet) error {
	np, err := o.accept(p)
	if err != nil {
		return err
	}
	o.c.packets = append(o.c.packets, np)
	return nil
}

func (o *memOutput) WriteInterleavedPacket(p engine.Packet) error {
	np, err := o.accept(p)
	if err != nil {
		return err
	}
	o.pending = append(o.pending, np)
	if len(o.pending) > interleaveDepth {
		o.flushPending(len(o.pending) - interleaveDepth)
	}
	return nil
}

// flushPending moves the n packets with the lowest DTS into the container.
func (o *memOutput) flushPending(n int) {
	sort.SliceStable(o.pending, func(i, j int) bool {
		return o.dtsMicros(o.pending[i]) < o.dtsMicros(o.pending[j])
	})
	o.c.packets = append(o.c.packets, o.pending[:n]...)
	o.pending = append(o.pending[:0], o.pending[n:]...)
}

func (o *memOutput) dtsMicros(p *Packet) int64 {
	ts := p.dts
	if ts == engine.NoPTS {
		ts = p.pts
	}
	if ts == engine.NoPTS {
		return math.MinInt64
	}
	return o.streams[p.stream].TimeBase.RescaleTS(ts, engine.NewRational(1, 1000000))
}

func (o *memOutput) accept(p engine.Packet) (*Packet, error) {
	if o.c == nil {
		return nil, fmt.Errorf("native: packet written before header")
	}
	if p.StreamIndex() < 0 || p.StreamIndex() >= len(o.streams) {
		return nil, fmt.Errorf("%w: %d", engine.ErrStreamNotFound, p.StreamIndex())
	}
	np := &Packet{
		stream:   p.StreamIndex(),
		pts:      p.PTS(),
		dts:      p.DTS(),
		duration: p.Duration(),
		pos:      -1,
		key:      p.Key(),
	}
	np.data = append([]byte(nil), p.Data()...)
	return np, nil
}

func (o *memOutput) WriteTrailer() error {
	if o.c == nil {
		return fmt.Errorf("native: trailer written before header")
	}
	if len(o.pending) > 0 {
		o.flushPending(len(o.pending))
	}
	for i := range o.c.streams {
		o.finalizeStream(&o.c.streams[i])
	}
	return nil
}

// finalizeStream fills in frame count, duration and average frame rate.
func (o *memOutput) finalizeStream(s *engine.Stream) {
	var (
		frames      int64
		first, last int64 = engine.NoPTS, engine.NoPTS
		lastDur     int64
	)
	for _, p := range o.c.packets {
		if p.stream != s.Index {
			continue
		}
		frames++
		if p.pts == engine.NoPTS {
			continue
		}
		if first == engine.NoPTS || p.pts < first {
			first = p.pts
		}
		if last == engine.NoPTS || p.pts > last {
			last, lastDur = p.pts, p.duration
		}
	}
	s.Frames = frames
	if first == engine.NoPTS {
		return
	}
	if lastDur <= 0 && frames > 1 {
		lastDur = (last - first) / (frames - 1)
	}
	s.Duration = last - first + lastDur
	if s.Duration > 0 {
		num := frames * int64(s.TimeBase.Den)
		den := s.Duration * int64(s.TimeBase.Num)
		g := gcd(num, den)
		s.FrameRate = engine.NewRational(int(num/g), int(den/g))
	}
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return 1
	}
	return a
}

func (o *memOutput) Flush() error { return nil }

func (o *memOutput) SDP() (string, error) {
	return "", fmt.Errorf("%w: sdp for memory output", engine.ErrNotSupported)
}

func (o *memOutput) Close() error { return nil }

// memInput reads a memory container from the start.
type memInput struct {
	c   *memContainer
	pos int
}

func newMemInput(c *memContainer) *memInput {
	return &memInput{c: c}
}

func (in *memInput) Streams() []engine.Stream {
	return append([]engine.Stream(nil), in.c.streams...)
}

func (in *memInput) ReadPacket() (engine.Packet, error) {
	if in.pos >= len(in.c.packets) {
		return nil, engine.ErrEOF
	}
	p := in.c.packets[in.pos].clone()
	in.pos++
	return p, nil
}

// Seek positions the input on the last key packet at or before ts. Times
// are microseconds.
func (in *memInput) Seek(minTS, ts, maxTS int64) error {
	us := engine.NewRational(1, 1000000)
	target := -1
	for i, p := range in.c.packets {
		if !p.key || p.pts == engine.NoPTS {
			continue
		}
		t := in.c.streams[p.stream].TimeBase.RescaleTS(p.pts, us)
		if t < minTS {
			continue
		}
		if t > maxTS {
			break
		}
		if t <= ts {
			target = i
			continue
		}
		if target == -1 {
			target = i
		}
		break
	}
	if target == -1 {
		if ts == math.MinInt64 || len(in.c.packets) == 0 {
			in.pos = 0
			return nil
		}
		return fmt.Errorf("native: no key frame in [%d, %d]", minTS, maxTS)
	}
	in.pos = target
	return nil
}

func (in *memInput) BestVideoStream() (int, error) {
	for _, s := range in.c.streams {
		if s.Params != nil && s.Params.MediaType() == engine.MediaTypeVideo {
			return s.Index, nil
		}
	}
	return 0, engine.ErrStreamNotFound
}

func (in *memInput) Close() error { return nil }

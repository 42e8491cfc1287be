package videoio

import "github.com/thesyncim/videoio/engine"

// Packet is a compressed data unit together with the time base its
// timestamps are expressed in. Ownership passes to whoever reads it.
type Packet struct {
	inner    engine.Packet
	timeBase Rational
}

// NewPacket wraps an engine packet whose timestamps are in timeBase.
func NewPacket(inner engine.Packet, timeBase Rational) *Packet {
	return &Packet{inner: inner, timeBase: timeBase}
}

// Inner returns the engine packet, nil after Release.
func (p *Packet) Inner() engine.Packet { return p.inner }

func (p *Packet) TimeBase() Rational { return p.timeBase }

func (p *Packet) StreamIndex() int { return p.inner.StreamIndex() }

func (p *Packet) SetStreamIndex(i int) { p.inner.SetStreamIndex(i) }

func (p *Packet) PTS() Time { return timeFromTS(p.inner.PTS(), p.timeBase) }

func (p *Packet) DTS() Time { return timeFromTS(p.inner.DTS(), p.timeBase) }

func (p *Packet) Duration() Time { return timeFromTS(p.inner.Duration(), p.timeBase) }

// SetPTS stores t aligned into the packet time base.
func (p *Packet) SetPTS(t Time) { p.inner.SetPTS(t.Rescale(p.timeBase).ts()) }

// SetDTS stores t aligned into the packet time base.
func (p *Packet) SetDTS(t Time) { p.inner.SetDTS(t.Rescale(p.timeBase).ts()) }

// SetDuration stores t aligned into the packet time base.
func (p *Packet) SetDuration(t Time) {
	d := t.Rescale(p.timeBase)
	if !d.HasValue() {
		p.inner.SetDuration(0)
		return
	}
	p.inner.SetDuration(d.value)
}

func (p *Packet) IsKey() bool { return p.inner.Key() }

func (p *Packet) Data() []byte { return p.inner.Data() }

// rescaleTo converts every timestamp of the packet into tb.
func (p *Packet) rescaleTo(tb Rational) {
	if p.timeBase == tb {
		return
	}
	p.inner.SetPTS(p.timeBase.RescaleTS(p.inner.PTS(), tb))
	p.inner.SetDTS(p.timeBase.RescaleTS(p.inner.DTS(), tb))
	if d := p.inner.Duration(); d > 0 {
		if v, ok := p.timeBase.Rescale(d, tb); ok {
			p.inner.SetDuration(v)
		}
	}
	p.timeBase = tb
}

// Release returns the packet to the engine. It is safe to call twice.
func (p *Packet) Release() {
	if p == nil || p.inner == nil {
		return
	}
	p.inner.Release()
	p.inner = nil
}

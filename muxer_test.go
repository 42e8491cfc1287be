package videoio

import (
	"errors"
	"testing"

	"github.com/thesyncim/videoio/engine"
	"github.com/thesyncim/videoio/engine/native"
)

func TestMuxerRemux(t *testing.T) {
	for _, interleaved := range []bool{false, true} {
		name := "plain"
		if interleaved {
			name = "interleaved"
		}
		t.Run(name, func(t *testing.T) {
			eng := native.New(native.Config{})
			src := writeFixture(t, eng, memName(t)+"_src", 20, 4, 2, true)
			dstName := memName(t) + "_dst"
			t.Cleanup(func() { native.Remove(dstName) })

			r, err := NewReaderBuilder(src).WithEngine(eng).Build()
			if err != nil {
				t.Fatal(err)
			}
			defer r.Close()
			w, err := NewWriterBuilder(ParseLocation(native.URL(dstName))).WithEngine(eng).Build()
			if err != nil {
				t.Fatal(err)
			}
			b := NewMuxerBuilder[struct{}](w).WithStreams(r)
			if interleaved {
				b.Interleaved()
			}
			m, err := b.Build()
			if err != nil {
				t.Fatal(err)
			}

			n := 0
			for {
				p, err := r.ReadAny()
				if errors.Is(err, ErrReadExhausted) {
					break
				}
				if err != nil {
					t.Fatal(err)
				}
				if _, err := m.Mux(p); err != nil {
					t.Fatalf("Mux: %v", err)
				}
				p.Release()
				n++
			}
			if _, err := m.Finish(); err != nil {
				t.Fatal(err)
			}
			// A second Finish writes nothing.
			if _, err := m.Finish(); err != nil {
				t.Fatal(err)
			}
			if err := m.Close(); err != nil {
				t.Fatal(err)
			}

			got, err := native.PacketCount(dstName)
			if err != nil {
				t.Fatal(err)
			}
			if got != n || n != 40 {
				t.Errorf("muxed %d packets, read %d, want 40", got, n)
			}
		})
	}
}

func TestMuxerUnmappedStream(t *testing.T) {
	eng := native.New(native.Config{})
	src := writeFixture(t, eng, memName(t)+"_src", 2, 2, 2, true)
	dstName := memName(t) + "_dst"
	t.Cleanup(func() { native.Remove(dstName) })

	r, err := NewReaderBuilder(src).WithEngine(eng).Build()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	info, err := r.StreamInfo(0)
	if err != nil {
		t.Fatal(err)
	}
	w, err := NewWriterBuilder(ParseLocation(native.URL(dstName))).WithEngine(eng).Build()
	if err != nil {
		t.Fatal(err)
	}
	m, err := NewMuxerBuilder[struct{}](w).WithStream(info).Build()
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()

	p, err := r.Read(1)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Release()
	if _, err := m.Mux(p); !errors.Is(err, ErrStreamNotFound) {
		t.Fatalf("Mux = %v, want ErrStreamNotFound", err)
	}
	// The header is only written for a mapped packet.
	if _, err := native.PacketCount(dstName); err == nil {
		t.Error("output container exists after a rejected packet")
	}
}

func TestMuxerMissingParameters(t *testing.T) {
	eng := native.New(native.Config{})
	w, err := NewBufWriterBuilder("rawvideo").WithEngine(eng).Build()
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	_, err = NewMuxerBuilder[[]byte](w).WithStream(StreamInfo{Index: 0}).Build()
	if !errors.Is(err, ErrMissingCodecParameters) {
		t.Errorf("Build = %v, want ErrMissingCodecParameters", err)
	}
}

func TestMuxerParameterSets(t *testing.T) {
	eng := native.New(native.Config{})
	w, err := NewBufWriterBuilder("h264").WithEngine(eng).Build()
	if err != nil {
		t.Fatal(err)
	}
	params := native.NewVideoParameters(engine.CodecH264, 64, 48, engine.PixelFormatYUV420P, testAVCC())
	m, err := NewMuxerBuilder[[]byte](w).WithStream(StreamInfo{Index: 0, Params: params, TimeBase: engine.NewRational(1, 90000)}).Build()
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()
	res := m.ParameterSetsH264()
	if len(res) != 1 || res[0].Err != nil {
		t.Fatalf("ParameterSetsH264 = %+v", res)
	}
	if string(res[0].SPS) != string(testSPS) || len(res[0].PPS) != 1 || string(res[0].PPS[0]) != string(testPPS) {
		t.Errorf("sps %x pps %x", res[0].SPS, res[0].PPS)
	}
}

func TestMuxerBuilderReuseAfterBuild(t *testing.T) {
	eng := native.New(native.Config{})
	dstName := memName(t)
	t.Cleanup(func() { native.Remove(dstName) })
	w, err := NewWriterBuilder(ParseLocation(native.URL(dstName))).WithEngine(eng).Build()
	if err != nil {
		t.Fatal(err)
	}
	params := native.NewVideoParameters(engine.CodecRawVideo, 2, 1, engine.PixelFormatRGB24, nil)
	tb := engine.NewRational(1, 25)

	b := NewMuxerBuilder[struct{}](w).WithStream(StreamInfo{Index: 0, Params: params, TimeBase: tb})
	m, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()
	if _, err := b.WithStream(StreamInfo{Index: 1, Params: params, TimeBase: tb}).Build(); err != nil {
		t.Fatal(err)
	}

	p := NewPacket(native.NewPacket(1, make([]byte, 6), 0, 0, true), tb)
	defer p.Release()
	if _, err := m.Mux(p); !errors.Is(err, ErrStreamNotFound) {
		t.Fatalf("Mux = %v, want ErrStreamNotFound", err)
	}
}

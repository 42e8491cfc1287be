// Package videoio drives a codec/container engine to move video between
// files, network streams and in-memory buffers while keeping timestamps and
// format contracts consistent across every hop.
//
// Key pieces include:
//   - Time and Aligned: timestamps with their own time base and exact rescaling
//   - Reader, Decoder and DecoderSplit: demux and decode to RGB24 frames
//   - Encoder: encode RGB24 frames into a file or network destination
//   - Muxer, BufMuxer and PacketizedBufMuxer: remux packets into any writer
//   - RTPMuxer: RTP packetization with RTCP classification and SDP generation
//   - ExtractParameterSetsH264: SPS/PPS recovery from AVCC or Annex B extradata
//
// # Data Flow
//
//	Reader -> Packet -> DecoderSplit -> Frame -> Encoder -> Packet -> Writer
//	Reader -> Packet -> Muxer -> Writer | BufWriter | PacketizedBufWriter
//
// # Engines
//
// The actual codec work is done by an engine (see package engine). Importing
// engine/ffmpeg registers an FFmpeg engine built on go-astiav when cgo is
// enabled. engine/native is a pure Go engine with in-memory containers, a
// rawvideo codec, H.264 through libmedia_h264 and an RTP muxer. Call Init once
// before building pipelines, or pass an engine explicitly with WithEngine.
//
// # Build Tags
//
//   - noffmpeg: do not build the FFmpeg engine
//   - noh264: do not load libmedia_h264 in the native engine
//
// Pipelines are synchronous and not safe for concurrent use.
package videoio

// Command semgserial reads a multichannel EMG stream from a serial
// acquisition board, removes the cardiac artifact and logs detected beats
// and channel envelopes.
//
// Packet format: one sample per channel as little-endian float32, followed
// by the two-byte stop sequence "\r\n". A packet with a wrong stop sequence
// triggers a resync to the next packet boundary.
//
// Usage:
//
//	semgserial -port /dev/ttyUSB0 -baud 460800 -channels 2 -rate 1024
package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"flag"
	"os"
	osSignal "os/signal"
	"time"

	"go.bug.st/serial"
	"go.uber.org/zap"

	"github.com/openbiosig/semg-ecg-removal/semgfilter"
)

var stopSequence = []byte{'\r', '\n'}

func main() {
	var (
		portName   = flag.String("port", "/dev/ttyUSB0", "serial port")
		baud       = flag.Int("baud", 460800, "baud rate")
		channels   = flag.Int("channels", 2, "channel count per packet")
		sampleRate = flag.Float64("rate", 1024, "sample rate Hz")
		batch      = flag.Int("batch", 32, "samples per processing block")
	)
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer logger.Sync()

	port, err := serial.Open(*portName, &serial.Mode{BaudRate: *baud})
	if err != nil {
		logger.Fatal("opening serial port", zap.Error(err), zap.String("port", *portName))
	}
	defer port.Close()

	port.SetReadTimeout(5 * time.Millisecond)
	port.ResetInputBuffer()

	f, err := semgfilter.New(*channels, semgfilter.WithSampleRate(*sampleRate))
	if err != nil {
		logger.Fatal("creating session", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	sig := make(chan os.Signal, 1)
	osSignal.Notify(sig, os.Interrupt)
	go func() {
		<-sig
		cancel()
	}()

	r := &reader{
		port:       port,
		logger:     logger,
		packet:     make([]byte, 4**channels+len(stopSequence)),
		sampleBuff: make([]float32, *channels),
	}
	r.resync()

	run(ctx, r, f, logger, *batch)
}

func run(ctx context.Context, r *reader, f *semgfilter.Filter, logger *zap.Logger, batch int) {
	block := make([][]float64, f.Channels())
	for ch := range block {
		block[ch] = make([]float64, 0, batch)
	}
	beatsSeen := 0

	for {
		select {
		case <-ctx.Done():
			logger.Info("exiting read loop",
				zap.Int("beats", len(f.Beats())),
				zap.Uint64("invalid samples", f.InvalidSamples()))
			return
		default:
		}

		frame, err := r.readFrame()
		if err != nil {
			logger.Warn("reading packet", zap.Error(err))
			r.resync()
			continue
		}
		for ch := range block {
			block[ch] = append(block[ch], float64(frame[ch]))
		}
		if len(block[0]) < batch {
			continue
		}

		_, envs, err := f.ProcessBlock(block)
		if err != nil {
			logger.Error("processing block", zap.Error(err))
			return
		}
		for ch := range block {
			block[ch] = block[ch][:0]
		}

		beats := f.Beats()
		for _, b := range beats[beatsSeen:] {
			logger.Info("beat",
				zap.Int64("sample", b.Index),
				zap.Int("channel", b.Channel),
				zap.Float64("bpm", f.HeartRate()),
				zap.Float64("envelope", envs[b.Channel][len(envs[b.Channel])-1]))
		}
		beatsSeen = len(beats)
	}
}

type reader struct {
	port       serial.Port
	logger     *zap.Logger
	packet     []byte
	sampleBuff []float32
}

// readFrame blocks until a full packet arrived and returns one float32
// sample per channel. A wrong stop sequence returns an error without
// consuming further bytes.
func (r *reader) readFrame() ([]float32, error) {
	count := 0
	for count < len(r.packet) {
		n, err := r.port.Read(r.packet[count:])
		if err != nil {
			return nil, err
		}
		count += n
	}
	if !bytes.Equal(r.packet[len(r.packet)-len(stopSequence):], stopSequence) {
		return nil, &outOfSyncError{sequence: append([]byte(nil), r.packet...)}
	}
	payload := r.packet[:len(r.packet)-len(stopSequence)]
	if err := binary.Read(bytes.NewReader(payload), binary.LittleEndian, r.sampleBuff); err != nil {
		return nil, err
	}
	return r.sampleBuff, nil
}

// resync consumes bytes until the end of a stop sequence, so the next read
// starts on a packet boundary.
func (r *reader) resync() {
	r.logger.Warn("resyncing serial stream")
	onebyte := make([]byte, 1)
	for onebyte[0] != stopSequence[len(stopSequence)-1] {
		if _, err := r.port.Read(onebyte); err != nil {
			r.logger.Warn("resync read", zap.Error(err))
		}
	}
}

type outOfSyncError struct {
	sequence []byte
}

func (e *outOfSyncError) Error() string {
	return "incorrect stop sequence in packet"
}

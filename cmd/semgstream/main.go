// Command semgstream connects the artifact-removal session to NATS.
//
// In produce mode it publishes a synthetic contaminated EMG stream in real
// time; in denoise mode it subscribes to a raw stream, removes the cardiac
// artifact and republishes the denoised samples together with heart-rate
// parameter messages.
//
// Wire format: each message carries one batch of little-endian float32
// samples, interleaved by channel (s0c0 s0c1 ... s1c0 s1c1 ...).
//
// Usage:
//
//	semgstream -mode produce [flags]
//	semgstream -mode denoise [flags]
package main

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	osSignal "os/signal"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/openbiosig/semg-ecg-removal/dsp/signal"
	"github.com/openbiosig/semg-ecg-removal/semgfilter"
)

// ParamMsg is the JSON heart-rate message published on the parameter subject
// whenever a beat is detected.
type ParamMsg struct {
	Ts      int64   `json:"ts"`
	Beat    int64   `json:"beat"`
	Channel int     `json:"channel"`
	HR      float64 `json:"hr"`
}

func main() {
	var (
		mode       = flag.String("mode", "denoise", "produce or denoise")
		natsURL    = flag.String("nats", nats.DefaultURL, "NATS url")
		rawSubj    = flag.String("raw", "semg.raw", "raw sample subject")
		cleanSubj  = flag.String("clean", "semg.clean", "denoised sample subject")
		paramSubj  = flag.String("params", "semg.params", "heart-rate parameter subject")
		sampleRate = flag.Float64("rate", 1024, "sample rate Hz")
		channels   = flag.Int("channels", 2, "channel count")
		batch      = flag.Int("batch", 32, "samples per message")
		heartRate  = flag.Float64("hr", 72, "simulated heart rate bpm (produce mode)")
	)
	flag.Parse()

	nc, err := connect(*natsURL)
	if err != nil {
		log.Fatal(err)
	}
	defer nc.Drain()

	switch *mode {
	case "produce":
		produce(nc, *rawSubj, *sampleRate, *channels, *batch, *heartRate)
	case "denoise":
		denoise(nc, *rawSubj, *cleanSubj, *paramSubj, *sampleRate, *channels)
	default:
		log.Fatalf("unknown mode %q, want produce or denoise", *mode)
	}
}

func connect(url string) (*nats.Conn, error) {
	return nats.Connect(
		url,
		nats.Name("semgstream"),
		nats.Timeout(3*time.Second),
		nats.ReconnectWait(500*time.Millisecond),
		nats.MaxReconnects(-1),
	)
}

// produce publishes a contaminated two-source signal per channel, paced at
// the sample rate.
func produce(nc *nats.Conn, subject string, sampleRate float64, channels, batch int, heartRate float64) {
	gen, err := signal.NewGenerator(sampleRate, time.Now().UnixNano())
	if err != nil {
		log.Fatal(err)
	}
	// Pre-generate a long looping buffer per channel; sample-by-sample
	// filtered noise generation is not worth the complexity here.
	n := 60 * int(sampleRate)
	src := make([][]float64, channels)
	for ch := range src {
		emg, err := gen.BandlimitedNoise(30, 150, 0.3, n)
		if err != nil {
			log.Fatal(err)
		}
		ecg, err := gen.ECGPulseTrain(heartRate/60, 1/float64(ch+1), n)
		if err != nil {
			log.Fatal(err)
		}
		if err := signal.Add(emg, ecg); err != nil {
			log.Fatal(err)
		}
		src[ch] = emg
	}

	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 1)
	osSignal.Notify(ch, os.Interrupt)
	go func() {
		<-ch
		cancel()
	}()

	ticker := time.NewTicker(time.Duration(float64(batch) * float64(time.Second) / sampleRate))
	defer ticker.Stop()

	pos := 0
	out := make([]byte, 4*batch*channels)
	for {
		select {
		case <-ctx.Done():
			log.Println("producer: stopping")
			return
		case <-ticker.C:
			for i := 0; i < batch; i++ {
				for c := 0; c < channels; c++ {
					v := float32(src[c][(pos+i)%n])
					binary.LittleEndian.PutUint32(out[4*(i*channels+c):], math.Float32bits(v))
				}
			}
			pos = (pos + batch) % n
			if err := nc.Publish(subject, out); err != nil {
				log.Printf("publish: %v", err)
			}
		}
	}
}

func denoise(nc *nats.Conn, rawSubj, cleanSubj, paramSubj string, sampleRate float64, channels int) {
	f, err := semgfilter.New(channels, semgfilter.WithSampleRate(sampleRate))
	if err != nil {
		log.Fatal(err)
	}

	block := make([][]float64, channels)
	beatsSeen := 0

	// NATS delivers messages for one subscription sequentially, so the
	// single-writer session is safe inside the callback.
	_, err = nc.Subscribe(rawSubj, func(msg *nats.Msg) {
		frames := len(msg.Data) / (4 * channels)
		if frames == 0 {
			return
		}
		for ch := range block {
			if cap(block[ch]) < frames {
				block[ch] = make([]float64, frames)
			}
			block[ch] = block[ch][:frames]
		}
		for i := 0; i < frames; i++ {
			for c := 0; c < channels; c++ {
				bits := binary.LittleEndian.Uint32(msg.Data[4*(i*channels+c):])
				block[c][i] = float64(math.Float32frombits(bits))
			}
		}

		denoised, _, err := f.ProcessBlock(block)
		if err != nil {
			log.Printf("process: %v", err)
			return
		}

		out := make([]byte, 4*frames*channels)
		for i := 0; i < frames; i++ {
			for c := 0; c < channels; c++ {
				binary.LittleEndian.PutUint32(out[4*(i*channels+c):],
					math.Float32bits(float32(denoised[c][i])))
			}
		}
		if err := nc.Publish(cleanSubj, out); err != nil {
			log.Printf("publish: %v", err)
		}

		beats := f.Beats()
		for _, b := range beats[beatsSeen:] {
			param := ParamMsg{
				Ts:      time.Now().UnixMilli(),
				Beat:    b.Index,
				Channel: b.Channel,
				HR:      f.HeartRate(),
			}
			data, _ := json.Marshal(param)
			if err := nc.Publish(paramSubj, data); err != nil {
				log.Printf("publish: %v", err)
			}
			log.Printf("beat at %d on channel %d, %.1f bpm", b.Index, b.Channel, f.HeartRate())
		}
		beatsSeen = len(beats)
	})
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("denoising %s -> %s (%d channels @ %g Hz, delay %d samples)\n",
		rawSubj, cleanSubj, channels, sampleRate, f.Delay())
	select {}
}

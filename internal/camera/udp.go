package camera

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"teachablecam/internal/logger"
	"teachablecam/internal/media"

	"gocv.io/x/gocv"
)

// UDPPrefix marks a CAMERA_DEVICE value as a UDP listen address, e.g. "udp::9000".
const UDPPrefix = "udp:"

const udpPacketSize = 2048

var (
	jpegHeader = []byte{0xFF, 0xD8}
	jpegFooter = []byte{0xFF, 0xD9}
)

// Assembler rebuilds JPEG images from a stream of packets. A packet starting
// with the JPEG header begins a new image; one ending with the footer
// completes it.
type Assembler struct {
	buf bytes.Buffer
}

// Push adds a packet and returns a complete image, or nil.
func (a *Assembler) Push(packet []byte) []byte {
	if bytes.HasPrefix(packet, jpegHeader) {
		a.buf.Reset()
	}
	a.buf.Write(packet)

	if !bytes.HasSuffix(packet, jpegFooter) {
		return nil
	}
	full := make([]byte, a.buf.Len())
	copy(full, a.buf.Bytes())
	a.buf.Reset()
	return full
}

// UDPSource receives JPEG frames pushed by a network camera.
type UDPSource struct {
	addr   string
	warmup time.Duration
	logger *logger.Logger
}

// NewUDPSource listens on addr once Acquire is called.
func NewUDPSource(addr string, warmup time.Duration, logger *logger.Logger) *UDPSource {
	return &UDPSource{addr: addr, warmup: warmup, logger: logger}
}

// NewSourceFor picks the UDP source for "udp:" devices and the OpenCV device otherwise.
func NewSourceFor(device string, local *Source) media.Source {
	if !strings.HasPrefix(device, UDPPrefix) {
		return local
	}
	return NewUDPSource(strings.TrimPrefix(device, UDPPrefix), local.warmup, local.logger)
}

// Acquire starts listening and waits for the first complete frame.
func (s *UDPSource) Acquire(ctx context.Context) (media.Stream, error) {
	addr, err := net.ResolveUDPAddr("udp", s.addr)
	if err != nil {
		return nil, &media.UnsupportedEnvironmentError{Device: UDPPrefix + s.addr, Err: err}
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, &media.UnsupportedEnvironmentError{Device: UDPPrefix + s.addr, Err: err}
	}
	s.logger.Info("UDP camera listening on %s", conn.LocalAddr())

	stream := &UDPStream{
		conn:   conn,
		ready:  make(chan struct{}),
		logger: s.logger,
	}
	stream.wg.Add(1)
	go stream.receiveLoop()

	timer := time.NewTimer(s.warmup)
	defer timer.Stop()

	select {
	case <-stream.ready:
		return stream, nil
	case <-ctx.Done():
		stream.Close()
		return nil, ctx.Err()
	case <-timer.C:
		stream.Close()
		return nil, fmt.Errorf("camera %s%s: no frame within %s", UDPPrefix, s.addr, s.warmup)
	}
}

// UDPStream keeps the last complete JPEG received.
type UDPStream struct {
	conn   *net.UDPConn
	logger *logger.Logger

	mu     sync.Mutex
	latest []byte
	width  int
	height int

	ready     chan struct{}
	readyOnce sync.Once
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func (s *UDPStream) receiveLoop() {
	defer s.wg.Done()

	packet := make([]byte, udpPacketSize)
	senders := make(map[string]*Assembler)

	for {
		n, remote, err := s.conn.ReadFromUDP(packet)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Error("Error reading UDP packet: %v", err)
			continue
		}

		key := remote.String()
		assembler, ok := senders[key]
		if !ok {
			assembler = &Assembler{}
			senders[key] = assembler
		}

		full := assembler.Push(packet[:n])
		if full == nil {
			continue
		}
		s.store(full)
	}
}

func (s *UDPStream) store(data []byte) {
	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil || mat.Empty() {
		mat.Close()
		s.logger.Warning("Dropping undecodable frame of %d bytes", len(data))
		return
	}
	w, h := mat.Cols(), mat.Rows()
	mat.Close()

	s.mu.Lock()
	s.latest = data
	s.width, s.height = w, h
	s.mu.Unlock()

	s.readyOnce.Do(func() { close(s.ready) })
}

// Capture decodes the latest JPEG into a new Frame owned by the caller.
func (s *UDPStream) Capture() (media.Frame, error) {
	s.mu.Lock()
	data := s.latest
	s.mu.Unlock()

	if data == nil {
		return nil, ErrNoFrame
	}
	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}
	return NewFrame(mat), nil
}

func (s *UDPStream) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

// Close stops listening.
func (s *UDPStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.conn.Close()
		s.wg.Wait()
	})
	return err
}

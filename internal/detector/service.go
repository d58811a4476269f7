package detector

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// ServiceDetector implements Detector using long-lived Python dlib helper processes.
// Up to Config.Processes helpers run at once; each serves one frame at a time.
// Helpers are started lazily on first use. A helper that does not answer
// within Config.Timeout is killed and replaced.
type ServiceDetector struct {
	config  Config
	python  string
	script  string
	timeout time.Duration

	idle  chan *serviceProcess
	slots chan struct{}

	mu      sync.Mutex
	running map[*serviceProcess]struct{}
	closed  bool
}

// NewServiceDetector creates a new ServiceDetector.
func NewServiceDetector(config Config) (*ServiceDetector, error) {
	python, script, err := resolveHelper(config)
	if err != nil {
		return nil, err
	}

	n := config.Processes
	if n <= 0 {
		n = 1
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultConfig().Timeout
	}

	return &ServiceDetector{
		config:  config,
		python:  python,
		script:  script,
		timeout: timeout,
		idle:    make(chan *serviceProcess, n),
		slots:   make(chan struct{}, n),
		running: make(map[*serviceProcess]struct{}),
	}, nil
}

// Detect sends img to a helper and returns the landmarks of every face found.
func (d *ServiceDetector) Detect(img gocv.Mat) ([]Landmarks, error) {
	data, err := encodeFrame(img)
	if err != nil {
		return nil, err
	}

	p, err := d.acquire()
	if err != nil {
		return nil, err
	}

	timer := time.AfterFunc(d.timeout, p.kill)
	faces, err := p.roundTrip(data)
	if !timer.Stop() {
		d.discard(p)
		return nil, fmt.Errorf("landmark helper timeout after %s", d.timeout)
	}
	if err != nil {
		// The stream may be out of sync; never reuse this helper.
		d.discard(p)
		return nil, err
	}

	d.release(p)
	return faces, nil
}

// Close shuts down every helper process.
func (d *ServiceDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closed = true

	var errs []error
	for p := range d.running {
		if err := p.shutdown(); err != nil {
			errs = append(errs, err)
		}
		delete(d.running, p)
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}
	return nil
}

func (d *ServiceDetector) acquire() (*serviceProcess, error) {
	select {
	case p := <-d.idle:
		return p, nil
	default:
	}

	select {
	case p := <-d.idle:
		return p, nil
	case d.slots <- struct{}{}:
		p, err := d.start()
		if err != nil {
			<-d.slots
			return nil, err
		}
		return p, nil
	}
}

func (d *ServiceDetector) release(p *serviceProcess) {
	d.mu.Lock()
	closed := d.closed
	d.mu.Unlock()

	if closed {
		d.discard(p)
		return
	}
	d.idle <- p
}

func (d *ServiceDetector) discard(p *serviceProcess) {
	d.mu.Lock()
	delete(d.running, p)
	d.mu.Unlock()

	p.shutdown()
	<-d.slots
}

func (d *ServiceDetector) start() (*serviceProcess, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, errors.New("detector is closed")
	}

	cmd := exec.Command(d.python, helperArgs(d.script, d.config)...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}

	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start landmark service: %w", err)
	}

	p := &serviceProcess{
		cmd:    cmd,
		stdin:  stdin,
		stdout: bufio.NewReader(stdout),
	}
	d.running[p] = struct{}{}
	return p, nil
}

// serviceProcess is one running helper.
type serviceProcess struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
	once   sync.Once
	err    error
}

// roundTrip writes a length-prefixed frame and reads one JSON line back.
func (p *serviceProcess) roundTrip(data []byte) ([]Landmarks, error) {
	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(data)))

	if _, err := p.stdin.Write(length); err != nil {
		return nil, fmt.Errorf("write length: %w", err)
	}
	if _, err := p.stdin.Write(data); err != nil {
		return nil, fmt.Errorf("write data: %w", err)
	}

	line, err := p.stdout.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return parseResponse(line)
}

// kill stops a helper that stopped answering; the blocked read then fails.
func (p *serviceProcess) kill() {
	if p.cmd.Process != nil {
		p.cmd.Process.Kill()
	}
}

func (p *serviceProcess) shutdown() error {
	p.once.Do(func() {
		if p.stdin != nil {
			p.stdin.Close()
		}
		p.err = p.cmd.Wait()
	})
	return p.err
}

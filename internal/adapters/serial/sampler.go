package serial

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/dorsic/sr620/internal/ports"
)

// Command pairs an instrument command with the human description logged when
// it is issued during setup.
type Command struct {
	Command     string `yaml:"command"`
	Description string `yaml:"description"`
}

// Config captures the runtime details required to drive a serial-attached
// instrument. The defaults target an SRS SR620 counter in A-B time interval
// mode at 9600 8N1.
type Config struct {
	Device          string        `yaml:"device"`
	BaudRate        int           `yaml:"baud_rate"`
	Timeout         time.Duration `yaml:"timeout"`
	ReadCommand     string        `yaml:"read_command"`
	StartCommand    string        `yaml:"start_command"`
	ReleaseCommand  string        `yaml:"release_command"`
	SetupCommands   []Command     `yaml:"setup_commands"`
	TriggerLevel    *float64      `yaml:"trigger_level"`
	ConfigureOnOpen bool          `yaml:"configure_on_open"`
	StartOnOpen     *bool         `yaml:"start_on_open"`
}

func (c *Config) ApplyDefaults() {
	if c.Device == "" {
		c.Device = "/dev/ttyAMA0"
	}
	if c.BaudRate == 0 {
		c.BaudRate = 9600
	}
	if c.Timeout <= 0 {
		c.Timeout = 3 * time.Second
	}
	if c.ReadCommand == "" {
		c.ReadCommand = "*WAI;XAVG?"
	}
	if c.StartCommand == "" {
		c.StartCommand = "STRT"
	}
	if c.ReleaseCommand == "" {
		c.ReleaseCommand = "LOCL0"
	}
	if c.SetupCommands == nil {
		c.SetupCommands = DefaultSetupCommands()
	}
	if c.StartOnOpen == nil {
		start := true
		c.StartOnOpen = &start
	}
}

// DefaultSetupCommands is the stock SR620 configuration sequence: A-B time
// interval mode, single sample, DC-coupled 50 Ohm inputs, normal trigger on
// the positive slope at 1.5 V. An explicit empty setup_commands list in the
// config suppresses it.
func DefaultSetupCommands() []Command {
	return []Command{
		{Command: "*RST", Description: "Counter reset and prepared for configuration."},
		{Command: "MODE 0;SIZE 1;SRCE 0", Description: "Time mode selected, sample size 1, source A."},
		{Command: "TCPL 1,0;TCPL 2,0", Description: "Channels A and B set to be DC coupled."},
		{Command: "TERM 1,0;TERM 2,0", Description: "Channels A and B set to be 50 Ohm terminated."},
		{Command: "TMOD 1,0;TMOD 2,0", Description: "Channels A and B trigger mode normal."},
		{Command: "TSLP 1,0;TSLP 2,0", Description: "Channels A and B trigger slope positive."},
		{Command: "LEVL 1,1.5;LEVL 2,1.5", Description: "Trigger levels of channels A and B set to 1.5V."},
		{Command: "ARMM 0;AUTM 1;DREL 0", Description: "Arming mode +-time, automode on, display release off."},
	}
}

func (c *Config) Validate() error {
	if c.Device == "" {
		return errors.New("device is required")
	}
	if c.BaudRate <= 0 {
		return fmt.Errorf("baud_rate must be > 0, got %d", c.BaudRate)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be > 0, got %s", c.Timeout)
	}
	if c.ReadCommand == "" {
		return errors.New("read_command is required")
	}
	return nil
}

// Sampler drives the instrument over a serial port with a strict
// one-command, one-line-response exchange per ReadValue call.
type Sampler struct {
	mu   sync.Mutex
	cfg  Config
	port serial.Port
	obs  ports.Observability
}

// NewSampler opens the serial port and optionally configures and starts the
// measurement. Any error here is fatal at startup. obs may be nil, silencing
// the setup progress log.
func NewSampler(cfg Config, obs ports.Observability) (*Sampler, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(cfg.Device, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", cfg.Device, err)
	}
	if err := port.SetReadTimeout(cfg.Timeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("set read timeout: %w", err)
	}

	s := &Sampler{cfg: cfg, port: port, obs: obs}
	if cfg.ConfigureOnOpen {
		if err := s.configure(); err != nil {
			_ = port.Close()
			return nil, fmt.Errorf("configure instrument: %w", err)
		}
	} else if cfg.TriggerLevel != nil {
		if err := s.setTriggerLevel(*cfg.TriggerLevel); err != nil {
			_ = port.Close()
			return nil, fmt.Errorf("set trigger level: %w", err)
		}
	}
	if *cfg.StartOnOpen {
		if err := s.send(cfg.StartCommand); err != nil {
			_ = port.Close()
			return nil, fmt.Errorf("start measurement: %w", err)
		}
	}
	return s, nil
}

// ReadValue issues the configured read command and blocks for one response
// line, bounded by the port read timeout. The payload must parse as a
// number; it is returned verbatim.
func (s *Sampler) ReadValue(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.port == nil {
		return "", errors.New("serial port closed")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if err := s.send(s.cfg.ReadCommand); err != nil {
		return "", fmt.Errorf("send read command: %w", err)
	}
	line, err := s.readLine()
	if err != nil {
		return "", err
	}
	if _, err := strconv.ParseFloat(line, 64); err != nil {
		return "", fmt.Errorf("%w: %q", ports.ErrMalformed, line)
	}
	return line, nil
}

// Close releases the instrument to local mode and closes the port. Safe to
// call more than once.
func (s *Sampler) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return nil
	}
	// Best effort; the port may already be gone.
	_ = s.send(s.cfg.ReleaseCommand)
	err := s.port.Close()
	s.port = nil
	return err
}

// configure queries the instrument identity and error status for the log,
// then replays the setup command sequence, pacing commands so the
// instrument's parser keeps up, and applies the trigger level override.
// Each setup command's description is logged as operator-visible progress.
func (s *Sampler) configure() error {
	for _, q := range []string{"*IDN?", "ERRS?"} {
		resp, err := s.query(q)
		if err != nil {
			s.logError("instrument_query_failed", err, ports.Field{Key: "command", Value: q})
			continue
		}
		s.logInfo("instrument_query", ports.Field{Key: "command", Value: q}, ports.Field{Key: "response", Value: resp})
	}

	for _, cmd := range s.cfg.SetupCommands {
		if err := s.send(cmd.Command); err != nil {
			return fmt.Errorf("setup command %q: %w", cmd.Command, err)
		}
		s.logInfo(cmd.Description, ports.Field{Key: "command", Value: cmd.Command})
		time.Sleep(100 * time.Millisecond)
	}
	if s.cfg.TriggerLevel != nil {
		return s.setTriggerLevel(*s.cfg.TriggerLevel)
	}
	return nil
}

func (s *Sampler) setTriggerLevel(level float64) error {
	if err := s.send(fmt.Sprintf("LEVL 1,%g;LEVL 2,%g", level, level)); err != nil {
		return err
	}
	s.logInfo("trigger_level_set", ports.Field{Key: "level_volts", Value: level})
	return nil
}

// query writes one command and reads its one-line response.
func (s *Sampler) query(cmd string) (string, error) {
	if err := s.send(cmd); err != nil {
		return "", err
	}
	return s.readLine()
}

func (s *Sampler) logInfo(msg string, fields ...ports.Field) {
	if s.obs != nil {
		s.obs.LogInfo(msg, fields...)
	}
}

func (s *Sampler) logError(msg string, err error, fields ...ports.Field) {
	if s.obs != nil {
		s.obs.LogError(msg, err, fields...)
	}
}

// send discards any stale input and writes one LF-terminated command.
func (s *Sampler) send(cmd string) error {
	if err := s.port.ResetInputBuffer(); err != nil {
		return err
	}
	if _, err := s.port.Write([]byte(cmd + "\n")); err != nil {
		return err
	}
	return s.port.Drain()
}

// readLine reads bytes until LF. A read window expiring with no terminator
// is a timeout; a partial line is reported with the fragment for debugging.
func (s *Sampler) readLine() (string, error) {
	var (
		buf  [1]byte
		line []byte
	)
	for {
		n, err := s.port.Read(buf[:])
		if err != nil {
			return "", fmt.Errorf("serial read: %w", err)
		}
		if n == 0 {
			if len(line) == 0 {
				return "", ports.ErrReadTimeout
			}
			return "", fmt.Errorf("%w: partial response %q", ports.ErrReadTimeout, line)
		}
		if buf[0] == '\n' {
			return strings.TrimRight(string(line), "\r"), nil
		}
		line = append(line, buf[0])
	}
}

var _ ports.Sampler = (*Sampler)(nil)

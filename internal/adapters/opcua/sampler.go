package opcua

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gopcua/opcua"
	"github.com/gopcua/opcua/ua"

	"github.com/dorsic/sr620/internal/ports"
)

// Config captures the runtime details required to open an OPC UA session to
// an instrument gateway exposing the measurement as a single node.
type Config struct {
	Endpoint        string        `yaml:"endpoint"`
	NodeID          string        `yaml:"node_id"`
	Username        string        `yaml:"username"`
	Password        string        `yaml:"password"`
	SecurityMode    string        `yaml:"security_mode"`
	SecurityPolicy  string        `yaml:"security_policy"`
	ApplicationName string        `yaml:"application_name"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
}

func (c *Config) ApplyDefaults() {
	if c.SecurityMode == "" {
		c.SecurityMode = "None"
	}
	if c.SecurityPolicy == "" {
		c.SecurityPolicy = "None"
	}
	if c.ApplicationName == "" {
		c.ApplicationName = "sr620 logger"
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 3 * time.Second
	}
}

func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return errors.New("endpoint is required")
	}
	if c.NodeID == "" {
		return errors.New("node_id is required")
	}
	return nil
}

// Sampler reads one attribute value per ReadValue call, mirroring the
// query/response cadence of the serial instrument.
type Sampler struct {
	cfg    Config
	client *opcua.Client
	nodeID *ua.NodeID
}

func NewSampler(ctx context.Context, cfg Config) (*Sampler, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	nodeID, err := ua.ParseNodeID(cfg.NodeID)
	if err != nil {
		return nil, fmt.Errorf("parse node id %q: %w", cfg.NodeID, err)
	}

	client, err := opcua.NewClient(cfg.Endpoint, buildClientOptions(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("opcua new client: %w", err)
	}
	if err := client.Connect(ctx); err != nil {
		return nil, fmt.Errorf("opcua connect: %w", err)
	}

	return &Sampler{cfg: cfg, client: client, nodeID: nodeID}, nil
}

func (s *Sampler) ReadValue(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ReadTimeout)
	defer cancel()

	req := &ua.ReadRequest{
		NodesToRead: []*ua.ReadValueID{
			{NodeID: s.nodeID, AttributeID: ua.AttributeIDValue},
		},
		TimestampsToReturn: ua.TimestampsToReturnNeither,
	}

	resp, err := s.client.Read(ctx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", ports.ErrReadTimeout
		}
		return "", fmt.Errorf("opcua read: %w", err)
	}
	if len(resp.Results) == 0 {
		return "", fmt.Errorf("%w: empty read result", ports.ErrMalformed)
	}

	dv := resp.Results[0]
	if dv.Status != ua.StatusOK {
		return "", fmt.Errorf("%w: status %s", ports.ErrMalformed, dv.Status)
	}
	if dv.Value == nil {
		return "", fmt.Errorf("%w: null value", ports.ErrMalformed)
	}
	fv, ok := variantToFloat(dv.Value)
	if !ok {
		return "", fmt.Errorf("%w: unsupported value type %T", ports.ErrMalformed, dv.Value.Value())
	}
	return strconv.FormatFloat(fv, 'G', -1, 64), nil
}

func (s *Sampler) Close() error {
	if s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.client.Close(ctx)
	s.client = nil
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func buildClientOptions(cfg Config) []opcua.Option {
	opts := []opcua.Option{
		opcua.SecurityModeString(normalizeSecurityMode(cfg.SecurityMode)),
		opcua.SecurityPolicy(normalizeSecurityPolicy(cfg.SecurityPolicy)),
		opcua.ApplicationName(cfg.ApplicationName),
		opcua.AutoReconnect(true),
	}
	if cfg.Username != "" {
		opts = append(opts, opcua.AuthUsername(cfg.Username, cfg.Password))
	} else {
		opts = append(opts, opcua.AuthAnonymous())
	}
	return opts
}

func variantToFloat(v *ua.Variant) (float64, bool) {
	if v == nil {
		return 0, false
	}

	switch val := v.Value().(type) {
	case float32:
		return float64(val), true
	case float64:
		return val, true
	case int8:
		return float64(val), true
	case uint8:
		return float64(val), true
	case int16:
		return float64(val), true
	case uint16:
		return float64(val), true
	case int32:
		return float64(val), true
	case uint32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint64:
		return float64(val), true
	default:
		return 0, false
	}
}

func normalizeSecurityMode(mode string) string {
	switch strings.ToLower(mode) {
	case "sign":
		return "Sign"
	case "signandencrypt", "signencrypt", "sign_and_encrypt", "sign+encrypt":
		return "SignAndEncrypt"
	default:
		return "None"
	}
}

func normalizeSecurityPolicy(policy string) string {
	if policy == "" {
		return "None"
	}
	return policy
}

var _ ports.Sampler = (*Sampler)(nil)

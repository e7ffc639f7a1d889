package strategy

import (
	"fmt"
	"io"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"
)

// PolicyKind names a choke policy.
type PolicyKind string

const (
	// PolicySimple unchokes the top requesters by last round's download (tit-for-tat).
	PolicySimple PolicyKind = "simple"
	// PolicyAuction ranks requesters by expected return per unit of upload.
	PolicyAuction PolicyKind = "auction"
)

// ExploreKind names an optimistic unchoke strategy.
type ExploreKind string

const (
	ExploreRandom ExploreKind = "random"
	ExploreRarest ExploreKind = "rarest"
)

// Disabled switches off Alpha or Gamma, whose zero value means the default.
const Disabled = -1.0

const (
	defaultMaxRequests        = 4
	defaultUnchokeSlots       = 3
	defaultBootstrapSlots     = 4
	defaultMaxRecipients      = 4
	defaultOptimisticInterval = 3
	defaultAlpha              = 0.2
	defaultGamma              = 0.1
	defaultReciprocityRounds  = 3
	defaultFanOut             = 4
	defaultEpsilon            = 1e-6
)

// Config tunes one agent. Zero values take the defaults below.
type Config struct {
	BlocksPerPiece  int
	MaxRequests     int
	UploadBandwidth int

	Policy  PolicyKind
	Explore ExploreKind

	// UnchokeSlots is the number of regular unchokes under PolicySimple.
	UnchokeSlots int
	// BootstrapSlots is the number of random unchokes in round 0.
	BootstrapSlots int
	// MaxRecipients caps recipients once an optimistic unchoke is added.
	MaxRecipients int
	// OptimisticInterval fires exploration when round % OptimisticInterval == 0.
	OptimisticInterval int

	// Alpha grows the upload demanded from a peer that did not reciprocate.
	// Set it to Disabled for no growth.
	Alpha float64
	// Gamma discounts it after ReciprocityRounds consecutive reciprocations.
	// Set it to Disabled for no decay.
	Gamma             float64
	ReciprocityRounds int
	// FanOut is the assumed number of peers a non-reciprocating peer splits
	// its upload across. It only feeds an approximation of that peer's capacity.
	FanOut int
	// Epsilon floors min upload estimates so ratios stay finite.
	Epsilon float64

	Seed   int64
	Rand   *rand.Rand
	Logger *logrus.Logger
}

func ParsePolicy(s string) (PolicyKind, error) {
	switch PolicyKind(s) {
	case PolicySimple, PolicyAuction:
		return PolicyKind(s), nil
	case "":
		return PolicySimple, nil
	default:
		return "", fmt.Errorf("%w: unknown policy %q", ErrInvalidConfig, s)
	}
}

func ParseExplore(s string) (ExploreKind, error) {
	switch ExploreKind(s) {
	case ExploreRandom, ExploreRarest, "":
		return ExploreKind(s), nil
	default:
		return "", fmt.Errorf("%w: unknown explore mode %q", ErrInvalidConfig, s)
	}
}

func (c Config) withDefaults() Config {
	if c.MaxRequests == 0 {
		c.MaxRequests = defaultMaxRequests
	}
	if c.Policy == "" {
		c.Policy = PolicySimple
	}
	if c.Explore == "" {
		c.Explore = ExploreRandom
		if c.Policy == PolicyAuction {
			c.Explore = ExploreRarest
		}
	}
	if c.UnchokeSlots == 0 {
		c.UnchokeSlots = defaultUnchokeSlots
	}
	if c.BootstrapSlots == 0 {
		c.BootstrapSlots = defaultBootstrapSlots
	}
	if c.MaxRecipients == 0 {
		c.MaxRecipients = defaultMaxRecipients
	}
	if c.OptimisticInterval == 0 {
		c.OptimisticInterval = defaultOptimisticInterval
	}
	if c.Alpha == 0 {
		c.Alpha = defaultAlpha
	}
	if c.Gamma == 0 {
		c.Gamma = defaultGamma
	}
	if c.ReciprocityRounds == 0 {
		c.ReciprocityRounds = defaultReciprocityRounds
	}
	if c.FanOut == 0 {
		c.FanOut = defaultFanOut
	}
	if c.Epsilon == 0 {
		c.Epsilon = defaultEpsilon
	}
	if c.Rand == nil {
		seed := c.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		c.Rand = rand.New(rand.NewSource(seed))
	}
	if c.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		c.Logger = l
	}
	return c
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch {
	case c.BlocksPerPiece <= 0:
		return fmt.Errorf("%w: blocks per piece must be positive, got %d", ErrInvalidConfig, c.BlocksPerPiece)
	case c.MaxRequests < 0:
		return fmt.Errorf("%w: max requests must not be negative, got %d", ErrInvalidConfig, c.MaxRequests)
	case c.UploadBandwidth < 0:
		return fmt.Errorf("%w: upload bandwidth must not be negative, got %d", ErrInvalidConfig, c.UploadBandwidth)
	case c.Alpha < 0 && c.Alpha != Disabled:
		return fmt.Errorf("%w: alpha must not be negative, got %v", ErrInvalidConfig, c.Alpha)
	case (c.Gamma < 0 && c.Gamma != Disabled) || c.Gamma >= 1:
		return fmt.Errorf("%w: gamma must be in [0,1), got %v", ErrInvalidConfig, c.Gamma)
	case c.UnchokeSlots < 0 || c.BootstrapSlots < 0 || c.MaxRecipients < 0:
		return fmt.Errorf("%w: slot counts must not be negative", ErrInvalidConfig)
	case c.OptimisticInterval < 0 || c.ReciprocityRounds < 0 || c.FanOut < 0:
		return fmt.Errorf("%w: intervals must not be negative", ErrInvalidConfig)
	}
	if _, err := ParsePolicy(string(c.Policy)); err != nil {
		return err
	}
	if _, err := ParseExplore(string(c.Explore)); err != nil {
		return err
	}
	return nil
}

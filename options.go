package mailmsg

import (
	"crypto/rand"
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

// env holds the injected environment described in spec §6: a clock, an
// entropy source, and a default hostname. All three are side-effect-only and
// safe to share read-only across concurrently-serialized Messages.
type env struct {
	now      func() time.Time
	entropy  io.Reader
	hostname string
	log      *logrus.Logger
}

func defaultEnv() env {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return env{
		now:      time.Now,
		entropy:  rand.Reader,
		hostname: "localhost",
		log:      log,
	}
}

// withDefaults returns e with any zero-valued field replaced by the package
// default, so a bare Message{} (env left entirely zero) behaves exactly
// like one built via NewMessage(). This is what lets the serialization
// code call m.env.now()/m.env.log/... without a nil-function panic even
// when NewMessage was never called.
func (e env) withDefaults() env {
	def := defaultEnv()
	if e.now == nil {
		e.now = def.now
	}
	if e.entropy == nil {
		e.entropy = def.entropy
	}
	if e.hostname == "" {
		e.hostname = def.hostname
	}
	if e.log == nil {
		e.log = def.log
	}
	return e
}

// Option configures a Message's injected environment. Options are applied in
// order to the defaults, so later options override earlier ones.
type Option func(*env)

// WithClock overrides the source of the current time used to synthesize a
// Date header. Intended for reproducible tests.
func WithClock(now func() time.Time) Option {
	return func(e *env) { e.now = now }
}

// WithEntropy overrides the randomness source used for Message-ID and
// boundary generation. The reader must produce at least 80 bits of entropy
// per read of the sizes this package requests; callers passing a
// deterministic reader (e.g. in tests) get deterministic output.
func WithEntropy(r io.Reader) Option {
	return func(e *env) { e.entropy = r }
}

// WithHostname overrides the domain used in synthesized Message-IDs.
func WithHostname(host string) Option {
	return func(e *env) { e.hostname = host }
}

// WithLogger attaches a logrus.Logger that receives low-frequency
// diagnostic events (boundary regeneration, CTE fallback). A nil logger
// disables logging; the default discards everything.
func WithLogger(log *logrus.Logger) Option {
	return func(e *env) {
		if log == nil {
			log = logrus.New()
			log.SetOutput(io.Discard)
		}
		e.log = log
	}
}

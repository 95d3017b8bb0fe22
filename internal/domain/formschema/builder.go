package formschema

import (
	"time"

	"github.com/google/uuid"
)

// BuilderConfig carries everything the reducer needs from outside.
type BuilderConfig struct {
	// NewID mints field ids.
	NewID func() string
	// Now stamps UpdatedAt on edited forms.
	Now     func() time.Time
	Catalog Catalog
}

// Builder applies actions to forms. It holds no form state of its own and
// is safe for concurrent use.
type Builder struct {
	cfg BuilderConfig
}

// NewBuilder returns a Builder. Unset config entries get defaults: time-based
// UUIDs, the wall clock and DefaultCatalog.
func NewBuilder(cfg BuilderConfig) *Builder {
	if cfg.NewID == nil {
		cfg.NewID = newFieldID
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Catalog.DoseUnits == nil && cfg.Catalog.MeasurementUnits == nil && cfg.Catalog.DurationUnits == nil {
		cfg.Catalog = DefaultCatalog()
	}
	return &Builder{cfg: cfg}
}

// Catalog returns the choice lists the builder validates against.
func (b *Builder) Catalog() Catalog { return b.cfg.Catalog }

func newFieldID() string {
	id, err := uuid.NewUUID()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

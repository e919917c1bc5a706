package codec

import (
	"fmt"
	"path"

	"go.uber.org/zap"

	errs "github.com/geoknoesis/ldproxy/internal/errors"
)

// Registry maps codec names and mimetypes to codecs. Registration happens
// during startup; once frozen the registry is read-only and may be shared
// by concurrent requests without locking.
type Registry struct {
	logger     *zap.Logger
	nameFilter string

	codecs     []Codec
	byName     map[string]Codec
	byMimetype map[string]Codec
	mimetypes  []string
	frozen     bool
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used to report rejected candidates.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Registry) { r.logger = logger }
}

// WithNameFilter restricts discovery to codecs whose name matches glob
// (path.Match syntax). An empty glob admits every codec.
func WithNameFilter(glob string) Option {
	return func(r *Registry) { r.nameFilter = glob }
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		logger:     zap.NewNop(),
		byName:     make(map[string]Codec),
		byMimetype: make(map[string]Codec),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Discover registers every acceptable candidate and returns the descriptors
// of those registered, in order. Candidates failing the capability check,
// excluded by the name filter, or colliding with an earlier name are logged
// and skipped; discovery itself never fails.
func (r *Registry) Discover(candidates []Candidate) []Descriptor {
	var registered []Descriptor
	for _, c := range candidates {
		result := Check(c)
		if !result.OK() {
			r.logger.Warn("Codec candidate rejected",
				zap.String("codec", result.Name),
				zap.Strings("missing", result.Missing))
			continue
		}
		if !r.admits(c.Name()) {
			r.logger.Debug("Codec excluded by name filter",
				zap.String("codec", c.Name()),
				zap.String("filter", r.nameFilter))
			continue
		}
		if err := r.Register(c); err != nil {
			r.logger.Warn("Codec registration skipped",
				zap.String("codec", c.Name()),
				zap.Error(err))
			continue
		}
		registered = append(registered, Describe(c))
	}
	return registered
}

func (r *Registry) admits(name string) bool {
	if r.nameFilter == "" {
		return true
	}
	ok, err := path.Match(r.nameFilter, name)
	return err == nil && ok
}

// Register adds c to the registry. The first codec registered under a name
// keeps it; a mimetype already claimed by an earlier codec stays with that
// codec and the later claim is logged.
func (r *Registry) Register(c Candidate) error {
	if r.frozen {
		return errs.WrapFatal(errs.ErrRegistryFrozen, "Registry", "Register", "frozen check")
	}
	result := Check(c)
	if !result.OK() {
		return errs.WrapInvalid(fmt.Errorf("%w: %s", errs.ErrInvalidCodec, result), "Registry", "Register", "capability check")
	}
	codec := c.(Codec)
	name := codec.Name()
	if _, exists := r.byName[name]; exists {
		return errs.WrapInvalid(fmt.Errorf("%w: %q", errs.ErrRegistryConflict, name), "Registry", "Register", "duplicate name check")
	}

	r.byName[name] = codec
	r.codecs = append(r.codecs, codec)
	for _, mt := range codec.Mimetypes() {
		key := NormalizeMimetype(mt)
		if key == "" {
			continue
		}
		if owner, claimed := r.byMimetype[key]; claimed {
			if owner.Name() != name {
				r.logger.Warn("Mimetype already routed to another codec",
					zap.String("mimetype", key),
					zap.String("codec", name),
					zap.String("owner", owner.Name()))
			}
			continue
		}
		r.byMimetype[key] = codec
		r.mimetypes = append(r.mimetypes, mt)
	}
	r.logger.Debug("Codec registered",
		zap.String("codec", name),
		zap.Strings("mimetypes", codec.Mimetypes()))
	return nil
}

// Freeze makes the registry read-only.
func (r *Registry) Freeze() { r.frozen = true }

// Frozen reports whether Freeze has been called.
func (r *Registry) Frozen() bool { return r.frozen }

// ResolveByName returns the codec registered under name.
func (r *Registry) ResolveByName(name string) (Codec, error) {
	if c, ok := r.byName[name]; ok {
		return c, nil
	}
	return nil, errs.WrapInvalid(fmt.Errorf("%w: name %q", errs.ErrCodecNotFound, name), "Registry", "ResolveByName", "lookup")
}

// ResolveByMimetype returns the codec routed for mimetype. The mimetype is
// normalized first; parameters must match the registered form.
func (r *Registry) ResolveByMimetype(mimetype string) (Codec, error) {
	if c, ok := r.byMimetype[NormalizeMimetype(mimetype)]; ok {
		return c, nil
	}
	return nil, errs.WrapInvalid(fmt.Errorf("%w: mimetype %q", errs.ErrCodecNotFound, mimetype), "Registry", "ResolveByMimetype", "lookup")
}

// Mimetypes returns every routable mimetype as declared, in registration
// order.
func (r *Registry) Mimetypes() []string {
	return append([]string(nil), r.mimetypes...)
}

// Names returns the registered codec names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.codecs))
	for i, c := range r.codecs {
		names[i] = c.Name()
	}
	return names
}

// Codecs returns the descriptors of all registered codecs in registration
// order.
func (r *Registry) Codecs() []Descriptor {
	out := make([]Descriptor, len(r.codecs))
	for i, c := range r.codecs {
		out[i] = Describe(c)
	}
	return out
}

// Len returns the number of registered codecs.
func (r *Registry) Len() int { return len(r.codecs) }

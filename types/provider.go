package types

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/hupe1980/reactivegraph/core"
	"github.com/hupe1980/reactivegraph/logging"
)

// Provider supplies batches of types. A provider implements one or more of
// ComponentProvider, EntityTypeProvider, RelationTypeProvider and
// FlowTypeProvider.
type Provider interface {
	ID() string
}

type ComponentProvider interface {
	Provider
	Components() ([]core.Component, error)
}

type EntityTypeProvider interface {
	Provider
	EntityTypes() ([]core.EntityType, error)
}

type RelationTypeProvider interface {
	Provider
	RelationTypes() ([]core.RelationType, error)
}

type FlowTypeProvider interface {
	Provider
	FlowTypes() ([]core.FlowType, error)
}

// Report maps each type of a batch to its non-empty composition report.
type Report[ID comparable] map[ID]Divergent

func (r Report[ID]) merge(other Report[ID]) Report[ID] {
	if len(other) == 0 {
		return r
	}
	if r == nil {
		r = Report[ID]{}
	}
	for id, div := range other {
		r[id] = div
	}
	return r
}

// ProviderRegistry registers batches of types on behalf of providers and
// remembers which types each provider introduced.
type ProviderRegistry[ID comparable, T any] struct {
	kind     string
	id       func(T) ID
	register func(T) (Divergent, error)
	merge    func(T) (Divergent, error)
	remove   func(ID) bool
	logger   logging.Logger

	mu        sync.Mutex
	providers map[string][]ID
}

// NewProviderRegistry creates a ProviderRegistry over the given register,
// merge and remove operations.
func NewProviderRegistry[ID comparable, T any](
	kind string,
	id func(T) ID,
	register func(T) (Divergent, error),
	merge func(T) (Divergent, error),
	remove func(ID) bool,
	optFns ...func(o *Options),
) *ProviderRegistry[ID, T] {
	opts := buildOptions(optFns)
	return &ProviderRegistry[ID, T]{
		kind:      kind,
		id:        id,
		register:  register,
		merge:     merge,
		remove:    remove,
		logger:    opts.Logger,
		providers: make(map[string][]ID),
	}
}

// RegisterProvider registers every type of batch. A type that already exists
// is merged instead. The report holds the composition problems of every
// type; the error joins the failures of individual types, which do not stop
// the batch.
func (r *ProviderRegistry[ID, T]) RegisterProvider(providerID string, batch []T) (Report[ID], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.providers[providerID]; ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderAlreadyExists, providerID)
	}

	report := Report[ID]{}
	var (
		introduced []ID
		errs       []error
	)
	for _, t := range batch {
		id := r.id(t)
		div, err := r.register(t)
		if errors.Is(err, ErrTypeAlreadyExists) {
			div, err = r.merge(t)
		} else if err == nil {
			introduced = append(introduced, id)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s %v: %w", r.kind, id, err))
			continue
		}
		if !div.IsEmpty() {
			report[id] = div
		}
	}
	r.providers[providerID] = introduced
	r.logger.Info(r.kind+".provider.register",
		"provider", providerID,
		"types", len(batch),
		"introduced", len(introduced),
		"divergent", len(report),
		"failed", len(errs),
	)
	return report, errors.Join(errs...)
}

// UnregisterProvider removes the types the provider introduced and returns
// their ids. Types the provider only merged into are kept.
func (r *ProviderRegistry[ID, T]) UnregisterProvider(providerID string) ([]ID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids, ok := r.providers[providerID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderDoesNotExist, providerID)
	}
	delete(r.providers, providerID)
	var removed []ID
	for _, id := range ids {
		if r.remove(id) {
			removed = append(removed, id)
		}
	}
	r.logger.Info(r.kind+".provider.unregister", "provider", providerID, "removed", len(removed))
	return removed, nil
}

// Providers returns the registered provider ids, sorted.
func (r *ProviderRegistry[ID, T]) Providers() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.providers))
	for id := range r.providers {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// ProvidedBy returns the types a provider introduced.
func (r *ProviderRegistry[ID, T]) ProvidedBy(providerID string) []ID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ID(nil), r.providers[providerID]...)
}

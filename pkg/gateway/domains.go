package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/canopysites/canopy/pkg/protocol"
)

// domainRegistryPrefix is the well-known location of domain mapping
// records, keyed by lowercased hostname.
const domainRegistryPrefix = "domains/"

// DomainMapping is a registry entry mapping a hostname to the base
// location it serves.
type DomainMapping struct {
	Target    string    `json:"target"` // record URI of the owner or build base
	Owner     string    `json:"owner,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// DomainURI is the deterministic registry location for a hostname.
func DomainURI(hostname string) protocol.URI {
	return protocol.URI{
		Scheme: protocol.SchemeMutable,
		Path:   domainRegistryPrefix + strings.ToLower(hostname),
	}
}

// ResolveDomain looks a hostname up in the domain registry. It is the same
// resolver applied to one more well-known location — there is no separate
// algorithm. The mapping is cached alongside targets and manifests.
func (o *Orchestrator) ResolveDomain(ctx context.Context, hostname string) (DomainMapping, error) {
	hostname = strings.ToLower(strings.TrimSuffix(hostname, "."))
	cacheKey := "domain/" + hostname

	if cached, ok := o.cache.Get(cacheKey); ok {
		return cached.(DomainMapping), nil
	}

	payload, err := o.resolver.Resolve(ctx, DomainURI(hostname))
	if err != nil {
		return DomainMapping{}, err
	}

	var mapping DomainMapping
	if err := json.Unmarshal(payload, &mapping); err != nil {
		return DomainMapping{}, fmt.Errorf("gateway: domain record for %s is not valid JSON: %w", hostname, err)
	}
	if mapping.Target == "" {
		return DomainMapping{}, fmt.Errorf("gateway: domain record for %s has no target", hostname)
	}

	o.cache.Set(cacheKey, mapping)
	return mapping, nil
}

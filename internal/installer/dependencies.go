package installer

import (
	"context"
	"fmt"
	"reflect"

	"github.com/hashicorp/go-hclog"

	"github.com/dmcp-project/dmcp/internal/manifest"
	"github.com/dmcp-project/dmcp/internal/store"
)

// RegistryClient looks up server descriptors in registries and at connect manifest URLs.
type RegistryClient interface {
	FindServer(ctx context.Context, urls []string, id string) (*manifest.Document, error)
	FetchDescriptor(ctx context.Context, url string) (*manifest.Document, error)
}

// Stager copies a stdio server's files into its install directory.
type Stager interface {
	Stage(ctx context.Context, src manifest.Source, installDir string) error
}

// Dependencies contains required dependencies for the Engine.
type Dependencies struct {
	// Logger for engine operations.
	Logger hclog.Logger

	// Store performs the read-modify-write cycles on index and manifest files.
	Store *store.Store

	// Registry resolves descriptors for Install and Connect.
	Registry RegistryClient

	// Stager fetches and copies stdio server files.
	Stager Stager
}

// Validate ensures all required dependencies are provided.
func (d Dependencies) Validate() error {
	if d.Logger == nil || reflect.ValueOf(d.Logger).IsNil() {
		return fmt.Errorf("logger cannot be nil")
	}

	if d.Store == nil {
		return fmt.Errorf("store cannot be nil")
	}

	if d.Registry == nil || reflect.ValueOf(d.Registry).IsNil() {
		return fmt.Errorf("registry client cannot be nil")
	}

	if d.Stager == nil || reflect.ValueOf(d.Stager).IsNil() {
		return fmt.Errorf("stager cannot be nil")
	}

	return nil
}

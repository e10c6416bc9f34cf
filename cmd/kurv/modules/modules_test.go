package modules

import (
	"testing"

	"go.uber.org/fx"
)

func TestDependencyGraph(t *testing.T) {
	err := fx.ValidateApp(
		fx.Supply(ConfigPath("testdata/missing.toml")),
		InfraModule,
		TransportModule,
		DomainModule,
		ServerModule,
		fx.NopLogger,
	)
	if err != nil {
		t.Fatalf("invalid dependency graph: %v", err)
	}
}

// Package appid loads the layerprompt app identity. An external
// `.fulmen/app.yaml` (or FULMEN_APP_IDENTITY_PATH) wins; otherwise the
// embedded copy is used so the binary works from any directory.
package appid

import (
	"context"
	"strings"

	"github.com/fulmenhq/gofulmen/appidentity"

	appidentityassets "github.com/layerprompt/layerprompt/internal/assets/appidentity"
)

// DefaultBinaryName is used when no identity can be loaded at all.
const DefaultBinaryName = "layerprompt"

func init() {
	_ = appidentity.RegisterEmbeddedIdentityYAML(appidentityassets.YAML)
}

func Get(ctx context.Context) (*appidentity.Identity, error) {
	return appidentity.Get(ctx)
}

// BinaryName returns the identity binary name, or DefaultBinaryName.
func BinaryName(ctx context.Context) string {
	identity, err := Get(ctx)
	if err != nil || identity == nil || strings.TrimSpace(identity.BinaryName) == "" {
		return DefaultBinaryName
	}
	return identity.BinaryName
}

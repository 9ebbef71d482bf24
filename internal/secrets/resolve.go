// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

package secrets

import (
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	srserr "github.com/PluginsX/SemanticRetrievalSystem/pkg/errors"
)

const scheme = "keyring://"

// IsURI reports whether value is a keyring reference.
func IsURI(value string) bool {
	return strings.HasPrefix(value, scheme)
}

// ParseURI splits keyring://service/key. The key may itself contain slashes.
func ParseURI(uri string) (service, key string, err error) {
	rest, ok := strings.CutPrefix(uri, scheme)
	if !ok {
		return "", "", srserr.Errorf(srserr.CodeSecretURIInvalid, "%q is not a keyring URI", uri)
	}
	service, key, _ = strings.Cut(rest, "/")
	if service == "" || key == "" {
		return "", "", srserr.Errorf(srserr.CodeSecretURIInvalid, "keyring URI %q must be keyring://service/key", uri)
	}
	return service, key, nil
}

// Resolve returns the secret a keyring URI points at, or value itself when it
// is not a keyring URI.
func Resolve(store Store, value string) (string, error) {
	if !IsURI(value) {
		return value, nil
	}
	service, key, err := ParseURI(value)
	if err != nil {
		return "", err
	}
	secret, err := store.Get(service, key)
	if err != nil {
		return "", srserr.Wrapf(err, srserr.CodeSecretResolveFailure, "resolving %s", value)
	}
	return secret, nil
}

// ResolveViper replaces every keyring URI among v's values in place. Values
// that cannot be resolved are left as they are and logged; the provider that
// uses them reports the failure later.
func ResolveViper(v *viper.Viper, store Store) int {
	resolved := 0
	for _, k := range v.AllKeys() {
		raw := v.GetString(k)
		if !IsURI(raw) {
			continue
		}
		secret, err := Resolve(store, raw)
		if err != nil {
			slog.Warn("keyring reference not resolved", "config_key", k, "error", err)
			continue
		}
		v.Set(k, secret)
		resolved++
	}
	return resolved
}

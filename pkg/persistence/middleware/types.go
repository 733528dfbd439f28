// Package middleware provides composable wrappers around the run
// archive store, adding behavior between the caller and persistence.
package middleware

import "github.com/aretw0/storychain/pkg/ports"

// Middleware allows wrapping a RunStore to add behavior.
type Middleware func(ports.RunStore) ports.RunStore

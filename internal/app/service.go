// Package app contains application services that orchestrate use cases.
// This is the application layer in Clean Architecture - it coordinates
// domain logic and infrastructure through ports.
//
// Application Layer Responsibilities:
//   - Orchestrate use cases (borrow, return, reserve, retire)
//   - Route every backend call through a resilience executor
//   - Handle cross-cutting concerns (logging)
//   - Enforce business rules that span multiple entities
//
// What does NOT belong here:
//   - HTTP specifics (that's adapters)
//   - Document store requests (that's store adapters)
//   - Core domain logic (that's the domain layer)
package app

import (
	"context"

	"github.com/google/uuid"

	"github.com/mkarlsen/equiploan/internal/resilience"
)

// newID generates entity identifiers. Overridable for deterministic tests.
var newID = uuid.NewString

// opctx tags an executor call with its originating service and operation.
func opctx(component, operation string) resilience.Context {
	return resilience.Context{Component: component, Operation: operation}
}

// runVoid adapts an error-only backend call to the resilience executor's
// automatic retry path.
func runVoid(ctx context.Context, e *resilience.Executor, op func(context.Context) error, c resilience.Context, opts ...resilience.CallOption) error {
	_, err := resilience.Run(ctx, e, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	}, c, opts...)

	return err
}

// runVoidManual adapts an error-only backend call to the manual-retry path.
func runVoidManual(ctx context.Context, e *resilience.Executor, op func(context.Context) error, c resilience.Context) error {
	_, err := resilience.RunManual(ctx, e, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	}, c)

	return err
}

package authz

import (
	"context"
	"errors"
)

var (
	// ErrNoActor is returned when a permission check has no actor to run
	// against.
	ErrNoActor = errors.New("authz: no current actor")
	// ErrNoOracle is returned when a Gate has no permission oracle.
	ErrNoOracle = errors.New("authz: permission oracle is not configured")
)

// Actor is the identity a permission check runs against.
type Actor interface {
	ActorID() string
}

// Resolver returns the current actor, typically from request scope.
type Resolver interface {
	Resolve(ctx context.Context) (Actor, error)
}

// ResolverFunc adapts a function into a Resolver.
type ResolverFunc func(ctx context.Context) (Actor, error)

// Resolve calls the underlying function.
func (fn ResolverFunc) Resolve(ctx context.Context) (Actor, error) {
	return fn(ctx)
}

// Oracle answers whether actor holds permission.
type Oracle interface {
	Can(ctx context.Context, actor Actor, permission string) (bool, error)
}

// OracleFunc adapts a function into an Oracle.
type OracleFunc func(ctx context.Context, actor Actor, permission string) (bool, error)

// Can calls the underlying function.
func (fn OracleFunc) Can(ctx context.Context, actor Actor, permission string) (bool, error) {
	return fn(ctx, actor, permission)
}

// Gate pairs a Resolver with an Oracle. When no explicit actor is supplied the
// Resolver provides one; a missing Resolver or a nil resolved actor yields
// ErrNoActor. Errors from either collaborator are returned unmodified.
type Gate struct {
	Resolver Resolver
	Oracle   Oracle
}

// NewGate returns a Gate using the context resolver when resolver is nil.
func NewGate(oracle Oracle, resolver Resolver) Gate {
	if resolver == nil {
		resolver = ContextResolver()
	}
	return Gate{Resolver: resolver, Oracle: oracle}
}

// Allows resolves actor when nil and asks the Oracle about permission.
func (g Gate) Allows(ctx context.Context, permission string, actor Actor) (bool, error) {
	if isNilActor(actor) {
		if g.Resolver == nil {
			return false, ErrNoActor
		}
		resolved, err := g.Resolver.Resolve(ctx)
		if err != nil {
			return false, err
		}
		if isNilActor(resolved) {
			return false, ErrNoActor
		}
		actor = resolved
	}
	if g.Oracle == nil {
		return false, ErrNoOracle
	}
	return g.Oracle.Can(ctx, actor, permission)
}

type actorKey struct{}

// WithActor returns a context carrying actor for ContextResolver.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the actor stored by WithActor.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return nil, false
	}
	actor, ok := ctx.Value(actorKey{}).(Actor)
	if !ok || isNilActor(actor) {
		return nil, false
	}
	return actor, true
}

// ContextResolver resolves the actor stored by WithActor, failing with
// ErrNoActor when the context has none.
func ContextResolver() Resolver {
	return ResolverFunc(func(ctx context.Context) (Actor, error) {
		actor, ok := ActorFromContext(ctx)
		if !ok {
			return nil, ErrNoActor
		}
		return actor, nil
	})
}

func isNilActor(actor Actor) bool {
	if actor == nil {
		return true
	}
	if subject, ok := actor.(*Subject); ok && subject == nil {
		return true
	}
	return false
}

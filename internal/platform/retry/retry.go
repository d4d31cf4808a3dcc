// Package retry encapsule la politique de retry des appels stores :
// backoff exponentiel, tentatives bornées, et distinction entre erreurs
// transitoires (timeout, connexion) et erreurs permanentes (précondition
// violée) qui ne doivent jamais être rejouées.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

type Policy struct {
	MaxTries        uint
	InitialInterval time.Duration
}

func DefaultPolicy() Policy {
	return Policy{MaxTries: 5, InitialInterval: 100 * time.Millisecond}
}

// Do rejoue op tant que l'erreur est transitoire, dans la limite de la
// politique. op DOIT être idempotente : on rejoue en bloc, pas de rollback.
func Do[T any](ctx context.Context, p Policy, op func() (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	return backoff.Retry(ctx, op, backoff.WithBackOff(b), backoff.WithMaxTries(p.MaxTries))
}

// DoVoid : même politique pour les opérations sans valeur de retour.
func DoVoid(ctx context.Context, p Policy, op func() error) error {
	_, err := Do(ctx, p, func() (struct{}, error) {
		return struct{}{}, op()
	})
	return err
}

// Permanent marque une erreur comme non-retentable (coupe le backoff court).
func Permanent(err error) error {
	return backoff.Permanent(err)
}

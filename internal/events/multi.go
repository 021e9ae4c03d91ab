package events

import (
	"context"
	"errors"

	"github.com/Vovarama1992/supchat/internal/supchat"
)

// Multi fans an event out to every publisher and joins their errors.
type Multi []supchat.Publisher

func (m Multi) Publish(ctx context.Context, ev supchat.Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

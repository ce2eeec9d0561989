package mock

import (
	"context"

	"github.com/fwojciec/webintel"
)

var _ webintel.Asker = (*Asker)(nil)

// Asker is a mock implementation of webintel.Asker.
type Asker struct {
	AskFn    func(ctx context.Context, req *webintel.AskRequest) (*webintel.Answer, error)
	StreamFn func(ctx context.Context, req *webintel.AskRequest, onToken func(string) error) (*webintel.Answer, error)
}

func (a *Asker) Ask(ctx context.Context, req *webintel.AskRequest) (*webintel.Answer, error) {
	return a.AskFn(ctx, req)
}

func (a *Asker) Stream(ctx context.Context, req *webintel.AskRequest, onToken func(string) error) (*webintel.Answer, error) {
	return a.StreamFn(ctx, req, onToken)
}

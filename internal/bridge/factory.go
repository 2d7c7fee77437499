package bridge

import (
	"errors"
	"time"

	"couple-cards/internal/hub"
	"couple-cards/internal/storage"
)

type Options struct {
	Store         *storage.Adapter
	Channel       Channel
	HubURL        string
	PollInterval  time.Duration
	ReconnectBase time.Duration
	ReconnectMax  time.Duration
}

// New builds the bridge variant for the detected transport mode.
func New(mode hub.Mode, opts Options) (hub.Bridge, error) {
	switch mode {
	case hub.ModeRemote:
		wsURL, err := HubWebsocketURL(opts.HubURL)
		if err != nil {
			return nil, err
		}
		return NewRemote(wsURL, opts.ReconnectBase, opts.ReconnectMax), nil
	case hub.ModeBroadcast:
		if opts.Channel == nil {
			return nil, errors.New("broadcast mode requires a channel")
		}
		if opts.Store == nil {
			return nil, errors.New("broadcast mode requires storage")
		}
		return NewBroadcast(opts.Store, opts.Channel), nil
	case hub.ModeStorage:
		if opts.Store == nil {
			return nil, errors.New("storage mode requires storage")
		}
		return NewPoll(opts.Store, opts.PollInterval), nil
	}
	return nil, errors.New("unknown transport mode: " + string(mode))
}

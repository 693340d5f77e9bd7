package hub

import "errors"

var (
	ErrHubAlreadyRunning    = errors.New("hub is already running")
	ErrHubNotRunning        = errors.New("hub is not running")
	ErrRefreshChannelFull   = errors.New("refresh channel is full")
	ErrSubscribeChannelFull = errors.New("subscribe channel is full")
)

package cache

import "context"

type noop struct{}

// NewNoop returns a Store that never hits and never stores.
func NewNoop() Store { return noop{} }

func (noop) Get(context.Context, string, string) (*Entry, error) { return nil, nil }

func (noop) Set(context.Context, string, string, Result) error { return nil }

func (noop) InvalidateURL(context.Context, string) (int, error) { return 0, nil }

func (noop) Stats(context.Context) (Stats, error) { return Stats{}, nil }

func (noop) Clear(context.Context) error { return nil }

func (noop) Prune(context.Context) (int, error) { return 0, nil }

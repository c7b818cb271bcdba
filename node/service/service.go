/*
 * Copyright (c) 2017-2020 The lyra developers
 */

package service

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/lyrachain/lyra/rpc/api"
)

// Service is the embeddable base of every node service. It tracks the
// started/shutdown transitions and owns the service context.
type Service struct {
	ctx      context.Context
	cancel   context.CancelFunc
	started  int32
	shutdown int32
}

func (s *Service) Start() error {
	if atomic.AddInt32(&s.started, 1) != 1 {
		return fmt.Errorf("service is already in the process of started")
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	return nil
}

func (s *Service) Stop() error {
	if atomic.AddInt32(&s.shutdown, 1) != 1 {
		return fmt.Errorf("service is already in the process of shutting down")
	}
	defer func() {
		s.cancel()
	}()
	return nil
}

func (s *Service) IsStarted() bool {
	return atomic.LoadInt32(&s.started) != 0
}

func (s *Service) IsShutdown() bool {
	return atomic.LoadInt32(&s.shutdown) != 0
}

func (s *Service) Context() context.Context {
	return s.ctx
}

func (s *Service) APIs() []api.API {
	return nil
}

func (s *Service) Status() error {
	return nil
}

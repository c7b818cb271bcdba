// Copyright (c) 2017-2020 The lyra developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package node

import (
	"github.com/lyrachain/lyra/common/jobs"
	"github.com/lyrachain/lyra/config"
	"github.com/lyrachain/lyra/core/event"
	"github.com/lyrachain/lyra/node/service"
	"github.com/lyrachain/lyra/rpc/api"
	"github.com/lyrachain/lyra/services/acct"
	"github.com/lyrachain/lyra/services/mempool"
	"github.com/lyrachain/lyra/services/tx"
)

// Node assembles the node services around a shared event bus and job
// scheduler and drives their lifecycle through the service registry.
type Node struct {
	cfg      *config.Config
	registry *service.ServiceRegistry
	jobs     *jobs.Queue
	events   *event.Bus
}

// New builds the service graph for the given configuration. The
// transaction pool policy is taken from the txpool config options.
func New(cfg *config.Config) (*Node, error) {
	n := &Node{
		cfg:      cfg,
		registry: service.NewServiceRegistry(),
		jobs:     jobs.NewQueue(),
		events:   event.NewBus(),
	}

	accounts, err := acct.New()
	if err != nil {
		return nil, err
	}
	if err := n.registry.RegisterService(accounts); err != nil {
		return nil, err
	}

	txPool := mempool.New(&mempool.Config{
		Policy: mempool.Policy{
			StorageLimit:    cfg.TxPoolStorageLimit,
			ProcessInterval: cfg.TxPoolProcessEvery,
			ExpiryInterval:  cfg.TxPoolExpireEvery,
		},
		Accounts: accounts,
		TxLogic:  tx.New(),
		Events:   n.events,
		Jobs:     n.jobs,
	})
	if err := n.registry.RegisterService(txPool); err != nil {
		return nil, err
	}

	return n, nil
}

// Start starts every registered service.
func (n *Node) Start() error {
	log.Info("Starting node services")
	return n.registry.StartAll()
}

// Stop stops every registered service in reverse registration order and
// shuts the job scheduler down, waiting for in-flight ticks.
func (n *Node) Stop() error {
	log.Info("Stopping node services")
	err := n.registry.StopAll()
	n.jobs.Shutdown()
	return err
}

// TxPool returns the running transaction pool service.
func (n *Node) TxPool() (*mempool.TxPool, error) {
	var txPool *mempool.TxPool
	if err := n.registry.FetchService(&txPool); err != nil {
		return nil, err
	}
	return txPool, nil
}

// Accounts returns the running account manager service.
func (n *Node) Accounts() (*acct.AccountManager, error) {
	var accounts *acct.AccountManager
	if err := n.registry.FetchService(&accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

// Events returns the node event bus.
func (n *Node) Events() *event.Bus {
	return n.events
}

// APIs collects the public API descriptors of every registered service.
func (n *Node) APIs() []api.API {
	var apis []api.API
	for _, svc := range n.registry.Services() {
		apis = append(apis, svc.APIs()...)
	}
	return apis
}

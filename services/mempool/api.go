package mempool

import (
	"fmt"
	"sort"

	"github.com/lyrachain/lyra/rpc/api"
)

func (mp *TxPool) APIs() []api.API {
	return []api.API{
		{
			NameSpace: api.DefaultServiceNameSpace,
			Service:   NewPublicMempoolAPI(mp),
			Public:    true,
		},
	}
}

type PublicMempoolAPI struct {
	txPool *TxPool
}

func NewPublicMempoolAPI(txPool *TxPool) *PublicMempoolAPI {
	return &PublicMempoolAPI{txPool}
}

// GetMempool enumerates the pool by filter; see TxPool.GetAll for the
// recognised filters.
func (api *PublicMempoolAPI) GetMempool(filter *string, reverse bool, limit int) (interface{}, error) {
	log.Trace("GetMempool called")
	list := "ready"
	if filter != nil {
		list = *filter
	}
	return api.txPool.GetAll(list, QueryParams{Reverse: reverse, Limit: limit}), nil
}

func (api *PublicMempoolAPI) GetMempoolCount() (interface{}, error) {
	return fmt.Sprintf("%d", api.txPool.Count()), nil
}

func (api *PublicMempoolAPI) GetMempoolUsage() (interface{}, error) {
	u := api.txPool.GetUsage()
	return map[string]int{
		"unverified": u.Unverified,
		"pending":    u.Pending,
		"ready":      u.Ready,
		"invalid":    u.Invalid,
		"total":      u.Total,
	}, nil
}

// GetReadyIds returns the ids of every ready transaction, sorted.
func (api *PublicMempoolAPI) GetReadyIds() (interface{}, error) {
	txs := api.txPool.GetReady(0)
	ids := make([]string, 0, len(txs))
	for _, t := range txs {
		ids = append(ids, t.Id)
	}
	sort.Strings(ids)
	return ids, nil
}

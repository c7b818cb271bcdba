package acct

import "fmt"

type PublicAccountManagerAPI struct {
	am *AccountManager
}

func NewPublicAccountManagerAPI(am *AccountManager) *PublicAccountManagerAPI {
	return &PublicAccountManagerAPI{am}
}

func (api *PublicAccountManagerAPI) GetBalance(address string) (interface{}, error) {
	return api.am.GetBalance(address).String(), nil
}

func (api *PublicAccountManagerAPI) GetAccountCount() (interface{}, error) {
	return fmt.Sprintf("%d", api.am.Count()), nil
}

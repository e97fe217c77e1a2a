package httpapi

import (
	"accountd/internal/account"
	"accountd/internal/store"
)

type accountCredentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (c accountCredentials) toInput() account.Credentials {
	return account.Credentials{Username: c.Username, Password: c.Password}
}

type accountCreate struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func (c accountCreate) toInput() account.CreateInput {
	return account.CreateInput{
		Username:  c.Username,
		Password:  c.Password,
		FirstName: c.FirstName,
		LastName:  c.LastName,
	}
}

type accountPayload struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	CredentialID string `json:"credentialId"`
}

func newAccountPayload(acct store.Account) accountPayload {
	return accountPayload{
		ID:           acct.ID,
		Username:     acct.Username,
		FirstName:    acct.FirstName,
		LastName:     acct.LastName,
		CredentialID: acct.CredentialID,
	}
}

type authPayload struct {
	Token   string         `json:"token"`
	Account accountPayload `json:"account"`
}

func newAuthPayload(auth account.Auth) authPayload {
	return authPayload{Token: auth.Token, Account: newAccountPayload(auth.Account)}
}

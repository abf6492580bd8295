package accounts

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"committeesync/internal/domain"

	"github.com/patrickmn/go-cache"
	"golang.org/x/oauth2/clientcredentials"
)

// Account kinds. The kind selects which client adapter may use the account.
const (
	KindVideo    = "video"
	KindCalendar = "calendar"
)

// Account is one provider credential set. OwnerID is the provider-side
// principal resources are created under (the Zoom host user, the Google
// calendar id).
type Account struct {
	ID           string
	Kind         string
	ClientID     string
	ClientSecret string
	TokenURL     string
	OwnerID      string
}

// Registry resolves account ids to authenticated HTTP clients. Clients carry
// an OAuth2 client-credentials token source and are cached so tokens are
// reused across requests until they expire.
type Registry struct {
	mu       sync.Mutex
	accounts map[string]Account
	clients  *cache.Cache
}

func NewRegistry(accounts []Account) *Registry {
	byID := make(map[string]Account, len(accounts))
	for _, a := range accounts {
		byID[a.ID] = a
	}
	return &Registry{
		accounts: byID,
		clients:  cache.New(45*time.Minute, 10*time.Minute),
	}
}

// Account returns the configured account, or ErrUnknownAccount.
func (r *Registry) Account(id string) (Account, error) {
	a, ok := r.accounts[id]
	if !ok {
		return Account{}, fmt.Errorf("%w: %s", domain.ErrUnknownAccount, id)
	}
	return a, nil
}

// Client returns an HTTP client authenticated as the account. The underlying
// token source refreshes itself; the client is safe to cache and share.
func (r *Registry) Client(ctx context.Context, accountID string) (*http.Client, error) {
	a, err := r.Account(accountID)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.clients.Get(accountID); ok {
		return c.(*http.Client), nil
	}
	conf := &clientcredentials.Config{
		ClientID:     a.ClientID,
		ClientSecret: a.ClientSecret,
		TokenURL:     a.TokenURL,
	}
	// Detach from the request context: the client outlives this call.
	client := conf.Client(context.Background())
	client.Timeout = 30 * time.Second
	r.clients.SetDefault(accountID, client)
	return client, nil
}

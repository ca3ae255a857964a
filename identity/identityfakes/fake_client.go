package identityfakes

import (
	"context"
	"sync"

	"github.com/trovity/go-portal-server/identity"
)

var _ identity.Client = (*FakeClient)(nil)

// FakeClient is an in-memory identity.Client for tests. Token validity is a
// plain flag toggled by the test; calls are counted so ordering and
// idempotence properties can be asserted.
type FakeClient struct {
	lock sync.Mutex

	loggedIn    bool
	accessToken string
	sink        identity.EventSink

	refreshErr error

	InitCalls        int
	LoginCalls       int
	LogoutCalls      int
	UpdateTokenCalls int
}

func NewFakeClient() *FakeClient {
	return &FakeClient{}
}

// SetLoggedIn toggles the simulated token validity.
func (c *FakeClient) SetLoggedIn(loggedIn bool) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.loggedIn = loggedIn
	if loggedIn && c.accessToken == "" {
		c.accessToken = "fake-access-token"
	}
	if !loggedIn {
		c.accessToken = ""
	}
}

// SetRefreshError makes subsequent UpdateToken calls fail.
func (c *FakeClient) SetRefreshError(err error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.refreshErr = err
}

// Emit pushes an event to the subscribed sink, if any.
func (c *FakeClient) Emit(event identity.Event) {
	c.lock.Lock()
	sink := c.sink
	c.lock.Unlock()
	if sink != nil {
		sink(event)
	}
}

func (c *FakeClient) Init(ctx context.Context, onAuthenticated, onUnauthenticated func()) {
	c.lock.Lock()
	c.InitCalls++
	loggedIn := c.loggedIn
	c.lock.Unlock()

	go func() {
		if loggedIn {
			onAuthenticated()
			return
		}
		onUnauthenticated()
	}()
}

func (c *FakeClient) IsLoggedIn() bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.loggedIn
}

func (c *FakeClient) Login(ctx context.Context) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.LoginCalls++
}

func (c *FakeClient) Logout(ctx context.Context) {
	c.lock.Lock()
	c.LogoutCalls++
	c.loggedIn = false
	c.accessToken = ""
	sink := c.sink
	c.lock.Unlock()

	if sink != nil {
		sink(identity.Event{Kind: identity.EventLoggedOut})
	}
}

func (c *FakeClient) UpdateToken(ctx context.Context, onRefreshed func()) error {
	c.lock.Lock()
	c.UpdateTokenCalls++
	err := c.refreshErr
	c.lock.Unlock()

	if err != nil {
		return err
	}
	if onRefreshed != nil {
		onRefreshed()
	}
	return nil
}

func (c *FakeClient) AccessToken() string {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.accessToken
}

func (c *FakeClient) Subscribe(sink identity.EventSink) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.sink = sink
}

package profilefakes

import (
	"context"
	"sync"

	"github.com/trovity/go-portal-server/session"
)

var _ session.ProfileFetcher = (*FakeFetcher)(nil)

// FakeFetcher is an in-memory ProfileFetcher for tests. It counts fetches
// and can be made slow or failing to exercise the in-flight guard.
type FakeFetcher struct {
	lock sync.Mutex

	profile *session.UserProfile
	err     error
	block   chan struct{}

	FetchCalls int
}

func NewFakeFetcher(profile *session.UserProfile) *FakeFetcher {
	return &FakeFetcher{profile: profile}
}

// SetError makes subsequent fetches fail.
func (f *FakeFetcher) SetError(err error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.err = err
}

// BlockUntilReleased makes fetches park until Release is called, simulating
// an outstanding hydration.
func (f *FakeFetcher) BlockUntilReleased() {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.block = make(chan struct{})
}

// Release unparks any blocked fetches.
func (f *FakeFetcher) Release() {
	f.lock.Lock()
	block := f.block
	f.block = nil
	f.lock.Unlock()
	if block != nil {
		close(block)
	}
}

// Calls returns the number of fetches issued so far.
func (f *FakeFetcher) Calls() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.FetchCalls
}

func (f *FakeFetcher) FetchProfile(ctx context.Context, accessToken string) (*session.UserProfile, error) {
	f.lock.Lock()
	f.FetchCalls++
	block := f.block
	err := f.err
	profile := f.profile
	f.lock.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err != nil {
		return nil, err
	}
	return profile, nil
}

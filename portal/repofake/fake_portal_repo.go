package repofake

import (
	"sort"
	"sync"
	"time"

	"github.com/trovity/go-portal-server/portal"
)

var _ portal.Repo = (*FakePortalRepo)(nil)

// FakePortalRepo serves the static portal data set. The portal pages are
// bound to mock data; this repo is both the test double and the stand-in
// backend the server ships with.
type FakePortalRepo struct {
	lock     sync.RWMutex
	policies map[string][]*portal.Policy
	claims   map[string][]*portal.Claim
	quotes   map[string][]*portal.Quote
}

func NewFakePortalRepo() *FakePortalRepo {
	return &FakePortalRepo{
		policies: make(map[string][]*portal.Policy),
		claims:   make(map[string][]*portal.Claim),
		quotes:   make(map[string][]*portal.Quote),
	}
}

// NewSeededPortalRepo returns a repo pre-populated with the demo data set
// for the given user.
func NewSeededPortalRepo(userID string) *FakePortalRepo {
	r := NewFakePortalRepo()
	now := time.Now()

	r.AddPolicy(&portal.Policy{
		ID: "pol-1", UserID: userID, Product: "Health Shield",
		PolicyNumber: "HS-100234", Premium: 420.50, SumInsured: 250000,
		RenewalDate: now.AddDate(0, 3, 0), Status: "active",
	})
	r.AddPolicy(&portal.Policy{
		ID: "pol-2", UserID: userID, Product: "Motor Secure",
		PolicyNumber: "MS-774410", Premium: 180.00, SumInsured: 40000,
		RenewalDate: now.AddDate(0, 7, 0), Status: "active",
	})
	r.AddClaim(&portal.Claim{
		ID: "clm-1", PolicyID: "pol-2", UserID: userID, Amount: 1250.00,
		Status: "open", FiledAt: now.AddDate(0, -1, 0), Reason: "windscreen damage",
	})
	r.AddQuote("trovity", &portal.Quote{ID: "qt-1", Product: "Travel Plus", Premium: 35.00, Term: "1y"})
	r.AddQuote("trovity", &portal.Quote{ID: "qt-2", Product: "Home Guard", Premium: 240.00, Term: "1y"})

	return r
}

func (r *FakePortalRepo) AddPolicy(policy *portal.Policy) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.policies[policy.UserID] = append(r.policies[policy.UserID], policy)
}

func (r *FakePortalRepo) AddClaim(claim *portal.Claim) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.claims[claim.UserID] = append(r.claims[claim.UserID], claim)
}

func (r *FakePortalRepo) AddQuote(realm string, quote *portal.Quote) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.quotes[realm] = append(r.quotes[realm], quote)
}

func (r *FakePortalRepo) PoliciesByUser(userID string) ([]*portal.Policy, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	policies := append([]*portal.Policy(nil), r.policies[userID]...)
	sort.Slice(policies, func(i, j int) bool { return policies[i].ID < policies[j].ID })
	return policies, nil
}

func (r *FakePortalRepo) ClaimsByUser(userID string) ([]*portal.Claim, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	claims := append([]*portal.Claim(nil), r.claims[userID]...)
	sort.Slice(claims, func(i, j int) bool { return claims[i].ID < claims[j].ID })
	return claims, nil
}

func (r *FakePortalRepo) Quotes(realm string) ([]*portal.Quote, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return append([]*portal.Quote(nil), r.quotes[realm]...), nil
}

func (r *FakePortalRepo) Summary(userID string) (*portal.DashboardSummary, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	summary := &portal.DashboardSummary{}
	var nextRenewal time.Time
	for _, p := range r.policies[userID] {
		if p.Status != "active" {
			continue
		}
		summary.ActivePolicies++
		summary.TotalPremium += p.Premium
		if nextRenewal.IsZero() || p.RenewalDate.Before(nextRenewal) {
			nextRenewal = p.RenewalDate
		}
	}
	for _, c := range r.claims[userID] {
		if c.Status == "open" {
			summary.OpenClaims++
		}
	}
	if !nextRenewal.IsZero() {
		summary.NextRenewal = nextRenewal.Format("2006-01-02")
	}
	return summary, nil
}

package store

import (
	"sync"

	"github.com/ppiankov/claimscope/internal/model"
)

// Pool owns the applications that conflict detection scans.
// Iteration order is insertion order; replacing a record keeps its position.
type Pool struct {
	mu      sync.RWMutex
	order   []model.Key
	apps    map[model.Key]model.Application
	reviews map[model.Key]model.Review
	version uint64
}

// NewPool creates an empty pool
func NewPool() *Pool {
	return &Pool{
		apps:    make(map[model.Key]model.Application),
		reviews: make(map[model.Key]model.Review),
	}
}

// Add inserts or replaces a bare claim
func (p *Pool) Add(claim model.Claim) {
	p.PutApplication(model.Application{Claim: claim})
}

// AddAll inserts or replaces application records in order
func (p *Pool) AddAll(apps []model.Application) {
	for _, app := range apps {
		p.PutApplication(app)
	}
}

// PutApplication inserts or replaces a full application record
func (p *Pool) PutApplication(app model.Application) {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := app.Key()
	if _, exists := p.apps[key]; !exists {
		p.order = append(p.order, key)
	}
	p.apps[key] = app
	p.version++
}

// Remove deletes a record and its review; it reports whether the key was present
func (p *Pool) Remove(key model.Key) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.apps[key]; !exists {
		return false
	}
	delete(p.apps, key)
	delete(p.reviews, key)
	for i, k := range p.order {
		if k == key {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
	p.version++
	return true
}

// Get returns the claim stored under key
func (p *Pool) Get(key model.Key) (model.Claim, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	app, ok := p.apps[key]
	return app.Claim, ok
}

// Application returns the full record stored under key
func (p *Pool) Application(key model.Key) (model.Application, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	app, ok := p.apps[key]
	return app, ok
}

// Snapshot returns the claims in pool order together with the version they belong to.
// The slice is a copy; boundary data is shared and must be treated as read-only.
func (p *Pool) Snapshot() ([]model.Claim, uint64) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	claims := make([]model.Claim, 0, len(p.order))
	for _, key := range p.order {
		claims = append(claims, p.apps[key].Claim)
	}
	return claims, p.version
}

// Applications returns every record in pool order
func (p *Pool) Applications() []model.Application {
	p.mu.RLock()
	defer p.mu.RUnlock()

	apps := make([]model.Application, 0, len(p.order))
	for _, key := range p.order {
		apps = append(apps, p.apps[key])
	}
	return apps
}

// Keys returns every key in pool order
func (p *Pool) Keys() []model.Key {
	p.mu.RLock()
	defer p.mu.RUnlock()

	keys := make([]model.Key, len(p.order))
	copy(keys, p.order)
	return keys
}

// Len returns the number of records
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.order)
}

// Version increases on every claim mutation. Reviews do not change it.
func (p *Pool) Version() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.version
}

// SetReview records an eligibility verdict; unknown keys are ignored
func (p *Pool) SetReview(key model.Key, review model.Review) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.apps[key]; !exists {
		return false
	}
	p.reviews[key] = review
	return true
}

// Review returns the recorded verdict for key
func (p *Pool) Review(key model.Key) (model.Review, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	r, ok := p.reviews[key]
	return r, ok
}

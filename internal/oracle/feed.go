package oracle

import (
	"errors"
	"sync"

	"github.com/holiman/uint256"
)

// ErrNoPrice is returned by a feed that has not observed a price yet.
var ErrNoPrice = errors.New("oracle: no price observed for feed")

// PriceFeed is one external price source for one collateral asset. Prices
// are integers in the fixed 8-decimal feed convention (risk.FeedDecimals)
// and are assumed already validated and fresh by the feed's operator.
type PriceFeed interface {
	LatestPrice() (*uint256.Int, error)
}

// MemoryFeed is an in-process PriceFeed holding the latest pushed price.
// The NATS price subscriber updates it on every price message; tests set it
// directly. Until the first SetPrice it reports ErrNoPrice.
type MemoryFeed struct {
	mu    sync.RWMutex
	price *uint256.Int
}

// NewMemoryFeed returns a feed with no price observed yet.
func NewMemoryFeed() *MemoryFeed {
	return &MemoryFeed{}
}

// NewMemoryFeedAt returns a feed pre-seeded with an 8-decimal price.
func NewMemoryFeedAt(price *uint256.Int) *MemoryFeed {
	return &MemoryFeed{price: new(uint256.Int).Set(price)}
}

// SetPrice replaces the latest observed price.
func (f *MemoryFeed) SetPrice(price *uint256.Int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.price = new(uint256.Int).Set(price)
}

func (f *MemoryFeed) LatestPrice() (*uint256.Int, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.price == nil {
		return nil, ErrNoPrice
	}
	return new(uint256.Int).Set(f.price), nil
}
